package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_SingleFrameInOneRead(t *testing.T) {
	r := NewReader()
	r.Feed(Encode([]byte(`{"a":1}`)))

	payload, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(payload))

	_, ok, err = r.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReader_MultipleFramesInOneRead(t *testing.T) {
	r := NewReader()
	r.Feed(append(Encode([]byte("one")), Encode([]byte("two"))...))

	p1, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "one", string(p1))

	p2, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", string(p2))

	_, ok, _ = r.Next()
	assert.False(t, ok)
}

func TestReader_FrameSplitAcrossReads(t *testing.T) {
	r := NewReader()
	whole := Encode([]byte("hello world"))

	for i := 0; i < len(whole); i++ {
		r.Feed(whole[i : i+1])
		payload, ok, err := r.Next()
		require.NoError(t, err)
		if i < len(whole)-1 {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok)
		assert.Equal(t, "hello world", string(payload))
	}
}

func TestReader_ZeroLengthFrameIsLegal(t *testing.T) {
	r := NewReader()
	r.Feed(Encode(nil))

	payload, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, len(payload))
}

func TestReader_FrameTooLarge(t *testing.T) {
	r := NewReader()
	oversized := make([]byte, 4)
	// declare a length far beyond MaxFrameSize without allocating that much
	oversized[0] = 0xFF
	oversized[1] = 0xFF
	oversized[2] = 0xFF
	oversized[3] = 0xFF
	r.Feed(oversized)

	_, ok, err := r.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestReader_AccumulatorRetainedAcrossReads(t *testing.T) {
	r := NewReader()
	r.Feed([]byte{0, 0}) // partial length prefix
	_, ok, err := r.Next()
	require.NoError(t, err)
	require.False(t, ok)

	r.Feed([]byte{0, 5}) // completes the length prefix: L=5
	_, ok, err = r.Next()
	require.NoError(t, err)
	require.False(t, ok, "payload not yet fully buffered")

	r.Feed([]byte("hello"))
	payload, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", string(payload))
}
