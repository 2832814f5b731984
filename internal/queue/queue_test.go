package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonops/logdaemon/internal/logrecord"
)

func rec(msg string) *logrecord.Record {
	return &logrecord.Record{Level: "info", Message: msg}
}

func TestQueue_AcceptsUntilFull(t *testing.T) {
	q := New(2)

	assert.Equal(t, Accepted, q.TrySend(rec("a")))
	assert.Equal(t, Accepted, q.TrySend(rec("b")))
	assert.Equal(t, Dropped, q.TrySend(rec("c")), "capacity 2 queue should drop the third send")
}

func TestQueue_DrainThenDropNoLongerFull(t *testing.T) {
	q := New(1)
	require.Equal(t, Accepted, q.TrySend(rec("a")))
	require.Equal(t, Dropped, q.TrySend(rec("b")))

	<-q.Out()

	assert.Equal(t, Accepted, q.TrySend(rec("c")))
}

func TestQueue_CloseRejectsFurtherSends(t *testing.T) {
	q := New(4)
	q.Close()

	assert.Equal(t, Closed, q.TrySend(rec("a")))
}

func TestQueue_CloseIsIdempotent(t *testing.T) {
	q := New(1)
	q.Close()
	assert.NotPanics(t, func() { q.Close() })
}

func TestQueue_OutDrainsBufferedAfterClose(t *testing.T) {
	q := New(4)
	require.Equal(t, Accepted, q.TrySend(rec("a")))
	require.Equal(t, Accepted, q.TrySend(rec("b")))
	q.Close()

	var got []string
	for r := range q.Out() {
		got = append(got, r.Message)
	}
	assert.Equal(t, []string{"a", "b"}, got)
}
