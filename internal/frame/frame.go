// Package frame decodes the daemon's length-prefixed wire protocol: a
// big-endian 32-bit length L followed by exactly L bytes of payload.
package frame

import (
	"encoding/binary"
	"errors"
)

// MaxFrameSize is the safety bound on a single frame's payload length.
// The wire protocol itself has no maximum; a frame whose declared length
// exceeds this is fatal to the connection.
const MaxFrameSize = 16 * 1024 * 1024 // 16 MiB

// ErrFrameTooLarge is returned by Next when a frame's declared length
// exceeds MaxFrameSize. The connection must be closed; the accumulator is
// no longer trustworthy.
var ErrFrameTooLarge = errors.New("frame: declared length exceeds safety bound")

const lengthPrefixSize = 4

// Reader is a re-entrant frame accumulator. Feed appends newly read bytes;
// Next repeatedly drains whole frames from what has been accumulated so
// far. A single Reader is owned by one connection for its lifetime.
type Reader struct {
	buf []byte
}

// NewReader returns an empty frame accumulator.
func NewReader() *Reader {
	return &Reader{}
}

// Feed appends newly read bytes to the accumulator. The caller's slice is
// copied; Feed does not retain it.
func (r *Reader) Feed(data []byte) {
	r.buf = append(r.buf, data...)
}

// Next extracts the next complete frame from the accumulator, if any. It
// returns (payload, true, nil) when a whole frame is available, (nil,
// false, nil) when more bytes are needed, and (nil, false,
// ErrFrameTooLarge) when the declared length exceeds MaxFrameSize. Callers
// should call Next in a loop after each Feed until it reports false, to
// drain every frame that arrived in one read.
//
// A length of 0 is legal and yields a non-nil, zero-length payload.
func (r *Reader) Next() ([]byte, bool, error) {
	if len(r.buf) < lengthPrefixSize {
		return nil, false, nil
	}

	length := binary.BigEndian.Uint32(r.buf[:lengthPrefixSize])
	if length > MaxFrameSize {
		return nil, false, ErrFrameTooLarge
	}

	total := lengthPrefixSize + int(length)
	if len(r.buf) < total {
		return nil, false, nil
	}

	payload := make([]byte, length)
	copy(payload, r.buf[lengthPrefixSize:total])

	remaining := len(r.buf) - total
	copy(r.buf, r.buf[total:])
	r.buf = r.buf[:remaining]

	return payload, true, nil
}

// Encode wraps a payload in the wire's 4-byte big-endian length prefix. Used
// by the ingest CLI helper to produce frames a Reader can decode.
func Encode(payload []byte) []byte {
	out := make([]byte, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(out[:lengthPrefixSize], uint32(len(payload)))
	copy(out[lengthPrefixSize:], payload)
	return out
}
