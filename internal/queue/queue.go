// Package queue implements the bounded, multi-producer single-consumer
// queue that decouples connection handlers from the flusher: a buffered
// channel guarded by a mutex-protected closed flag, exposing non-blocking
// TrySend as the only producer entry point.
package queue

import (
	"sync"

	"github.com/axonops/logdaemon/internal/logrecord"
)

// SendResult reports the outcome of a non-blocking TrySend.
type SendResult int

const (
	// Accepted means the record was placed on the queue.
	Accepted SendResult = iota
	// Dropped means the queue was full; the record is lost by design.
	Dropped
	// Closed means the queue has been closed; the caller should stop.
	Closed
)

// Queue is a bounded FIFO of LogRecord. Exactly one producer side is shared
// by all connection handlers; exactly one consumer side is held by the
// flusher.
type Queue struct {
	ch     chan *logrecord.Record
	mu     sync.RWMutex
	closed bool
}

// New creates a queue with the given capacity.
func New(capacity int) *Queue {
	return &Queue{
		ch: make(chan *logrecord.Record, capacity),
	}
}

// TrySend attempts a non-blocking enqueue. It never blocks: a full queue
// yields Dropped, a closed queue yields Closed, and a successful enqueue
// yields Accepted.
//
// The RLock held for the duration of the send prevents racing with Close's
// exclusive lock-then-close, which is what makes it safe to send on ch
// without risking a send-on-closed-channel panic.
func (q *Queue) TrySend(rec *logrecord.Record) SendResult {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return Closed
	}

	select {
	case q.ch <- rec:
		return Accepted
	default:
		return Dropped
	}
}

// Out returns the receive side of the queue, for use in a select statement
// by the single consumer (the flusher). The channel is closed once Close
// has been called and all buffered records have been drained.
func (q *Queue) Out() <-chan *logrecord.Record {
	return q.ch
}

// Close marks the queue closed and closes the underlying channel. Safe to
// call once; subsequent calls are no-ops. After Close, TrySend always
// returns Closed, and Out's channel will be drained then closed to readers.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
