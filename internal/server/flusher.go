package server

import (
	"log/slog"
	"time"

	"github.com/axonops/logdaemon/internal/queue"
	"github.com/axonops/logdaemon/internal/storage"
)

// Flusher is the single consumer of the queue and sole owner of the storage
// engine. It drains records into the engine, flushes on an idle timer so
// batches smaller than the configured size are never stranded in memory
// under light load, and performs one final flush when the queue is closed.
type Flusher struct {
	q             *queue.Queue
	engine        *storage.Engine
	flushInterval time.Duration
	log           *slog.Logger
}

// NewFlusher constructs a Flusher. The engine is moved into the flusher: no
// other goroutine may touch it afterward.
func NewFlusher(q *queue.Queue, engine *storage.Engine, flushInterval time.Duration, log *slog.Logger) *Flusher {
	return &Flusher{
		q:             q,
		engine:        engine,
		flushInterval: flushInterval,
		log:           log,
	}
}

// Run drains the queue until it is closed. It relies solely on the queue
// channel closing to know when to perform its final flush and exit — not on
// any external context — since the coordinator guarantees the queue is only
// closed after the listener has stopped accepting new connections.
func (f *Flusher) Run() {
	ticker := time.NewTicker(f.flushInterval)
	defer ticker.Stop()

	out := f.q.Out()
	for {
		select {
		case rec, ok := <-out:
			if !ok {
				if err := f.engine.Flush(); err != nil {
					f.log.Error("final flush failed", "error", err)
				}
				return
			}
			if err := f.engine.AddLog(rec); err != nil {
				f.log.Error("add log failed", "error", err)
			}
		case <-ticker.C:
			if err := f.engine.Flush(); err != nil {
				f.log.Error("idle flush failed", "error", err)
			}
		}
	}
}
