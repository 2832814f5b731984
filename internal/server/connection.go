package server

import (
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/axonops/logdaemon/internal/frame"
	"github.com/axonops/logdaemon/internal/metrics"
	"github.com/axonops/logdaemon/internal/queue"
	"github.com/axonops/logdaemon/internal/schema"
)

const readBufferSize = 8 * 1024

// handleConnection is the per-connection read → frame → parse+validate →
// enqueue loop. It owns its own frame.Reader for the life of the connection
// and never shares it.
func handleConnection(conn net.Conn, validatorRef *schema.Ref, q *queue.Queue, m *metrics.Metrics, log *slog.Logger) {
	defer conn.Close()

	m.ActiveConns.Inc()
	defer m.ActiveConns.Dec()

	// Loaded once per connection: a reload never invalidates a handler
	// already in flight, per the schema package's Ref semantics.
	validator := validatorRef.Load()

	reader := frame.NewReader()
	scratch := make([]byte, readBufferSize)

	for {
		n, err := conn.Read(scratch)
		if n > 0 {
			reader.Feed(scratch[:n])
			if !drainFrames(reader, validator, q, m, log) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug("connection read error", "error", err)
			}
			return
		}
	}
}

// drainFrames extracts and processes every complete frame currently
// buffered. It returns false if the connection must be torn down (a
// too-large frame, or the queue has been closed).
func drainFrames(reader *frame.Reader, validator *schema.Validator, q *queue.Queue, m *metrics.Metrics, log *slog.Logger) bool {
	for {
		payload, ok, err := reader.Next()
		if err != nil {
			m.FramesRejected.Inc()
			log.Warn("frame rejected, closing connection", "error", err)
			return false
		}
		if !ok {
			return true
		}

		rec, err := validator.ParseFast(payload)
		if err != nil {
			m.ParseFailures.Inc()
			continue
		}

		switch q.TrySend(rec) {
		case queue.Accepted:
			// continue
		case queue.Dropped:
			m.DroppedMessages.Inc()
		case queue.Closed:
			return false
		}
	}
}
