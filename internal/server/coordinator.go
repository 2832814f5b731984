// Package server implements the ingestion side of the daemon: the
// coordinator that owns the listener and admission control, the
// per-connection handler, and the flusher that owns the storage engine.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/axonops/logdaemon/internal/metrics"
	"github.com/axonops/logdaemon/internal/queue"
	"github.com/axonops/logdaemon/internal/schema"
	"github.com/axonops/logdaemon/internal/storage"
)

// Coordinator binds the listener, enforces maximum concurrency, spawns
// per-connection handlers, and runs the flusher. It is the sole owner of
// the listener and the queue's sender side; the flusher owns the receiver
// side and the storage engine.
type Coordinator struct {
	socketPath string
	maxConns   int64

	validator *schema.Ref
	engine    *storage.Engine
	metrics   *metrics.Metrics
	log       *slog.Logger

	flushInterval time.Duration

	listener net.Listener
	q        *queue.Queue
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
}

// Config bundles the values a Coordinator needs at construction.
type Config struct {
	SocketPath     string
	MaxConnections int
	QueueCapacity  int
	FlushInterval  time.Duration
}

// New constructs a Coordinator. The validator is shared read-only by every
// handler; the engine is handed to the flusher and touched by nothing else.
func New(cfg Config, validator *schema.Ref, engine *storage.Engine, m *metrics.Metrics, log *slog.Logger) *Coordinator {
	return &Coordinator{
		socketPath:    cfg.SocketPath,
		maxConns:      int64(cfg.MaxConnections),
		validator:     validator,
		engine:        engine,
		metrics:       m,
		log:           log,
		flushInterval: cfg.FlushInterval,
		q:             queue.New(cfg.QueueCapacity),
		sem:           semaphore.NewWeighted(int64(cfg.MaxConnections)),
	}
}

// Start unlinks any stale socket at socketPath, binds the listener, spawns
// the flusher, and enters the accept loop on its own goroutine. It returns
// once the listener is bound.
func (c *Coordinator) Start() error {
	if _, err := os.Stat(c.socketPath); err == nil {
		if err := os.Remove(c.socketPath); err != nil {
			return fmt.Errorf("server: removing stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	c.listener = ln

	flusher := NewFlusher(c.q, c.engine, c.flushInterval, c.log)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		flusher.Run()
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.acceptLoop()
	}()

	c.log.Info("server listening", "socket", c.socketPath, "max_connections", c.maxConns)
	return nil
}

// acceptLoop acquires one admission permit per connection before calling
// Accept; when max connections are in flight, this blocks new accepts and
// kernel-level backpressure accumulates in the socket's backlog.
func (c *Coordinator) acceptLoop() {
	ctx := context.Background()
	for {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return // context never cancelled in practice; listener close breaks Accept below
		}

		conn, err := c.listener.Accept()
		if err != nil {
			c.sem.Release(1)
			if errors.Is(err, net.ErrClosed) {
				return
			}
			c.log.Warn("accept error", "error", err)
			continue
		}

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			defer c.sem.Release(1)
			handleConnection(conn, c.validator, c.q, c.metrics, c.log)
		}()
	}
}

// Shutdown stops accepting new connections, closes the queue so the flusher
// performs its final flush, and waits for every in-flight handler and the
// flusher to exit or for ctx to expire.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	if c.listener != nil {
		_ = c.listener.Close()
	}

	c.q.Close()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
