package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/axonops/logdaemon/internal/frame"
	"github.com/axonops/logdaemon/internal/metrics"
	"github.com/axonops/logdaemon/internal/schema"
	"github.com/axonops/logdaemon/internal/storage"
)

func newTestCoordinator(t *testing.T, maxConns, queueCap int, flushInterval time.Duration) (*Coordinator, *storage.Engine) {
	t.Helper()

	validator, err := schema.DefaultSchema()
	require.NoError(t, err)

	m := metrics.New(t.Name())
	engine, err := storage.New(t.TempDir(), "snappy", 1000, 0, m)
	require.NoError(t, err)

	socketPath := filepath.Join(t.TempDir(), "logdaemon.sock")
	c := New(Config{
		SocketPath:     socketPath,
		MaxConnections: maxConns,
		QueueCapacity:  queueCap,
		FlushInterval:  flushInterval,
	}, schema.NewRef(validator), engine, m, discardLogger())

	return c, engine
}

func TestCoordinator_SingleRecordEndToEnd(t *testing.T) {
	c, engine := newTestCoordinator(t, 4, 16, 50*time.Millisecond)
	require.NoError(t, c.Start())

	conn, err := net.Dial("unix", c.socketPath)
	require.NoError(t, err)

	payload := []byte(`{"timestamp":"2026-01-15T19:00:00Z","level":"info","message":"hi"}`)
	_, err = conn.Write(frame.Encode(payload))
	require.NoError(t, err)
	conn.Close()

	// Allow the idle flush to run.
	time.Sleep(200 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(ctx))

	files, err := engine.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestCoordinator_InvalidRecordDoesNotCloseConnection(t *testing.T) {
	c, _ := newTestCoordinator(t, 4, 16, time.Second)
	require.NoError(t, c.Start())

	conn, err := net.Dial("unix", c.socketPath)
	require.NoError(t, err)

	_, err = conn.Write(frame.Encode([]byte(`{"level":"info","message":"missing timestamp"}`)))
	require.NoError(t, err)

	// The connection should remain usable: send a valid record next.
	_, err = conn.Write(frame.Encode([]byte(`{"timestamp":"2026-01-15T19:00:00Z","level":"info","message":"ok"}`)))
	require.NoError(t, err)

	// Shutdown waits for every handler; a handler exits once its peer closes.
	conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(ctx))
}
