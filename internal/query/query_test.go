package query

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonops/logdaemon/internal/logrecord"
	"github.com/axonops/logdaemon/internal/metrics"
	"github.com/axonops/logdaemon/internal/storage"
)

func TestCount_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	engine, err := storage.New(dir, "snappy", 5, 0, metrics.New(t.Name()))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, engine.AddLog(&logrecord.Record{Level: "info", Message: "m"}))
	}
	require.NoError(t, engine.Close())

	n, err := Count(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
}

func TestCount_EmptyDirectory(t *testing.T) {
	n, err := Count(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestScan_PrintsEveryRow(t *testing.T) {
	dir := t.TempDir()
	engine, err := storage.New(dir, "snappy", 10, 0, metrics.New(t.Name()))
	require.NoError(t, err)

	svc := "svc"
	require.NoError(t, engine.AddLog(&logrecord.Record{Level: "info", Message: "hello", Service: &svc}))
	require.NoError(t, engine.Close())

	var buf bytes.Buffer
	require.NoError(t, Scan(dir, &buf))

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "service=svc")
}
