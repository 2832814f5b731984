// Package storage implements the columnar storage engine: it accumulates
// validated log records into an in-memory batch, converts the batch to an
// Arrow record, and writes one compressed Parquet file per flush.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/axonops/logdaemon/internal/logrecord"
	"github.com/axonops/logdaemon/internal/metrics"
)

// TimestampLayout is the millisecond-precision RFC-3339 layout the query
// path renders the timestamp column with.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Schema is the fixed six-column layout every Parquet file uses.
var Schema = arrow.NewSchema(
	[]arrow.Field{
		{Name: "timestamp", Type: arrow.FixedWidthTypes.Timestamp_ms},
		{Name: "level", Type: arrow.BinaryTypes.String},
		{Name: "message", Type: arrow.BinaryTypes.String},
		{Name: "service", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "trace_id", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "metadata", Type: arrow.BinaryTypes.String, Nullable: true},
	},
	nil,
)

// Engine is the single-writer owner of the on-disk log directory. It is
// constructed once, owned exclusively by the flusher, and holds all mutable
// batching state (batch, file counter); it is never shared across
// goroutines.
type Engine struct {
	dir         string
	compression compress.Compression
	batchSize   int
	rotSize     int64 // accepted, currently unused; see DESIGN.md

	metrics *metrics.Metrics

	batch      []*logrecord.Record
	fileCount  uint64
	mu         sync.Mutex // guards batch/fileCount against concurrent AddLog/Flush
}

// New creates the storage engine, creating dir if it does not exist.
func New(dir, compressionName string, batchSize int, rotationSize int64, m *metrics.Metrics) (*Engine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create dir %s: %w", dir, err)
	}

	return &Engine{
		dir:         dir,
		compression: resolveCompression(compressionName),
		batchSize:   batchSize,
		rotSize:     rotationSize,
		metrics:     m,
		batch:       make([]*logrecord.Record, 0, batchSize),
	}, nil
}

// resolveCompression maps snappy|zstd|gzip|none (case-insensitive) to the
// corresponding Parquet codec; any unrecognized value falls back to Snappy.
func resolveCompression(name string) compress.Compression {
	switch strings.ToLower(name) {
	case "zstd":
		return compress.Codecs.Zstd
	case "gzip":
		return compress.Codecs.Gzip
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed
	case "snappy":
		return compress.Codecs.Snappy
	default:
		return compress.Codecs.Snappy
	}
}

// AddLog appends a record to the in-memory batch. If the batch reaches the
// configured size, Flush is invoked before returning. Increments the
// ingest_count counter.
func (e *Engine) AddLog(rec *logrecord.Record) error {
	e.mu.Lock()
	e.batch = append(e.batch, rec)
	full := len(e.batch) >= e.batchSize
	e.mu.Unlock()

	e.metrics.IngestCount.Inc()

	if full {
		return e.Flush()
	}
	return nil
}

// Flush is a no-op if the batch is empty. Otherwise it builds a columnar
// record from the in-memory batch, writes it to a new Parquet file with the
// configured compression, and clears the batch. A second Flush called
// immediately after the first is a no-op and produces no file.
func (e *Engine) Flush() error {
	e.mu.Lock()
	if len(e.batch) == 0 {
		e.mu.Unlock()
		return nil
	}
	batch := e.batch
	e.batch = make([]*logrecord.Record, 0, e.batchSize)
	e.fileCount++
	n := e.fileCount
	e.mu.Unlock()

	start := time.Now()

	record := buildRecord(batch)
	defer record.Release()

	path := e.nextFilePath(n)
	size, err := writeParquetFile(path, record, e.compression)
	if err != nil {
		return fmt.Errorf("storage: flush: %w", err)
	}

	e.metrics.RecordFlush(time.Since(start), size)
	return nil
}

// nextFilePath builds the monotone, time-encoded file name:
// logs_<UTC-YYYYMMDD>_<HHMMSS>_<milliseconds>_<N>.parquet
func (e *Engine) nextFilePath(n uint64) string {
	now := time.Now().UTC()
	name := fmt.Sprintf("logs_%s_%s_%03d_%d.parquet",
		now.Format("20060102"),
		now.Format("150405"),
		now.Nanosecond()/1_000_000,
		n,
	)
	return filepath.Join(e.dir, name)
}

// ListFiles enumerates .parquet files in the storage directory, sorted
// lexicographically (the name encodes a timestamp, so this yields creation
// order).
func (e *Engine) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, fmt.Errorf("storage: list files: %w", err)
	}

	var files []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".parquet") {
			continue
		}
		files = append(files, filepath.Join(e.dir, ent.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Close performs a final flush and releases engine resources. A final-flush
// failure is logged by the caller, not propagated further — there is no one
// left downstream to receive it.
func (e *Engine) Close() error {
	return e.Flush()
}

// buildRecord converts a batch of LogRecord into a six-column Arrow record,
// following the column construction rules of the storage schema: optional
// fields map to nullable columns, metadata is the JSON text of the original
// value (or null if absent).
func buildRecord(batch []*logrecord.Record) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, Schema)
	defer b.Release()

	tsBuilder := b.Field(0).(*array.TimestampBuilder)
	levelBuilder := b.Field(1).(*array.StringBuilder)
	msgBuilder := b.Field(2).(*array.StringBuilder)
	serviceBuilder := b.Field(3).(*array.StringBuilder)
	traceBuilder := b.Field(4).(*array.StringBuilder)
	metaBuilder := b.Field(5).(*array.StringBuilder)

	for _, rec := range batch {
		tsBuilder.Append(arrow.Timestamp(rec.Timestamp.UnixMilli()))
		levelBuilder.Append(rec.Level)
		msgBuilder.Append(rec.Message)

		if rec.Service != nil {
			serviceBuilder.Append(*rec.Service)
		} else {
			serviceBuilder.AppendNull()
		}
		if rec.TraceID != nil {
			traceBuilder.Append(*rec.TraceID)
		} else {
			traceBuilder.AppendNull()
		}
		if rec.Metadata != nil {
			metaBuilder.Append(*rec.Metadata)
		} else {
			metaBuilder.AppendNull()
		}
	}

	return b.NewRecord()
}

// noCloseWriter wraps an io.Writer so that closing the parquet writer built on
// top of it does not close the underlying file, letting the caller fsync the
// file before closing it itself.
type noCloseWriter struct {
	io.Writer
}

// writeParquetFile opens path, writes record as a single row group with the
// given compression, and closes the writer — which writes the footer but
// leaves the file open — then fsyncs and closes the file. Returns the
// resulting file size.
func writeParquetFile(path string, record arrow.Record, codec compress.Compression) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	props := parquet.NewWriterProperties(
		parquet.WithVersion(parquet.V2_LATEST),
		parquet.WithCompression(codec),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(Schema, noCloseWriter{f}, props, arrowProps)
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("create writer: %w", err)
	}

	if err := writer.Write(record); err != nil {
		writer.Close()
		f.Close()
		return 0, fmt.Errorf("write batch: %w", err)
	}

	if err := writer.Close(); err != nil {
		f.Close()
		return 0, fmt.Errorf("finalize: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return 0, fmt.Errorf("fsync: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("stat: %w", err)
	}
	size := info.Size()

	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close: %w", err)
	}

	return size, nil
}
