// Package query implements the analytical read path: scanning the storage
// directory's Parquet files in flush order and either summing row counts or
// pretty-printing every row.
package query

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/axonops/logdaemon/internal/storage"
)

// Row is a single printable log row, reconstructed from a Parquet column
// batch.
type Row struct {
	Timestamp string
	Level     string
	Message   string
	Service   string
	TraceID   string
	Metadata  string
}

// Count scans every Parquet file in dir and returns the total row count
// across all of them.
func Count(dir string) (int64, error) {
	var total int64
	err := forEachFile(dir, func(rec arrow.Record) error {
		total += rec.NumRows()
		return nil
	})
	return total, err
}

// Scan reads every row from every Parquet file in dir, in file-arrival then
// in-file order (i.e. flush order), and prints each as one tab-separated line.
func Scan(dir string, w io.Writer) error {
	return forEachFile(dir, func(rec arrow.Record) error {
		rows := rowsFromRecord(rec)
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\tservice=%s\ttrace_id=%s\tmetadata=%s\n",
				row.Timestamp, row.Level, row.Message, row.Service, row.TraceID, row.Metadata)
		}
		return nil
	})
}

func forEachFile(dir string, fn func(arrow.Record) error) error {
	files, err := listOnly(dir)
	if err != nil {
		return err
	}

	for _, path := range files {
		if err := scanFile(path, fn); err != nil {
			return fmt.Errorf("query: scanning %s: %w", path, err)
		}
	}
	return nil
}

// listOnly repeats the storage engine's file enumeration (same lexicographic,
// time-ordered listing as Engine.ListFiles) directly on os.ReadDir, without
// constructing a full writer-side Engine.
func listOnly(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read storage dir: %w", err)
	}

	var files []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".parquet") {
			continue
		}
		files = append(files, filepath.Join(dir, ent.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func scanFile(path string, fn func(arrow.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return fmt.Errorf("open parquet: %w", err)
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return fmt.Errorf("create arrow reader: %w", err)
	}

	table, err := reader.ReadTable(context.Background())
	if err != nil {
		return fmt.Errorf("read table: %w", err)
	}
	defer table.Release()

	tr := array.NewTableReader(table, table.NumRows())
	defer tr.Release()

	for tr.Next() {
		if err := fn(tr.Record()); err != nil {
			return err
		}
	}
	return nil
}

func rowsFromRecord(rec arrow.Record) []Row {
	n := int(rec.NumRows())
	rows := make([]Row, n)

	ts := rec.Column(0).(*array.Timestamp)
	level := rec.Column(1).(*array.String)
	msg := rec.Column(2).(*array.String)
	service := rec.Column(3).(*array.String)
	trace := rec.Column(4).(*array.String)
	meta := rec.Column(5).(*array.String)

	unit, _ := rec.Schema().Field(0).Type.(*arrow.TimestampType)

	for i := 0; i < n; i++ {
		row := Row{
			Level:   level.Value(i),
			Message: msg.Value(i),
		}
		if unit != nil {
			row.Timestamp = ts.Value(i).ToTime(unit.Unit).UTC().Format(storage.TimestampLayout)
		}
		if !service.IsNull(i) {
			row.Service = service.Value(i)
		}
		if !trace.IsNull(i) {
			row.TraceID = trace.Value(i)
		}
		if !meta.IsNull(i) {
			row.Metadata = meta.Value(i)
		}
		rows[i] = row
	}
	return rows
}
