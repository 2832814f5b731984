// Package logrecord defines the validated unit of ingestion shared by the
// schema validator, the queue, and the storage engine.
package logrecord

import "time"

// Record is a validated log record ready for batching. Timestamp, Level,
// and Message are always present after validation; the remaining fields are
// nullable at the column level.
type Record struct {
	Timestamp time.Time
	Level     string
	Message   string
	Service   *string
	TraceID   *string
	Metadata  *string // serialized JSON text of the original metadata value, if any
}

// StringPtr is a small helper for constructing optional string fields
// without a local throwaway variable at call sites.
func StringPtr(s string) *string {
	return &s
}
