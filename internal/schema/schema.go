// Package schema implements the daemon's JSON-Schema validator: a fast path
// that fuses structural checks into a typed decode for the built-in schema,
// and a slow path that runs full draft-07 validation for arbitrary schemas.
package schema

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	jsonenc "github.com/segmentio/encoding/json"

	"github.com/axonops/logdaemon/internal/logrecord"
)

const defaultSchemaDoc = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["timestamp", "level", "message"],
  "properties": {
    "timestamp": {"type": "string", "format": "date-time"},
    "level": {"type": "string", "minLength": 1},
    "message": {"type": "string", "minLength": 1},
    "service": {"type": "string"},
    "trace_id": {"type": "string"},
    "metadata": {}
  }
}`

// Validator converts JSON bytes into a validated LogRecord. It is
// constructed once per server start and shared read-only by all connection
// handlers.
type Validator struct {
	compiled *jsonschema.Schema
	fastPath bool
}

// DefaultSchema returns a validator for the built-in schema, enabling the
// fast deserialization path.
func DefaultSchema() (*Validator, error) {
	return compile(defaultSchemaDoc, true)
}

// FromFile reads and compiles a JSON-Schema document (draft-07 semantics)
// from disk. The slow path is used for any non-default schema.
func FromFile(path string) (*Validator, error) {
	// #nosec G304 -- path is an operator-supplied CLI/config value
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SchemaLoadError{Detail: err.Error()}
	}
	return compile(string(data), false)
}

func compile(doc string, fastPath bool) (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource("logdaemon.json", strings.NewReader(doc)); err != nil {
		return nil, &SchemaLoadError{Detail: err.Error()}
	}
	s, err := c.Compile("logdaemon.json")
	if err != nil {
		return nil, &SchemaLoadError{Detail: err.Error()}
	}
	return &Validator{compiled: s, fastPath: fastPath}, nil
}

// FastPath reports whether this validator was built from the default schema
// and therefore uses the typed fast-deserialization path in ParseFast.
func (v *Validator) FastPath() bool { return v.fastPath }

// Validate runs JSON-Schema validation against an already-parsed JSON value
// (typically a map[string]interface{}). On failure, all diagnostic messages
// are concatenated into a single ValidationFailed.
func (v *Validator) Validate(value interface{}) error {
	if err := v.compiled.Validate(value); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return &ValidationFailed{Diagnostics: flattenCauses(ve)}
		}
		return &ValidationFailed{Diagnostics: err.Error()}
	}
	return nil
}

func flattenCauses(ve *jsonschema.ValidationError) string {
	var sb strings.Builder
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if e.Message != "" {
			if sb.Len() > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(e.Message)
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	if sb.Len() == 0 {
		return ve.Error()
	}
	return sb.String()
}

// wireRecord is the JSON shape of a frame payload, shared by both paths.
type wireRecord struct {
	Timestamp string      `json:"timestamp"`
	Level     string      `json:"level"`
	Message   string      `json:"message"`
	Service   *string     `json:"service,omitempty"`
	TraceID   *string     `json:"trace_id,omitempty"`
	Metadata  interface{} `json:"metadata,omitempty"`
}

// ParseFast converts a raw frame payload into a validated LogRecord.
//
// On the fast path (default schema only) buf is decoded directly into a
// typed struct by the fast JSON decoder, performing only the structural and
// type checks implied by the target type. buf is consumed destructively by
// the decoder and must not be reused by the caller.
//
// On the slow path (arbitrary schema) buf is decoded into a dynamic value,
// run through full JSON-Schema validation, then projected into a LogRecord.
func (v *Validator) ParseFast(buf []byte) (*logrecord.Record, error) {
	if v.fastPath {
		return v.parseFastPath(buf)
	}
	return v.parseSlowPath(buf)
}

func (v *Validator) parseFastPath(buf []byte) (*logrecord.Record, error) {
	var w wireRecord
	if err := jsonenc.Unmarshal(buf, &w); err != nil {
		return nil, &ParseError{Detail: err.Error()}
	}
	if w.Timestamp == "" || w.Level == "" || w.Message == "" {
		return nil, &ValidationFailed{Diagnostics: "timestamp, level, and message are required"}
	}
	return projectWire(&w)
}

func (v *Validator) parseSlowPath(buf []byte) (*logrecord.Record, error) {
	var value interface{}
	if err := jsonenc.Unmarshal(buf, &value); err != nil {
		return nil, &ParseError{Detail: err.Error()}
	}
	if err := v.Validate(value); err != nil {
		return nil, err
	}

	var w wireRecord
	if err := jsonenc.Unmarshal(buf, &w); err != nil {
		return nil, &ProjectionError{Detail: err.Error()}
	}
	return projectWire(&w)
}

func projectWire(w *wireRecord) (*logrecord.Record, error) {
	ts, err := time.Parse(time.RFC3339, w.Timestamp)
	if err != nil {
		ts = time.Unix(0, 0).UTC()
	}

	rec := &logrecord.Record{
		Timestamp: ts,
		Level:     w.Level,
		Message:   w.Message,
		Service:   w.Service,
		TraceID:   w.TraceID,
	}

	if w.Metadata != nil {
		text, err := jsonenc.Marshal(w.Metadata)
		if err != nil {
			return nil, &ProjectionError{Detail: fmt.Sprintf("metadata: %v", err)}
		}
		s := string(text)
		rec.Metadata = &s
	}

	return rec, nil
}
