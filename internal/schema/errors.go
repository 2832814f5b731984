package schema

import "fmt"

// ParseError reports malformed JSON on the wire.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse error: %s", e.Detail) }

// ValidationFailed reports a JSON-Schema violation. Diagnostics carries all
// the validator's complaints, concatenated, so the caller can log a single
// line per rejected frame.
type ValidationFailed struct {
	Diagnostics string
}

func (e *ValidationFailed) Error() string { return fmt.Sprintf("validation failed: %s", e.Diagnostics) }

// ProjectionError reports that a JSON value passed schema validation but
// could not be projected into a LogRecord (e.g. a field typed as a non-string).
type ProjectionError struct {
	Detail string
}

func (e *ProjectionError) Error() string { return fmt.Sprintf("projection error: %s", e.Detail) }

// SchemaLoadError reports that a schema document could not be read or compiled.
type SchemaLoadError struct {
	Detail string
}

func (e *SchemaLoadError) Error() string { return fmt.Sprintf("schema load error: %s", e.Detail) }
