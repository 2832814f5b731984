package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchema_FastPath(t *testing.T) {
	v, err := DefaultSchema()
	require.NoError(t, err)
	assert.True(t, v.FastPath())
}

func TestDefaultSchema_ParseFast_Valid(t *testing.T) {
	v, err := DefaultSchema()
	require.NoError(t, err)

	rec, err := v.ParseFast([]byte(`{"timestamp":"2026-01-15T19:00:00Z","level":"info","message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "info", rec.Level)
	assert.Equal(t, "hi", rec.Message)
	assert.Nil(t, rec.Service)
	assert.Nil(t, rec.Metadata)
}

func TestDefaultSchema_ParseFast_MissingRequiredField(t *testing.T) {
	v, err := DefaultSchema()
	require.NoError(t, err)

	_, err = v.ParseFast([]byte(`{"level":"info","message":"x"}`))
	require.Error(t, err)
	var vf *ValidationFailed
	assert.ErrorAs(t, err, &vf)
}

func TestDefaultSchema_ParseFast_MalformedJSON(t *testing.T) {
	v, err := DefaultSchema()
	require.NoError(t, err)

	_, err = v.ParseFast([]byte(`not json`))
	require.Error(t, err)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestDefaultSchema_ParseFast_EmptyPayload(t *testing.T) {
	v, err := DefaultSchema()
	require.NoError(t, err)

	_, err = v.ParseFast([]byte{})
	require.Error(t, err)
}

func TestDefaultSchema_ParseFast_PreservesMetadataAndOptionalFields(t *testing.T) {
	v, err := DefaultSchema()
	require.NoError(t, err)

	rec, err := v.ParseFast([]byte(`{"timestamp":"2026-01-15T19:00:00Z","level":"warn","message":"m","service":"svc","trace_id":"abc","metadata":{"a":1}}`))
	require.NoError(t, err)
	require.NotNil(t, rec.Service)
	assert.Equal(t, "svc", *rec.Service)
	require.NotNil(t, rec.TraceID)
	assert.Equal(t, "abc", *rec.TraceID)
	require.NotNil(t, rec.Metadata)
	assert.JSONEq(t, `{"a":1}`, *rec.Metadata)
}

func TestDefaultSchema_ParseFast_BadTimestampFallsBackToEpoch(t *testing.T) {
	v, err := DefaultSchema()
	require.NoError(t, err)

	rec, err := v.ParseFast([]byte(`{"timestamp":"not-a-date","level":"info","message":"m"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Timestamp.Unix())
}

func TestFromFile_SlowPath(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.json")
	doc := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["timestamp", "level", "message", "service"],
		"properties": {
			"timestamp": {"type": "string", "format": "date-time"},
			"level": {"type": "string"},
			"message": {"type": "string"},
			"service": {"type": "string"}
		}
	}`
	require.NoError(t, os.WriteFile(schemaPath, []byte(doc), 0o600))

	v, err := FromFile(schemaPath)
	require.NoError(t, err)
	assert.False(t, v.FastPath())

	_, err = v.ParseFast([]byte(`{"timestamp":"2026-01-15T19:00:00Z","level":"info","message":"m"}`))
	require.Error(t, err, "service is required by this schema")

	rec, err := v.ParseFast([]byte(`{"timestamp":"2026-01-15T19:00:00Z","level":"info","message":"m","service":"svc"}`))
	require.NoError(t, err)
	assert.Equal(t, "svc", *rec.Service)
}

func TestFromFile_MissingFile(t *testing.T) {
	_, err := FromFile("/nonexistent/schema.json")
	require.Error(t, err)
	var sle *SchemaLoadError
	assert.ErrorAs(t, err, &sle)
}

func TestFromFile_InvalidSchemaDocument(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{not valid json`), 0o600))

	_, err := FromFile(schemaPath)
	require.Error(t, err)
	var sle *SchemaLoadError
	assert.ErrorAs(t, err, &sle)
}
