package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() TranscriptionResult {
	return TranscriptionResult{
		Index:      1,
		Text:       "hello world",
		Confidence: 0.87,
		Timestamp:  time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Duration:   1200 * time.Millisecond,
	}
}

func TestNewFormatterSelection(t *testing.T) {
	var buf bytes.Buffer
	assert.IsType(t, &JSONFormatter{}, NewFormatter("json", &buf))
	assert.IsType(t, &PlainTextFormatter{}, NewFormatter("text", &buf))
	assert.IsType(t, &PlainTextFormatter{}, NewFormatter("", &buf))
}

func TestJSONFormatterWriteResult(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)

	require.NoError(t, f.WriteResult(sampleResult()))

	var decoded TranscriptionResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1, decoded.Index)
	assert.Equal(t, "hello world", decoded.Text)
	assert.Equal(t, 0.87, decoded.Confidence)
	assert.Equal(t, 1200*time.Millisecond, decoded.Duration)

	results := f.GetResults()
	require.Len(t, results, 1)
	assert.Equal(t, "hello world", results[0].Text)
}

func TestJSONFormatterWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)

	require.NoError(t, f.WriteEvent("calibrated", "noise floor locked"))

	var ev Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ev))
	assert.Equal(t, "calibrated", ev.Type)
	assert.Equal(t, "noise floor locked", ev.Message)
}

func TestPlainTextFormatterWriteResult(t *testing.T) {
	var buf bytes.Buffer
	f := NewPlainTextFormatter(&buf)

	require.NoError(t, f.WriteResult(sampleResult()))
	assert.Equal(t, "[09:26:53] hello world\n", buf.String())
}

func TestPlainTextFormatterWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	f := NewPlainTextFormatter(&buf)

	require.NoError(t, f.WriteEvent("dropped", "segment too short"))
	assert.Contains(t, buf.String(), "[dropped] segment too short")
}
