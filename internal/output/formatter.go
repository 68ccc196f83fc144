package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// TranscriptionResult represents a single finalized transcription
type TranscriptionResult struct {
	Index      int           `json:"index"`
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	Duration   time.Duration `json:"duration_ns,omitempty"`
}

// Event represents a pipeline event (calibration done, segment dropped, etc.)
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Formatter is the interface for output formatters
type Formatter interface {
	// WriteResult writes a transcription result
	WriteResult(result TranscriptionResult) error

	// WriteEvent writes a pipeline event
	WriteEvent(eventType, message string) error

	// Flush ensures all buffered output is written
	Flush() error

	// Close closes the formatter and releases resources
	Close() error
}

// NewFormatter creates a formatter by name; anything other than "json"
// yields plain text.
func NewFormatter(format string, writer io.Writer) Formatter {
	if format == "json" {
		return NewJSONFormatter(writer)
	}
	return NewPlainTextFormatter(writer)
}

// JSONFormatter outputs transcriptions as a stream of JSON objects
type JSONFormatter struct {
	writer  io.Writer
	encoder *json.Encoder
	results []TranscriptionResult
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return &JSONFormatter{
		writer:  writer,
		encoder: encoder,
		results: make([]TranscriptionResult, 0),
	}
}

// WriteResult writes a transcription result in JSON format
func (j *JSONFormatter) WriteResult(result TranscriptionResult) error {
	j.results = append(j.results, result)
	return j.encoder.Encode(result)
}

// WriteEvent writes a pipeline event
func (j *JSONFormatter) WriteEvent(eventType, message string) error {
	event := Event{
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
	return j.encoder.Encode(event)
}

// Flush ensures all buffered output is written
func (j *JSONFormatter) Flush() error {
	// JSON encoder writes immediately, nothing to flush
	return nil
}

// Close closes the formatter
func (j *JSONFormatter) Close() error {
	return nil
}

// GetResults returns all transcription results written so far
func (j *JSONFormatter) GetResults() []TranscriptionResult {
	return j.results
}

// PlainTextFormatter outputs transcriptions in plain text format
type PlainTextFormatter struct {
	writer io.Writer
}

// NewPlainTextFormatter creates a new plain text formatter
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{
		writer: writer,
	}
}

// WriteResult writes a transcription result in plain text
func (p *PlainTextFormatter) WriteResult(result TranscriptionResult) error {
	timestamp := result.Timestamp.Format("15:04:05")
	text := fmt.Sprintf("[%s] %s\n", timestamp, result.Text)

	_, err := p.writer.Write([]byte(text))
	return err
}

// WriteEvent writes a pipeline event
func (p *PlainTextFormatter) WriteEvent(eventType, message string) error {
	timestamp := time.Now().Format("15:04:05")
	text := fmt.Sprintf("[%s] [%s] %s\n", timestamp, eventType, message)
	_, err := p.writer.Write([]byte(text))
	return err
}

// Flush ensures all buffered output is written
func (p *PlainTextFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (p *PlainTextFormatter) Close() error {
	return nil
}
