package domain

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// TimestampLayout is the fixed-width text form of a persisted timestamp
// (YYYY-MM-DD HH:mm:ss.fff followed by the zone offset).
const TimestampLayout = "2006-01-02 15:04:05.000-07:00"

// LogEvent represents a single structured log event handed to the sink.
// It is treated as immutable once emitted.
type LogEvent struct {
	Timestamp       time.Time      `json:"timestamp"`
	Level           Level          `json:"level"`
	MessageTemplate string         `json:"messageTemplate"`
	RenderedMessage string         `json:"message"`
	Exception       string         `json:"exception,omitempty"` // empty when the event carries no error
	Properties      map[string]any `json:"properties,omitempty"`
}

// Record is the textual row form of a LogEvent, as written by every destination.
type Record struct {
	Timestamp       string  `json:"timestamp"`
	Level           string  `json:"level"`
	MessageTemplate string  `json:"messageTemplate"`
	Message         string  `json:"message"`
	Exception       *string `json:"exception"`
	Properties      string  `json:"properties"`
}

// Record converts the event to its row form. When utc is set the timestamp is
// converted to UTC before formatting.
func (e LogEvent) Record(utc bool) (Record, error) {
	props, err := SerializeProperties(e.Properties)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Timestamp:       FormatTimestamp(e.Timestamp, utc),
		Level:           e.Level.String(),
		MessageTemplate: e.MessageTemplate,
		Message:         e.RenderedMessage,
		Properties:      props,
	}
	if e.Exception != "" {
		ex := e.Exception
		rec.Exception = &ex
	}
	return rec, nil
}

// FormatTimestamp renders t using TimestampLayout.
func FormatTimestamp(t time.Time, utc bool) string {
	if utc {
		t = t.UTC()
	}
	return t.Format(TimestampLayout)
}

// SerializeProperties renders properties as a JSON object. An empty mapping
// serializes to the empty string, not "{}".
func SerializeProperties(props map[string]any) (string, error) {
	if len(props) == 0 {
		return "", nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal log event properties")
	}
	return string(data), nil
}
