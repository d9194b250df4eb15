package logbuf

import "time"

// Level classifies an entry's severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// TopicEntry is the pub/sub topic delivery-bound entries travel on.
const TopicEntry = "log.entry"

// Entry is one structured diagnostic record, immutable once constructed.
// The JSON shape is the collector wire format: RFC 3339 timestamp and an
// optional free-form context payload.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Stack     string    `json:"stack"`
	Level     Level     `json:"level"`
	Package   string    `json:"package"`
	Message   string    `json:"message"`
	Context   any       `json:"context,omitempty"`
}
