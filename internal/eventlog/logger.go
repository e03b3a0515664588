// Package eventlog records session lifecycle events as JSON lines.
package eventlog

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Logger appends one JSON object per event to a local file. A nil
// Logger discards everything, so callers never need to guard.
type Logger struct {
	path string
	mu   sync.Mutex
}

// New returns a logger writing to path, or nil when path is empty.
func New(path string) *Logger {
	if path == "" {
		return nil
	}
	return &Logger{path: path}
}

type record struct {
	Timestamp string         `json:"timestamp"`
	Event     string         `json:"event"`
	Details   map[string]any `json:"details,omitempty"`
}

// Log appends one event. Failures are reported to the process log
// only.
func (l *Logger) Log(event string, details map[string]any) {
	if l == nil {
		return
	}
	line, err := json.Marshal(record{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Event:     event,
		Details:   details,
	})
	if err != nil {
		slog.Error("encoding event failed", "event", event, "error", err)
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("opening event log failed", "error", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		slog.Error("writing event log failed", "error", err)
	}
}
