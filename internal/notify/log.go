package notify

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/util"
)

// LogSender appends notifications as JSON lines to a local file.
type LogSender struct {
	path string
	mu   sync.Mutex
}

// NewLogSender returns a file-backed sender.
func NewLogSender(path string) *LogSender {
	return &LogSender{path: path}
}

func (l *LogSender) Name() string { return "log" }

// Send appends one JSON line.
func (l *LogSender) Send(ctx context.Context, subject, body string) error {
	line, err := json.Marshal(map[string]string{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"subject":   subject,
		"message":   body,
	})
	if err != nil {
		return util.WrapError("encode notification", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return util.WrapError("open notification log", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return util.WrapError("write notification log", err)
	}
	return nil
}
