// Package relay forwards voice transcripts into the chat log.
package relay

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/metrics"
)

// TagPrefix marks chat messages that originated as speech.
const TagPrefix = "[voice]"

// AgentSender is the fixed sender name for relayed transcripts.
const AgentSender = "voice-agent"

// writeTimeout bounds each chat log write.
const writeTimeout = 5 * time.Second

// ChatLog persists chat messages.
type ChatLog interface {
	AppendMessage(ctx context.Context, chatSessionID, sender, content string) error
}

// Relay tags transcripts and appends them to a chat log session.
// Writes are best effort: a failed write is logged and counted but
// never interrupts the voice session.
type Relay struct {
	log ChatLog
}

// New returns a relay writing to the given chat log.
func New(log ChatLog) *Relay {
	return &Relay{log: log}
}

// Deliver writes one transcript to the chat session. Empty and
// whitespace-only transcripts are skipped.
func (r *Relay) Deliver(chatSessionID, transcript string) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" || chatSessionID == "" {
		return
	}
	content := TagPrefix + " " + transcript

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.log.AppendMessage(ctx, chatSessionID, AgentSender, content); err != nil {
		metrics.RelayFailures.Inc()
		slog.Error("transcript relay failed", "chat_session_id", chatSessionID, "error", err)
		return
	}
	metrics.TranscriptsRelayed.Inc()
	slog.Debug("transcript relayed", "chat_session_id", chatSessionID, "length", len(transcript))
}
