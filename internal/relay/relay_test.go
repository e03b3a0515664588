package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeChatLog struct {
	mu       sync.Mutex
	messages []string
	senders  []string
	sessions []string
	err      error
}

func (f *fakeChatLog) AppendMessage(ctx context.Context, chatSessionID, sender, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sessions = append(f.sessions, chatSessionID)
	f.senders = append(f.senders, sender)
	f.messages = append(f.messages, content)
	return nil
}

func TestDeliverTagsAndAttributes(t *testing.T) {
	log := &fakeChatLog{}
	r := New(log)
	r.Deliver("chat-1", "turn left at the lights")

	if len(log.messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(log.messages))
	}
	if log.messages[0] != "[voice] turn left at the lights" {
		t.Errorf("content = %q", log.messages[0])
	}
	if log.senders[0] != AgentSender {
		t.Errorf("sender = %q, want %q", log.senders[0], AgentSender)
	}
	if log.sessions[0] != "chat-1" {
		t.Errorf("chat session = %q", log.sessions[0])
	}
}

func TestDeliverSkipsEmptyTranscripts(t *testing.T) {
	log := &fakeChatLog{}
	r := New(log)
	r.Deliver("chat-1", "")
	r.Deliver("chat-1", "   \t ")
	r.Deliver("", "orphan transcript")

	if len(log.messages) != 0 {
		t.Errorf("got %d messages, want 0", len(log.messages))
	}
}

func TestDeliverSwallowsWriteFailure(t *testing.T) {
	log := &fakeChatLog{err: errors.New("db down")}
	r := New(log)
	// Must not panic or propagate.
	r.Deliver("chat-1", "hello")
}
