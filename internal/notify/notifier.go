// Package notify reports voice channel failures to the configured
// channels: webhook, email via Microsoft Graph and a local log file.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/util"
)

// sendTimeout bounds each delivery attempt.
const sendTimeout = 10 * time.Second

// defaultCooldown suppresses repeat notifications for the same
// failing session.
const defaultCooldown = 5 * time.Minute

// Sender delivers one notification over a single channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, subject, body string) error
}

// Notifier fans a channel failure out to all configured senders. A
// cooldown latch keeps a flapping channel from spamming every
// destination.
type Notifier struct {
	senders  []Sender
	cooldown time.Duration

	mu       sync.Mutex
	lastSent time.Time
}

// New returns a notifier over the given senders.
func New(senders ...Sender) *Notifier {
	return &Notifier{senders: senders, cooldown: defaultCooldown}
}

// ChannelError reports a voice channel failure. Deliveries run in the
// background so callers are never blocked.
func (n *Notifier) ChannelError(err error) {
	if len(n.senders) == 0 {
		return
	}
	n.mu.Lock()
	if time.Since(n.lastSent) < n.cooldown {
		n.mu.Unlock()
		return
	}
	n.lastSent = time.Now()
	n.mu.Unlock()

	subject := "Voice channel error"
	body := fmt.Sprintf("The voice channel reported an error at %s:\n\n%s",
		util.HumanTime(time.Now()), err.Error())
	for _, s := range n.senders {
		go func(s Sender) {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			util.LogNotifyResult(s.Name(), s.Send(ctx, subject, body))
		}(s)
	}
}

// Reset re-arms the cooldown latch, typically when a new session
// connects.
func (n *Notifier) Reset() {
	n.mu.Lock()
	n.lastSent = time.Time{}
	n.mu.Unlock()
}
