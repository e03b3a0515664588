package util

import (
	"context"
	"time"
)

// Backoff implements exponential backoff with a fixed cap.
type Backoff struct {
	Initial time.Duration // first delay
	Max     time.Duration // delay ceiling
	current time.Duration
}

// NewBackoff returns a backoff starting at initial and capped at max.
func NewBackoff(initial, max time.Duration) *Backoff {
	return &Backoff{Initial: initial, Max: max}
}

// Next returns the next delay, doubling until the cap is reached.
func (b *Backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.Initial
	} else {
		b.current *= 2
		if b.current > b.Max {
			b.current = b.Max
		}
	}
	return b.current
}

// Reset restarts the sequence from the initial delay.
func (b *Backoff) Reset() {
	b.current = 0
}

// Wait sleeps for the next backoff delay or until ctx is cancelled.
func (b *Backoff) Wait(ctx context.Context) error {
	t := time.NewTimer(b.Next())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
