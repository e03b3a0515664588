package util

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWrapError(t *testing.T) {
	base := errors.New("boom")
	wrapped := WrapError("do thing", base)
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error must unwrap to the cause")
	}
	if got := wrapped.Error(); got != "failed to do thing: boom" {
		t.Errorf("message = %q", got)
	}
	if WrapError("noop", nil) != nil {
		t.Error("nil error must stay nil")
	}
}

func TestTruncateError(t *testing.T) {
	long := strings.Repeat("x", 300)
	got := TruncateError(long)
	if len(got) != maxErrorLineLength+3 {
		t.Errorf("len = %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated message must end with ellipsis")
	}
	if got := TruncateError("  short  "); got != "short" {
		t.Errorf("short message = %q", got)
	}
}

func TestBackoffSequence(t *testing.T) {
	b := NewBackoff(time.Second, 8*time.Second)
	want := []time.Duration{1, 2, 4, 8, 8}
	for i, w := range want {
		if got := b.Next(); got != w*time.Second {
			t.Errorf("step %d: %v, want %v", i, got, w*time.Second)
		}
	}
	b.Reset()
	if got := b.Next(); got != time.Second {
		t.Errorf("after reset: %v, want 1s", got)
	}
}

func TestBackoffWaitCancelled(t *testing.T) {
	b := NewBackoff(time.Minute, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestIsConfigured(t *testing.T) {
	if IsConfigured("  ") || IsConfigured("") {
		t.Error("blank values are not configured")
	}
	if !IsConfigured("value") {
		t.Error("non-blank value is configured")
	}
	if AllConfigured("a", "", "c") {
		t.Error("any blank value fails AllConfigured")
	}
	if !AllConfigured("a", "b") {
		t.Error("all non-blank values pass")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{3 * time.Second, "3s"},
		{90 * time.Second, "1m30s"},
		{3*time.Hour + 5*time.Minute + 9*time.Second, "3h5m9s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
