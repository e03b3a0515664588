package util

import (
	"fmt"
	"time"
)

// HumanTime formats a timestamp for log and notification output.
func HumanTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// FormatDuration renders a duration as hours, minutes and seconds.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// Timestamp returns the current time in RFC 3339 format.
func Timestamp() string {
	return time.Now().Format(time.RFC3339)
}
