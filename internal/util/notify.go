package util

import "log/slog"

// LogNotifyResult logs the outcome of a notification delivery attempt.
func LogNotifyResult(channel string, err error) {
	if err != nil {
		slog.Error("notification delivery failed", "channel", channel, "error", err)
		return
	}
	slog.Info("notification delivered", "channel", channel)
}
