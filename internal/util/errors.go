package util

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// maxErrorLineLength is the maximum length for extracted error messages.
const maxErrorLineLength = 200

// WrapError wraps an error with a descriptive operation context.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to %s: %w", operation, err)
}

// TruncateError shortens an error message for status reporting.
func TruncateError(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) > maxErrorLineLength {
		return msg[:maxErrorLineLength] + "..."
	}
	return msg
}

// SafeCloseFunc returns a function that closes c and logs any error.
// Intended for use with defer.
func SafeCloseFunc(c io.Closer, name string) func() {
	return func() {
		if err := c.Close(); err != nil {
			slog.Warn("close failed", "target", name, "error", err)
		}
	}
}
