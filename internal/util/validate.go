package util

import "strings"

// IsConfigured reports whether a config value is non-empty after trimming.
func IsConfigured(value string) bool {
	return strings.TrimSpace(value) != ""
}

// AllConfigured reports whether every value is configured.
func AllConfigured(values ...string) bool {
	for _, v := range values {
		if !IsConfigured(v) {
			return false
		}
	}
	return true
}
