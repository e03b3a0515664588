//go:build !windows

package util

import (
	"os"
	"syscall"
)

// ShutdownSignals are the signals that trigger graceful shutdown.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
