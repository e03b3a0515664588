//go:build windows

package util

import "os"

// ShutdownSignals are the signals that trigger graceful shutdown.
var ShutdownSignals = []os.Signal{os.Interrupt}
