//go:build !windows

package signals

import (
	"os"
	"syscall"

	"termshell/internal/cancel"
)

// signalsToCapture returns the signals that cancel the session on Unix-like systems.
func signalsToCapture() []os.Signal {
	return []os.Signal{
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	}
}

func reasonFor(sig os.Signal) error {
	switch sig {
	case syscall.SIGINT:
		return cancel.ErrInterrupted
	default:
		return cancel.ErrTerminated
	}
}
