//go:build windows

package signals

import (
	"os"

	"termshell/internal/cancel"
)

// signalsToCapture returns the signals that cancel the session on Windows.
func signalsToCapture() []os.Signal {
	return []os.Signal{os.Interrupt}
}

func reasonFor(os.Signal) error {
	return cancel.ErrInterrupted
}
