// Package cancel provides the session-wide cancellation signal.
// The signal is monotonic: once triggered it stays triggered, and only the
// first trigger's reason is recorded.
package cancel

import (
	"context"
	"errors"
	"sync"
)

// Reasons recorded by Trigger.
var (
	// ErrInterrupted is recorded for SIGINT or an in-reader Ctrl+C.
	ErrInterrupted = errors.New("interrupted")
	// ErrTerminated is recorded for SIGTERM.
	ErrTerminated = errors.New("terminated")
	// ErrExitRequested is recorded when the user runs exit or quit.
	ErrExitRequested = errors.New("exit requested")
	// ErrEndOfInput is recorded when the reader reaches EOF.
	ErrEndOfInput = errors.New("end of input")
)

// Signal is a one-shot cancellation flag exposed as a context.
// It is safe for concurrent use.
type Signal struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	once   sync.Once
	mu     sync.RWMutex
	reason error
}

// New creates a Signal whose context derives from parent.
// Cancelling parent also triggers the signal with parent's cause.
func New(parent context.Context) *Signal {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	return &Signal{ctx: ctx, cancel: cancel}
}

// Trigger sets the signal. It returns true only for the call that actually
// moved the signal to the requested state.
func (s *Signal) Trigger(reason error) bool {
	if reason == nil {
		reason = context.Canceled
	}
	fired := false
	s.once.Do(func() {
		if s.ctx.Err() != nil {
			// Parent already cancelled; keep its cause.
			return
		}
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()
		s.cancel(reason)
		fired = true
	})
	return fired
}

// Requested reports whether the signal has been triggered.
func (s *Signal) Requested() bool {
	return s.ctx.Err() != nil
}

// Done returns a channel closed when the signal is triggered.
func (s *Signal) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Context returns the context cancelled by the signal.
func (s *Signal) Context() context.Context {
	return s.ctx
}

// Reason returns the recorded reason, or nil when not triggered.
func (s *Signal) Reason() error {
	s.mu.RLock()
	reason := s.reason
	s.mu.RUnlock()
	if reason != nil {
		return reason
	}
	if s.ctx.Err() != nil {
		return context.Cause(s.ctx)
	}
	return nil
}

// IsUserCancel reports whether err is one of the reasons that map to the
// reserved "user cancelled" exit code.
func IsUserCancel(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, ErrTerminated)
}
