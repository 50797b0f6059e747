package shelltypes

import "io"

// ExecutionContext is the per-session value handed to every command.
// It is created once per session and only mutated from the loop goroutine.
type ExecutionContext struct {
	Writer Writer
	Reader Reader

	// WorkingDir is the shell's current directory. External processes are
	// started in it and cd updates it.
	WorkingDir string
	// PreviousDir backs "cd -".
	PreviousDir string

	// Cleanup registers session-wide teardown actions.
	Cleanup CleanupRegistrar

	// Terminal applies scoped terminal changes. Nil outside a shell.
	Terminal Terminal

	// Streams inherited by external processes.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	SessionID      string
	NonInteractive bool

	// LastExitCode is the exit code of the previously dispatched line.
	LastExitCode int

	exitFn func(code int)
}

// SetExitHandler installs the function called by RequestExit.
func (ec *ExecutionContext) SetExitHandler(fn func(code int)) {
	ec.exitFn = fn
}

// RequestExit asks the shell loop to shut down with the given code.
// It is a no-op when no shell owns the context.
func (ec *ExecutionContext) RequestExit(code int) {
	if ec.exitFn != nil {
		ec.exitFn(code)
	}
}
