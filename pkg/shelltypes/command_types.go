// Package shelltypes defines the shared types for termshell.
// This file contains the command contract, the optional cleanup capability
// and the reserved exit codes.
package shelltypes

import "context"

// Reserved exit codes returned by the dispatcher and the shell loop.
const (
	// ExitOK indicates success.
	ExitOK = 0
	// ExitFailure is the generic failure code for a failed command.
	ExitFailure = 1
	// ExitUsage indicates a usage or parse error in the input line.
	ExitUsage = 2
	// ExitNotExecutable indicates an external program that could not be started.
	ExitNotExecutable = 126
	// ExitNotFound indicates that no command matched the input.
	ExitNotFound = 127
	// ExitCancelled is returned when the session was interrupted by the user.
	ExitCancelled = 130
)

// Command is the contract every pluggable shell command implements.
// Names are matched case-insensitively.
type Command interface {
	// Name returns the unique command name.
	Name() string
	// Description returns a one line summary shown by help.
	Description() string
	// Category groups commands in help output.
	Category() string
	// Execute runs the command. ctx is cancelled when the session is
	// interrupted; long running commands must check it at least once a second.
	Execute(ctx context.Context, ec *ExecutionContext, args []string) (int, error)
}

// CleanupAwareCommand is implemented by commands that declare teardown
// actions which must run if the command is interrupted mid-execution.
// RegisterCleanupActions is called before Execute.
type CleanupAwareCommand interface {
	Command
	RegisterCleanupActions(registrar CleanupRegistrar, ec *ExecutionContext)
}
