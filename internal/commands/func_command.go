package commands

import (
	"context"

	"termshell/pkg/shelltypes"
)

// HandlerFunc is the body of a FuncCommand.
type HandlerFunc func(ctx context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error)

// FuncCommand adapts a function to the Command interface.
type FuncCommand struct {
	CommandName        string
	CommandDescription string
	CommandCategory    string
	Handler            HandlerFunc
	// Cleanups, when set, makes the command cleanup-aware.
	Cleanups func(registrar shelltypes.CleanupRegistrar, ec *shelltypes.ExecutionContext)
}

// Name returns the command name.
func (f *FuncCommand) Name() string { return f.CommandName }

// Description returns the command description.
func (f *FuncCommand) Description() string { return f.CommandDescription }

// Category returns the command category, "general" when unset.
func (f *FuncCommand) Category() string {
	if f.CommandCategory == "" {
		return "general"
	}
	return f.CommandCategory
}

// Execute runs the handler. A nil handler succeeds.
func (f *FuncCommand) Execute(ctx context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	if f.Handler == nil {
		return shelltypes.ExitOK, nil
	}
	return f.Handler(ctx, ec, args)
}

// cleanupAwareFunc is returned by NewFunc when cleanups are declared so that
// only those commands satisfy CleanupAwareCommand.
type cleanupAwareFunc struct {
	*FuncCommand
}

// RegisterCleanupActions calls the declared cleanup hook.
func (c cleanupAwareFunc) RegisterCleanupActions(registrar shelltypes.CleanupRegistrar, ec *shelltypes.ExecutionContext) {
	c.Cleanups(registrar, ec)
}

// NewFunc returns f as a Command, cleanup-aware when f.Cleanups is set.
func NewFunc(f *FuncCommand) shelltypes.Command {
	if f.Cleanups != nil {
		return cleanupAwareFunc{f}
	}
	return f
}
