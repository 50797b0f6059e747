package builtin

import (
	"context"
	"strings"

	"termshell/pkg/shelltypes"
)

// SayCommand prints its arguments separated by single spaces.
type SayCommand struct{}

// Name returns the command name "say" for registration and lookup.
func (c *SayCommand) Name() string { return "say" }

// Description returns a brief description of what the say command does.
func (c *SayCommand) Description() string { return "Print the arguments" }

// Category groups the command in help output.
func (c *SayCommand) Category() string { return categoryDemo }

// Execute writes the joined arguments and a newline.
func (c *SayCommand) Execute(_ context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	ec.Writer.Println(strings.Join(args, " "))
	return shelltypes.ExitOK, nil
}
