package builtin

import (
	"context"
	"fmt"
	"strings"

	"termshell/pkg/shelltypes"
)

// GreetCommand prints a greeting for the given name, or the session user.
type GreetCommand struct{}

// Name returns the command name "greet" for registration and lookup.
func (c *GreetCommand) Name() string { return "greet" }

// Description returns a brief description of what the greet command does.
func (c *GreetCommand) Description() string { return "Greet someone by name" }

// Category groups the command in help output.
func (c *GreetCommand) Category() string { return categoryDemo }

// Execute prints "Hello, <name>!".
func (c *GreetCommand) Execute(_ context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	name := strings.Join(args, " ")
	if name == "" {
		name = "world"
	}
	ec.Writer.PrintlnStyled(fmt.Sprintf("Hello, %s!", name), shelltypes.StyleSuccess)
	return shelltypes.ExitOK, nil
}
