package builtin

import (
	"context"
	"fmt"

	"termshell/internal/version"
	"termshell/pkg/shelltypes"
)

// VersionCommand prints termshell's version.
type VersionCommand struct{}

// Name returns the command name "version" for registration and lookup.
func (c *VersionCommand) Name() string { return "version" }

// Description returns a brief description of what the version command does.
func (c *VersionCommand) Description() string {
	return "Show version information (-v for details, --require <constraint> to check it)"
}

// Category groups the command in help output.
func (c *VersionCommand) Category() string { return "system" }

// Execute prints the one-line version, or build details with -v.
func (c *VersionCommand) Execute(_ context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	switch {
	case len(args) == 0:
		ec.Writer.Println(version.GetFormattedVersion())
	case len(args) == 1 && (args[0] == "-v" || args[0] == "--verbose"):
		ec.Writer.Println(version.GetDetailedVersion())
	case len(args) == 2 && args[0] == "--require":
		ok, err := version.Satisfies(args[1])
		if err != nil {
			return shelltypes.ExitUsage, err
		}
		if !ok {
			ec.Writer.PrintlnStyled(fmt.Sprintf("termshell v%s does not satisfy %s", version.GetVersion(), args[1]), shelltypes.StyleWarning)
			return shelltypes.ExitFailure, nil
		}
		ec.Writer.PrintlnStyled(fmt.Sprintf("termshell v%s satisfies %s", version.GetVersion(), args[1]), shelltypes.StyleSuccess)
	default:
		return shelltypes.ExitUsage, fmt.Errorf("usage: version [-v | --require <constraint>]")
	}
	return shelltypes.ExitOK, nil
}
