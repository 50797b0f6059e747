package builtin

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"termshell/pkg/shelltypes"
)

// CatCommand prints files relative to the shell's working directory.
type CatCommand struct{}

// Name returns the command name "cat" for registration and lookup.
func (c *CatCommand) Name() string { return "cat" }

// Description returns a brief description of what the cat command does.
func (c *CatCommand) Description() string { return "Print the contents of files" }

// Category groups the command in help output.
func (c *CatCommand) Category() string { return "files" }

// Execute prints every file in order, stopping at the first error or when
// ctx is cancelled.
func (c *CatCommand) Execute(ctx context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	if len(args) == 0 {
		return shelltypes.ExitUsage, fmt.Errorf("usage: cat <file>...")
	}
	for _, name := range args {
		if err := c.printFile(ctx, ec, name); err != nil {
			if ctx.Err() != nil {
				return shelltypes.ExitCancelled, ctx.Err()
			}
			return shelltypes.ExitFailure, err
		}
	}
	return shelltypes.ExitOK, nil
}

func (c *CatCommand) printFile(ctx context.Context, ec *shelltypes.ExecutionContext, name string) error {
	path := resolvePath(ec, name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		ec.Writer.Println(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	return nil
}

func resolvePath(ec *shelltypes.ExecutionContext, name string) string {
	if filepath.IsAbs(name) || ec.WorkingDir == "" {
		return name
	}
	return filepath.Join(ec.WorkingDir, name)
}
