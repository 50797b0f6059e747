package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"termshell/pkg/shelltypes"
)

// WriteCommand writes text to a file atomically: the text goes to a
// temporary file that is renamed over the target when complete. It is
// cleanup-aware so an interrupted write leaves no temporary file behind.
type WriteCommand struct {
	mu      sync.Mutex
	pending string
}

// Name returns the command name "write" for registration and lookup.
func (c *WriteCommand) Name() string { return "write" }

// Description returns a brief description of what the write command does.
func (c *WriteCommand) Description() string { return "Write text to a file atomically" }

// Category groups the command in help output.
func (c *WriteCommand) Category() string { return "files" }

// RegisterCleanupActions declares removal of a partially written file.
func (c *WriteCommand) RegisterCleanupActions(registrar shelltypes.CleanupRegistrar, _ *shelltypes.ExecutionContext) {
	registrar.RegisterCleanup("write: remove partial file", func(context.Context) error {
		c.mu.Lock()
		pending := c.pending
		c.pending = ""
		c.mu.Unlock()
		if pending == "" {
			return nil
		}
		if err := os.Remove(pending); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", pending, err)
		}
		return nil
	})
}

// Execute writes args[1:] joined by spaces plus a newline to args[0].
func (c *WriteCommand) Execute(ctx context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	if len(args) < 1 {
		return shelltypes.ExitUsage, fmt.Errorf("usage: write <file> [text...]")
	}
	target := resolvePath(ec, args[0])
	text := strings.Join(args[1:], " ") + "\n"

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return shelltypes.ExitFailure, fmt.Errorf("failed to create temporary file: %w", err)
	}
	c.setPending(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		c.discard()
		return shelltypes.ExitFailure, fmt.Errorf("failed to write %s: %w", args[0], err)
	}
	if err := tmp.Close(); err != nil {
		c.discard()
		return shelltypes.ExitFailure, fmt.Errorf("failed to write %s: %w", args[0], err)
	}

	// Leave the temporary file for the cleanup action if the session is
	// already shutting down.
	if err := ctx.Err(); err != nil {
		return shelltypes.ExitCancelled, err
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		c.discard()
		return shelltypes.ExitFailure, fmt.Errorf("failed to replace %s: %w", args[0], err)
	}
	c.setPending("")
	ec.Writer.PrintlnStyled(fmt.Sprintf("Wrote %d bytes to %s", len(text), args[0]), shelltypes.StyleMuted)
	return shelltypes.ExitOK, nil
}

func (c *WriteCommand) setPending(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = path
}

func (c *WriteCommand) discard() {
	c.mu.Lock()
	pending := c.pending
	c.pending = ""
	c.mu.Unlock()
	if pending != "" {
		_ = os.Remove(pending)
	}
}
