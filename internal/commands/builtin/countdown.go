package builtin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"termshell/pkg/shelltypes"
)

// maxCountdown bounds the countdown length in ticks.
const maxCountdown = 100

// CountdownCommand prints a countdown, one number per tick, checking for
// cancellation between ticks.
type CountdownCommand struct {
	// Tick is the interval between numbers; zero means one second.
	Tick time.Duration
}

// Name returns the command name "countdown" for registration and lookup.
func (c *CountdownCommand) Name() string { return "countdown" }

// Description returns a brief description of what the countdown command does.
func (c *CountdownCommand) Description() string {
	return fmt.Sprintf("Count down from n (1-%d) once per second", maxCountdown)
}

// Category groups the command in help output.
func (c *CountdownCommand) Category() string { return categoryDemo }

// Execute prints n, n-1, ..., 1 and then "Done!".
func (c *CountdownCommand) Execute(ctx context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	if len(args) != 1 {
		return shelltypes.ExitUsage, fmt.Errorf("usage: countdown <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > maxCountdown {
		return shelltypes.ExitUsage, fmt.Errorf("n must be a number between 1 and %d", maxCountdown)
	}

	run := func() error { return c.count(ctx, ec, n) }
	if ec.Terminal != nil && !ec.NonInteractive {
		err = ec.Terminal.WithHiddenCursor(run)
	} else {
		err = run()
	}
	if err != nil {
		return shelltypes.ExitCancelled, err
	}
	ec.Writer.PrintlnStyled("Done!", shelltypes.StyleSuccess)
	return shelltypes.ExitOK, nil
}

func (c *CountdownCommand) count(ctx context.Context, ec *shelltypes.ExecutionContext, n int) error {
	tick := c.Tick
	if tick <= 0 {
		tick = time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for i := n; i > 0; i-- {
		ec.Writer.PrintlnStyled(strconv.Itoa(i), shelltypes.StyleHighlight)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
