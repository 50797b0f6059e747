package builtin

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"termshell/pkg/shelltypes"
)

// SleepCommand waits for a duration while observing cancellation. It is
// cleanup-aware: if the session is cancelled mid-sleep, a cleanup action
// reports how long it had slept.
type SleepCommand struct {
	mu      sync.Mutex
	started time.Time
}

// Name returns the command name "sleep" for registration and lookup.
func (c *SleepCommand) Name() string { return "sleep" }

// Description returns a brief description of what the sleep command does.
func (c *SleepCommand) Description() string {
	return "Wait for a duration (e.g. 2s, 500ms or a number of seconds)"
}

// Category groups the command in help output.
func (c *SleepCommand) Category() string { return categoryDemo }

// RegisterCleanupActions declares the interruption report.
func (c *SleepCommand) RegisterCleanupActions(registrar shelltypes.CleanupRegistrar, ec *shelltypes.ExecutionContext) {
	registrar.RegisterCleanupFunc("sleep: report interruption", func() {
		c.mu.Lock()
		started := c.started
		c.mu.Unlock()
		if started.IsZero() {
			return
		}
		ec.Writer.PrintlnStyled(
			fmt.Sprintf("sleep interrupted after %s", time.Since(started).Round(time.Millisecond)),
			shelltypes.StyleWarning,
		)
	})
}

// Execute blocks until the duration elapses or ctx is cancelled.
func (c *SleepCommand) Execute(ctx context.Context, _ *shelltypes.ExecutionContext, args []string) (int, error) {
	if len(args) != 1 {
		return shelltypes.ExitUsage, fmt.Errorf("usage: sleep <duration>")
	}
	d, err := parseDuration(args[0])
	if err != nil {
		return shelltypes.ExitUsage, err
	}

	c.mu.Lock()
	c.started = time.Now()
	c.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return shelltypes.ExitOK, nil
	case <-ctx.Done():
		return shelltypes.ExitCancelled, ctx.Err()
	}
}

// maxSeconds is the longest plain-seconds value a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// parseDuration accepts Go durations and plain (fractional) seconds.
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		switch {
		case math.IsNaN(secs) || math.IsInf(secs, 0):
			return 0, fmt.Errorf("invalid duration %q", s)
		case secs < 0:
			return 0, fmt.Errorf("duration must not be negative: %s", s)
		case secs > maxSeconds:
			return 0, fmt.Errorf("duration too large: %s", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", s)
	}
	return d, nil
}
