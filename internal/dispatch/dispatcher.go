// Package dispatch turns an input line into a command invocation.
//
// Lines are resolved against the shell built-ins first, then the command
// registry, then programs on PATH. User input errors never escape as Go
// errors or panics; they are written to the session writer and mapped to
// an exit code.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/panics"

	"termshell/internal/cleanup"
	"termshell/internal/commands"
	"termshell/internal/config"
	"termshell/internal/console"
	"termshell/internal/logger"
	"termshell/pkg/shelltypes"
)

var (
	// ErrCommandNotFound is reported when no built-in, registered command
	// or program matches.
	ErrCommandNotFound = errors.New("command not found")
	// ErrCommandFailed wraps a command that returned an error or panicked.
	ErrCommandFailed = errors.New("command failed")
)

// Dispatcher resolves and runs input lines.
type Dispatcher struct {
	registry *commands.Registry
	history  *console.History
	options  config.Options
	runner   Runner
	builtins map[string]builtin
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHistory gives the history built-in its backing store.
func WithHistory(h *console.History) Option {
	return func(d *Dispatcher) { d.history = h }
}

// WithOptions sets the options shown by the config built-in and consulted
// for external execution.
func WithOptions(o config.Options) Option {
	return func(d *Dispatcher) { d.options = o }
}

// WithRunner replaces the external program runner. A nil runner disables
// external execution.
func WithRunner(r Runner) Option {
	return func(d *Dispatcher) { d.runner = r }
}

// New creates a dispatcher over registry.
func New(registry *commands.Registry, opts ...Option) *Dispatcher {
	if registry == nil {
		registry = commands.NewRegistry()
	}
	d := &Dispatcher{
		registry: registry,
		options:  config.Defaults(),
		runner:   NewProcessRunner(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.history == nil {
		d.history = console.NewHistory(d.options.HistoryLimit)
	}
	d.builtins = d.newBuiltins()
	return d
}

// Registry returns the dispatcher's command registry.
func (d *Dispatcher) Registry() *commands.Registry { return d.registry }

// History returns the history used by the history built-in.
func (d *Dispatcher) History() *console.History { return d.history }

// Dispatch runs line and returns its exit code. Blank and comment lines
// return 0 without output.
func (d *Dispatcher) Dispatch(ctx context.Context, line string, ec *shelltypes.ExecutionContext) int {
	words, err := Tokenize(line)
	if err != nil {
		ec.Writer.Errorln(err.Error())
		return shelltypes.ExitUsage
	}
	if len(words) == 0 {
		return shelltypes.ExitOK
	}

	name, args := words[0], words[1:]
	logger.CommandExecution(name, args)

	if b, ok := d.builtins[strings.ToLower(name)]; ok {
		return d.guard(ctx, name, ec, func() (int, error) {
			return b.run(ctx, ec, args)
		})
	}

	if cmd, ok := d.registry.Resolve(name); ok {
		return d.runCommand(ctx, cmd, args, ec)
	}

	if d.runner != nil && d.options.AllowExternal {
		code, err := d.runner.Run(ctx, name, args, ec)
		if !errors.Is(err, errNoExecutable) {
			if err != nil {
				ec.Writer.Errorln(err.Error())
			}
			return code
		}
	}

	d.reportNotFound(name, ec)
	return shelltypes.ExitNotFound
}

func (d *Dispatcher) reportNotFound(name string, ec *shelltypes.ExecutionContext) {
	msg := fmt.Sprintf("%s: %v", name, ErrCommandNotFound)
	if s, ok := Suggest(name, d.Names()); ok {
		msg += fmt.Sprintf(" (did you mean %q?)", s)
	}
	ec.Writer.Errorln(msg)
}

// runCommand executes a registered command. Cleanups declared by a
// cleanup-aware command are registered before it runs and dropped again if
// it finishes without the session being cancelled.
func (d *Dispatcher) runCommand(ctx context.Context, cmd shelltypes.Command, args []string, ec *shelltypes.ExecutionContext) int {
	if aware, ok := cmd.(shelltypes.CleanupAwareCommand); ok && ec.Cleanup != nil {
		scope := cleanup.NewScope(ec.Cleanup)
		aware.RegisterCleanupActions(scope, ec)
		defer func() {
			if ctx.Err() == nil {
				scope.Release()
			}
		}()
	}

	// failed stays true when Execute panics; guard already reported it.
	failed := true
	code := d.guard(ctx, cmd.Name(), ec, func() (int, error) {
		code, err := cmd.Execute(ctx, ec, args)
		failed = err != nil
		return code, err
	})
	if code != shelltypes.ExitOK && code != shelltypes.ExitCancelled && code != shelltypes.ExitUsage && !failed {
		ec.Writer.Errorln(fmt.Sprintf("%s: %v (exit code %d)", cmd.Name(), ErrCommandFailed, code))
	}
	return code
}

// guard runs fn, converting errors and panics into a reported failure.
func (d *Dispatcher) guard(ctx context.Context, name string, ec *shelltypes.ExecutionContext, fn func() (int, error)) int {
	var (
		code int
		err  error
	)
	var catcher panics.Catcher
	catcher.Try(func() {
		code, err = fn()
	})
	if r := catcher.Recovered(); r != nil {
		logger.Error("Command panicked", "command", name, "panic", r.Value)
		ec.Writer.Errorln(fmt.Sprintf("%s: %v: panic: %v", name, ErrCommandFailed, r.Value))
		return shelltypes.ExitFailure
	}

	if ctx.Err() != nil && (err != nil || code != shelltypes.ExitOK) {
		return shelltypes.ExitCancelled
	}
	if err != nil {
		var usage *UsageError
		if errors.As(err, &usage) {
			ec.Writer.Errorln(fmt.Sprintf("%s: %s", name, usage.Msg))
			return shelltypes.ExitUsage
		}
		if code == shelltypes.ExitOK {
			code = shelltypes.ExitFailure
		}
		ec.Writer.Errorln(fmt.Sprintf("%s: %v (exit code %d): %v", name, ErrCommandFailed, code, err))
		return code
	}
	return code
}

// UsageError reports a bad invocation; it maps to exit code 2.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func usagef(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// Names returns the built-in and registered command names, sorted.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.builtins)+d.registry.Len())
	names = append(names, builtinOrder...)
	for _, n := range d.registry.Names() {
		names = append(names, strings.ToLower(n))
	}
	sort.Strings(names)
	return names
}

// Complete returns the command names starting with prefix, ignoring case.
func (d *Dispatcher) Complete(prefix string) []string {
	p := strings.ToLower(prefix)
	var out []string
	for _, n := range d.Names() {
		if strings.HasPrefix(n, p) {
			out = append(out, n)
		}
	}
	return out
}
