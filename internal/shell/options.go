package shell

import (
	"io"
	"os"

	"termshell/internal/cleanup"
	"termshell/internal/commands"
	"termshell/internal/config"
	"termshell/internal/dispatch"
	"termshell/internal/signals"
	"termshell/internal/terminal"
	"termshell/pkg/shelltypes"
)

// Option configures a Shell.
type Option func(*Shell)

// ReaderFunc builds the input reader once the dispatcher exists, so the
// reader can complete command names.
type ReaderFunc func(d *dispatch.Dispatcher) (shelltypes.Reader, error)

// PromptStyler renders the prompt text in a style.
type PromptStyler func(text string, style shelltypes.Style) string

// WithOptions sets the shell options. Defaults to config.Defaults().
func WithOptions(o config.Options) Option {
	return func(s *Shell) { s.options = o }
}

// WithRegistry sets the command registry. Defaults to commands.GlobalRegistry.
func WithRegistry(r *commands.Registry) Option {
	return func(s *Shell) { s.registry = r }
}

// WithReader sets the input reader.
func WithReader(r shelltypes.Reader) Option {
	return func(s *Shell) {
		s.readerFunc = func(*dispatch.Dispatcher) (shelltypes.Reader, error) { return r, nil }
	}
}

// WithReaderFunc sets a constructor for the input reader.
func WithReaderFunc(fn ReaderFunc) Option {
	return func(s *Shell) { s.readerFunc = fn }
}

// WithWriter sets the output writer.
func WithWriter(w shelltypes.Writer) Option {
	return func(s *Shell) { s.writer = w }
}

// WithStreams sets the raw streams handed to external processes. They also
// back the default reader, writer and terminal manager.
func WithStreams(in io.Reader, out, errOut io.Writer) Option {
	return func(s *Shell) {
		s.stdin, s.stdout, s.stderr = in, out, errOut
	}
}

// WithTerminal sets the terminal state manager.
func WithTerminal(m *terminal.Manager) Option {
	return func(s *Shell) { s.terminal = m }
}

// WithCleanupManager sets the cleanup manager, e.g. one that already holds
// session-wide actions.
func WithCleanupManager(m *cleanup.Manager) Option {
	return func(s *Shell) { s.cleanup = m }
}

// WithSignalOptions passes options to the signal handler created when
// signal handling is enabled.
func WithSignalOptions(opts ...signals.Option) Option {
	return func(s *Shell) { s.signalOpts = append(s.signalOpts, opts...) }
}

// WithRunner replaces the external program runner.
func WithRunner(r dispatch.Runner) Option {
	return func(s *Shell) {
		s.runner = r
		s.runnerSet = true
	}
}

// WithWorkingDir sets the initial working directory.
func WithWorkingDir(dir string) Option {
	return func(s *Shell) { s.workingDir = dir }
}

// WithSessionID sets the session identifier.
func WithSessionID(id string) Option {
	return func(s *Shell) { s.sessionID = id }
}

// WithPromptStyler sets how the prompt is styled.
func WithPromptStyler(fn PromptStyler) Option {
	return func(s *Shell) { s.promptStyler = fn }
}

func (s *Shell) applyDefaults() {
	if s.stdin == nil {
		s.stdin = os.Stdin
	}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}
	if s.registry == nil {
		s.registry = commands.GlobalRegistry
	}
	if s.cleanup == nil {
		s.cleanup = cleanup.NewManager()
	}
	if s.terminal == nil {
		s.terminal = terminal.NewManager(s.stdout,
			terminal.WithInput(s.stdin),
			terminal.WithCursorQuery(s.options.QueryCursor && !s.options.NonInteractive, terminal.DefaultQueryTimeout),
		)
	}
	if s.workingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			s.workingDir = wd
		}
	}
	if s.promptStyler == nil {
		s.promptStyler = func(text string, _ shelltypes.Style) string { return text }
	}
}
