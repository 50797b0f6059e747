// Package shell runs the interactive command loop.
//
// The loop reads a line, dispatches it on a separate goroutine and waits for
// either the command or the session's cancellation signal. Every exit path
// (exit/quit, end of input, interrupt) goes through the same shutdown
// sequence: cleanup actions, terminal restoration, output flush.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"termshell/internal/cancel"
	"termshell/internal/cleanup"
	"termshell/internal/commands"
	"termshell/internal/config"
	"termshell/internal/console"
	"termshell/internal/dispatch"
	"termshell/internal/logger"
	"termshell/internal/output"
	"termshell/internal/signals"
	"termshell/internal/terminal"
	"termshell/internal/version"
	"termshell/pkg/shelltypes"
)

// ErrAlreadyRun is reported when Run is called a second time.
var ErrAlreadyRun = errors.New("shell has already run")

// errInputFailed is the cancellation reason for a broken input source.
var errInputFailed = errors.New("input failed")

// Shell is one interactive session.
type Shell struct {
	options      config.Options
	registry     *commands.Registry
	dispatcher   *dispatch.Dispatcher
	reader       shelltypes.Reader
	readerFunc   ReaderFunc
	writer       shelltypes.Writer
	cleanup      *cleanup.Manager
	terminal     *terminal.Manager
	history      *console.History
	ec           *shelltypes.ExecutionContext
	runner       dispatch.Runner
	runnerSet    bool
	signalOpts   []signals.Option
	promptStyler PromptStyler

	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	workingDir string
	sessionID  string

	logger *log.Logger

	ran     atomic.Bool
	signal  *cancel.Signal
	signals *signals.Handler

	mu            sync.RWMutex
	state         State
	exitRequested bool
	exitCode      int
	lastReport    *cleanup.Report
}

// New builds a shell. It fails only if the reader cannot be created.
func New(opts ...Option) (*Shell, error) {
	s := &Shell{
		options: config.Defaults(),
		logger:  logger.NewStyledLogger("Shell"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.applyDefaults()

	s.history = console.NewHistory(s.options.HistoryLimit)
	dispatchOpts := []dispatch.Option{
		dispatch.WithHistory(s.history),
		dispatch.WithOptions(s.options),
	}
	if s.runnerSet {
		dispatchOpts = append(dispatchOpts, dispatch.WithRunner(s.runner))
	}
	s.dispatcher = dispatch.New(s.registry, dispatchOpts...)

	if s.readerFunc != nil {
		r, err := s.readerFunc(s.dispatcher)
		if err != nil {
			return nil, fmt.Errorf("failed to create reader: %w", err)
		}
		s.reader = r
	}
	if s.reader == nil {
		s.reader = console.NewLineReader(s.stdin, s.stdout)
	}
	if s.writer == nil {
		s.writer = output.NewPrinter(
			output.WithWriter(s.stdout),
			output.WithErrorWriter(s.stderr),
			output.PlainText(),
		)
	}

	s.ec = &shelltypes.ExecutionContext{
		Writer:         s.writer,
		Reader:         s.reader,
		WorkingDir:     s.workingDir,
		Cleanup:        s.cleanup,
		Terminal:       s.terminal,
		Stdin:          s.stdin,
		Stdout:         s.stdout,
		Stderr:         s.stderr,
		SessionID:      s.sessionID,
		NonInteractive: s.options.NonInteractive,
	}
	s.ec.SetExitHandler(s.requestExit)

	return s, nil
}

// Dispatcher returns the shell's dispatcher.
func (s *Shell) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }

// ExecutionContext returns the session context handed to commands.
func (s *Shell) ExecutionContext() *shelltypes.ExecutionContext { return s.ec }

// CleanupManager returns the session cleanup stack.
func (s *Shell) CleanupManager() *cleanup.Manager { return s.cleanup }

// State returns the current loop state.
func (s *Shell) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CleanupReport returns the report of the shutdown cleanup run, or nil
// before shutdown.
func (s *Shell) CleanupReport() *cleanup.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

func (s *Shell) setState(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	if from != to {
		logger.StateTransition("shell", from.String(), to.String())
	}
}

// Cancel triggers the session's cancellation signal, as an interrupt would.
// It returns false when the shell is not running or already cancelled.
func (s *Shell) Cancel(reason error) bool {
	sig := s.cancelSignal()
	if sig == nil {
		return false
	}
	return sig.Trigger(reason)
}

func (s *Shell) cancelSignal() *cancel.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signal
}

// requestExit is installed as the execution context's exit handler. It may
// be called from the command goroutine.
func (s *Shell) requestExit(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exitRequested = true
	s.exitCode = code
}

func (s *Shell) exitRequest() (bool, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exitRequested, s.exitCode
}

// Run executes the loop until exit, end of input or cancellation and
// returns the process exit code. Cancelling ctx cancels the session.
func (s *Shell) Run(ctx context.Context) int {
	if !s.ran.CompareAndSwap(false, true) {
		s.writer.Errorln(ErrAlreadyRun.Error())
		return shelltypes.ExitUsage
	}

	sig := cancel.New(ctx)
	s.mu.Lock()
	s.signal = sig
	s.mu.Unlock()

	s.start()
	abandoned := s.loop()
	s.shutdown()

	code := s.finalCode(abandoned)
	s.setState(StateStopped)
	s.logger.Debug("Shell stopped", "code", code, "reason", sig.Reason())
	return code
}

func (s *Shell) start() {
	s.setState(StateStarting)

	if s.options.EnableSignalHandling {
		s.signals = signals.NewHandler(s.signal, s.signalOpts...)
		s.signals.Start()
	}

	snap := s.terminal.CaptureState()
	s.logger.Debug("Session starting", "session", s.ec.SessionID, "terminal", snap.String())

	if path := s.options.HistoryFile; path != "" {
		if err := s.history.Load(path); err != nil {
			s.logger.Warn("Failed to load history", "path", path, "error", err)
		}
		if !s.readerManagesHistory() {
			s.cleanup.RegisterCleanup("history: save", func(context.Context) error {
				return s.history.Save(path)
			})
		}
	}

	if !s.options.Quiet {
		s.writer.PrintlnStyled(
			fmt.Sprintf("termshell v%s. Type 'help' for commands, 'exit' to quit.", version.GetVersion()),
			shelltypes.StyleMuted,
		)
	}
}

func (s *Shell) readerManagesHistory() bool {
	m, ok := s.reader.(interface{ ManagesHistory() bool })
	return ok && m.ManagesHistory()
}

// loop reads and dispatches lines. It returns true when a command had to be
// abandoned after the grace period.
func (s *Shell) loop() bool {
	ctx := s.signal.Context()
	prompt := s.promptStyler(s.options.Prompt, shelltypes.Style(s.options.PromptStyle))

	for {
		s.setState(StateReading)
		line, err := s.reader.ReadLine(ctx, prompt)
		if err != nil {
			if s.handleReadError(err) {
				return false
			}
			continue
		}
		if s.signal.Requested() {
			return false
		}

		s.history.Add(line)
		s.setState(StateDispatching)

		code, finished := s.dispatch(line)
		if !finished {
			return true
		}
		s.ec.LastExitCode = code

		if requested, _ := s.exitRequest(); requested {
			s.signal.Trigger(cancel.ErrExitRequested)
			return false
		}
		if s.signal.Requested() {
			return false
		}
	}
}

// handleReadError reports whether the loop should stop.
func (s *Shell) handleReadError(err error) bool {
	switch {
	case s.signal.Requested():
		return true
	case errors.Is(err, io.EOF):
		s.signal.Trigger(cancel.ErrEndOfInput)
		return true
	case errors.Is(err, console.ErrInterrupted):
		if s.options.EnableSignalHandling {
			s.signal.Trigger(cancel.ErrInterrupted)
			return true
		}
		return false
	default:
		s.logger.Error("Failed to read input", "error", err)
		s.writer.Errorln(err.Error())
		s.signal.Trigger(fmt.Errorf("%w: %w", errInputFailed, err))
		return true
	}
}

// dispatch runs line on its own goroutine. If the session is cancelled
// while it runs, the command gets CommandGracePeriod to return before it is
// abandoned; finished is false in that case.
func (s *Shell) dispatch(line string) (code int, finished bool) {
	done := make(chan int, 1)
	go func() {
		done <- s.dispatcher.Dispatch(s.signal.Context(), line, s.ec)
	}()

	select {
	case code := <-done:
		return code, true
	case <-s.signal.Done():
	}

	grace := time.NewTimer(s.options.CommandGracePeriod)
	defer grace.Stop()
	select {
	case code := <-done:
		return code, true
	case <-grace.C:
		s.logger.Warn("Command did not stop after cancellation, abandoning it", "line", line, "grace", s.options.CommandGracePeriod)
		return shelltypes.ExitCancelled, false
	}
}

func (s *Shell) shutdown() {
	s.setState(StateShuttingDown)

	// Every path into shutdown has triggered the signal already; this
	// covers any path that has not.
	s.signal.Trigger(cancel.ErrEndOfInput)

	if s.signals != nil {
		s.signals.Stop()
	}

	if err := s.reader.Close(); err != nil {
		s.logger.Debug("Failed to close reader", "error", err)
	}

	report := s.cleanup.ExecuteCleanup(context.Background(), s.options.CleanupTimeout)
	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()
	for _, err := range report.Errors() {
		s.writer.PrintlnStyled(fmt.Sprintf("Warning: %v", err), shelltypes.StyleWarning)
	}

	s.terminal.RestoreState()

	if f, ok := s.writer.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			s.logger.Debug("Failed to flush output", "error", err)
		}
	}
}

func (s *Shell) finalCode(abandoned bool) int {
	reason := s.signal.Reason()
	if cancel.IsUserCancel(reason) || abandoned {
		return shelltypes.ExitCancelled
	}
	if errors.Is(reason, errInputFailed) {
		return shelltypes.ExitFailure
	}
	if requested, code := s.exitRequest(); requested {
		return code
	}
	return s.ec.LastExitCode
}
