package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termshell/internal/cancel"
	"termshell/internal/cleanup"
	"termshell/internal/commands"
	"termshell/internal/commands/builtin"
	"termshell/internal/config"
	"termshell/internal/console"
	"termshell/internal/signals"
	"termshell/internal/terminal"
	"termshell/internal/testutils"
	"termshell/pkg/shelltypes"
)

func testOptions() config.Options {
	opts := config.Defaults()
	opts.Quiet = true
	opts.NonInteractive = true
	opts.AllowExternal = false
	opts.CleanupTimeout = time.Second
	opts.CommandGracePeriod = 500 * time.Millisecond
	return opts
}

type harness struct {
	shell    *Shell
	writer   *testutils.RecordingWriter
	registry *commands.Registry
}

func newHarness(t *testing.T, reader shelltypes.Reader, opts config.Options, extra ...Option) *harness {
	t.Helper()
	registry := commands.NewRegistry()
	require.NoError(t, builtin.RegisterAll(registry))

	w := testutils.NewRecordingWriter()
	var out bytes.Buffer
	base := []Option{
		WithOptions(opts),
		WithRegistry(registry),
		WithReader(reader),
		WithWriter(w),
		WithStreams(&bytes.Buffer{}, &out, &out),
		WithTerminal(terminal.NewManager(&out, terminal.WithInput(&bytes.Buffer{}))),
		WithWorkingDir(t.TempDir()),
		WithSessionID(testutils.GenerateSessionID(true)),
		WithRunner(nil),
	}
	s, err := New(append(base, extra...)...)
	require.NoError(t, err)
	return &harness{shell: s, writer: w, registry: registry}
}

func runWithTimeout(t *testing.T, s *Shell) int {
	t.Helper()
	done := make(chan int, 1)
	go func() { done <- s.Run(context.Background()) }()
	select {
	case code := <-done:
		return code
	case <-time.After(5 * time.Second):
		t.Fatal("shell did not stop")
		return -1
	}
}

func TestShell_ExitAfterCommand(t *testing.T) {
	reader := testutils.NewScriptedReaderFromText("say hi there\nexit\n")
	h := newHarness(t, reader, testOptions())

	code := runWithTimeout(t, h.shell)

	assert.Equal(t, 0, code)
	assert.Contains(t, h.writer.String(), "hi there")
	assert.Empty(t, h.writer.Errors())
	assert.Equal(t, StateStopped, h.shell.State())
	assert.True(t, reader.Closed())
	assert.Equal(t, []string{"say hi there", "exit"}, h.shell.Dispatcher().History().Entries())
}

func TestShell_ExitCodeArgument(t *testing.T) {
	reader := testutils.NewScriptedReader("exit 3", "say unreachable")
	h := newHarness(t, reader, testOptions())

	assert.Equal(t, 3, runWithTimeout(t, h.shell))
	assert.NotContains(t, h.writer.String(), "unreachable")
}

func TestShell_QuitDefaultsToLastExitCode(t *testing.T) {
	reader := testutils.NewScriptedReader("nosuchcommand", "quit")
	h := newHarness(t, reader, testOptions())

	assert.Equal(t, shelltypes.ExitNotFound, runWithTimeout(t, h.shell))
	assert.Contains(t, h.writer.String(), "nosuchcommand: command not found")
}

func TestShell_EndOfInput(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  int
	}{
		{"empty input", nil, 0},
		{"last command succeeded", []string{"say ok"}, 0},
		{"last command failed", []string{"say ok", "nosuchcommand"}, shelltypes.ExitNotFound},
		{"parse error", []string{`say "unterminated`}, shelltypes.ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testutils.NewScriptedReader(tt.lines...), testOptions())
			assert.Equal(t, tt.want, runWithTimeout(t, h.shell))
			assert.Equal(t, StateStopped, h.shell.State())
		})
	}
}

func TestShell_PromptStyled(t *testing.T) {
	reader := testutils.NewScriptedReader("say a")
	opts := testOptions()
	opts.Prompt = "test> "
	h := newHarness(t, reader, opts, WithPromptStyler(func(text string, style shelltypes.Style) string {
		return "[" + string(style) + "]" + text
	}))

	runWithTimeout(t, h.shell)

	prompts := reader.Prompts()
	require.NotEmpty(t, prompts)
	assert.Equal(t, "[prompt]test> ", prompts[0])
}

func TestShell_Banner(t *testing.T) {
	opts := testOptions()
	opts.Quiet = false
	h := newHarness(t, testutils.NewScriptedReader(), opts)

	runWithTimeout(t, h.shell)
	assert.Contains(t, h.writer.String(), "Type 'help' for commands")
}

// fakeNotifier hands the test the channel the signal handler subscribes.
type fakeNotifier struct {
	mu sync.Mutex
	ch chan<- os.Signal
}

func (f *fakeNotifier) notify(c chan<- os.Signal, _ ...os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch = c
}

func (f *fakeNotifier) stop(chan<- os.Signal) {}

func (f *fakeNotifier) send(sig os.Signal) {
	f.mu.Lock()
	ch := f.ch
	f.mu.Unlock()
	ch <- sig
}

func blockingCommand(name string, started chan<- struct{}) *testutils.MockCommand {
	cmd := testutils.NewMockCommand(name)
	cmd.Fn = func(ctx context.Context, _ *shelltypes.ExecutionContext, _ []string) (int, error) {
		close(started)
		<-ctx.Done()
		return shelltypes.ExitCancelled, ctx.Err()
	}
	return cmd
}

func TestShell_InterruptRunsCommandCleanupInReverse(t *testing.T) {
	started := make(chan struct{})
	recorder := &testutils.Recorder{}
	cmd := &testutils.CleanupMockCommand{
		MockCommand: blockingCommand("longjob", started),
		Cleanups:    []string{"a", "b"},
		Ran:         recorder,
	}

	opts := testOptions()
	opts.EnableSignalHandling = true
	fake := &fakeNotifier{}
	reader := testutils.NewScriptedReader("longjob", "say never")
	h := newHarness(t, reader, opts, WithSignalOptions(signals.WithNotifier(fake.notify, fake.stop)))
	require.NoError(t, h.registry.Register(cmd))

	go func() {
		<-started
		fake.send(syscall.SIGINT)
	}()

	code := runWithTimeout(t, h.shell)

	assert.Equal(t, shelltypes.ExitCancelled, code)
	assert.Equal(t, []string{"b", "a"}, recorder.Names())
	assert.Equal(t, StateStopped, h.shell.State())
	assert.NotContains(t, h.writer.String(), "never")
	assert.Zero(t, h.shell.CleanupManager().Len())
}

func TestShell_CompletedCommandReleasesCleanup(t *testing.T) {
	recorder := &testutils.Recorder{}
	cmd := &testutils.CleanupMockCommand{
		MockCommand: testutils.NewMockCommand("quick"),
		Cleanups:    []string{"undo"},
		Ran:         recorder,
	}
	h := newHarness(t, testutils.NewScriptedReader("quick", "exit"), testOptions())
	require.NoError(t, h.registry.Register(cmd))

	assert.Equal(t, 0, runWithTimeout(t, h.shell))
	assert.Empty(t, recorder.Names())
}

func TestShell_CancelAbandonsStuckCommand(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	stuck := testutils.NewMockCommand("stuck")
	stuck.Fn = func(context.Context, *shelltypes.ExecutionContext, []string) (int, error) {
		close(started)
		<-release
		return shelltypes.ExitOK, nil
	}

	opts := testOptions()
	opts.CommandGracePeriod = 50 * time.Millisecond
	h := newHarness(t, testutils.NewScriptedReader("stuck"), opts)
	require.NoError(t, h.registry.Register(stuck))

	go func() {
		<-started
		h.shell.Cancel(cancel.ErrTerminated)
	}()

	assert.Equal(t, shelltypes.ExitCancelled, runWithTimeout(t, h.shell))
	assert.Equal(t, StateStopped, h.shell.State())
}

func TestShell_ContextCancellation(t *testing.T) {
	reader := testutils.NewScriptedReader()
	reader.BlockAtEnd = true
	h := newHarness(t, reader, testOptions())

	ctx, cancelRun := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- h.shell.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancelRun()

	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("shell did not stop after context cancellation")
	}
}

func TestShell_CleanupTimeoutReported(t *testing.T) {
	mgr := cleanupManagerWith(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	opts := testOptions()
	opts.CleanupTimeout = 50 * time.Millisecond
	h := newHarness(t, testutils.NewScriptedReader("exit"), opts, WithCleanupManager(mgr))

	start := time.Now()
	assert.Equal(t, 0, runWithTimeout(t, h.shell))
	assert.Less(t, time.Since(start), 2*time.Second)

	report := h.shell.CleanupReport()
	require.NotNil(t, report)
	assert.True(t, report.TimedOut())
	assert.Equal(t, []string{"stuck"}, report.Abandoned())
	assert.Contains(t, h.writer.String(), "Warning:")
}

func cleanupManagerWith(action shelltypes.CleanupAction) *cleanup.Manager {
	m := cleanup.NewManager()
	m.RegisterCleanup("stuck", action)
	return m
}

// interruptingReader returns ErrInterrupted once before its lines.
type interruptingReader struct {
	*testutils.ScriptedReader
	once sync.Once
}

func (r *interruptingReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	var interrupted bool
	r.once.Do(func() { interrupted = true })
	if interrupted {
		return "", console.ErrInterrupted
	}
	return r.ScriptedReader.ReadLine(ctx, prompt)
}

func TestShell_PromptInterrupt(t *testing.T) {
	t.Run("without signal handling keeps reading", func(t *testing.T) {
		reader := &interruptingReader{ScriptedReader: testutils.NewScriptedReader("say still here", "exit 4")}
		h := newHarness(t, reader, testOptions())

		assert.Equal(t, 4, runWithTimeout(t, h.shell))
		assert.Contains(t, h.writer.String(), "still here")
	})

	t.Run("with signal handling cancels the session", func(t *testing.T) {
		opts := testOptions()
		opts.EnableSignalHandling = true
		fake := &fakeNotifier{}
		reader := &interruptingReader{ScriptedReader: testutils.NewScriptedReader("say not reached")}
		h := newHarness(t, reader, opts, WithSignalOptions(signals.WithNotifier(fake.notify, fake.stop)))

		assert.Equal(t, shelltypes.ExitCancelled, runWithTimeout(t, h.shell))
		assert.NotContains(t, h.writer.String(), "not reached")
	})
}

type failingReader struct{}

func (failingReader) ReadLine(context.Context, string) (string, error) {
	return "", errors.New("device gone")
}

func (failingReader) Close() error { return nil }

func TestShell_ReadErrorStopsLoop(t *testing.T) {
	h := newHarness(t, failingReader{}, testOptions())

	assert.Equal(t, shelltypes.ExitFailure, runWithTimeout(t, h.shell))
	require.Len(t, h.writer.Errors(), 1)
	assert.Contains(t, h.writer.Errors()[0], "device gone")
}

func TestShell_RunOnlyOnce(t *testing.T) {
	h := newHarness(t, testutils.NewScriptedReader(), testOptions())
	runWithTimeout(t, h.shell)

	assert.Equal(t, shelltypes.ExitUsage, h.shell.Run(context.Background()))
	assert.Contains(t, h.writer.Errors(), ErrAlreadyRun.Error())
}

func TestShell_HistoryFileSaved(t *testing.T) {
	path := t.TempDir() + "/history"
	opts := testOptions()
	opts.HistoryFile = path
	h := newHarness(t, testutils.NewScriptedReader("say one", "say two"), opts)

	runWithTimeout(t, h.shell)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "say one")
	assert.Contains(t, string(data), "say two")
}

func TestShell_DefaultReaderAndWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	registry := commands.NewRegistry()
	require.NoError(t, builtin.RegisterAll(registry))

	opts := testOptions()
	s, err := New(
		WithOptions(opts),
		WithRegistry(registry),
		WithStreams(bytes.NewBufferString("say piped\nbogus\n"), &out, &errOut),
		WithTerminal(terminal.NewManager(io.Discard, terminal.WithInput(&bytes.Buffer{}))),
		WithRunner(nil),
	)
	require.NoError(t, err)

	assert.Equal(t, shelltypes.ExitNotFound, runWithTimeout(t, s))
	assert.Contains(t, out.String(), "piped")
	assert.Contains(t, errOut.String(), "Error: bogus: command not found")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Starting", StateStarting.String())
	assert.Equal(t, "Stopped", StateStopped.String())
	assert.Equal(t, "Unknown", State(99).String())
}
