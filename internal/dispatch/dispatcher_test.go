package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termshell/internal/cleanup"
	"termshell/internal/commands"
	"termshell/internal/config"
	"termshell/internal/console"
	"termshell/internal/testutils"
	"termshell/pkg/shelltypes"
)

// stubRunner stands in for the OS process runner.
type stubRunner struct {
	known map[string]int
	calls []string
}

func (s *stubRunner) Run(_ context.Context, name string, _ []string, _ *shelltypes.ExecutionContext) (int, error) {
	s.calls = append(s.calls, name)
	code, ok := s.known[name]
	if !ok {
		return shelltypes.ExitNotFound, errNoExecutable
	}
	return code, nil
}

func newTestDispatcher(t *testing.T, cmds ...shelltypes.Command) (*Dispatcher, *stubRunner) {
	t.Helper()
	reg := commands.NewRegistry()
	for _, c := range cmds {
		require.NoError(t, reg.Register(c))
	}
	runner := &stubRunner{known: map[string]int{}}
	return New(reg, WithRunner(runner), WithHistory(console.NewHistory(10))), runner
}

func sayCommand() *testutils.MockCommand {
	cmd := testutils.NewMockCommand("say")
	cmd.Fn = func(_ context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
		for i, a := range args {
			if i > 0 {
				ec.Writer.Print(" ")
			}
			ec.Writer.Print(a)
		}
		ec.Writer.Println("")
		return shelltypes.ExitOK, nil
	}
	return cmd
}

func TestDispatch_EmptyLineIsNoop(t *testing.T) {
	d, runner := newTestDispatcher(t)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	for _, line := range []string{"", "   ", "\t", "# comment"} {
		assert.Equal(t, shelltypes.ExitOK, d.Dispatch(context.Background(), line, ec))
	}
	assert.Empty(t, w.String())
	assert.Empty(t, runner.calls)
}

func TestDispatch_RegisteredCommand(t *testing.T) {
	say := sayCommand()
	d, _ := newTestDispatcher(t, say)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	code := d.Dispatch(context.Background(), `SAY hi "there friend"`, ec)

	assert.Equal(t, shelltypes.ExitOK, code)
	assert.Equal(t, "hi there friend\n", w.String())
	assert.Equal(t, [][]string{{"hi", "there friend"}}, say.Calls())
}

func TestDispatch_ParseErrorIsUsage(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	code := d.Dispatch(context.Background(), `say "unterminated`, ec)
	assert.Equal(t, shelltypes.ExitUsage, code)
	require.Len(t, w.Errors(), 1)
	assert.Contains(t, w.Errors()[0], "parse error")
}

func TestDispatch_NotFoundSuggestsClosest(t *testing.T) {
	d, runner := newTestDispatcher(t,
		testutils.NewMockCommand("git"),
		testutils.NewMockCommand("greet"),
	)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	code := d.Dispatch(context.Background(), "gti status", ec)

	assert.Equal(t, shelltypes.ExitNotFound, code)
	assert.Equal(t, []string{"gti"}, runner.calls)
	require.Len(t, w.Errors(), 1)
	assert.Contains(t, w.Errors()[0], ErrCommandNotFound.Error())
	assert.Contains(t, w.Errors()[0], `did you mean "git"?`)
}

func TestDispatch_NotFoundWithoutSuggestion(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	code := d.Dispatch(context.Background(), "qqqqqqqq", ec)
	assert.Equal(t, shelltypes.ExitNotFound, code)
	assert.NotContains(t, w.String(), "did you mean")
}

func TestDispatch_ExternalFallback(t *testing.T) {
	d, runner := newTestDispatcher(t)
	runner.known["tool"] = 4
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	assert.Equal(t, 4, d.Dispatch(context.Background(), "tool --flag", ec))
	assert.Empty(t, w.Errors())
}

func TestDispatch_ExternalDisabled(t *testing.T) {
	reg := commands.NewRegistry()
	opts := config.Defaults()
	opts.AllowExternal = false
	runner := &stubRunner{known: map[string]int{"tool": 0}}
	d := New(reg, WithRunner(runner), WithOptions(opts))
	ec, _ := testutils.NewExecutionContext(t.TempDir(), nil)

	assert.Equal(t, shelltypes.ExitNotFound, d.Dispatch(context.Background(), "tool", ec))
	assert.Empty(t, runner.calls)
}

func TestDispatch_CommandErrorIsReported(t *testing.T) {
	failing := testutils.NewMockCommand("fail")
	failing.Fn = func(context.Context, *shelltypes.ExecutionContext, []string) (int, error) {
		return 0, errors.New("disk full")
	}
	d, _ := newTestDispatcher(t, failing)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	code := d.Dispatch(context.Background(), "fail", ec)
	assert.Equal(t, shelltypes.ExitFailure, code)
	require.Len(t, w.Errors(), 1)
	assert.Contains(t, w.Errors()[0], "disk full")
	assert.Contains(t, w.Errors()[0], ErrCommandFailed.Error())
}

func TestDispatch_NonZeroExitIsReported(t *testing.T) {
	cmd := testutils.NewMockCommand("three")
	cmd.Fn = func(context.Context, *shelltypes.ExecutionContext, []string) (int, error) {
		return 3, nil
	}
	d, _ := newTestDispatcher(t, cmd)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	assert.Equal(t, 3, d.Dispatch(context.Background(), "three", ec))
	require.Len(t, w.Errors(), 1)
	assert.Contains(t, w.Errors()[0], "exit code 3")
}

func TestDispatch_PanicIsContained(t *testing.T) {
	cmd := testutils.NewMockCommand("explode")
	cmd.Fn = func(context.Context, *shelltypes.ExecutionContext, []string) (int, error) {
		panic("kaboom")
	}
	d, _ := newTestDispatcher(t, cmd)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	var code int
	assert.NotPanics(t, func() {
		code = d.Dispatch(context.Background(), "explode", ec)
	})
	assert.Equal(t, shelltypes.ExitFailure, code)
	require.Len(t, w.Errors(), 1)
	assert.Contains(t, w.Errors()[0], "kaboom")
}

func TestDispatch_CancelledCommandReturnsCancelledCode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := testutils.NewMockCommand("wait")
	cmd.Fn = func(ctx context.Context, _ *shelltypes.ExecutionContext, _ []string) (int, error) {
		cancel()
		<-ctx.Done()
		return 0, ctx.Err()
	}
	d, _ := newTestDispatcher(t, cmd)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	assert.Equal(t, shelltypes.ExitCancelled, d.Dispatch(ctx, "wait", ec))
	assert.Empty(t, w.Errors())
}

func TestDispatch_CleanupAwareHandlesDroppedOnSuccess(t *testing.T) {
	rec := &testutils.Recorder{}
	aware := &testutils.CleanupMockCommand{
		MockCommand: testutils.NewMockCommand("aware"),
		Cleanups:    []string{"a", "b"},
		Ran:         rec,
	}
	mgr := cleanup.NewManager()
	var seen []string
	aware.Fn = func(context.Context, *shelltypes.ExecutionContext, []string) (int, error) {
		seen = mgr.Names()
		return 0, nil
	}
	d, _ := newTestDispatcher(t, aware)
	ec, _ := testutils.NewExecutionContext(t.TempDir(), mgr)

	assert.Equal(t, shelltypes.ExitOK, d.Dispatch(context.Background(), "aware", ec))

	// Registered before the body ran, removed afterwards.
	assert.Equal(t, []string{"b", "a"}, seen)
	assert.Equal(t, 0, mgr.Len())
}

func TestDispatch_CleanupAwareHandlesKeptOnCancel(t *testing.T) {
	rec := &testutils.Recorder{}
	aware := &testutils.CleanupMockCommand{
		MockCommand: testutils.NewMockCommand("aware"),
		Cleanups:    []string{"a", "b"},
		Ran:         rec,
	}
	ctx, cancel := context.WithCancel(context.Background())
	aware.Fn = func(ctx context.Context, _ *shelltypes.ExecutionContext, _ []string) (int, error) {
		cancel()
		return 0, ctx.Err()
	}
	mgr := cleanup.NewManager()
	d, _ := newTestDispatcher(t, aware)
	ec, _ := testutils.NewExecutionContext(t.TempDir(), mgr)

	assert.Equal(t, shelltypes.ExitCancelled, d.Dispatch(ctx, "aware", ec))
	assert.Equal(t, []string{"b", "a"}, mgr.Names())
}

func TestBuiltin_Echo(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	assert.Equal(t, 0, d.Dispatch(context.Background(), `echo hello   "big world"`, ec))
	assert.Equal(t, "hello big world\n", w.String())

	w.Reset()
	d.Dispatch(context.Background(), "ECHO -n x", ec)
	assert.Equal(t, "x", w.String())
}

func TestBuiltin_PwdAndCd(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0644))

	d, _ := newTestDispatcher(t)
	ec, w := testutils.NewExecutionContext(root, nil)

	assert.Equal(t, 0, d.Dispatch(context.Background(), "pwd", ec))
	assert.Equal(t, root+"\n", w.String())

	assert.Equal(t, 0, d.Dispatch(context.Background(), "cd sub", ec))
	assert.Equal(t, sub, ec.WorkingDir)
	assert.Equal(t, root, ec.PreviousDir)

	w.Reset()
	assert.Equal(t, 0, d.Dispatch(context.Background(), "cd -", ec))
	assert.Equal(t, root, ec.WorkingDir)
	assert.Equal(t, root+"\n", w.String())

	assert.Equal(t, 1, d.Dispatch(context.Background(), "cd missing", ec))
	assert.Equal(t, 1, d.Dispatch(context.Background(), "cd file.txt", ec))
	assert.Equal(t, root, ec.WorkingDir)

	assert.Equal(t, 2, d.Dispatch(context.Background(), "cd a b", ec))
}

func TestBuiltin_CdHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	d, _ := newTestDispatcher(t)
	ec, _ := testutils.NewExecutionContext(t.TempDir(), nil)

	assert.Equal(t, 0, d.Dispatch(context.Background(), "cd", ec))
	assert.Equal(t, home, ec.WorkingDir)
}

func TestBuiltin_CdDashWithoutPrevious(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	assert.Equal(t, 1, d.Dispatch(context.Background(), "cd -", ec))
	assert.Contains(t, w.String(), "no previous directory")
}

func TestBuiltin_History(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)
	for _, l := range []string{"one", "two", "three"} {
		d.History().Add(l)
	}

	assert.Equal(t, 0, d.Dispatch(context.Background(), "history", ec))
	assert.Equal(t, "    1  one\n    2  two\n    3  three\n", w.String())

	w.Reset()
	assert.Equal(t, 0, d.Dispatch(context.Background(), "history 2", ec))
	assert.Equal(t, "    2  two\n    3  three\n", w.String())

	assert.Equal(t, 2, d.Dispatch(context.Background(), "history nope", ec))
}

func TestBuiltin_Help(t *testing.T) {
	greet := testutils.NewMockCommand("greet")
	greet.Cat = "demo"
	zed := testutils.NewMockCommand("zed")
	zed.Cat = "tools"
	alpha := testutils.NewMockCommand("alpha")
	alpha.Cat = "demo"
	d, _ := newTestDispatcher(t, greet, zed, alpha)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	assert.Equal(t, 0, d.Dispatch(context.Background(), "help", ec))
	out := w.String()
	assert.Contains(t, out, "Shell commands:")
	assert.Contains(t, out, "history [n]")

	// Registration order within categories, categories by first appearance.
	iGreet, iAlpha, iZed := strings.Index(out, "greet"), strings.Index(out, "alpha"), strings.Index(out, "zed")
	assert.Less(t, iGreet, iAlpha)
	assert.Less(t, iAlpha, iZed)
	assert.Less(t, strings.Index(out, "demo commands:"), strings.Index(out, "tools commands:"))

	w.Reset()
	assert.Equal(t, 0, d.Dispatch(context.Background(), "help GREET", ec))
	assert.Contains(t, w.String(), "Mock command: greet")

	w.Reset()
	assert.Equal(t, 0, d.Dispatch(context.Background(), "help cd", ec))
	assert.Contains(t, w.String(), "cd [dir|-]")

	assert.Equal(t, shelltypes.ExitNotFound, d.Dispatch(context.Background(), "help nope", ec))
}

func TestBuiltin_Complete(t *testing.T) {
	d, _ := newTestDispatcher(t, testutils.NewMockCommand("Greet"), testutils.NewMockCommand("git"))
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	assert.Equal(t, []string{"git", "greet"}, d.Complete("g"))
	assert.Equal(t, []string{"cd", "clear", "complete", "config"}, d.Complete("C"))
	assert.Empty(t, d.Complete("zzz"))

	assert.Equal(t, 0, d.Dispatch(context.Background(), "complete h", ec))
	assert.Equal(t, "help\nhistory\n", w.String())
	assert.Equal(t, 2, d.Dispatch(context.Background(), "complete", ec))
}

func TestBuiltin_Clear(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	d.Dispatch(context.Background(), "clear", ec)
	assert.Empty(t, w.String())

	ec.NonInteractive = false
	d.Dispatch(context.Background(), "clear", ec)
	assert.Equal(t, ansi.EraseEntireScreen+ansi.CursorHomePosition, w.String())
}

func TestBuiltin_Config(t *testing.T) {
	opts := config.Defaults()
	opts.Prompt = "custom>"
	d := New(commands.NewRegistry(), WithOptions(opts), WithRunner(nil))
	ec, w := testutils.NewExecutionContext(t.TempDir(), nil)

	assert.Equal(t, 0, d.Dispatch(context.Background(), "config", ec))
	assert.Contains(t, w.String(), "prompt: custom>")
	assert.Contains(t, w.String(), "cleanup_timeout: 5s")
}

func TestBuiltin_Exit(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		last      int
		wantCode  int
		requested bool
	}{
		{name: "default uses last code", line: "exit", last: 4, wantCode: 4, requested: true},
		{name: "explicit code", line: "exit 7", wantCode: 7, requested: true},
		{name: "quit alias", line: "QUIT", wantCode: 0, requested: true},
		{name: "invalid code", line: "exit abc", wantCode: 2},
		{name: "out of range", line: "exit 300", wantCode: 2},
		{name: "too many args", line: "exit 1 2", wantCode: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDispatcher(t)
			ec, _ := testutils.NewExecutionContext(t.TempDir(), nil)
			ec.LastExitCode = tt.last

			requested := -1
			ec.SetExitHandler(func(code int) { requested = code })

			assert.Equal(t, tt.wantCode, d.Dispatch(context.Background(), tt.line, ec))
			if tt.requested {
				assert.Equal(t, tt.wantCode, requested)
			} else {
				assert.Equal(t, -1, requested)
			}
		})
	}
}

func TestBuiltinsAreReservedNames(t *testing.T) {
	d, _ := newTestDispatcher(t)
	assert.ElementsMatch(t, commands.ReservedNames, builtinOrder)
	for _, name := range builtinOrder {
		_, ok := d.builtins[name]
		assert.True(t, ok, name)
	}
}
