package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"termshell/internal/logger"
	"termshell/pkg/shelltypes"
)

// errNoExecutable is returned by a Runner when name does not resolve to a
// program; the dispatcher then reports the command as not found.
var errNoExecutable = errors.New("executable not found")

// DefaultWaitDelay is how long a cancelled process may keep its pipes open
// after being interrupted before it is killed.
const DefaultWaitDelay = 2 * time.Second

// Runner runs programs that are neither built in nor registered.
type Runner interface {
	Run(ctx context.Context, name string, args []string, ec *shelltypes.ExecutionContext) (int, error)
}

// ProcessRunner starts OS processes found on PATH or by path.
type ProcessRunner struct {
	LookPath  func(file string) (string, error)
	WaitDelay time.Duration
}

// NewProcessRunner returns a runner using exec.LookPath.
func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{LookPath: exec.LookPath, WaitDelay: DefaultWaitDelay}
}

// Run starts the program in ec.WorkingDir with ec's streams and waits for it.
// On cancellation the process receives an interrupt, then is killed after
// WaitDelay. The returned error is only set when the program could not be
// started.
func (r *ProcessRunner) Run(ctx context.Context, name string, args []string, ec *shelltypes.ExecutionContext) (int, error) {
	target := name
	if strings.ContainsRune(name, filepath.Separator) && !filepath.IsAbs(name) && ec.WorkingDir != "" {
		target = filepath.Join(ec.WorkingDir, name)
	}

	path, err := r.LookPath(target)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return shelltypes.ExitNotExecutable, fmt.Errorf("%s: permission denied", name)
		}
		return shelltypes.ExitNotFound, errNoExecutable
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Args[0] = name
	cmd.Dir = ec.WorkingDir
	cmd.Stdin = ec.Stdin
	cmd.Stdout = ec.Stdout
	cmd.Stderr = ec.Stderr
	cmd.Cancel = func() error {
		if runtime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.WaitDelay

	logger.Debug("Starting external process", "path", path, "args", args, "dir", cmd.Dir)

	if err := cmd.Start(); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return shelltypes.ExitNotExecutable, fmt.Errorf("%s: permission denied", name)
		}
		return shelltypes.ExitNotExecutable, fmt.Errorf("%s: %w", name, err)
	}

	err = cmd.Wait()
	if ctx.Err() != nil {
		return shelltypes.ExitCancelled, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if code := exitErr.ExitCode(); code >= 0 {
				return code, nil
			}
			return shelltypes.ExitFailure, nil
		}
		return shelltypes.ExitFailure, fmt.Errorf("%s: %w", name, err)
	}
	return shelltypes.ExitOK, nil
}
