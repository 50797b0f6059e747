// Package cleanup implements the session cleanup stack.
//
// Actions run last-registered first, one at a time, and the whole run is
// bounded by a single wall-clock timeout. A failing or panicking action
// never prevents the remaining actions from running.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/multierr"

	"termshell/internal/logger"
	"termshell/pkg/shelltypes"
)

var (
	// ErrCleanupFailed wraps the error of a single failed action.
	ErrCleanupFailed = errors.New("cleanup action failed")
	// ErrCleanupTimeout is reported when the run exceeds its timeout.
	ErrCleanupTimeout = errors.New("cleanup timed out")
)

type entry struct {
	name   string
	action shelltypes.CleanupAction
	seq    uint64
}

// Manager holds the registered cleanup actions. It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	entries []entry
	nextSeq uint64
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{}
}

// RegisterCleanup pushes action onto the stack. A nil action is ignored
// and yields a handle that does nothing.
func (m *Manager) RegisterCleanup(name string, action shelltypes.CleanupAction) shelltypes.CleanupHandle {
	if action == nil {
		return &handle{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSeq++
	m.entries = append(m.entries, entry{name: name, action: action, seq: m.nextSeq})
	logger.Debug("Cleanup registered", "name", name, "seq", m.nextSeq)
	return &handle{m: m, seq: m.nextSeq}
}

// RegisterCleanupFunc registers a synchronous action that cannot fail.
func (m *Manager) RegisterCleanupFunc(name string, fn func()) shelltypes.CleanupHandle {
	if fn == nil {
		return &handle{}
	}
	return m.RegisterCleanup(name, func(context.Context) error {
		fn()
		return nil
	})
}

// Len returns the number of pending actions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Names returns the pending action names in execution (LIFO) order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0; i-- {
		names = append(names, m.entries[i].name)
	}
	return names
}

func (m *Manager) remove(seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.seq == seq {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

// drain empties the stack and returns its entries in LIFO order.
func (m *Manager) drain() []entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entry, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0; i-- {
		out = append(out, m.entries[i])
	}
	m.entries = nil
	return out
}

// ExecuteCleanup runs every pending action in LIFO order and returns a
// report. The stack is drained first, so a second call only runs actions
// registered in between. A timeout of zero or less means no deadline
// beyond ctx.
//
// When the deadline passes, ExecuteCleanup returns without waiting for the
// action in flight; that action and all later ones are reported abandoned.
func (m *Manager) ExecuteCleanup(ctx context.Context, timeout time.Duration) *Report {
	entries := m.drain()
	report := &Report{}
	if len(entries) == 0 {
		return report
	}

	if ctx == nil {
		ctx = context.Background()
	}
	var (
		runCtx    context.Context
		cancelRun context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancelRun = context.WithTimeout(ctx, timeout)
	} else {
		runCtx, cancelRun = context.WithCancel(ctx)
	}
	defer cancelRun()

	logger.Debug("Executing cleanup", "actions", len(entries), "timeout", timeout)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, e := range entries {
			if runCtx.Err() != nil {
				return
			}
			err := runAction(runCtx, e)
			if runCtx.Err() != nil {
				// Finished past the deadline: reported with the abandoned ones.
				return
			}
			report.markFinished(e.name, err)
		}
	}()

	select {
	case <-done:
	case <-runCtx.Done():
	}
	if report.finishedCount() < len(entries) {
		report.abandon(entries, timeout, runCtx.Err())
	}

	if err := report.Err(); err != nil {
		logger.Warn("Cleanup completed with errors", "error", err)
	}
	return report
}

// runAction invokes a single action, converting a panic into an error.
func runAction(ctx context.Context, e entry) (err error) {
	var catcher panics.Catcher
	catcher.Try(func() {
		err = e.action(ctx)
	})
	if r := catcher.Recovered(); r != nil {
		logger.Debug("Cleanup action panicked", "name", e.name, "panic", r.Value, "stack", string(r.Stack))
		err = fmt.Errorf("panic: %v", r.Value)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCleanupFailed, e.name, err)
	}
	return nil
}

type handle struct {
	m    *Manager
	seq  uint64
	once sync.Once
}

// Unregister removes the entry. Calling it again does nothing.
func (h *handle) Unregister() {
	if h.m == nil {
		return
	}
	h.once.Do(func() {
		h.m.remove(h.seq)
	})
}

// Report describes the outcome of an ExecuteCleanup run.
type Report struct {
	mu        sync.Mutex
	sealed    bool
	executed  []string
	failed    []string
	abandoned []string
	timedOut  bool
	err       error
}

func (r *Report) markFinished(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return
	}
	r.executed = append(r.executed, name)
	if err != nil {
		r.failed = append(r.failed, name)
		r.err = multierr.Append(r.err, err)
	}
}

func (r *Report) finishedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.executed)
}

// abandon seals the report; results arriving afterwards are dropped.
func (r *Report) abandon(entries []entry, timeout time.Duration, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	finished := len(r.executed)
	if finished == len(entries) {
		return
	}
	r.sealed = true
	for _, e := range entries[finished:] {
		r.abandoned = append(r.abandoned, e.name)
	}

	if errors.Is(cause, context.DeadlineExceeded) {
		r.timedOut = true
		r.err = multierr.Append(r.err, fmt.Errorf("%w after %s: %d action(s) abandoned", ErrCleanupTimeout, timeout, len(r.abandoned)))
		return
	}
	r.err = multierr.Append(r.err, fmt.Errorf("cleanup cancelled: %d action(s) abandoned: %w", len(r.abandoned), cause))
}

// Executed returns the names of actions that ran, failed ones included, in order.
func (r *Report) Executed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.executed...)
}

// Failed returns the names of actions that returned an error or panicked.
func (r *Report) Failed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failed...)
}

// Abandoned returns the names of actions cut off by the deadline.
func (r *Report) Abandoned() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.abandoned...)
}

// TimedOut reports whether the run hit its timeout.
func (r *Report) TimedOut() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timedOut
}

// Err returns the aggregated error of the run, or nil.
func (r *Report) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Errors returns the individual errors making up Err.
func (r *Report) Errors() []error {
	return multierr.Errors(r.Err())
}
