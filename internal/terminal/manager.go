// Package terminal captures the terminal state at session start and puts it
// back on the way out, whatever the exit path.
//
// All operations are best-effort. When output is redirected the manager
// records an unknown snapshot and every modification becomes a no-op.
package terminal

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/term"

	"termshell/internal/logger"
)

// DefaultQueryTimeout bounds the cursor position query.
const DefaultQueryTimeout = 200 * time.Millisecond

// Manager owns the session's terminal snapshot and the active scoped
// modifications.
type Manager struct {
	in    io.Reader
	out   io.Writer
	inFd  int
	outFd int

	queryCursor  bool
	queryTimeout time.Duration

	isTerminal func(fd int) bool
	getState   func(fd int) (*term.State, error)
	makeRaw    func(fd int) (*term.State, error)
	restore    func(fd int, state *term.State) error

	captureOnce sync.Once
	mu          sync.Mutex
	snapshot    Snapshot
	saved       *term.State
	active      []*Scope
}

// Option configures a Manager.
type Option func(*Manager)

// WithInput sets the input used for raw mode and the cursor query.
func WithInput(in io.Reader) Option {
	return func(m *Manager) {
		m.in = in
		m.inFd = fdOf(in)
	}
}

// WithCursorQuery enables the cursor position query during CaptureState.
func WithCursorQuery(enabled bool, timeout time.Duration) Option {
	return func(m *Manager) {
		m.queryCursor = enabled
		if timeout > 0 {
			m.queryTimeout = timeout
		}
	}
}

// NewManager creates a manager writing control sequences to out.
// Input defaults to os.Stdin.
func NewManager(out io.Writer, opts ...Option) *Manager {
	m := &Manager{
		in:           os.Stdin,
		inFd:         fdOf(os.Stdin),
		out:          out,
		outFd:        fdOf(out),
		queryTimeout: DefaultQueryTimeout,
		isTerminal:   term.IsTerminal,
		getState:     term.GetState,
		makeRaw:      term.MakeRaw,
		restore:      term.Restore,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func fdOf(v any) int {
	if f, ok := v.(interface{ Fd() uintptr }); ok {
		return int(f.Fd())
	}
	return -1
}

func (m *Manager) outputIsTerminal() bool {
	return m.outFd >= 0 && m.isTerminal(m.outFd)
}

func (m *Manager) inputIsTerminal() bool {
	return m.inFd >= 0 && m.isTerminal(m.inFd)
}

// CaptureState records the terminal snapshot. Only the first call has an
// effect.
func (m *Manager) CaptureState() Snapshot {
	m.captureOnce.Do(func() {
		snap := Snapshot{}
		if !m.outputIsTerminal() {
			logger.Debug("Output is not a terminal, state unknown")
			m.setSnapshot(snap, nil)
			return
		}
		snap.Known = true
		snap.CursorVisible = true

		var saved *term.State
		if m.inputIsTerminal() {
			state, err := m.getState(m.inFd)
			if err != nil {
				logger.Debug("Failed to read terminal mode", "error", err)
			} else {
				saved = state
			}
			if m.queryCursor {
				snap.Row, snap.Col, snap.PositionKnown = m.queryPosition()
			}
		}

		m.setSnapshot(snap, saved)
		logger.Debug("Terminal state captured", "snapshot", snap.String())
	})
	return m.Snapshot()
}

func (m *Manager) queryPosition() (row, col int, ok bool) {
	old, err := m.makeRaw(m.inFd)
	if err != nil {
		logger.Debug("Cursor query skipped, raw mode unavailable", "error", err)
		return 0, 0, false
	}
	defer func() { _ = m.restore(m.inFd, old) }()

	row, col, err = queryCursorPosition(m.in, m.out, m.queryTimeout)
	if err != nil {
		logger.Debug("Cursor query failed", "error", err)
		return 0, 0, false
	}
	return row, col, true
}

func (m *Manager) setSnapshot(s Snapshot, saved *term.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = s
	m.saved = saved
}

// Snapshot returns the captured snapshot.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// TemporaryModification applies kind and returns a scope whose Release
// applies the inverse. When the terminal is unavailable the returned scope
// does nothing.
func (m *Manager) TemporaryModification(kind Modification) *Scope {
	s := &Scope{m: m, kind: kind}

	switch kind {
	case HideCursor:
		if m.outputIsTerminal() && m.write(ansi.HideCursor) {
			s.inverse = func() error { return m.writeErr(ansi.ShowCursor) }
		}
	case SaveCursor:
		if m.outputIsTerminal() && m.write(ansi.SaveCursor) {
			s.inverse = func() error { return m.writeErr(ansi.RestoreCursor) }
		}
	case RawMode:
		if m.inputIsTerminal() {
			old, err := m.makeRaw(m.inFd)
			if err != nil {
				logger.Debug("Failed to enter raw mode", "error", err)
				break
			}
			s.inverse = func() error { return m.restore(m.inFd, old) }
		}
	}

	if s.inverse != nil {
		m.mu.Lock()
		m.active = append(m.active, s)
		m.mu.Unlock()
	}
	return s
}

// With runs fn inside a scoped modification. The modification is undone
// even if fn panics.
func (m *Manager) With(kind Modification, fn func() error) error {
	s := m.TemporaryModification(kind)
	defer s.Release()
	return fn()
}

// WithHiddenCursor runs fn with the cursor hidden.
func (m *Manager) WithHiddenCursor(fn func() error) error {
	return m.With(HideCursor, fn)
}

// RestoreState undoes outstanding modifications (most recent first),
// restores the saved terminal mode and shows the cursor again. It never
// fails and never panics.
func (m *Manager) RestoreState() {
	var catcher panics.Catcher
	catcher.Try(m.restoreState)
	if r := catcher.Recovered(); r != nil {
		logger.Debug("Terminal restore panicked", "error", r.AsError())
	}
}

func (m *Manager) restoreState() {
	m.mu.Lock()
	active := m.active
	m.active = nil
	snap := m.snapshot
	saved := m.saved
	m.mu.Unlock()

	for i := len(active) - 1; i >= 0; i-- {
		active[i].Release()
	}

	if !snap.Known {
		return
	}
	if saved != nil {
		if err := m.restore(m.inFd, saved); err != nil {
			logger.Debug("Failed to restore terminal mode", "error", err)
		}
	}
	if snap.CursorVisible {
		m.write(ansi.ShowCursor)
	}
}

func (m *Manager) forget(s *Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.active {
		if a == s {
			m.active = append(m.active[:i], m.active[i+1:]...)
			return
		}
	}
}

func (m *Manager) write(seq string) bool {
	return m.writeErr(seq) == nil
}

func (m *Manager) writeErr(seq string) error {
	_, err := io.WriteString(m.out, seq)
	if err != nil {
		logger.Debug("Terminal write failed", "error", err)
	}
	return err
}

// Scope is an applied modification waiting to be undone.
type Scope struct {
	m       *Manager
	kind    Modification
	inverse func() error
	once    sync.Once
	done    atomic.Bool
}

// Kind returns the modification the scope applied.
func (s *Scope) Kind() Modification { return s.kind }

// Active reports whether the modification was applied and not yet undone.
func (s *Scope) Active() bool {
	return s.inverse != nil && !s.done.Load()
}

// Release undoes the modification. Only the first call has an effect.
func (s *Scope) Release() {
	s.once.Do(func() {
		if s.inverse == nil {
			return
		}
		s.done.Store(true)
		s.m.forget(s)
		if err := s.inverse(); err != nil {
			logger.Debug("Failed to undo terminal modification", "kind", s.kind, "error", err)
		}
	})
}
