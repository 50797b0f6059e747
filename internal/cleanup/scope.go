package cleanup

import (
	"sync"

	"termshell/pkg/shelltypes"
)

// Scope is a registrar that remembers the handles it hands out so they can
// be dropped together, typically once the command that registered them has
// finished normally.
type Scope struct {
	parent shelltypes.CleanupRegistrar

	mu      sync.Mutex
	handles []shelltypes.CleanupHandle
}

// NewScope returns a Scope registering into parent.
func NewScope(parent shelltypes.CleanupRegistrar) *Scope {
	return &Scope{parent: parent}
}

// RegisterCleanup registers action with the parent registrar.
func (s *Scope) RegisterCleanup(name string, action shelltypes.CleanupAction) shelltypes.CleanupHandle {
	h := s.parent.RegisterCleanup(name, action)
	s.track(h)
	return h
}

// RegisterCleanupFunc registers fn with the parent registrar.
func (s *Scope) RegisterCleanupFunc(name string, fn func()) shelltypes.CleanupHandle {
	h := s.parent.RegisterCleanupFunc(name, fn)
	s.track(h)
	return h
}

func (s *Scope) track(h shelltypes.CleanupHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles = append(s.handles, h)
}

// Len returns the number of handles registered through the scope.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Release unregisters every handle registered through the scope.
func (s *Scope) Release() {
	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	for i := len(handles) - 1; i >= 0; i-- {
		handles[i].Unregister()
	}
}
