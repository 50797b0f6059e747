// Package commands provides command registration and lookup for termshell.
// Names are unique case-insensitively and the shell's own command names are
// reserved.
package commands

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"termshell/pkg/shelltypes"
)

// ErrNamingConflict is returned when a command name is reserved or taken.
var ErrNamingConflict = errors.New("naming conflict")

// ReservedNames are implemented by the shell itself and cannot be registered.
var ReservedNames = []string{
	"help", "history", "pwd", "cd", "clear", "complete", "exit", "quit", "echo", "config",
}

// IsReserved reports whether name is reserved, ignoring case.
func IsReserved(name string) bool {
	key := normalize(name)
	for _, r := range ReservedNames {
		if r == key {
			return true
		}
	}
	return false
}

// Registry manages command registration and lookup.
// Registration order is preserved for help output.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]shelltypes.Command
	order    []shelltypes.Command
}

// NewRegistry creates a new command registry with an empty command map.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]shelltypes.Command),
	}
}

// Register adds a command. It returns an error wrapping ErrNamingConflict
// when the name is reserved or already registered.
func (r *Registry) Register(cmd shelltypes.Command) error {
	if cmd == nil {
		return fmt.Errorf("command cannot be nil")
	}
	name := strings.TrimSpace(cmd.Name())
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return fmt.Errorf("command name %q cannot contain whitespace", name)
	}
	if IsReserved(name) {
		return fmt.Errorf("%w: %s is a reserved command name", ErrNamingConflict, name)
	}

	key := normalize(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.commands[key]; exists {
		return fmt.Errorf("%w: command %s already registered as %s", ErrNamingConflict, name, existing.Name())
	}

	r.commands[key] = cmd
	r.order = append(r.order, cmd)
	return nil
}

// MustRegister registers cmd and panics on failure. Use only at startup.
func (r *Registry) MustRegister(cmd shelltypes.Command) {
	if err := r.Register(cmd); err != nil {
		panic(fmt.Sprintf("failed to register command: %v", err))
	}
}

// Resolve looks a command up by name, ignoring case.
func (r *Registry) Resolve(name string) (shelltypes.Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, exists := r.commands[normalize(name)]
	return cmd, exists
}

// List returns the registered commands in registration order.
// The returned slice is a copy and can be safely modified.
func (r *Registry) List() []shelltypes.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]shelltypes.Command(nil), r.order...)
}

// Names returns the registered command names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.order))
	for _, cmd := range r.order {
		names = append(names, cmd.Name())
	}
	return names
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GlobalRegistry is the registry populated by command packages in init().
var GlobalRegistry = NewRegistry()
