// Package builtin provides the example commands shipped with termshell.
// Each command registers itself with commands.GlobalRegistry in init(),
// so importing the package for side effects makes them available.
package builtin

import (
	"termshell/internal/commands"
	"termshell/internal/logger"
	"termshell/pkg/shelltypes"
)

const categoryDemo = "demo"

// register adds cmd to the global registry. Name clashes are startup
// programming errors.
func register(cmd shelltypes.Command) {
	if err := commands.GlobalRegistry.Register(cmd); err != nil {
		logger.Fatal("failed to register builtin command", "command", cmd.Name(), "error", err)
	}
}

// RegisterAll adds every example command to registry. The shell binary
// uses GlobalRegistry; tests build their own registries with this.
func RegisterAll(registry *commands.Registry) error {
	for _, cmd := range All() {
		if err := registry.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

// All returns fresh instances of every example command, in help order.
func All() []shelltypes.Command {
	return []shelltypes.Command{
		&GreetCommand{},
		&SayCommand{},
		&SleepCommand{},
		&CountdownCommand{},
		&CatCommand{},
		&WriteCommand{},
		&VersionCommand{},
	}
}

func init() {
	for _, cmd := range All() {
		register(cmd)
	}
}
