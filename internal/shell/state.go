package shell

// State is the shell loop's lifecycle state.
type State int

const (
	// StateStarting - signal handler and terminal snapshot being set up
	StateStarting State = iota
	// StateReading - waiting for the next input line or cancellation
	StateReading
	// StateDispatching - a command is running
	StateDispatching
	// StateShuttingDown - running cleanup and restoring the terminal
	StateShuttingDown
	// StateStopped - Run has returned
	StateStopped
)

// String returns a human-readable representation of the shell state.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "Starting"
	case StateReading:
		return "Reading"
	case StateDispatching:
		return "Dispatching"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}
