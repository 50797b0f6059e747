// Package testutils provides fakes and deterministic generators for termshell
// tests. Session IDs are also generated here so that test mode produces
// stable output.
package testutils

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	// Thread-safe counter for deterministic ID generation
	idCounter uint64
	idMutex   sync.Mutex
)

// GenerateSessionID returns a random UUID, or a deterministic one in test
// mode: 00000001-0000-4000-8000-000000000001, 00000002-..., and so on.
func GenerateSessionID(testMode bool) string {
	if testMode {
		return getDeterministicUUID()
	}
	return uuid.New().String()
}

func getDeterministicUUID() string {
	idMutex.Lock()
	defer idMutex.Unlock()

	idCounter++

	// Version nibble 4 and variant nibble 8 keep the value a valid v4 UUID.
	return fmt.Sprintf("%08x-0000-4000-8000-%012x", idCounter, idCounter)
}

// ResetTestCounters resets the deterministic counters.
// This should only be called from test code to ensure consistent test runs.
func ResetTestCounters() {
	idMutex.Lock()
	defer idMutex.Unlock()
	idCounter = 0
}
