package shelltypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutionContext_RequestExit(t *testing.T) {
	ec := &ExecutionContext{}

	// No handler installed: must not panic
	ec.RequestExit(3)

	var got []int
	ec.SetExitHandler(func(code int) { got = append(got, code) })
	ec.RequestExit(0)
	ec.RequestExit(7)

	assert.Equal(t, []int{0, 7}, got)
}

func TestExitCodes_Distinct(t *testing.T) {
	codes := []int{ExitOK, ExitFailure, ExitUsage, ExitNotExecutable, ExitNotFound, ExitCancelled}
	seen := make(map[int]bool)
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate exit code %d", c)
		seen[c] = true
	}
}
