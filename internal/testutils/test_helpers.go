package testutils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termshell/pkg/shelltypes"
)

// MockCommand is a configurable Command for tests.
type MockCommand struct {
	CommandName string
	Desc        string
	Cat         string
	// Fn runs on Execute. A nil Fn returns ExitOK.
	Fn func(ctx context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error)

	mu    sync.Mutex
	calls [][]string
}

// NewMockCommand creates a mock command with the given name.
func NewMockCommand(name string) *MockCommand {
	return &MockCommand{
		CommandName: name,
		Desc:        fmt.Sprintf("Mock command: %s", name),
		Cat:         "test",
	}
}

// Name returns the command name.
func (m *MockCommand) Name() string { return m.CommandName }

// Description returns the command description.
func (m *MockCommand) Description() string { return m.Desc }

// Category returns the command category.
func (m *MockCommand) Category() string { return m.Cat }

// Execute records the call and runs Fn.
func (m *MockCommand) Execute(ctx context.Context, ec *shelltypes.ExecutionContext, args []string) (int, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), args...))
	fn := m.Fn
	m.mu.Unlock()

	if fn == nil {
		return shelltypes.ExitOK, nil
	}
	return fn(ctx, ec, args)
}

// Calls returns the argument vectors of every Execute call.
func (m *MockCommand) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls...)
}

// CleanupMockCommand is a MockCommand that declares cleanup actions.
type CleanupMockCommand struct {
	*MockCommand
	Cleanups []string
	// Ran receives the cleanup names as they run.
	Ran *Recorder
}

// RegisterCleanupActions registers one action per entry in Cleanups.
func (c *CleanupMockCommand) RegisterCleanupActions(registrar shelltypes.CleanupRegistrar, _ *shelltypes.ExecutionContext) {
	for _, name := range c.Cleanups {
		registrar.RegisterCleanupFunc(name, c.Ran.Func(name))
	}
}

// Recorder collects names in call order and is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	names []string
}

// Func returns a function recording name when called.
func (r *Recorder) Func(name string) func() {
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.names = append(r.names, name)
	}
}

// Names returns the recorded names.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

// AssertionHelpers provides common assertion patterns
type AssertionHelpers struct {
	t *testing.T
}

// NewAssertionHelpers creates assertion helpers for a test
func NewAssertionHelpers(t *testing.T) *AssertionHelpers {
	return &AssertionHelpers{t: t}
}

// AssertOutputContains checks that every fragment appears in the output.
func (h *AssertionHelpers) AssertOutputContains(w *RecordingWriter, fragments ...string) {
	h.t.Helper()
	out := w.String()
	for _, f := range fragments {
		assert.Contains(h.t, out, f, "output should contain %q", f)
	}
}

// AssertNoErrors checks that nothing was written with Errorln.
func (h *AssertionHelpers) AssertNoErrors(w *RecordingWriter) {
	h.t.Helper()
	assert.Empty(h.t, w.Errors(), "no errors should be reported")
}

// FileHelpers provides utilities for working with test files
type FileHelpers struct{}

// NewFileHelpers creates a new file helpers instance
func NewFileHelpers() *FileHelpers {
	return &FileHelpers{}
}

// CreateTempFile creates a temporary file with given content
func (f *FileHelpers) CreateTempFile(t *testing.T, filename, content string) string {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, filename)

	err := os.WriteFile(filePath, []byte(content), 0644)
	require.NoError(t, err, "Should create temp file successfully")

	return filePath
}

// CreateTempDir creates a temporary directory structure
func (f *FileHelpers) CreateTempDir(t *testing.T, files map[string]string) string {
	tmpDir := t.TempDir()

	for filename, content := range files {
		filePath := filepath.Join(tmpDir, filename)

		// Create directory if needed
		dir := filepath.Dir(filePath)
		if dir != tmpDir {
			err := os.MkdirAll(dir, 0755)
			require.NoError(t, err, "Should create directory %s", dir)
		}

		err := os.WriteFile(filePath, []byte(content), 0644)
		require.NoError(t, err, "Should create file %s", filename)
	}

	return tmpDir
}
