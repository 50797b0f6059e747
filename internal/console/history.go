// Package console implements the Reader port: a plain line reader for pipes
// and redirected input, an interactive readline-backed reader, and the
// bounded command history they share.
package console

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// History is a bounded list of input lines, oldest first.
type History struct {
	mu      sync.RWMutex
	entries []string
	limit   int
}

// NewHistory creates a history holding at most limit entries.
// A limit of 0 disables recording.
func NewHistory(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{limit: limit}
}

// Add records a line. Blank lines and immediate repeats are skipped.
func (h *History) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || h.limit == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append([]string(nil), h.entries[over:]...)
	}
}

// Entries returns a copy of all entries, oldest first.
func (h *History) Entries() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.entries...)
}

// Last returns up to n most recent entries, oldest first.
func (h *History) Last(n int) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n >= len(h.entries) {
		return append([]string(nil), h.entries...)
	}
	return append([]string(nil), h.entries[len(h.entries)-n:]...)
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Limit returns the configured capacity.
func (h *History) Limit() int {
	return h.limit
}

// Load appends lines from a history file. A missing file is not an error.
func (h *History) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read history file %s: %w", path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		h.Add(line)
	}
	return nil
}

// Save writes the entries to path, one per line.
func (h *History) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	content := strings.Join(h.Entries(), "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write history file %s: %w", path, err)
	}
	return nil
}
