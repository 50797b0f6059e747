package console

import (
	"strings"

	"github.com/chzyer/readline"
)

// CompleteFunc returns candidate command names for a prefix.
type CompleteFunc func(prefix string) []string

// Completer adapts a CompleteFunc to readline.AutoCompleter.
// Only the first word of the line is completed.
type Completer struct {
	complete CompleteFunc
}

var _ readline.AutoCompleter = (*Completer)(nil)

// NewCompleter creates a completer backed by fn.
func NewCompleter(fn CompleteFunc) *Completer {
	return &Completer{complete: fn}
}

// Do implements readline.AutoCompleter.
func (c *Completer) Do(line []rune, pos int) (newLine [][]rune, length int) {
	if c.complete == nil || pos > len(line) {
		return nil, 0
	}
	head := string(line[:pos])
	if strings.ContainsAny(strings.TrimLeft(head, " \t"), " \t") {
		return nil, 0
	}
	word := strings.TrimLeft(head, " \t")

	// Names resolve case-insensitively, so "GR" completes to "GReet".
	n := len([]rune(word))
	lower := strings.ToLower(word)
	for _, candidate := range c.complete(word) {
		runes := []rune(candidate)
		if len(runes) < n || strings.ToLower(string(runes[:n])) != lower {
			continue
		}
		newLine = append(newLine, []rune(string(runes[n:])+" "))
	}
	return newLine, n
}
