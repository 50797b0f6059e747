package dispatch

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Tokenize splits line into words. Whitespace separates words; single and
// double quotes group them and a backslash escapes the next character.
// Blank lines and lines starting with '#' yield no words.
func Tokenize(line string) ([]string, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, nil
	}
	words, err := shellquote.Split(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return words, nil
}

// Join quotes words so that Tokenize(Join(words)) returns words.
func Join(words ...string) string {
	return shellquote.Join(words...)
}
