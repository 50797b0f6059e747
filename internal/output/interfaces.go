// Package output provides the console Writer used by the shell and its commands.
// It uses dependency injection to support optional styling while keeping
// plain output available for redirected and NO_COLOR sessions.
package output

import "termshell/pkg/shelltypes"

// StyleProvider is implemented by styling backends (see Theme) to render
// semantic styles.
type StyleProvider interface {
	// GetStyle returns a TextStyle for the given semantic style.
	GetStyle(style shelltypes.Style) TextStyle

	// IsAvailable returns true if the provider is ready to render styles.
	// The printer falls back to plain text otherwise.
	IsAvailable() bool
}

// TextStyle represents the capability to render text with styling.
// lipgloss.Style satisfies it.
type TextStyle interface {
	Render(text ...string) string
}

// Mode defines different output modes the printer can operate in.
type Mode int

const (
	// ModeAuto styles output when a StyleProvider is available
	ModeAuto Mode = iota

	// ModePlain forces plain text output
	ModePlain
)
