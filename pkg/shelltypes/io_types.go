package shelltypes

import "context"

// Style names a semantic output style such as "error" or "command".
// Rendering is left to the Writer implementation.
type Style string

// Semantic styles understood by every Writer.
const (
	StylePlain     Style = "plain"
	StyleInfo      Style = "info"
	StyleSuccess   Style = "success"
	StyleWarning   Style = "warning"
	StyleError     Style = "error"
	StyleCommand   Style = "command"
	StyleHighlight Style = "highlight"
	StyleMuted     Style = "muted"
	StylePrompt    Style = "prompt"
)

// Reader reads input lines for the shell loop.
// ReadLine returns io.EOF at end of input and ctx.Err() when ctx is done
// before a line arrives.
type Reader interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
	Close() error
}

// Writer is the output port used by the shell and its commands.
type Writer interface {
	Print(text string)
	Println(text string)
	PrintStyled(text string, style Style)
	PrintlnStyled(text string, style Style)
	Errorln(text string)
}

// Terminal is the part of the terminal state manager exposed to commands.
// Changes are undone when fn returns, and again by the shell on shutdown if
// the command is abandoned.
type Terminal interface {
	WithHiddenCursor(fn func() error) error
}
