package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"termshell/pkg/shelltypes"
)

// ErrorPrefix precedes every line written with Errorln.
const ErrorPrefix = "Error: "

// Printer is the Writer implementation for the shell. It supports both
// plain and styled output and is safe for concurrent use.
type Printer struct {
	styleProvider StyleProvider
	writer        io.Writer
	errWriter     io.Writer
	mode          Mode
	silent        bool

	mu sync.Mutex
}

var _ shelltypes.Writer = (*Printer)(nil)

// NewPrinter creates a new Printer with the given options.
// By default, it writes to os.Stdout in auto mode.
func NewPrinter(options ...Option) *Printer {
	p := &Printer{
		writer: os.Stdout,
		mode:   ModeAuto,
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// Print outputs text without any styling.
func (p *Printer) Print(text string) {
	p.output(p.writer, shelltypes.StylePlain, text, false)
}

// Printf outputs formatted text without any styling.
func (p *Printer) Printf(format string, args ...interface{}) {
	p.output(p.writer, shelltypes.StylePlain, fmt.Sprintf(format, args...), false)
}

// Println outputs text followed by a newline.
func (p *Printer) Println(text string) {
	p.output(p.writer, shelltypes.StylePlain, text, true)
}

// PrintStyled outputs text rendered with the given style.
func (p *Printer) PrintStyled(text string, style shelltypes.Style) {
	p.output(p.writer, style, text, false)
}

// PrintlnStyled outputs styled text followed by a newline.
func (p *Printer) PrintlnStyled(text string, style shelltypes.Style) {
	p.output(p.writer, style, text, true)
}

// Errorln writes an error line prefixed with "Error: ".
func (p *Printer) Errorln(text string) {
	w := p.errWriter
	if w == nil {
		w = p.writer
	}
	p.output(w, shelltypes.StyleError, ErrorPrefix+text, true)
}

// Write implements io.Writer so external processes can stream through the printer.
func (p *Printer) Write(b []byte) (int, error) {
	if p.silent {
		return len(b), nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writer.Write(b)
}

// Flush syncs the underlying writer when it supports it.
func (p *Printer) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	type syncer interface{ Sync() error }
	type flusher interface{ Flush() error }

	switch w := p.writer.(type) {
	case flusher:
		return w.Flush()
	case *os.File:
		// Sync fails on terminals and pipes; nothing to flush there
		_ = w.Sync()
		return nil
	case syncer:
		return w.Sync()
	}
	return nil
}

// output is the core output method that handles all rendering logic.
func (p *Printer) output(w io.Writer, style shelltypes.Style, text string, addNewline bool) {
	if p.silent {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	finalText := p.render(style, text)
	if addNewline && !strings.HasSuffix(finalText, "\n") {
		finalText += "\n"
	}

	_, _ = fmt.Fprint(w, finalText) // Ignore write errors for output operations
}

func (p *Printer) render(style shelltypes.Style, text string) string {
	if style == shelltypes.StylePlain || p.mode == ModePlain || p.styleProvider == nil || !p.styleProvider.IsAvailable() {
		return text
	}
	return p.styleProvider.GetStyle(style).Render(text)
}
