package testutils

import (
	"context"
	"io"
	"strings"
	"sync"

	"termshell/pkg/shelltypes"
)

// ScriptedReader replays fixed lines and then reports io.EOF.
// With BlockAtEnd set it instead waits for the context to be cancelled,
// which mimics a user who stops typing.
type ScriptedReader struct {
	mu         sync.Mutex
	lines      []string
	prompts    []string
	closed     bool
	BlockAtEnd bool
}

var _ shelltypes.Reader = (*ScriptedReader)(nil)

// NewScriptedReader returns a reader over lines.
func NewScriptedReader(lines ...string) *ScriptedReader {
	return &ScriptedReader{lines: lines}
}

// NewScriptedReaderFromText splits text on newlines. A trailing newline does
// not produce an extra empty line.
func NewScriptedReaderFromText(text string) *ScriptedReader {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return NewScriptedReader()
	}
	return NewScriptedReader(strings.Split(text, "\n")...)
}

// ReadLine returns the next scripted line.
func (r *ScriptedReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	r.mu.Lock()
	r.prompts = append(r.prompts, prompt)
	if err := ctx.Err(); err != nil {
		r.mu.Unlock()
		return "", err
	}
	if len(r.lines) > 0 {
		line := r.lines[0]
		r.lines = r.lines[1:]
		r.mu.Unlock()
		return line, nil
	}
	block := r.BlockAtEnd
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "", io.EOF
}

// Close marks the reader closed.
func (r *ScriptedReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *ScriptedReader) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Prompts returns the prompts passed to ReadLine.
func (r *ScriptedReader) Prompts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.prompts...)
}

// RecordingWriter is a Writer that keeps plain text. Styled output is
// recorded without styling; errors are kept separately as well.
type RecordingWriter struct {
	mu     sync.Mutex
	out    strings.Builder
	errors []string
}

var _ shelltypes.Writer = (*RecordingWriter)(nil)

// NewRecordingWriter returns an empty RecordingWriter.
func NewRecordingWriter() *RecordingWriter {
	return &RecordingWriter{}
}

func (w *RecordingWriter) write(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.out.WriteString(s)
}

// Print records text.
func (w *RecordingWriter) Print(text string) { w.write(text) }

// Println records text and a newline.
func (w *RecordingWriter) Println(text string) { w.write(text + "\n") }

// PrintStyled records text.
func (w *RecordingWriter) PrintStyled(text string, _ shelltypes.Style) { w.write(text) }

// PrintlnStyled records text and a newline.
func (w *RecordingWriter) PrintlnStyled(text string, _ shelltypes.Style) { w.write(text + "\n") }

// Errorln records an "Error: " prefixed line.
func (w *RecordingWriter) Errorln(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errors = append(w.errors, text)
	w.out.WriteString("Error: " + text + "\n")
}

// Write makes the recorder usable as an io.Writer for process output.
func (w *RecordingWriter) Write(p []byte) (int, error) {
	w.write(string(p))
	return len(p), nil
}

// String returns everything written so far.
func (w *RecordingWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.String()
}

// Errors returns the texts passed to Errorln.
func (w *RecordingWriter) Errors() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.errors...)
}

// Reset clears the recording.
func (w *RecordingWriter) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.out.Reset()
	w.errors = nil
}

// NewExecutionContext returns a context wired to a RecordingWriter and an
// empty ScriptedReader, working in dir.
func NewExecutionContext(dir string, registrar shelltypes.CleanupRegistrar) (*shelltypes.ExecutionContext, *RecordingWriter) {
	w := NewRecordingWriter()
	ec := &shelltypes.ExecutionContext{
		Writer:         w,
		Reader:         NewScriptedReader(),
		WorkingDir:     dir,
		Cleanup:        registrar,
		Stdout:         w,
		Stderr:         w,
		SessionID:      GenerateSessionID(true),
		NonInteractive: true,
	}
	return ec, w
}
