package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"termshell/pkg/shelltypes"
)

// ReadlineConfig configures an interactive reader.
type ReadlineConfig struct {
	HistoryLimit int
	HistoryFile  string
	Complete     CompleteFunc
	Stdin        io.ReadCloser
	Stdout       io.Writer
	Stderr       io.Writer
}

// ReadlineReader is the interactive Reader with line editing, history
// and tab completion.
type ReadlineReader struct {
	rl          *readline.Instance
	historyFile string

	mu      sync.Mutex
	pending chan lineResult
	closed  bool
}

var _ shelltypes.Reader = (*ReadlineReader)(nil)

// NewReadlineReader creates a readline instance from cfg.
func NewReadlineReader(cfg ReadlineConfig) (*ReadlineReader, error) {
	rlCfg := &readline.Config{
		HistoryFile:       cfg.HistoryFile,
		HistoryLimit:      cfg.HistoryLimit,
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		Stdin:             cfg.Stdin,
		Stdout:            cfg.Stdout,
		Stderr:            cfg.Stderr,
	}
	if cfg.HistoryLimit == 0 {
		// readline treats 0 as its default; -1 disables history
		rlCfg.HistoryLimit = -1
	}
	if cfg.Complete != nil {
		rlCfg.AutoComplete = NewCompleter(cfg.Complete)
	}

	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}
	return &ReadlineReader{rl: rl, historyFile: cfg.HistoryFile}, nil
}

// ManagesHistory reports whether readline persists history itself.
func (r *ReadlineReader) ManagesHistory() bool {
	return r.historyFile != ""
}

// ReadLine shows prompt and waits for a line or ctx.
// Ctrl+C at the prompt returns ErrInterrupted; Ctrl+D returns io.EOF.
func (r *ReadlineReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", io.EOF
	}
	if r.pending == nil {
		r.rl.SetPrompt(prompt)
		ch := make(chan lineResult, 1)
		r.pending = ch
		go func() {
			line, err := r.rl.Readline()
			ch <- lineResult{line: line, err: err}
		}()
	}
	ch := r.pending
	r.mu.Unlock()

	select {
	case res := <-ch:
		r.mu.Lock()
		r.pending = nil
		r.mu.Unlock()
		switch {
		case res.err == nil:
			return strings.TrimRight(res.line, "\r\n"), nil
		case errors.Is(res.err, readline.ErrInterrupt):
			return "", ErrInterrupted
		case errors.Is(res.err, io.EOF):
			return "", io.EOF
		default:
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close restores the terminal mode readline changed and stops reading.
func (r *ReadlineReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.rl.Close()
}
