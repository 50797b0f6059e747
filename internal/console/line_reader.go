package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/muesli/cancelreader"

	"termshell/pkg/shelltypes"
)

// ErrInterrupted is returned by readers that handle Ctrl+C themselves.
var ErrInterrupted = errors.New("input interrupted")

// LineReader reads newline-terminated lines from any io.Reader.
// When the source is a file or terminal, Close cancels a blocked read.
type LineReader struct {
	src    io.Reader
	cancel func() bool
	closer io.Closer
	br     *bufio.Reader
	out    io.Writer

	mu      sync.Mutex
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

var _ shelltypes.Reader = (*LineReader)(nil)

// NewLineReader wraps in. Prompts are written to out (may be nil).
func NewLineReader(in io.Reader, out io.Writer) *LineReader {
	r := &LineReader{src: in, out: out}
	if cr, err := cancelreader.NewReader(in); err == nil {
		r.src = cr
		r.cancel = cr.Cancel
		r.closer = cr
	}
	r.br = bufio.NewReader(r.src)
	return r
}

// ReadLine writes prompt and waits for the next line or ctx.
// A read abandoned by ctx is resumed by the next call, so no input is lost.
func (r *LineReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt != "" && r.out != nil {
		_, _ = fmt.Fprint(r.out, prompt)
	}

	r.mu.Lock()
	if r.pending == nil {
		ch := make(chan lineResult, 1)
		r.pending = ch
		go func() {
			line, err := r.br.ReadString('\n')
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
		return finishLine(res)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func finishLine(res lineResult) (string, error) {
	line := strings.TrimRight(res.line, "\r\n")
	if res.err == nil {
		return line, nil
	}
	if errors.Is(res.err, cancelreader.ErrCanceled) {
		return "", io.EOF
	}
	if errors.Is(res.err, io.EOF) {
		if line != "" {
			// Final line without a trailing newline
			return line, nil
		}
		return "", io.EOF
	}
	return "", fmt.Errorf("failed to read input: %w", res.err)
}

// Close cancels any blocked read and releases the cancel reader.
func (r *LineReader) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
