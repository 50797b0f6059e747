package terminal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/cancelreader"
)

var errNoReport = errors.New("no cursor position report")

// queryCursorPosition writes a DSR request to out and reads the
// "ESC [ row ; col R" answer from in, giving up after timeout. The input
// must be in raw mode for the answer to arrive unbuffered.
func queryCursorPosition(in io.Reader, out io.Writer, timeout time.Duration) (row, col int, err error) {
	cr, err := cancelreader.NewReader(in)
	if err != nil {
		return 0, 0, fmt.Errorf("cursor query needs a cancelable input: %w", err)
	}
	defer cr.Close()

	if _, err := io.WriteString(out, ansi.RequestCursorPositionReport); err != nil {
		return 0, 0, fmt.Errorf("failed to request cursor position: %w", err)
	}

	type result struct {
		row, col int
		err      error
	}
	done := make(chan result, 1)
	go func() {
		var buf []byte
		chunk := make([]byte, 32)
		for {
			n, err := cr.Read(chunk)
			buf = append(buf, chunk[:n]...)
			if r, c, ok := parseCursorReport(buf); ok {
				done <- result{row: r, col: c}
				return
			}
			if err != nil {
				done <- result{err: err}
				return
			}
			if len(buf) > 64 {
				done <- result{err: errNoReport}
				return
			}
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.row, res.col, res.err
	case <-timer.C:
		if cr.Cancel() {
			<-done
		}
		return 0, 0, fmt.Errorf("%w within %s", errNoReport, timeout)
	}
}

// parseCursorReport finds the last complete CPR sequence in b.
func parseCursorReport(b []byte) (row, col int, ok bool) {
	end := bytes.LastIndexByte(b, 'R')
	if end < 0 {
		return 0, 0, false
	}
	start := bytes.LastIndex(b[:end], []byte("\x1b["))
	if start < 0 {
		return 0, 0, false
	}
	body := b[start+2 : end]
	sep := bytes.IndexByte(body, ';')
	if sep < 0 {
		return 0, 0, false
	}
	row, err := strconv.Atoi(string(body[:sep]))
	if err != nil || row < 1 {
		return 0, 0, false
	}
	col, err = strconv.Atoi(string(body[sep+1:]))
	if err != nil || col < 1 {
		return 0, 0, false
	}
	return row, col, true
}
