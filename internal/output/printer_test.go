package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"termshell/internal/environment"
	"termshell/pkg/shelltypes"
)

func TestPrinterBasicOutput(t *testing.T) {
	buffer := NewCaptureBuffer()
	printer := NewPrinter(WithWriter(buffer), PlainText())

	printer.Print("hello")
	printer.Println(" world")
	printer.Printf("number: %d", 42)

	assert.Equal(t, "hello world\nnumber: 42", buffer.String())
}

func TestPrinterStyledOutput(t *testing.T) {
	buffer := NewCaptureBuffer()
	printer := NewPrinter(WithWriter(buffer), WithStyles(NewMockStyleProvider()))

	printer.PrintStyled("go", shelltypes.StyleCommand)
	printer.PrintlnStyled("done", shelltypes.StyleSuccess)
	printer.Println("plain")

	assert.Equal(t, []string{"[command]go[/command][success]done[/success]", "plain"}, buffer.Lines())
}

func TestPrinterPlainModeIgnoresStyles(t *testing.T) {
	buffer := NewCaptureBuffer()
	printer := NewPrinter(WithWriter(buffer), WithStyles(NewMockStyleProvider()), PlainText())

	printer.PrintlnStyled("text", shelltypes.StyleWarning)

	assert.Equal(t, "text\n", buffer.String())
}

func TestPrinterUnavailableProviderFallsBack(t *testing.T) {
	provider := NewMockStyleProvider()
	provider.SetAvailable(false)
	buffer := NewCaptureBuffer()
	printer := NewPrinter(WithWriter(buffer), WithStyles(provider))

	printer.PrintStyled("x", shelltypes.StyleInfo)

	assert.Equal(t, "x", buffer.String())
}

func TestPrinterErrorln(t *testing.T) {
	out := NewCaptureBuffer()
	errOut := NewCaptureBuffer()
	printer := NewPrinter(WithWriter(out), WithErrorWriter(errOut), PlainText())

	printer.Errorln("boom")

	assert.Empty(t, out.String())
	assert.Equal(t, "Error: boom\n", errOut.String())
}

func TestPrinterErrorlnDefaultsToMainWriter(t *testing.T) {
	out := CaptureOutput(func(p *Printer) {
		p.Errorln("bad input")
	})
	assert.Equal(t, "Error: bad input\n", out)
}

func TestPrinterSilent(t *testing.T) {
	buffer := NewCaptureBuffer()
	silent := NewPrinter(WithWriter(buffer), Silent())
	silent.Println("hidden")
	_, _ = silent.Write([]byte("also hidden"))
	assert.Equal(t, 0, buffer.Len())
}

func TestPrinterWriteAndFlush(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(WithWriter(&buf))

	n, err := printer.Write([]byte("raw bytes"))
	assert.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.NoError(t, printer.Flush())
	assert.Equal(t, "raw bytes", buf.String())
}

func TestPrinterConcurrentWrites(t *testing.T) {
	buffer := NewCaptureBuffer()
	printer := NewPrinter(WithWriter(buffer), PlainText())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			printer.Println("line")
		}()
	}
	wg.Wait()

	assert.Len(t, buffer.Lines(), 20)
}

func TestThemeNoColor(t *testing.T) {
	var buf bytes.Buffer
	env := environment.Map{"NO_COLOR": "1"}
	theme := NewTheme(&buf, env, environment.Resolve(env, -1, -1))

	assert.False(t, theme.IsAvailable())
	assert.Equal(t, "prompt> ", theme.Styled("prompt> ", shelltypes.StylePrompt))
}

func TestThemeForceColor(t *testing.T) {
	var buf bytes.Buffer
	env := environment.Map{"FORCE_COLOR": "1", "TERM": "xterm-256color"}
	theme := NewTheme(&buf, env, environment.Resolve(env, -1, -1))

	assert.True(t, theme.IsAvailable())
	rendered := theme.Styled("err", shelltypes.StyleError)
	assert.Contains(t, rendered, "err")
	assert.True(t, strings.Contains(rendered, "\x1b["), "expected escape sequences in %q", rendered)

	// Unknown styles render unchanged text content
	assert.Contains(t, theme.GetStyle("nonexistent").Render("plain"), "plain")
}
