package testutils

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termshell/pkg/shelltypes"
)

func TestGenerateSessionID(t *testing.T) {
	ResetTestCounters()
	assert.Equal(t, "00000001-0000-4000-8000-000000000001", GenerateSessionID(true))
	assert.Equal(t, "00000002-0000-4000-8000-000000000002", GenerateSessionID(true))

	a, b := GenerateSessionID(false), GenerateSessionID(false)
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestScriptedReader(t *testing.T) {
	r := NewScriptedReaderFromText("one\ntwo\n")

	line, err := r.ReadLine(context.Background(), "> ")
	require.NoError(t, err)
	assert.Equal(t, "one", line)

	line, err = r.ReadLine(context.Background(), "> ")
	require.NoError(t, err)
	assert.Equal(t, "two", line)

	_, err = r.ReadLine(context.Background(), "> ")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"> ", "> ", "> "}, r.Prompts())

	require.NoError(t, r.Close())
	assert.True(t, r.Closed())
}

func TestScriptedReader_BlockAtEnd(t *testing.T) {
	r := NewScriptedReader()
	r.BlockAtEnd = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.ReadLine(ctx, "")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRecordingWriter(t *testing.T) {
	w := NewRecordingWriter()
	w.Print("a")
	w.Println("b")
	w.PrintlnStyled("c", shelltypes.StyleSuccess)
	w.Errorln("bad")

	assert.Equal(t, "ab\nc\nError: bad\n", w.String())
	assert.Equal(t, []string{"bad"}, w.Errors())

	w.Reset()
	assert.Empty(t, w.String())
}

func TestMockCommand(t *testing.T) {
	cmd := NewMockCommand("m")
	code, err := cmd.Execute(context.Background(), nil, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, shelltypes.ExitOK, code)
	assert.Equal(t, [][]string{{"x"}}, cmd.Calls())
}
