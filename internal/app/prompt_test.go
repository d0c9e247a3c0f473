package app

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompter_Ask(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("  y  \nnext\n"), &out)

	answer, err := p.Ask("Process all farms? (Y/N): ")
	require.NoError(t, err)
	assert.Equal(t, "y", answer)
	assert.Equal(t, "Process all farms? (Y/N): ", out.String())

	answer, err = p.Ask("again: ")
	require.NoError(t, err)
	assert.Equal(t, "next", answer)

	_, err = p.Ask("done: ")
	assert.ErrorIs(t, err, io.EOF)
}

func TestPrompter_AskWithoutTrailingNewline(t *testing.T) {
	p := NewPrompter(strings.NewReader("10/19/2023"), io.Discard)

	answer, err := p.Ask("Start date: ")
	require.NoError(t, err)
	assert.Equal(t, "10/19/2023", answer)
}

func TestPrompter_AskUntil(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("bad\nworse\ngood\n"), &out)

	answer, err := p.AskUntil("value: ", func(s string) error {
		if s != "good" {
			return errors.New("not good")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "good", answer)
	assert.Equal(t, 2, strings.Count(out.String(), "Invalid input: not good"))
	assert.Equal(t, 3, strings.Count(out.String(), "value: "))
}

func TestPrompter_AskUntilEOF(t *testing.T) {
	p := NewPrompter(strings.NewReader("bad\n"), io.Discard)

	_, err := p.AskUntil("value: ", func(string) error { return errors.New("no") })
	assert.ErrorIs(t, err, io.EOF)
}
