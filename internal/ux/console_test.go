package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskTrimsInput(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("  blue eyes  \n"), &out)

	answer, err := c.Ask("Eye color?")
	require.NoError(t, err)
	assert.Equal(t, "blue eyes", answer)
	assert.Contains(t, out.String(), "Eye color?")
}

func TestAskEmptyLineMeansSkip(t *testing.T) {
	c := NewConsole(strings.NewReader("\n"), &bytes.Buffer{})

	answer, err := c.Ask("Anything?")
	require.NoError(t, err)
	assert.Empty(t, answer)
}

func TestConfirm(t *testing.T) {
	cases := map[string]bool{
		"y\n":    true,
		"Y\n":    true,
		"yes\n":  true,
		"n\n":    false,
		"no\n":   false,
		"sure\n": false,
		"\n":     false,
	}
	for input, want := range cases {
		c := NewConsole(strings.NewReader(input), &bytes.Buffer{})
		got, err := c.Confirm("More attempts?")
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", input)
	}
}
