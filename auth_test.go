package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withStdin swaps os.Stdin for a pipe carrying the given input so password
// prompts take the non-terminal fallback path with deterministic content.
func withStdin(t *testing.T, input string) {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	old := os.Stdin
	os.Stdin = r

	t.Cleanup(func() {
		os.Stdin = old
		r.Close()
	})

	_, err = w.WriteString(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestPromptPassword_PipedInput(t *testing.T) {
	withStdin(t, "s3cret\n")

	pwd, err := promptPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pwd)
}

func TestPromptPassword_TrimsCRLF(t *testing.T) {
	withStdin(t, "hunter2\r\n")

	pwd, err := promptPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pwd)
}

func TestPromptPassword_EOFWithoutNewline(t *testing.T) {
	// Input ending without a newline still yields the password; heredocs
	// and printf without \n are common in scripts.
	withStdin(t, "abc")

	pwd, err := promptPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "abc", pwd)
}

func TestPasswordFromFlagOrPrompt_FlagWins(t *testing.T) {
	cmd := newLoginCmd()
	require.NoError(t, cmd.Flags().Set("password", "fromflag"))

	pwd, err := passwordFromFlagOrPrompt(cmd)
	require.NoError(t, err)
	assert.Equal(t, "fromflag", pwd)
}

func TestPasswordFromFlagOrPrompt_EmptyPromptFails(t *testing.T) {
	withStdin(t, "\n")

	cmd := newLoginCmd()

	_, err := passwordFromFlagOrPrompt(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")
}
