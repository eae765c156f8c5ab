package cli

import (
	"bufio"
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPromptPasswordKeepsSpaces(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "unix newline", input: " pw 1 \n", want: " pw 1 "},
		{name: "windows newline", input: "  pw\t\r\n", want: "  pw\t"},
		{name: "no trailing newline", input: "pw ", want: "pw "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := strings.NewReader(tt.input)
			var out bytes.Buffer
			got, err := promptPassword(in, bufio.NewReader(in), &out)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, "Password: ", out.String())
		})
	}
}

func TestPromptPasswordEmptyInput(t *testing.T) {
	in := strings.NewReader("")
	_, err := promptPassword(in, bufio.NewReader(in), io.Discard)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadLineTrims(t *testing.T) {
	got, err := readLine(bufio.NewReader(strings.NewReader("  count users \r\n")))
	require.NoError(t, err)
	require.Equal(t, "count users", got)
}

func TestSignupPasswordWithSpaces(t *testing.T) {
	url := newServer(t, &historyProvider{})
	common := []string{"--server", url, "--session", filepath.Join(t.TempDir(), "session.json")}

	_, err := run(t, " spaced pw \n", append([]string{"signup", "--email", "a@x.com", "--name", "A"}, common...)...)
	require.NoError(t, err)

	_, err = run(t, "spaced pw\n", append([]string{"login", "--email", "a@x.com"}, common...)...)
	require.EqualError(t, err, "Invalid email or password")

	out, err := run(t, " spaced pw \n", append([]string{"login", "--email", "a@x.com"}, common...)...)
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as A <a@x.com>")
}
