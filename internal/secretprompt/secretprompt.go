// Package secretprompt reads the password that unlocks an encrypted
// capsule: from a TTY prompt with no echo when stdin is a terminal,
// else one line from stdin. There is no confirming re-entry here — the
// password was already fixed at packaging time.
package secretprompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Read prompts for a password on w/in terminal mode, or reads a single
// line from in when in is not a terminal (e.g. piped input).
func Read(in *os.File, w io.Writer) (string, error) {
	if !term.IsTerminal(int(in.Fd())) {
		reader := bufio.NewReader(in)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(w, "Password: ")
	pw, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}
