// Package prompt reads operator input for the command-line tools.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// ErrPasswordMismatch is returned by NewPassword when the two entries differ.
var ErrPasswordMismatch = errors.New("passwords didn't match")

// Line prints a prompt to w and reads a single line from reader. If EOF
// occurs after some input was read, the partial line is returned.
//
//	Email address
//	> _
func Line(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Password reads a password from the terminal without echo.
func Password(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// NewPassword asks for a password twice and returns it when both entries match.
func NewPassword(w io.Writer) (string, error) {
	pw, err := Password(w, "Password: ")
	if err != nil {
		return "", err
	}
	again, err := Password(w, "Password (again): ")
	if err != nil {
		return "", err
	}
	if pw != again {
		return "", ErrPasswordMismatch
	}
	return pw, nil
}
