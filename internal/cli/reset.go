package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/terraincognita07/heartnote/internal/services"
	"golang.org/x/term"
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrNotATerminal     = errors.New("password prompt needs an interactive terminal")
)

// PasswordAuth is the part of the auth service the operator commands use.
type PasswordAuth interface {
	IssueTemporaryPassword(email string) (string, error)
	SetPassword(email string, password string) error
}

// PasswordReader returns one line of secret input.
type PasswordReader func() ([]byte, error)

// ResetPassword issues a temporary password and prints it for the operator.
// The user must change it at next login.
func ResetPassword(auth PasswordAuth, email string, out io.Writer) error {
	temporaryPassword, err := auth.IssueTemporaryPassword(email)
	if err != nil {
		return describeAuthError(email, err)
	}

	fmt.Fprintln(out, "Password reset successful")
	fmt.Fprintf(out, "Temporary password: %s\n", temporaryPassword)
	fmt.Fprintln(out, "User must change password on next login.")
	return nil
}

// SetPassword reads a new password twice and stores it.
func SetPassword(auth PasswordAuth, email string, read PasswordReader, out io.Writer) error {
	fmt.Fprint(out, "New password: ")
	first, err := read()
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(out, "Repeat password: ")
	second, err := read()
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if !bytes.Equal(first, second) {
		return ErrPasswordMismatch
	}

	if err := auth.SetPassword(email, string(first)); err != nil {
		return describeAuthError(email, err)
	}
	fmt.Fprintln(out, "Password updated")
	return nil
}

// TerminalPasswordReader reads from stdin with echo switched off. Piped
// input is refused so a password never ends up in shell history or logs.
func TerminalPasswordReader(stdin *os.File) PasswordReader {
	return func() ([]byte, error) {
		fd := int(stdin.Fd())
		if !term.IsTerminal(fd) {
			return nil, ErrNotATerminal
		}
		return term.ReadPassword(fd)
	}
}

func describeAuthError(email string, err error) error {
	switch {
	case errors.Is(err, services.ErrAuthUserNotFound):
		return fmt.Errorf("user %s not found", email)
	case errors.Is(err, services.ErrAuthCredentialsInvalid):
		return fmt.Errorf("invalid email address %q", email)
	case errors.Is(err, services.ErrWeakPassword):
		return errors.New("password needs at least 8 characters with upper case, lower case and digits")
	default:
		return err
	}
}
