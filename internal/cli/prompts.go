package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	walletservice "github.com/mrz1836/caelus/internal/service/wallet"
	caelerr "github.com/mrz1836/caelus/pkg/errors"
)

// Prompt functions are variables so tests can replace them.
//
//nolint:gochecknoglobals // replaced in tests
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptLineFn        = promptLine
	promptConfirmFn     = promptConfirm
)

// stdinReader is shared so buffered input is not lost between prompts.
//
//nolint:gochecknoglobals // one reader per process
var stdinReader = bufio.NewReader(os.Stdin)

// promptPassword prompts for a password with hidden input.
func promptPassword(prompt string) (string, error) {
	out(os.Stderr, "%s", prompt)

	fd := int(os.Stdin.Fd()) //nolint:gosec // G115: Fd() fits in int
	if !term.IsTerminal(fd) {
		line, err := readLine()
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return line, nil
	}

	password, err := term.ReadPassword(fd)
	outln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}

// promptNewPassword prompts for a new vault password with confirmation.
func promptNewPassword() (string, error) {
	password, err := promptPasswordFn("Choose a vault password: ")
	if err != nil {
		return "", err
	}
	if err := walletservice.ValidatePassword(password); err != nil {
		return "", caelerr.WithSuggestion(err,
			fmt.Sprintf("password must be at least %d characters", walletservice.MinPasswordLength))
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", caelerr.WithSuggestion(caelerr.ErrInvalidInput, "passwords do not match")
	}
	return password, nil
}

// promptLine reads one line of visible input.
func promptLine(prompt string) (string, error) {
	out(os.Stderr, "%s", prompt)
	line, err := readLine()
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return line, nil
}

// promptConfirm asks a yes/no question defaulting to no.
func promptConfirm(question string) bool {
	answer, err := promptLineFn(question + " [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func readLine() (string, error) {
	line, err := stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
