package app

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// PassphraseEnv names the environment variable read before prompting.
const PassphraseEnv = "MINISITE_PASSPHRASE"

// ReadPassphrase returns $MINISITE_PASSPHRASE or prompts on the terminal
// without echo.
func ReadPassphrase() (string, error) {
	if p := os.Getenv(PassphraseEnv); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal to prompt for a passphrase; set %s", PassphraseEnv)
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// ReadNewPassphrase prompts twice and fails when the answers differ.
func ReadNewPassphrase() (string, error) {
	if p := os.Getenv(PassphraseEnv); p != "" {
		return p, nil
	}

	first, err := ReadPassphrase()
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Repeat ")
	second, err := ReadPassphrase()
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passphrases do not match")
	}
	if first == "" {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	return first, nil
}
