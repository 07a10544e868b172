package main

import (
	"bufio"
	"fmt"
	"os"

	"golang.org/x/term"
)

// promptPassphrase reads a secret key passphrase from the terminal
// without echoing it. When stdin is not a terminal the passphrase is
// read as a single line instead, so the command stays scriptable.
func promptPassphrase() ([]byte, error) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		return []byte(trimEOL(line)), nil
	}

	fmt.Fprint(os.Stderr, "key passphrase: ")
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return passphrase, nil
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
