package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/isometry/ldap-pubkey/internal/ldap"
	"github.com/isometry/ldap-pubkey/internal/pubkey"
)

// readKeys reads authorized-keys material from path, or stdin for "-".
// Blank lines and comment lines are skipped; every remaining line must be a
// valid OpenSSH public key.
func readKeys(path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
		path = "stdin"
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, ldap.NewError(ldap.KindLocalInput, "read-keys",
				fmt.Sprintf("cannot read %s", path), err)
		}
		defer f.Close()
		r = f
	}

	var keys []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := pubkey.Validate(line); err != nil {
			return nil, ldap.NewError(ldap.KindLocalInput, "read-keys",
				fmt.Sprintf("%s: %v", path, err), nil)
		}
		keys = append(keys, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, ldap.NewError(ldap.KindLocalInput, "read-keys",
			fmt.Sprintf("reading %s", path), err)
	}
	if len(keys) == 0 {
		return nil, ldap.NewError(ldap.KindLocalInput, "read-keys",
			fmt.Sprintf("no public keys found in %s", path), nil)
	}
	return keys, nil
}

// promptPassword reads a password from the controlling terminal without
// echo. When stdin is not a terminal (scripts, tests) it reads one line
// instead.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", ldap.NewError(ldap.KindLocalInput, "prompt", "reading password", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", ldap.NewError(ldap.KindLocalInput, "prompt", "reading password", err)
	}
	return string(raw), nil
}
