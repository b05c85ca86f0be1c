// Package pubkey implements matching, naming, and validation of OpenSSH
// public keys stored as directory attribute values.
//
// A stored key is an opaque string in the conventional authorized-keys form
// (`type base64blob [comment]`). Matching is deliberately dumb: a deletion
// pattern matches by literal substring containment, so operators can delete
// by full key text, by comment, or by a fragment of the base64 blob.
package pubkey

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// truncateLen bounds the fallback display name for keys without a comment.
const truncateLen = 48

// Matches reports whether pattern is a literal, case-sensitive substring of
// record.
func Matches(record, pattern string) bool {
	return strings.Contains(record, pattern)
}

// DisplayName derives a short human-readable name for a stored key value:
// the conventional comment (third whitespace-separated field) when present,
// otherwise the value truncated to a fixed length, or a placeholder for an
// empty record.
func DisplayName(record string) string {
	if record == "" {
		return "<empty>"
	}
	fields := strings.Fields(record)
	if len(fields) >= 3 {
		return fields[2]
	}
	if len(record) > truncateLen {
		return record[:truncateLen] + "..."
	}
	return record
}

// Validate checks that record parses as a single OpenSSH authorized-keys
// line. Malformed material is rejected before it ever reaches the directory.
func Validate(record string) error {
	if strings.TrimSpace(record) == "" {
		return fmt.Errorf("empty public key")
	}
	if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(record)); err != nil {
		return fmt.Errorf("not a valid OpenSSH public key: %w", err)
	}
	return nil
}

// Fingerprint returns the SHA256 fingerprint of record in the format printed
// by ssh-keygen -lf.
func Fingerprint(record string) (string, error) {
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(record))
	if err != nil {
		return "", fmt.Errorf("parse public key: %w", err)
	}
	return ssh.FingerprintSHA256(key), nil
}
