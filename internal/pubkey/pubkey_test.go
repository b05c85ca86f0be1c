package pubkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// genKey produces a valid authorized-keys line, optionally with a comment.
func genKey(t *testing.T, comment string) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))
	if comment != "" {
		line += " " + comment
	}
	return line
}

func TestMatches(t *testing.T) {
	record := "ssh-rsa AAAB3NzaC1yc2E alice@host"

	tests := []struct {
		name    string
		record  string
		pattern string
		want    bool
	}{
		{"comment fragment", record, "alice", true},
		{"full record", record, record, true},
		{"blob prefix", record, "AAAB3", true},
		{"no match", record, "bob", false},
		{"case sensitive", record, "ALICE", false},
		{"empty pattern matches", record, "", true},
		{"empty record", "", "alice", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.record, tt.pattern); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.record, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	long := "ssh-rsa " + strings.Repeat("A", 60)

	tests := []struct {
		name   string
		record string
		want   string
	}{
		{"comment field", "ssh-rsa AAAB alice@host", "alice@host"},
		{"comment with trailing fields", "ssh-rsa AAAB alice@host extra", "alice@host"},
		{"short record without comment", "ssh-rsa AAAB", "ssh-rsa AAAB"},
		{"long record without comment", long, long[:48] + "..."},
		{"empty record", "", "<empty>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(tt.record); got != tt.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.record, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(genKey(t, "")))
	assert.NoError(t, Validate(genKey(t, "alice@host")))

	assert.Error(t, Validate(""))
	assert.Error(t, Validate("   "))
	assert.Error(t, Validate("not a key at all"))
	assert.Error(t, Validate("ssh-ed25519 AAAA notbase64!!!"))
}

func TestFingerprint(t *testing.T) {
	record := genKey(t, "alice@host")

	fp, err := Fingerprint(record)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fp, "SHA256:"), "fingerprint %q", fp)

	// The comment must not change the fingerprint.
	bare := strings.Join(strings.Fields(record)[:2], " ")
	fp2, err := Fingerprint(bare)
	require.NoError(t, err)
	assert.Equal(t, fp, fp2)

	_, err = Fingerprint("garbage")
	assert.Error(t, err)
}
