// Package config resolves the tool's effective directory configuration from
// an ldap.conf-style file merged with explicit command-line overrides.
//
// The file syntax is the whitespace-separated directive format shared by the
// OpenLDAP and NSS LDAP client configurations. Only the directives listed in
// Parse are recognized; everything else is ignored, so the tool can read a
// system /etc/ldap.conf that also configures other consumers.
package config

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
)

// DefaultPath is the conventional location of the LDAP client configuration.
const DefaultPath = "/etc/ldap.conf"

// Config is the effective directory configuration for one invocation.
type Config struct {
	// URIs are candidate server endpoints, tried in order until one accepts
	// a transport connection.
	URIs []string `default:"[\"ldap://localhost\"]"`

	// BaseDN is the subtree root under which user entries are searched.
	BaseDN string

	// BindDN, when set, overrides the bind identity for all operations. It
	// may contain the placeholder %u, expanded with the target login.
	BindDN string

	// BindTimeout bounds each transport connection attempt.
	BindTimeout time.Duration `default:"30s"`

	// SearchTimeout bounds each search and modify operation.
	SearchTimeout time.Duration `default:"10s"`

	// StartTLS upgrades plain ldap:// connections via StartTLS.
	StartTLS bool

	// CACertFile is an optional CA bundle used for TLS verification.
	CACertFile string
}

// Overrides are explicit command-line settings that take precedence over the
// parsed configuration file. Override URIs replace the parsed list entirely;
// the scalar fields replace their counterparts field-by-field.
type Overrides struct {
	URIs   []string
	BaseDN string
	BindDN string
}

// Load parses the configuration file at path. A missing or unreadable file
// is not an error: the resolver proceeds with defaults alone.
func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return nil
	}
	return cfg
}

// Parse reads an ldap.conf-style key-value source. Recognized directives
// (case-insensitive): uri, base, binddn, bind_timelimit, timelimit, ssl,
// tls_cacertfile. Repeated uri lines append; directives with malformed
// values are skipped like unrecognized ones.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		value := strings.Join(fields[1:], " ")
		switch strings.ToLower(fields[0]) {
		case "uri":
			cfg.URIs = append(cfg.URIs, fields[1:]...)
		case "base":
			cfg.BaseDN = value
		case "binddn":
			cfg.BindDN = value
		case "bind_timelimit":
			if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
				cfg.BindTimeout = time.Duration(secs) * time.Second
			}
		case "timelimit":
			if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
				cfg.SearchTimeout = time.Duration(secs) * time.Second
			}
		case "ssl":
			cfg.StartTLS = strings.EqualFold(value, "start_tls")
		case "tls_cacertfile":
			cfg.CACertFile = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve merges the parsed configuration with explicit overrides into the
// effective configuration and fills remaining zero fields with defaults. It
// is a pure merge: a base DN still empty afterwards is not an error here,
// only for the first operation that actually needs one.
func Resolve(parsed *Config, o Overrides) *Config {
	cfg := &Config{}
	if parsed != nil {
		*cfg = *parsed
		cfg.URIs = append([]string(nil), parsed.URIs...)
	}
	if len(o.URIs) > 0 {
		cfg.URIs = append([]string(nil), o.URIs...)
	}
	if o.BaseDN != "" {
		cfg.BaseDN = o.BaseDN
	}
	if o.BindDN != "" {
		cfg.BindDN = o.BindDN
	}
	if err := defaults.Set(cfg); err != nil {
		// The default tags are static; Set can only fail on a malformed tag.
		panic(err)
	}
	return cfg
}

// BindDNFor expands the %u login placeholder in the configured bind DN
// template. Without a placeholder the bind DN is returned verbatim.
func (c *Config) BindDNFor(login string) string {
	return strings.ReplaceAll(c.BindDN, "%u", login)
}
