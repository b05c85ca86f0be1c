package ldap

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/isometry/ldap-pubkey/internal/config"
)

// directoryConn is the slice of *ldap.Conn the session depends on, split out
// so tests can substitute an in-memory server.
type directoryConn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Modify(req *ldap.ModifyRequest) error
	Close() error
}

type sessionState int

const (
	stateUnconnected sessionState = iota
	stateConnected
	stateClosed
)

// Session owns one connection to one of the configured directory servers for
// the duration of a single logical operation. It is not safe for concurrent
// use and is never reused across operations.
type Session struct {
	cfg     *config.Config
	logger  *slog.Logger
	dial    func(uri string) (directoryConn, error)
	conn    directoryConn
	state   sessionState
	boundAs string
}

// NewSession creates an unconnected session for the given effective
// configuration. A nil logger discards all log output.
func NewSession(cfg *config.Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{cfg: cfg, logger: logger}
	s.dial = s.dialURI
	return s
}

// Connect establishes a transport connection to the first configured URI
// that accepts one, in listed order. Once an endpoint succeeds the remaining
// URIs are never tried. Binding is a separate step.
func (s *Session) Connect() error {
	switch s.state {
	case stateConnected:
		return NewError(KindUsage, "connect", "session already connected", nil)
	case stateClosed:
		return NewError(KindUsage, "connect", "session is closed", nil)
	}
	var lastErr error
	for _, uri := range s.cfg.URIs {
		conn, err := s.dial(uri)
		if err != nil {
			s.logger.Debug("directory endpoint unreachable", "uri", uri, "error", err)
			lastErr = err
			continue
		}
		s.logger.Debug("connected to directory", "uri", uri)
		s.conn = conn
		s.state = stateConnected
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no server URIs configured")
	}
	return NewError(KindConnectivity, "connect", "no configured server accepted a connection", lastErr)
}

// dialURI establishes a single transport connection. ldaps:// URIs dial TLS
// directly; plain URIs are upgraded via StartTLS when configured.
func (s *Session) dialURI(uri string) (directoryConn, error) {
	ldaps := strings.HasPrefix(uri, "ldaps://")

	opts := []ldap.DialOpt{
		ldap.DialWithDialer(&net.Dialer{Timeout: s.cfg.BindTimeout}),
	}
	if ldaps {
		tlsCfg, err := s.tlsConfig()
		if err != nil {
			return nil, err
		}
		opts = append(opts, ldap.DialWithTLSConfig(tlsCfg))
	}

	conn, err := ldap.DialURL(uri, opts...)
	if err != nil {
		return nil, err
	}
	conn.SetTimeout(s.cfg.SearchTimeout)

	if s.cfg.StartTLS && !ldaps {
		tlsCfg, err := s.tlsConfig()
		if err == nil {
			err = conn.StartTLS(tlsCfg)
		}
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("STARTTLS on %s: %w", uri, err)
		}
	}
	return conn, nil
}

func (s *Session) tlsConfig() (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if s.cfg.CACertFile != "" {
		pem, err := os.ReadFile(s.cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", s.cfg.CACertFile)
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}

// Bind authenticates the session as dn. An empty dn and password perform an
// anonymous bind. Rejected credentials are reported as an authentication
// failure, distinct from transport-level connectivity failures.
func (s *Session) Bind(dn, password string) error {
	if err := s.requireConnected("bind"); err != nil {
		return err
	}
	if err := s.conn.Bind(dn, password); err != nil {
		if classify(err) == KindAuthentication {
			return newErrorDN(KindAuthentication, "bind", "invalid credentials", dn, err)
		}
		return wrapError("bind", dn, err, KindConnectivity)
	}
	s.boundAs = dn
	s.logger.Debug("bound to directory", "dn", dn)
	return nil
}

// BindAsUser authenticates as the target user's own identity, constructed
// from the login and the configured base DN, with the user's own password.
func (s *Session) BindAsUser(login, password string) error {
	dn, err := s.userDN(login)
	if err != nil {
		return err
	}
	return s.Bind(dn, password)
}

// BoundAs returns the DN the session is currently bound as, empty when
// unbound or bound anonymously.
func (s *Session) BoundAs() string {
	return s.boundAs
}

func (s *Session) userDN(login string) (string, error) {
	if s.cfg.BaseDN == "" {
		return "", NewError(KindConfiguration, "bind", "no base DN configured", nil)
	}
	return fmt.Sprintf("uid=%s,%s", ldap.EscapeDN(login), s.cfg.BaseDN), nil
}

func (s *Session) requireConnected(op string) error {
	switch s.state {
	case stateConnected:
		return nil
	case stateClosed:
		return NewError(KindUsage, op, "session is closed", nil)
	default:
		return NewError(KindUsage, op, "session is not connected", nil)
	}
}

// Close releases the transport. It is idempotent and safe on every exit
// path, including when Connect never succeeded or already failed.
func (s *Session) Close() {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("closing directory connection", "error", err)
		}
		s.conn = nil
	}
	s.state = stateClosed
}
