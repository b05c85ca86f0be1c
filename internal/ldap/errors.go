package ldap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Kind classifies a failure into one of the user-actionable categories the
// CLI maps onto process exit codes.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindConnectivity
	KindAuthentication
	KindNotFound
	KindAmbiguous
	KindDuplicateKey
	KindDirectoryWrite
	KindLocalInput
	KindUsage
)

// String returns the category name.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindConnectivity:
		return "connectivity"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not-found"
	case KindAmbiguous:
		return "ambiguous-entry"
	case KindDuplicateKey:
		return "duplicate-key"
	case KindDirectoryWrite:
		return "directory-write"
	case KindLocalInput:
		return "local-input"
	case KindUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// ExitCode returns the process exit code associated with the kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindConfiguration:
		return 1
	case KindConnectivity:
		return 2
	case KindAuthentication:
		return 3
	case KindNotFound:
		return 4
	case KindAmbiguous:
		return 5
	case KindDuplicateKey:
		return 6
	case KindDirectoryWrite:
		return 7
	case KindLocalInput:
		return 8
	case KindUsage:
		return 64
	default:
		return 1
	}
}

// Error carries a failure kind plus enough structured context to render a
// message: the operation that failed, a detail string, the DN involved if
// any, and the underlying cause.
type Error struct {
	Kind      Kind
	Operation string
	Detail    string
	DN        string
	Cause     error
}

func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("%s failed", e.Operation)}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	if e.DN != "" {
		parts = append(parts, "DN: "+e.DN)
	}
	if e.Cause != nil {
		cause := e.Cause.Error()
		if e.Detail == "" || !strings.Contains(e.Detail, cause) {
			parts = append(parts, cause)
		}
	}
	return strings.Join(parts, " - ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the process exit code for the error's kind.
func (e *Error) ExitCode() int {
	return e.Kind.ExitCode()
}

// NewError builds a taxonomy error. It is also used by callers for failures
// detected outside the session itself, such as an unreadable key file or a
// bad invocation.
func NewError(kind Kind, operation, detail string, cause error) *Error {
	return &Error{Kind: kind, Operation: operation, Detail: detail, Cause: cause}
}

func newErrorDN(kind Kind, operation, detail, dn string, cause error) *Error {
	return &Error{Kind: kind, Operation: operation, Detail: detail, DN: dn, Cause: cause}
}

// KindOf returns the kind of err, unwrapping as needed, or KindUnknown for
// errors from outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// classify maps a go-ldap result code onto a failure kind. Codes without an
// obvious mapping return KindUnknown and the caller picks a fallback.
func classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials),
		ldap.IsErrorWithCode(err, ldap.LDAPResultInappropriateAuthentication),
		ldap.IsErrorWithCode(err, ldap.LDAPResultStrongAuthRequired):
		return KindAuthentication
	case ldap.IsErrorWithCode(err, ldap.LDAPResultAttributeOrValueExists):
		return KindDuplicateKey
	case ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject):
		return KindNotFound
	case ldap.IsErrorWithCode(err, ldap.LDAPResultServerDown),
		ldap.IsErrorWithCode(err, ldap.LDAPResultConnectError),
		ldap.IsErrorWithCode(err, ldap.LDAPResultUnavailable),
		ldap.IsErrorWithCode(err, ldap.LDAPResultBusy),
		ldap.IsErrorWithCode(err, ldap.LDAPResultTimeout):
		return KindConnectivity
	default:
		return KindUnknown
	}
}

// wrapError classifies a go-ldap error and wraps it with operation context,
// falling back to the given kind when the result code has no mapping.
func wrapError(operation, dn string, err error, fallback Kind) *Error {
	kind := classify(err)
	if kind == KindUnknown {
		kind = fallback
	}
	return newErrorDN(kind, operation, "", dn, err)
}
