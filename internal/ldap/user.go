package ldap

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"

	"github.com/isometry/ldap-pubkey/internal/pubkey"
)

// PubkeyAttribute is the multi-valued attribute holding a user's SSH public
// keys. The name is a fixed contract with the openssh-lpk directory schema.
const PubkeyAttribute = "sshPublicKey"

// accountFilter matches POSIX user accounts by login.
const accountFilter = "(&(objectClass=posixAccount)(uid=%s))"

// UserEntry is one user's directory entry: its DN and the current values of
// the public-key attribute. Entries are fetched fresh for every operation
// and never cached, so read-modify-write always observes current server
// state.
type UserEntry struct {
	DN   string
	Keys []string
}

// FindUserEntry locates exactly one user entry for login under the base DN.
// Zero matches and multiple matches are distinct failures; the session never
// silently picks one of several candidates. An entry without the public-key
// attribute yields an empty key set, not an error.
func (s *Session) FindUserEntry(login string) (*UserEntry, error) {
	if err := s.requireConnected("search"); err != nil {
		return nil, err
	}
	if s.cfg.BaseDN == "" {
		return nil, NewError(KindConfiguration, "search", "no base DN configured", nil)
	}

	req := ldap.NewSearchRequest(
		s.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, int(s.cfg.SearchTimeout.Seconds()), false,
		fmt.Sprintf(accountFilter, ldap.EscapeFilter(login)),
		[]string{PubkeyAttribute},
		nil,
	)

	res, err := s.conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, newErrorDN(KindConfiguration, "search", "base DN does not exist", s.cfg.BaseDN, err)
		}
		return nil, wrapError("search", s.cfg.BaseDN, err, KindConnectivity)
	}

	switch len(res.Entries) {
	case 1:
	case 0:
		return nil, NewError(KindNotFound, "search",
			fmt.Sprintf("no user %q under %s", login, s.cfg.BaseDN), nil)
	default:
		return nil, NewError(KindAmbiguous, "search",
			fmt.Sprintf("%d entries match user %q under %s", len(res.Entries), login, s.cfg.BaseDN), nil)
	}

	entry := res.Entries[0]
	return &UserEntry{
		DN:   entry.DN,
		Keys: entry.GetAttributeValues(PubkeyAttribute),
	}, nil
}

// FindPubkeys returns the login's stored public keys in the order the
// directory returned them. That order is not guaranteed stable across calls.
func (s *Session) FindPubkeys(login string) ([]string, error) {
	entry, err := s.FindUserEntry(login)
	if err != nil {
		return nil, err
	}
	return entry.Keys, nil
}

// AddPubkey appends key to the user's public-key attribute via a modify-add.
// No local read precedes the write: add is a pure union and duplicate policy
// belongs to the server. A server that enforces value uniqueness rejects the
// duplicate and that rejection is surfaced as such; a server that does not
// will store two identical values.
func (s *Session) AddPubkey(login, key string) error {
	entry, err := s.FindUserEntry(login)
	if err != nil {
		return err
	}

	req := ldap.NewModifyRequest(entry.DN, nil)
	req.Add(PubkeyAttribute, []string{key})

	if err := s.conn.Modify(req); err != nil {
		if classify(err) == KindDuplicateKey {
			return newErrorDN(KindDuplicateKey, "modify-add", "key already present on entry", entry.DN, err)
		}
		return wrapError("modify-add", entry.DN, err, KindDirectoryWrite)
	}
	s.logger.Info("added public key", "user", login, "key", pubkey.DisplayName(key))
	return nil
}

// FindAndRemovePubkeys deletes every stored key containing pattern and
// returns the removed values. A pattern matching nothing is a success with
// an empty result and no write issued.
//
// The read and the deletes are separate requests with no directory-side
// transaction between them, and each matched value is deleted independently.
// If one delete fails, deletes already issued stay applied; the returned
// error says so rather than claiming atomicity.
func (s *Session) FindAndRemovePubkeys(login, pattern string) ([]string, error) {
	entry, err := s.FindUserEntry(login)
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, key := range entry.Keys {
		if pubkey.Matches(key, pattern) {
			matched = append(matched, key)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	for i, key := range matched {
		req := ldap.NewModifyRequest(entry.DN, nil)
		req.Delete(PubkeyAttribute, []string{key})
		if err := s.conn.Modify(req); err != nil {
			detail := fmt.Sprintf(
				"deleting key %q (removal is not atomic: %d of %d matched keys were already removed)",
				pubkey.DisplayName(key), i, len(matched))
			return nil, newErrorDN(KindDirectoryWrite, "modify-delete", detail, entry.DN, err)
		}
	}
	s.logger.Info("removed public keys", "user", login, "count", len(matched))
	return matched, nil
}
