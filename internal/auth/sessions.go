// SPDX-License-Identifier: MIT

package auth

import (
	"fmt"
	"sort"
	"strings"
)

// Session is the authenticated identity attached to a request.
type Session struct {
	User         string
	capabilities map[string]struct{}
}

// HasCapability reports whether the session holds the named capability.
// The wildcard capability "*" grants everything.
func (s *Session) HasCapability(name string) bool {
	if s == nil {
		return false
	}
	if _, ok := s.capabilities["*"]; ok {
		return true
	}
	_, ok := s.capabilities[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Capabilities returns the session's capabilities in sorted order.
func (s *Session) Capabilities() []string {
	out := make([]string, 0, len(s.capabilities))
	for c := range s.capabilities {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// TokenEntry is one configured session token with its identity and grants.
type TokenEntry struct {
	Token        string   `yaml:"token"`
	User         string   `yaml:"user"`
	Capabilities []string `yaml:"capabilities"`
}

// Store validates presented tokens against the configured entries.
type Store struct {
	entries []TokenEntry
}

// NewStore builds a token store. Entries must carry a token and a user.
func NewStore(entries []TokenEntry) (*Store, error) {
	for i, entry := range entries {
		if strings.TrimSpace(entry.Token) == "" {
			return nil, fmt.Errorf("session token %d: empty token", i)
		}
		if strings.TrimSpace(entry.User) == "" {
			return nil, fmt.Errorf("session token %d: missing user", i)
		}
	}
	return &Store{entries: entries}, nil
}

// Empty reports whether no tokens are configured.
func (s *Store) Empty() bool {
	return s == nil || len(s.entries) == 0
}

// Validate checks the presented token against every configured entry in
// constant time per entry and returns the matching session.
func (s *Store) Validate(token string) (*Session, bool) {
	if s == nil || token == "" {
		return nil, false
	}
	var match *TokenEntry
	for i := range s.entries {
		// No early exit: compare every entry so timing does not reveal
		// which prefix of the token table matched.
		if AuthorizeToken(token, s.entries[i].Token) && match == nil {
			match = &s.entries[i]
		}
	}
	if match == nil {
		return nil, false
	}

	caps := make(map[string]struct{}, len(match.Capabilities))
	for _, c := range match.Capabilities {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			caps[c] = struct{}{}
		}
	}
	return &Session{User: match.User, capabilities: caps}, true
}
