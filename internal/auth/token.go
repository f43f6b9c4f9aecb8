// SPDX-License-Identifier: MIT

// Package auth implements session token extraction and validation plus the
// capability checks the endpoint registry declares.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// SessionCookieName is the HTTP-only cookie carrying the session token.
const SessionCookieName = "lookupd_session"

// ExtractToken retrieves the session token from the request:
//  1. Authorization: Bearer <token>
//  2. Cookie: lookupd_session
//
// Query parameter tokens are never accepted; they leak into access logs.
func ExtractToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// AuthorizeToken returns true if got matches expected using constant-time
// comparison. Empty tokens are always unauthorized.
func AuthorizeToken(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
