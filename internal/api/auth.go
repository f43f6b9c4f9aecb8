// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"

	"github.com/ManuGH/lookupd/internal/auth"
	"github.com/ManuGH/lookupd/internal/log"
)

// ctxSessionKey stores the authenticated session in the request context.
type ctxSessionKey struct{}

// sessionFromContext returns the authenticated session, if any.
func sessionFromContext(ctx context.Context) *auth.Session {
	if s, ok := ctx.Value(ctxSessionKey{}).(*auth.Session); ok {
		return s
	}
	return nil
}

// authMiddleware enforces session authentication for the given route. With
// no tokens configured it fails closed unless anonymous access was enabled
// explicitly.
func (s *Server) authMiddleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := log.WithComponentFromContext(r.Context(), "auth")

			if s.sessions.Empty() {
				if s.cfg.AuthAnonymous {
					next.ServeHTTP(w, r)
					return
				}
				logger.Error().
					Str("event", "auth.fail_closed").
					Str("route", route).
					Msg("no session tokens configured and anonymous access not enabled, denying")
				recordAuthFailure(route, "fail_closed")
				writeUnauthorized(w)
				return
			}

			token := auth.ExtractToken(r)
			if token == "" {
				logger.Warn().
					Str("event", "auth.missing_credentials").
					Str("route", route).
					Msg("authorization header/cookie missing")
				recordAuthFailure(route, "missing")
				writeUnauthorized(w)
				return
			}

			session, ok := s.sessions.Validate(token)
			if !ok {
				logger.Warn().
					Str("event", "auth.invalid_token").
					Str("route", route).
					Msg("invalid session token")
				recordAuthFailure(route, "invalid")
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), ctxSessionKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// capabilityMiddleware gates a route on a declared capability. It runs after
// authMiddleware, so a missing session here is a wiring error, not a user
// mistake.
func (s *Server) capabilityMiddleware(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromContext(r.Context())
			if session == nil {
				writeUnauthorized(w)
				return
			}
			if !session.HasCapability(capability) {
				authLogger := log.WithComponentFromContext(r.Context(), "auth")
			authLogger.Warn().
					Str("event", "auth.capability_denied").
					Str("user", session.User).
					Str("capability", capability).
					Msg("capability not held")
				recordCapabilityDenied(capability)
				writeForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleSessionLogin exchanges a valid Bearer token for an HTTP-only session
// cookie so browser clients do not have to hold the raw token in script.
func (s *Server) handleSessionLogin(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractToken(r)
	if token == "" {
		writeUnauthorized(w)
		return
	}
	if _, ok := s.sessions.Validate(token); !ok {
		writeUnauthorized(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || s.cfg.ForceHTTPS,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   86400,
	})
	w.WriteHeader(http.StatusOK)
}
