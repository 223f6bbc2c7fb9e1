// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrScottSevenoaks/autism-tools/internal/auth"
)

const msgLoginRequired = "You need to sign in before using the tools."

type userKey struct{}

// UserFromContext returns the signed-in user stored by the session middleware.
func UserFromContext(ctx context.Context) (*auth.User, bool) {
	user, ok := ctx.Value(userKey{}).(*auth.User)
	return user, ok && user != nil
}

// loadUser resolves the session cookie to a user. An invalid or expired
// session is cleared and the request continues anonymously.
func (s *Server) loadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(s.opts.CookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.auth.Authenticate(r.Context(), c.Value)
		switch {
		case err == nil:
			r = r.WithContext(context.WithValue(r.Context(), userKey{}, user))
		case errors.Is(err, auth.ErrSessionInvalid):
			s.logger.DebugContext(r.Context(), "discarding invalid session", "path", r.URL.Path)
			s.clearSessionCookie(w)
		default:
			s.serverError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authedHandler is a handler that runs only for a signed-in user.
type authedHandler func(w http.ResponseWriter, r *http.Request, user *auth.User)

// requireAuth sends anonymous visitors to the login page with a return path.
func (s *Server) requireAuth(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			s.flashes.add(w, r, Flash{Category: FlashInfo, Message: msgLoginRequired})
			http.Redirect(w, r, loginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		h(w, r, user)
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token auth.SessionToken) {
	c := &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    token.Value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if token.Persistent {
		c.Expires = token.ExpiresAt
		c.MaxAge = int(time.Until(token.ExpiresAt).Seconds())
	}
	http.SetCookie(w, c)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
