// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package web

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"net/http"
)

const (
	csrfCookieName = "csrf_token"
	csrfFieldName  = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"

	msgCSRFInvalid = "The CSRF token is missing or invalid."
)

type csrfKey struct{}

// csrf implements the double-submit cookie pattern. Every response carries
// a token cookie; unsafe methods must echo it in the form or a header.
func (s *Server) csrf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(csrfCookieName); err == nil {
			token = c.Value
		}

		if !safeMethod(r.Method) {
			sent := r.PostFormValue(csrfFieldName)
			if sent == "" {
				sent = r.Header.Get(csrfHeaderName)
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
				s.logger.WarnContext(r.Context(), "csrf check failed", "path", r.URL.Path)
				s.renderError(w, r, http.StatusBadRequest, msgCSRFInvalid)
				return
			}
		}

		if token == "" {
			token = rand.Text()
			http.SetCookie(w, &http.Cookie{
				Name:     csrfCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.opts.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey{}, token)))
	})
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// csrfToken returns the token bound to the request by the csrf middleware.
func csrfToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfKey{}).(string)
	return token
}
