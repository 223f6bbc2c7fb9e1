// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package web

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Flash categories.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
	FlashInfo    = "info"
)

const (
	flashCookieName = "flash"
	flashTTL        = 5 * time.Minute
	flashIssuer     = "autism-tools/flash"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

type flashClaims struct {
	jwt.RegisteredClaims
	Messages []Flash `json:"msgs"`
}

// flasher keeps queued flashes in a signed cookie between a redirect and
// the page that follows it.
type flasher struct {
	secret []byte
	secure bool
	now    func() time.Time
}

func newFlasher(secret []byte, secure bool) *flasher {
	return &flasher{secret: secret, secure: secure, now: time.Now}
}

// add queues msgs behind any flashes still unread in r.
func (f *flasher) add(w http.ResponseWriter, r *http.Request, msgs ...Flash) {
	all := append(f.read(r), msgs...)
	now := f.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, flashClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    flashIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(flashTTL)),
		},
		Messages: all,
	})
	value, err := token.SignedString(f.secret)
	if err != nil {
		// HS256 with a byte key does not fail; drop the flash if it ever does.
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(flashTTL / time.Second),
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// pop returns the queued flashes and clears the cookie.
func (f *flasher) pop(w http.ResponseWriter, r *http.Request) []Flash {
	if _, err := r.Cookie(flashCookieName); err != nil {
		return nil
	}
	msgs := f.read(r)
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return msgs
}

// read decodes the flash cookie. Missing, expired, or tampered cookies yield nil.
func (f *flasher) read(r *http.Request) []Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	var claims flashClaims
	_, err = jwt.ParseWithClaims(c.Value, &claims, func(*jwt.Token) (any, error) {
		return f.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(flashIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(f.now),
	)
	if err != nil {
		return nil
	}
	return claims.Messages
}
