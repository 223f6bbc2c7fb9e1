// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token defaults.
const (
	DefaultSessionDuration  = 24 * time.Hour
	DefaultRememberDuration = 30 * 24 * time.Hour
)

// sessionIssuer is the iss claim of every session token.
const sessionIssuer = "autism-tools"

// SessionConfig configures a SessionManager.
type SessionConfig struct {
	// Secret is the HMAC signing key.
	Secret []byte
	// SessionDuration bounds tokens issued without remember-me.
	SessionDuration time.Duration
	// RememberDuration bounds tokens issued with remember-me.
	RememberDuration time.Duration
}

// SessionToken is a signed token issued on login.
type SessionToken struct {
	Value     string
	ExpiresAt time.Time
	// Persistent tokens outlive the browser session.
	Persistent bool
}

// sessionClaims are the claims carried by a session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	Remember bool `json:"rem,omitempty"`
}

// SessionManager issues and verifies session tokens.
// Tokens are not stored server-side; only expiry invalidates them.
type SessionManager struct {
	secret           []byte
	sessionDuration  time.Duration
	rememberDuration time.Duration
	now              func() time.Time
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(cfg SessionConfig) (*SessionManager, error) {
	if len(cfg.Secret) == 0 {
		return nil, oops.Code("SESSION_CONFIG_INVALID").Errorf("session secret is required")
	}
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = DefaultSessionDuration
	}
	if cfg.RememberDuration <= 0 {
		cfg.RememberDuration = DefaultRememberDuration
	}
	return &SessionManager{
		secret:           cfg.Secret,
		sessionDuration:  cfg.SessionDuration,
		rememberDuration: cfg.RememberDuration,
		now:              time.Now,
	}, nil
}

// Issue signs a token for userID.
func (m *SessionManager) Issue(userID ulid.ULID, remember bool) (SessionToken, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return SessionToken{}, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}

	now := m.now()
	ttl := m.sessionDuration
	if remember {
		ttl = m.rememberDuration
	}
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Remember: remember,
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return SessionToken{}, oops.Code("SESSION_SIGN_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return SessionToken{Value: signed, ExpiresAt: expiresAt, Persistent: remember}, nil
}

// Parse verifies a token's signature and expiry and returns the user ID it binds.
// Every failure wraps ErrSessionInvalid.
func (m *SessionManager) Parse(value string) (ulid.ULID, error) {
	if value == "" {
		return ulid.ULID{}, oops.Code("SESSION_INVALID").With("reason", "empty").Wrap(ErrSessionInvalid)
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return ulid.ULID{}, oops.Code("SESSION_INVALID").
			With("reason", err.Error()).
			Wrap(ErrSessionInvalid)
	}

	userID, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("SESSION_INVALID").
			With("reason", "subject is not a user id").
			Wrap(ErrSessionInvalid)
	}
	return userID, nil
}
