// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Sessions issues and verifies session tokens.
type Sessions interface {
	Issue(userID ulid.ULID, remember bool) (SessionToken, error)
	Parse(value string) (ulid.ULID, error)
}

// Service provides registration, login, and session resolution.
type Service struct {
	users    UserRepository
	hasher   PasswordHasher
	sessions Sessions
	logger   *slog.Logger
}

// NewAuthService creates a new Service that logs to slog.Default().
func NewAuthService(users UserRepository, hasher PasswordHasher, sessions Sessions) (*Service, error) {
	return NewAuthServiceWithLogger(users, hasher, sessions, slog.Default())
}

// NewAuthServiceWithLogger creates a new Service with an explicit logger.
func NewAuthServiceWithLogger(users UserRepository, hasher PasswordHasher, sessions Sessions, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("session manager is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger is required")
	}
	return &Service{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		logger:   logger,
	}, nil
}

// dummyPasswordHash is verified against when the email is unknown so that
// login takes the same time whether or not the account exists.
// It decodes cleanly but matches no password.
//
//nolint:gosec // G101: fake hash for timing parity, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates an account from validated input.
// Uniqueness is enforced by the repository at insert time; a concurrent
// duplicate loses with ErrDuplicateEmail.
func (s *Service) Register(ctx context.Context, in RegistrationInput) (*User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(in.Email, in.FirstName, in.LastName, hash)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "build user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, oops.Code("AUTH_DUPLICATE_EMAIL").
				With("email", user.Email).
				Wrap(err)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// Login verifies credentials and issues a session token.
// Unknown email and wrong password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, in LoginInput) (*User, SessionToken, error) {
	email := NormalizeEmail(in.Email)

	user, lookupErr := s.users.GetByEmail(ctx, email)
	targetHash := dummyPasswordHash
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		user = nil
	default:
		return nil, SessionToken{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	// Always verify so unknown and known emails cost the same.
	valid := s.hasher.Verify(in.Password, targetHash)
	if user == nil || !valid {
		return nil, SessionToken{}, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, in.Password)
	}

	token, err := s.sessions.Issue(user.ID, in.RememberMe)
	if err != nil {
		return nil, SessionToken{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		"user_id", user.ID.String(),
		"remember_me", in.RememberMe,
	)
	return user, token, nil
}

// upgradeHash rehashes the password with current parameters.
// Failure is logged; login succeeds regardless.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed",
			"user_id", user.ID.String(),
			"error", err,
		)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		s.logger.WarnContext(ctx, "password upgrade not persisted",
			"user_id", user.ID.String(),
			"error", err,
		)
		return
	}
	user.PasswordHash = newHash
}

// Authenticate resolves the user bound to a session token.
// A bad token or a user that no longer exists returns ErrSessionInvalid;
// storage faults are returned as-is.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	userID, err := s.sessions.Parse(token)
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded SESSION_INVALID
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").
				With("user_id", userID.String()).
				With("reason", "user not found").
				Wrap(ErrSessionInvalid)
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get user by id").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return user, nil
}

// RequestPasswordReset accepts a reset request without issuing a token.
// It reports whether a usable email was supplied.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) bool {
	email = NormalizeEmail(email)
	if email == "" {
		return false
	}
	s.logger.InfoContext(ctx, "password reset requested")
	return true
}
