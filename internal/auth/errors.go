// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package auth

import "errors"

var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when a user with the same normalized email already exists.
	ErrDuplicateEmail = errors.New("an account with that email already exists")

	// ErrInvalidCredentials is returned when the email is unknown or the password does not match.
	// The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrSessionInvalid is returned for a missing, tampered, or expired session token,
	// or when the user it references no longer exists.
	ErrSessionInvalid = errors.New("session invalid")
)
