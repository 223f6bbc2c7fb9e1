// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

// Package auth provides account management and authentication for autism-tools.
//
// # Domain Types
//
// A User should be created with NewUser, which normalizes the email, trims
// the display names, and assigns a fresh ULID. Direct struct initialization
// bypasses that normalization. Repository implementations receive users
// built by NewUser.
//
// # Components
//
//   - PasswordHasher - argon2id hashing; Verify never fails, it only reports a match
//   - SessionManager - signed, expiring session tokens bound to a user ID
//   - ValidateLogin / ValidateRegistration - per-profile form validation
//   - Service - registration, login, and per-request session resolution
//
// Services are created with New*Service constructors that validate dependencies.
package auth
