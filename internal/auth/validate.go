// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package auth

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// Form field names as submitted by the login and registration pages.
const (
	FieldEmail                = "email"
	FieldPassword             = "password"
	FieldRememberMe           = "remember_me"
	FieldFirstName            = "first_name"
	FieldLastName             = "last_name"
	FieldPasswordConfirmation = "password_confirmation"
)

// User-facing validation messages.
const (
	MsgRequired       = "This field is required."
	MsgInvalidEmail   = "Invalid email address."
	MsgInvalidText    = "Field contains invalid characters."
	MsgPasswordsMatch = "Passwords must match."
	MsgDuplicateEmail = "An account with that email already exists."
)

// emailRegex accepts a dot-atom local part and a domain of at least two labels.
var emailRegex = regexp.MustCompile(
	"^[A-Za-z0-9.!#$%&'*+/=?^_`{|}~-]+@" +
		`[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?` +
		`(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)+$`,
)

// ValidationErrors maps a form field to its ordered error messages.
type ValidationErrors map[string][]string

// Add appends a message for field.
func (e ValidationErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Has reports whether field has at least one error.
func (e ValidationErrors) Has(field string) bool {
	return len(e[field]) > 0
}

// Get returns the messages for field in the order they were added.
func (e ValidationErrors) Get(field string) []string {
	return e[field]
}

// Empty reports whether no field has errors.
func (e ValidationErrors) Empty() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return false
		}
	}
	return true
}

// Fields returns the names of fields with errors, sorted.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for f, msgs := range e {
		if len(msgs) > 0 {
			fields = append(fields, f)
		}
	}
	slices.Sort(fields)
	return fields
}

// Rule is a single field predicate with the message reported when it fails.
type Rule struct {
	Check   func(value string) bool
	Message string
	// Stop skips the remaining rules of the field when this one fails.
	Stop bool
}

// Required fails on an empty or whitespace-only value.
func Required() Rule {
	return Rule{
		Check:   func(v string) bool { return strings.TrimSpace(v) != "" },
		Message: MsgRequired,
		Stop:    true,
	}
}

// EmailShape fails unless the trimmed value looks like an email address.
func EmailShape() Rule {
	return Rule{
		Check:   func(v string) bool { return emailRegex.MatchString(strings.TrimSpace(v)) },
		Message: MsgInvalidEmail,
	}
}

// ValidText fails on malformed UTF-8 or a NUL byte, neither of which
// PostgreSQL text columns can store.
func ValidText() Rule {
	return Rule{
		Check:   func(v string) bool { return utf8.ValidString(v) && !strings.ContainsRune(v, 0) },
		Message: MsgInvalidText,
		Stop:    true,
	}
}

// MaxLength fails when the value has more than n characters.
func MaxLength(n int) Rule {
	return Rule{
		Check:   func(v string) bool { return utf8.RuneCountInString(v) <= n },
		Message: fmt.Sprintf("Field cannot be longer than %d characters.", n),
	}
}

// MinLength fails when the value has fewer than n characters.
func MinLength(n int) Rule {
	return Rule{
		Check:   func(v string) bool { return utf8.RuneCountInString(v) >= n },
		Message: fmt.Sprintf("Field must be at least %d characters long.", n),
	}
}

// EqualTo fails unless the value is exactly other.
func EqualTo(other, message string) Rule {
	return Rule{
		Check:   func(v string) bool { return v == other },
		Message: message,
	}
}

// fieldRules binds a field's submitted value to its rules.
type fieldRules struct {
	field string
	value string
	rules []Rule
}

// check runs every field's rules, accumulating failures across fields.
func check(profile []fieldRules) ValidationErrors {
	errs := ValidationErrors{}
	for _, f := range profile {
		for _, rule := range f.rules {
			if rule.Check(f.value) {
				continue
			}
			errs.Add(f.field, rule.Message)
			if rule.Stop {
				break
			}
		}
	}
	return errs
}

// LoginForm is a raw login submission.
type LoginForm struct {
	Email      string
	Password   string
	RememberMe bool
}

// LoginInput is a login submission that passed validation.
type LoginInput struct {
	Email      string // normalized
	Password   string
	RememberMe bool
}

// ValidateLogin applies the login profile.
// On failure the returned errors are non-empty and the input is zero.
func ValidateLogin(form LoginForm) (LoginInput, ValidationErrors) {
	errs := check([]fieldRules{
		{field: FieldEmail, value: form.Email, rules: []Rule{Required(), EmailShape()}},
		{field: FieldPassword, value: form.Password, rules: []Rule{Required()}},
	})
	if !errs.Empty() {
		return LoginInput{}, errs
	}
	return LoginInput{
		Email:      NormalizeEmail(form.Email),
		Password:   form.Password,
		RememberMe: form.RememberMe,
	}, nil
}

// RegistrationForm is a raw registration submission.
type RegistrationForm struct {
	FirstName            string
	LastName             string
	Email                string
	Password             string
	PasswordConfirmation string
}

// RegistrationInput is a registration submission that passed validation.
type RegistrationInput struct {
	FirstName string
	LastName  string
	Email     string // normalized
	Password  string
}

// ValidateRegistration applies the registration profile.
// On failure the returned errors are non-empty and the input is zero.
func ValidateRegistration(form RegistrationForm) (RegistrationInput, ValidationErrors) {
	errs := check([]fieldRules{
		{field: FieldFirstName, value: strings.TrimSpace(form.FirstName), rules: []Rule{Required(), ValidText(), MaxLength(MaxNameLength)}},
		{field: FieldLastName, value: strings.TrimSpace(form.LastName), rules: []Rule{Required(), ValidText(), MaxLength(MaxNameLength)}},
		{field: FieldEmail, value: strings.TrimSpace(form.Email), rules: []Rule{Required(), EmailShape(), MaxLength(MaxEmailLength)}},
		{field: FieldPassword, value: form.Password, rules: []Rule{Required(), MinLength(MinPasswordLength)}},
		{field: FieldPasswordConfirmation, value: form.PasswordConfirmation, rules: []Rule{
			Required(),
			EqualTo(form.Password, MsgPasswordsMatch),
		}},
	})
	if !errs.Empty() {
		return RegistrationInput{}, errs
	}
	return RegistrationInput{
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
		Email:     NormalizeEmail(form.Email),
		Password:  form.Password,
	}, nil
}
