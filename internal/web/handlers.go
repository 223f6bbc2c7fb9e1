// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MrScottSevenoaks/autism-tools/internal/auth"
	"github.com/MrScottSevenoaks/autism-tools/internal/observability"
	"github.com/MrScottSevenoaks/autism-tools/internal/wordboard"
)

const (
	msgLoggedIn          = "Logged in successfully."
	msgBadCredentials    = "Invalid email or password."
	msgAccountCreated    = "Account created. You can now log in."
	msgResetRequested    = "If that email exists in our system, a reset link has been sent."
	msgLoggedOut         = "You have been logged out."
	fieldNext            = "next"
	fieldLegacyPassword2 = "password2"
	defaultAfterLogin    = "/dashboard"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageIndex, pageData{Title: "Welcome"})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageLogin, pageData{
		Title: "Log in",
		Next:  safeNext(r.URL.Query().Get(fieldNext), ""),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	form := auth.LoginForm{
		Email:      r.PostFormValue(auth.FieldEmail),
		Password:   r.PostFormValue(auth.FieldPassword),
		RememberMe: checked(r.PostFormValue(auth.FieldRememberMe)),
	}
	next := safeNext(r.PostFormValue(fieldNext), "")
	data := pageData{
		Title: "Log in",
		Next:  next,
		Form:  map[string]string{auth.FieldEmail: form.Email},
	}
	if form.RememberMe {
		data.Form[auth.FieldRememberMe] = "y"
	}

	in, verrs := auth.ValidateLogin(form)
	if verrs != nil {
		s.recordAuth(observability.EventLogin, observability.OutcomeInvalid)
		s.logger.DebugContext(r.Context(), "login form rejected", "fields", verrs.Fields())
		data.Errors = verrs
		s.render(w, r, http.StatusOK, pageLogin, data)
		return
	}

	_, token, err := s.auth.Login(r.Context(), in)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.recordAuth(observability.EventLogin, observability.OutcomeInvalid)
		data.Flashes = []Flash{{Category: FlashDanger, Message: msgBadCredentials}}
		s.render(w, r, http.StatusOK, pageLogin, data)
		return
	case err != nil:
		s.recordAuth(observability.EventLogin, observability.OutcomeFailure)
		s.serverError(w, r, err)
		return
	}

	s.recordAuth(observability.EventLogin, observability.OutcomeSuccess)
	s.setSessionCookie(w, token)
	s.flashes.add(w, r, Flash{Category: FlashSuccess, Message: msgLoggedIn})
	http.Redirect(w, r, safeNext(next, defaultAfterLogin), http.StatusSeeOther)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageRegister, pageData{Title: "Create an account"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	form := auth.RegistrationForm{
		FirstName:            r.PostFormValue(auth.FieldFirstName),
		LastName:             r.PostFormValue(auth.FieldLastName),
		Email:                r.PostFormValue(auth.FieldEmail),
		Password:             r.PostFormValue(auth.FieldPassword),
		PasswordConfirmation: r.PostFormValue(auth.FieldPasswordConfirmation),
	}
	if form.PasswordConfirmation == "" {
		form.PasswordConfirmation = r.PostFormValue(fieldLegacyPassword2)
	}
	data := pageData{
		Title: "Create an account",
		Form: map[string]string{
			auth.FieldFirstName: form.FirstName,
			auth.FieldLastName:  form.LastName,
			auth.FieldEmail:     form.Email,
		},
	}

	in, verrs := auth.ValidateRegistration(form)
	if verrs != nil {
		s.recordAuth(observability.EventRegister, observability.OutcomeInvalid)
		s.logger.DebugContext(r.Context(), "registration form rejected", "fields", verrs.Fields())
		data.Errors = verrs
		s.render(w, r, http.StatusOK, pageRegister, data)
		return
	}

	_, err := s.auth.Register(r.Context(), in)
	switch {
	case errors.Is(err, auth.ErrDuplicateEmail):
		s.recordAuth(observability.EventRegister, observability.OutcomeInvalid)
		data.Errors = auth.ValidationErrors{}
		data.Errors.Add(auth.FieldEmail, auth.MsgDuplicateEmail)
		s.render(w, r, http.StatusOK, pageRegister, data)
		return
	case err != nil:
		s.recordAuth(observability.EventRegister, observability.OutcomeFailure)
		s.serverError(w, r, err)
		return
	}

	s.recordAuth(observability.EventRegister, observability.OutcomeSuccess)
	s.flashes.add(w, r, Flash{Category: FlashSuccess, Message: msgAccountCreated})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleForgotPasswordForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageForgotPassword, pageData{Title: "Forgot password"})
}

// handleForgotPassword acknowledges a reset request. The reply is the same
// whether or not the account exists.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if s.auth.RequestPasswordReset(r.Context(), r.PostFormValue(auth.FieldEmail)) {
		s.recordAuth(observability.EventPasswordReset, observability.OutcomeSuccess)
		s.flashes.add(w, r, Flash{Category: FlashInfo, Message: msgResetRequested})
	} else {
		s.recordAuth(observability.EventPasswordReset, observability.OutcomeInvalid)
	}
	http.Redirect(w, r, "/forgot-password", http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, user *auth.User) {
	s.render(w, r, http.StatusOK, pageDashboard, pageData{Title: "Dashboard", User: user})
}

func (s *Server) handleWordBoard(w http.ResponseWriter, r *http.Request, user *auth.User) {
	items := wordboard.Items()
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, items)
		return
	}
	s.render(w, r, http.StatusOK, pageWordBoard, pageData{Title: "Word board", User: user, Items: items})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, user *auth.User) {
	s.clearSessionCookie(w)
	s.recordAuth(observability.EventLogout, observability.OutcomeSuccess)
	s.logger.InfoContext(r.Context(), "user logged out", "user_id", user.ID.String())
	s.flashes.add(w, r, Flash{Category: FlashInfo, Message: msgLoggedOut})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) recordAuth(event, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAuthEvent(event, outcome)
	}
}

// checked reports whether a checkbox value means "on".
func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "on", "true", "1":
		return true
	}
	return false
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
