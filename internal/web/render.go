// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/samber/oops"

	"github.com/MrScottSevenoaks/autism-tools/internal/auth"
	"github.com/MrScottSevenoaks/autism-tools/internal/wordboard"
	"github.com/MrScottSevenoaks/autism-tools/pkg/errutil"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page template names. Each is parsed with the shared layout and partials.
const (
	pageIndex          = "index"
	pageLogin          = "login"
	pageRegister       = "register"
	pageForgotPassword = "forgot_password"
	pageDashboard      = "dashboard"
	pageWordBoard      = "word_board"
	pageError          = "error"
)

var pageNames = []string{
	pageIndex, pageLogin, pageRegister, pageForgotPassword,
	pageDashboard, pageWordBoard, pageError,
}

// pageData is the view model every template receives.
type pageData struct {
	Title     string
	User      *auth.User
	Flashes   []Flash
	CSRFToken string
	Next      string
	Form      map[string]string
	Errors    auth.ValidationErrors
	Items     []wordboard.Item
	Status    int
	Message   string
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).ParseFS(templateFS,
			"templates/base.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, oops.Code("WEB_TEMPLATE_PARSE_FAILED").With("page", name).Wrap(err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// execute renders page into a buffer so a template failure never leaks a
// half-written response.
func (r *renderer) execute(name string, data pageData) ([]byte, error) {
	t, ok := r.pages[name]
	if !ok {
		return nil, oops.Code("WEB_TEMPLATE_MISSING").With("page", name).Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		return nil, oops.Code("WEB_TEMPLATE_RENDER_FAILED").With("page", name).Wrap(err)
	}
	return buf.Bytes(), nil
}

// render fills the ambient fields of data and writes the page.
// Flashes queued by an earlier request are shown before data.Flashes.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	if user, ok := UserFromContext(r.Context()); ok {
		data.User = user
	}
	data.CSRFToken = csrfToken(r)
	data.Flashes = append(s.flashes.pop(w, r), data.Flashes...)
	if data.Errors == nil {
		data.Errors = auth.ValidationErrors{}
	}

	body, err := s.renderer.execute(page, data)
	if err != nil {
		errutil.LogErrorContext(r.Context(), s.logger, "template render failed", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	w.Write(body)
}

// renderError shows the error page with a user-facing message.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, pageError, pageData{
		Title:   http.StatusText(status),
		Status:  status,
		Message: message,
	})
}

// serverError logs err with its code and context and renders a generic 500.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.LogErrorContext(r.Context(), s.logger, "request failed", err)
	s.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(v)
}

func staticFiles() (http.Handler, error) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, oops.Code("WEB_STATIC_FAILED").Wrap(err)
	}
	return http.FileServerFS(sub), nil
}
