// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

// Package web serves the autism-tools site: the landing page, account
// pages, and the signed-in tools.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/MrScottSevenoaks/autism-tools/internal/auth"
	"github.com/MrScottSevenoaks/autism-tools/internal/observability"
)

// AuthService is the account behaviour the handlers depend on.
type AuthService interface {
	Register(ctx context.Context, in auth.RegistrationInput) (*auth.User, error)
	Login(ctx context.Context, in auth.LoginInput) (*auth.User, auth.SessionToken, error)
	Authenticate(ctx context.Context, token string) (*auth.User, error)
	RequestPasswordReset(ctx context.Context, email string) bool
}

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// CookieName names the session cookie.
	CookieName string
	// SecureCookie marks every cookie Secure.
	SecureCookie bool
	// FlashSecret signs the flash cookie.
	FlashSecret []byte
	// ReadHeaderTimeout bounds reading request headers.
	ReadHeaderTimeout time.Duration
	// RequestTimeout cancels a handler's context after this long. Zero disables it.
	RequestTimeout time.Duration
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Auth AuthService
	// Metrics is optional.
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Server is the site's HTTP server.
type Server struct {
	opts     Options
	auth     AuthService
	metrics  *observability.Metrics
	logger   *slog.Logger
	flashes  *flasher
	renderer *renderer
	router   chi.Router

	mu       sync.Mutex
	httpSrv  *http.Server
	listener net.Listener
}

// New builds a Server and its routes.
func New(opts Options, deps Deps) (*Server, error) {
	if deps.Auth == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("auth service is required")
	}
	if opts.CookieName == "" {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("session cookie name is required")
	}
	if len(opts.FlashSecret) == 0 {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("flash secret is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	rend, err := newRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:     opts,
		auth:     deps.Auth,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		flashes:  newFlasher(opts.FlashSecret, opts.SecureCookie),
		renderer: rend,
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) routes() error {
	static, err := staticFiles()
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	if s.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
	}

	r.Handle("/static/*", http.StripPrefix("/static/", static))

	r.Group(func(r chi.Router) {
		r.Use(s.csrf)
		r.Use(s.loadUser)

		r.Get("/", s.handleIndex)
		r.Get("/login", s.handleLoginForm)
		r.Post("/login", s.handleLogin)
		r.Get("/register", s.handleRegisterForm)
		r.Post("/register", s.handleRegister)
		r.Get("/forgot-password", s.handleForgotPasswordForm)
		r.Post("/forgot-password", s.handleForgotPassword)

		r.Get("/dashboard", s.requireAuth(s.handleDashboard))
		r.Get("/word-board", s.requireAuth(s.handleWordBoard))
		r.Get("/logout", s.requireAuth(s.handleLogout))

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			s.renderError(w, r, http.StatusNotFound, "That page could not be found.")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			s.renderError(w, r, http.StatusMethodNotAllowed, "That action is not allowed here.")
		})
	})

	s.router = r
	return nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on Options.Addr and serves in the background. The returned
// channel receives a serve error, if any, and is closed when serving stops.
func (s *Server) Start() (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpSrv != nil {
		return nil, oops.Code("WEB_ALREADY_RUNNING").Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.opts.Addr).Wrap(err)
	}

	readHeaderTimeout := s.opts.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = 10 * time.Second
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.httpSrv = srv
	s.listener = listener

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- oops.Code("WEB_SERVE_FAILED").Wrap(serveErr)
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop drains in-flight requests until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return oops.Code("WEB_SHUTDOWN_FAILED").With("operation", "shutdown_web_server").Wrap(err)
	}
	s.logger.Info("web server stopped")
	return nil
}
