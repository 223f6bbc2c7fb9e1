// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/require"

	"github.com/MrScottSevenoaks/autism-tools/internal/auth"
	"github.com/MrScottSevenoaks/autism-tools/internal/observability"
)

const testCookieName = "session"

var testSecret = []byte("test-secret-test-secret-test-sec")

// memUsers is an in-memory auth.UserRepository. Setting fail makes every
// call return it.
type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*auth.User
	fail    error
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]*auth.User{}}
}

func (m *memUsers) Create(_ context.Context, user *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.byEmail[user.Email]; ok {
		return oops.Code("USER_DUPLICATE_EMAIL").Wrap(auth.ErrDuplicateEmail)
	}
	u := *user
	m.byEmail[user.Email] = &u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	for _, u := range m.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	u, ok := m.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	c := *u
	return &c, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id ulid.ULID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byEmail)
}

func (m *memUsers) setFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// plainHasher keeps handler tests fast. Argon2id is covered in package auth.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) {
	if p == "" {
		return "", auth.ErrEmptyPassword
	}
	return "plain$" + p, nil
}
func (plainHasher) Verify(p, h string) bool  { return h == "plain$"+p }
func (plainHasher) NeedsUpgrade(string) bool { return false }

type testApp struct {
	server *Server
	users  *memUsers
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithMetrics(t, nil)
}

func newTestAppWithMetrics(t *testing.T, metrics *observability.Metrics) *testApp {
	t.Helper()
	users := newMemUsers()
	sessions, err := auth.NewSessionManager(auth.SessionConfig{Secret: testSecret})
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := auth.NewAuthServiceWithLogger(users, plainHasher{}, sessions, logger)
	require.NoError(t, err)

	server, err := New(Options{
		Addr:        "127.0.0.1:0",
		CookieName:  testCookieName,
		FlashSecret: testSecret,
	}, Deps{Auth: svc, Metrics: metrics, Logger: logger})
	require.NoError(t, err)
	return &testApp{server: server, users: users}
}

// browser drives the handler in-process and keeps cookies between requests.
type browser struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func (a *testApp) browser(t *testing.T) *browser {
	return &browser{t: t, h: a.server.Handler(), cookies: map[string]*http.Cookie{}}
}

type page struct {
	*http.Response
	body string
}

func (b *browser) do(req *http.Request) page {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	res := rec.Result()
	for _, c := range res.Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	body, err := io.ReadAll(res.Body)
	require.NoError(b.t, err)
	return page{Response: res, body: string(body)}
}

func (b *browser) get(path string) page {
	b.t.Helper()
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// post submits form, adding the CSRF token the way a rendered page would.
func (b *browser) post(path string, form url.Values) page {
	b.t.Helper()
	if _, ok := b.cookies[csrfCookieName]; !ok {
		b.get("/")
	}
	if form == nil {
		form = url.Values{}
	}
	if !form.Has(csrfFieldName) {
		form.Set(csrfFieldName, b.cookies[csrfCookieName].Value)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) cookie(name string) (*http.Cookie, bool) {
	c, ok := b.cookies[name]
	return c, ok
}

func registrationForm(email string) url.Values {
	return url.Values{
		auth.FieldFirstName:            {"Ada"},
		auth.FieldLastName:             {"Lovelace"},
		auth.FieldEmail:                {email},
		auth.FieldPassword:             {"correct horse"},
		auth.FieldPasswordConfirmation: {"correct horse"},
	}
}

func loginForm(email, password string) url.Values {
	return url.Values{
		auth.FieldEmail:    {email},
		auth.FieldPassword: {password},
	}
}

// signIn registers email and logs in.
func (b *browser) signIn(email string) {
	b.t.Helper()
	res := b.post("/register", registrationForm(email))
	require.Equal(b.t, http.StatusSeeOther, res.StatusCode, res.body)
	res = b.post("/login", loginForm(email, "correct horse"))
	require.Equal(b.t, http.StatusSeeOther, res.StatusCode, res.body)
}
