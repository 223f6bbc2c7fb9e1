// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/MrScottSevenoaks/autism-tools/internal/observability"
	"github.com/MrScottSevenoaks/autism-tools/internal/store"
)

// mockMigrator implements SchemaMigrator for testing.
type mockMigrator struct {
	upErr     error
	downErr   error
	forceErr  error
	closeErr  error
	status    store.MigrationStatus
	statusErr error

	upCalled    bool
	downCalled  bool
	closeCalled bool
	forced      []int
}

func (m *mockMigrator) Up() error {
	m.upCalled = true
	return m.upErr
}

func (m *mockMigrator) Down() error {
	m.downCalled = true
	return m.downErr
}

func (m *mockMigrator) Force(v int) error {
	m.forced = append(m.forced, v)
	return m.forceErr
}

func (m *mockMigrator) Status() (store.MigrationStatus, error) {
	return m.status, m.statusErr
}

func (m *mockMigrator) Close() error {
	m.closeCalled = true
	return m.closeErr
}

// mockServer implements WebServer and ObservabilityServer.
type mockServer struct {
	mu       sync.Mutex
	startErr error
	stopErr  error
	errCh    chan error
	started  bool
	stopped  bool
	metrics  *observability.Metrics
}

func newMockServer() *mockServer {
	return &mockServer{errCh: make(chan error, 1)}
}

func (m *mockServer) Start() (<-chan error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.started = true
	return m.errCh, nil
}

func (m *mockServer) Stop(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return m.stopErr
}

func (m *mockServer) Addr() string { return "127.0.0.1:5000" }

func (m *mockServer) Metrics() *observability.Metrics { return m.metrics }

func (m *mockServer) wasStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

func (m *mockServer) wasStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// newMockCmd returns a command whose output is captured.
func newMockCmd() (*cobra.Command, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	return cmd, out
}

// restoreDefaultLogger undoes slog.SetDefault calls made by the test.
func restoreDefaultLogger(t *testing.T) {
	t.Helper()
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })
}

// unsetEnv removes keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}
