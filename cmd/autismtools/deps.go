// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package main

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrScottSevenoaks/autism-tools/internal/observability"
	"github.com/MrScottSevenoaks/autism-tools/internal/store"
	"github.com/MrScottSevenoaks/autism-tools/internal/web"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, url string, opts store.PoolOptions) (Pool, error)

	// MigratorFactory creates the migrator used for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (AutoMigrator, error)

	// WebServerFactory creates the site server.
	// Default: web.New
	WebServerFactory func(opts web.Options, deps web.Deps) (WebServer, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// LogOutput receives log records.
	// Default: os.Stderr
	LogOutput io.Writer
}

// Pool is the part of *pgxpool.Pool the server uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// AutoMigrator is the part of store.Migrator used on startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// SchemaMigrator is the part of store.Migrator the migrate commands drive.
type SchemaMigrator interface {
	AutoMigrator
	Down() error
	Force(version int) error
	Status() (store.MigrationStatus, error)
}

// WebServer interface wraps the methods used from web.Server.
type WebServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func (d *ServeDeps) setDefaults() {
	if d.PoolFactory == nil {
		d.PoolFactory = func(ctx context.Context, url string, opts store.PoolOptions) (Pool, error) {
			pool, err := store.Connect(ctx, url, opts)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(url string) (AutoMigrator, error) {
			m, err := store.NewMigrator(url)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if d.WebServerFactory == nil {
		d.WebServerFactory = func(opts web.Options, deps web.Deps) (WebServer, error) {
			s, err := web.New(opts, deps)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
}

// defaultSchemaMigrator opens a store.Migrator for the migrate commands.
func defaultSchemaMigrator(url string) (SchemaMigrator, error) {
	m, err := store.NewMigrator(url)
	if err != nil {
		return nil, err
	}
	return m, nil
}
