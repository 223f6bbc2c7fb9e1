// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrScottSevenoaks/autism-tools/internal/auth"
	authpg "github.com/MrScottSevenoaks/autism-tools/internal/auth/postgres"
	"github.com/MrScottSevenoaks/autism-tools/internal/config"
	"github.com/MrScottSevenoaks/autism-tools/internal/logging"
	"github.com/MrScottSevenoaks/autism-tools/internal/observability"
	"github.com/MrScottSevenoaks/autism-tools/internal/store"
	"github.com/MrScottSevenoaks/autism-tools/internal/web"
	"github.com/MrScottSevenoaks/autism-tools/pkg/errutil"
)

// readinessTimeout bounds the database ping behind /healthz/readiness.
const readinessTimeout = 2 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the web server. The database schema is brought up to date first
unless --auto-migrate=false is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cmd, cfg, autoMigrate, nil)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", parseAutoMigrate(),
		"apply pending migrations on startup (env "+autoMigrateEnv+")")
	return cmd
}

// runServeWithDeps runs the site until a signal arrives, ctx is cancelled,
// or a server fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, cfg *config.Config, autoMigrate bool, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.setDefaults()

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.SetDefault(logOptions(cfg), deps.LogOutput)
	if err != nil {
		return oops.Code("LOGGING_SETUP_FAILED").Wrap(err)
	}
	if !cfg.IsProduction() && cfg.Session.Secret == config.DevSecretKey {
		logger.Warn("using the development secret key; set SECRET_KEY before deploying")
	}

	logger.Info("starting autism-tools",
		"environment", cfg.Environment,
		"http_addr", cfg.HTTP.Addr,
		"version", version,
	)

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, store.PoolOptions{
		Timeout:  cfg.Database.ConnectTimeout,
		MaxConns: cfg.Database.MaxConns,
		Logger:   logger,
	})
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	if autoMigrate {
		if err := runAutoMigration(cfg.Database.URL, deps.MigratorFactory); err != nil {
			return err
		}
	} else {
		logger.Info("auto-migration disabled")
	}

	authService, err := newAuthService(cfg, pool, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		obsServer ObservabilityServer
		metrics   *observability.Metrics
	)
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, store.HealthCheck(pool, readinessTimeout))
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	}

	webServer, err := deps.WebServerFactory(web.Options{
		Addr:              cfg.HTTP.Addr,
		CookieName:        cfg.Session.CookieName,
		SecureCookie:      cfg.Session.SecureCookie,
		FlashSecret:       []byte(cfg.Session.Secret),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
	}, web.Deps{Auth: authService, Metrics: metrics, Logger: logger})
	if err == nil {
		var webErrChan <-chan error
		webErrChan, err = webServer.Start()
		if err == nil {
			go monitorServerErrors(ctx, cancel, webErrChan, "web")
		}
	}
	if err != nil {
		stopServer(logger, obsServer, cfg.HTTP.ShutdownTimeout, "observability")
		return oops.With("operation", "start web server").Wrap(err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Printf("Serving on http://%s\n", webServer.Addr())
	logger.Info("autism-tools ready", "addr", webServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	stopServer(logger, webServer, cfg.HTTP.ShutdownTimeout, "web")
	stopServer(logger, obsServer, cfg.HTTP.ShutdownTimeout, "observability")
	logger.Info("shutdown complete")
	return nil
}

// newAuthService wires the credential store, hasher, and session manager.
func newAuthService(cfg *config.Config, pool Pool, logger *slog.Logger) (*auth.Service, error) {
	sessions, err := auth.NewSessionManager(auth.SessionConfig{
		Secret:           []byte(cfg.Session.Secret),
		SessionDuration:  cfg.Session.SessionDuration,
		RememberDuration: cfg.Session.RememberDuration,
	})
	if err != nil {
		return nil, err
	}
	return auth.NewAuthServiceWithLogger(
		authpg.NewUserRepository(pool),
		auth.NewArgon2idHasher(),
		sessions,
		logger,
	)
}

type stopper interface {
	Stop(ctx context.Context) error
}

func stopServer(logger *slog.Logger, s stopper, timeout time.Duration, name string) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		errutil.LogError(logger, "error stopping "+name+" server", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error.
// It exits when an error is received, the channel closes, or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
