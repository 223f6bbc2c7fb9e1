// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package main

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// autoMigrateEnv disables startup migrations when set to a false value.
const autoMigrateEnv = "AUTISMTOOLS_DB_AUTO_MIGRATE"

// parseAutoMigrate reads autoMigrateEnv. Unset or unrecognized values mean true.
func parseAutoMigrate() bool {
	raw := strings.TrimSpace(os.Getenv(autoMigrateEnv))
	if raw == "" {
		return true
	}
	enabled, err := strconv.ParseBool(strings.ToLower(raw))
	if err != nil {
		slog.Warn("unrecognized auto-migrate value, defaulting to true",
			"env", autoMigrateEnv,
			"value", raw,
		)
		return true
	}
	return enabled
}

// runAutoMigration applies pending migrations. A close failure is logged
// and does not fail startup.
func runAutoMigration(databaseURL string, factory func(string) (AutoMigrator, error)) error {
	migrator, err := factory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator, connection may leak", "error", closeErr)
		}
	}()

	slog.Info("applying database migrations")
	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	slog.Info("database migrations complete")
	return nil
}
