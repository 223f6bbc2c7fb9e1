// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrScottSevenoaks/autism-tools/internal/store"
)

// NewMigrateCmd creates the migrate command and its subcommands.
// Running migrate with no subcommand applies pending migrations.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply or roll back the database schema, and inspect or repair its migration state.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithDatabase(cmd, runMigrateUp)
		},
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateDownCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateForceCmd())
	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithDatabase(cmd, runMigrateUp)
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errDownNotConfirmed()
			}
			return runWithDatabase(cmd, runMigrateDown)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping all tables and data")
	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithDatabase(cmd, runMigrateStatus)
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied without running it",
		Long: `Record version as the current schema version and clear the dirty flag.
Use it to recover after a migration failed partway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return runWithDatabase(cmd, func(cmd *cobra.Command, m SchemaMigrator) error {
				return runMigrateForce(cmd, m, version)
			})
		},
	}
}

func errDownNotConfirmed() error {
	return oops.Code("MIGRATION_CONFIRM_REQUIRED").
		Hint("re-run with --yes").
		Errorf("migrate down drops all tables and data")
}

// runWithDatabase loads the database configuration and runs fn with a migrator.
func runWithDatabase(cmd *cobra.Command, fn func(*cobra.Command, SchemaMigrator) error) error {
	cfg, err := loadDatabaseConfig(cmd)
	if err != nil {
		return err
	}
	return withMigrator(cfg.Database.URL, defaultSchemaMigrator, func(m SchemaMigrator) error {
		return fn(cmd, m)
	})
}

// withMigrator opens a migrator, runs fn and closes it. A close failure is
// logged and does not fail the command.
func withMigrator(databaseURL string, factory func(string) (SchemaMigrator, error), fn func(SchemaMigrator) error) error {
	m, err := factory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("error closing migrator, connection may leak", "error", closeErr)
		}
	}()
	return fn(m)
}

func runMigrateUp(cmd *cobra.Command, m SchemaMigrator) error {
	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, m SchemaMigrator) error {
	cmd.Println("Rolling back all migrations...")
	if err := m.Down(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "roll back migrations").Wrap(err)
	}
	cmd.Println("All migrations rolled back")
	return nil
}

func runMigrateForce(cmd *cobra.Command, m SchemaMigrator, version int) error {
	if err := m.Force(version); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "force version").Wrap(err)
	}
	cmd.Printf("Forced schema version to %d\n", version)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, m SchemaMigrator) error {
	status, err := m.Status()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "get status").Wrap(err)
	}

	cmd.Printf("Current version: %s\n", describeVersion(status.Current))
	cmd.Printf("Latest version:  %s\n", describeVersion(status.Latest))
	if status.Dirty {
		cmd.Println("State:           dirty (run 'migrate force <version>' after fixing the schema)")
	} else if status.UpToDate() {
		cmd.Println("State:           up to date")
	} else {
		cmd.Printf("State:           %d pending\n", len(status.Pending))
	}
	for _, v := range status.Pending {
		cmd.Printf("  pending %s\n", describeVersion(v))
	}
	return nil
}

func describeVersion(v uint) string {
	if v == 0 {
		return "0 (empty database)"
	}
	name, err := store.MigrationName(v)
	if err != nil || name == "" {
		return fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("%d (%s)", v, name)
}

// parseForceVersion reads a leading integer from s. Trailing characters are ignored.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("invalid version %q: must be an integer", s)
	}
	return version, nil
}
