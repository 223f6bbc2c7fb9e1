// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewInitDBCmd creates the init-db subcommand.
func NewInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the database schema",
		Long: `Create the database schema if it does not exist by applying every
pending migration. Running it again is safe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadDatabaseConfig(cmd)
			if err != nil {
				return err
			}
			return runInitDB(cmd, cfg.Database.URL, defaultSchemaMigrator)
		},
	}
}

func runInitDB(cmd *cobra.Command, databaseURL string, factory func(string) (SchemaMigrator, error)) error {
	return withMigrator(databaseURL, factory, func(m SchemaMigrator) error {
		if err := m.Up(); err != nil {
			return oops.Code("INIT_DB_FAILED").With("operation", "create schema").Wrap(err)
		}
		cmd.Println("Database initialised.")
		return nil
	})
}
