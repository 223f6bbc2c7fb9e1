// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrScottSevenoaks/autism-tools/internal/config"
	"github.com/MrScottSevenoaks/autism-tools/internal/logging"
	"github.com/MrScottSevenoaks/autism-tools/internal/xdg"
)

const serviceName = "autism-tools"

// NewRootCmd creates the root command for the autism-tools CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autismtools",
		Short: "Autism Tools - simple communication aids on the web",
		Long: `Autism Tools serves account pages and a picture word board
that speaks a word when it is tapped.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (YAML)")
	cmd.PersistentFlags().String("env-file", "", "dotenv file to load (default: .env when present)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitDBCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig reads configuration for cmd from the file, env file,
// environment, and flags. Without --config it falls back to
// $XDG_CONFIG_HOME/autism-tools/config.yaml when present. It does not validate.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	file, _ := flags.GetString("config")      //nolint:errcheck // registered on root
	envFile, _ := flags.GetString("env-file") //nolint:errcheck // registered on root
	if file == "" {
		file = xdg.ConfigFile()
	}
	if envFile == "" {
		envFile = config.LookupEnvFile()
	}
	return config.Load(config.LoadOptions{File: file, EnvFile: envFile, Flags: flags})
}

// loadDatabaseConfig loads configuration for commands that only need the
// database, and installs the default logger.
func loadDatabaseConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Database.URL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("database url is required (set DATABASE_URL)")
	}
	if _, err := logging.SetDefault(logOptions(cfg), cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func logOptions(cfg *config.Config) logging.Options {
	return logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}
}
