// Package cmd holds the cobra commands of the jobsearch-hub binary.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/justsurfingit/jobsearch-hub/internal/config"
	"github.com/justsurfingit/jobsearch-hub/internal/database"
	"github.com/justsurfingit/jobsearch-hub/internal/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "jobsearch-hub",
	Short: "Job search tracker API with goals, automations and reference portfolios",
	Long: `jobsearch-hub serves the REST API for tracking job applications, SMART goals,
automation rules and professional references.

Common workflows:

  Start the API and the automation runner:
    jobsearch-hub serve

  Create or update the database schema:
    jobsearch-hub migrate

  Execute due automation rules once (e.g. from cron):
    jobsearch-hub automations run-once

Configuration is read from the environment (a .env file is loaded when present)
or from a file passed with --config. DATABASE_URL is required.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, automationsCmd)
}

// setup loads .env and the config, then builds the logger.
func setup() (*config.Config, *slog.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.LogLevel), nil
}

func connect(cfg *config.Config, log *slog.Logger) (*gorm.DB, func(), error) {
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, closeDB, nil
}
