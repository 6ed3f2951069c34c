package cmd

import (
	"github.com/justsurfingit/jobsearch-hub/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		db, closeDB, err := connect(cfg, log)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := database.Migrate(db, log); err != nil {
			return err
		}
		log.Info("migrations completed successfully")
		return nil
	},
}
