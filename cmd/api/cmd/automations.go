package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/justsurfingit/jobsearch-hub/internal/config"
	"github.com/justsurfingit/jobsearch-hub/internal/services"
	"github.com/spf13/cobra"
)

var automationsCmd = &cobra.Command{
	Use:   "automations",
	Short: "Operate the automation runner",
}

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Execute every due automation rule once and print the summary",
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

		runner := services.NewAutomationRunner(db, log, runnerConfig(cfg))
		summary, err := runner.RunOnce(cmd.Context())
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	automationsCmd.AddCommand(runOnceCmd)
}

func runnerConfig(cfg *config.Config) services.RunnerConfig {
	return services.RunnerConfig{
		PollInterval: cfg.AutomationPollInterval,
		Lease:        cfg.AutomationLease,
		BatchSize:    cfg.AutomationBatchSize,
		MaxAttempts:  cfg.AutomationMaxAttempts,
		Backoff:      cfg.AutomationBackoff,
	}
}
