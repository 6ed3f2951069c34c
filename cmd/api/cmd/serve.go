package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/jobsearch-hub/internal/database"
	"github.com/justsurfingit/jobsearch-hub/internal/observability"
	"github.com/justsurfingit/jobsearch-hub/internal/server"
	"github.com/justsurfingit/jobsearch-hub/internal/services"
	"github.com/spf13/cobra"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the automation runner",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", true, "run database migrations before starting")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, closeDB, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	if migrateOnStart {
		if err := database.Migrate(db, log); err != nil {
			return err
		}
	}

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			log.Warn("failed to shut down metrics", "error", err)
		}
	}()

	// The LLM only powers reference summaries and job extraction, so a missing key is not fatal.
	var llm *services.LLMService
	if cfg.GeminiAPIKey != "" {
		llm, err = services.NewLLMService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn("LLM features disabled", "error", err)
		}
	}

	runner := services.NewAutomationRunner(db, log, runnerConfig(cfg))
	stopRunner := func() {}
	if cfg.AutomationEnabled {
		stopRunner = startRunner(ctx, runner, log)
	} else {
		log.Info("automation runner disabled; use POST /api/v1/automations/run or `automations run-once`")
	}
	defer stopRunner()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	deps := server.NewDeps(db, log, runner, nil)
	if llm != nil {
		deps.References.Summarizer = llm
		deps.Extractor = llm
	}
	deps.Metrics = metricsHandler
	srv := server.New(cfg.Addr(), server.NewRouter(cfg, deps, log), log)

	err = srv.Run(ctx)

	// closeDB runs after this returns, so the runner must finish its tick first.
	stopRunner()
	if err != nil {
		return err
	}
	log.Info("server exited properly")
	return nil
}

type backgroundRunner interface {
	Run(ctx context.Context) error
}

// startRunner runs the automation loop in the background. The returned func
// cancels it and blocks until the current tick has finished. It is safe to
// call more than once.
func startRunner(ctx context.Context, runner backgroundRunner, log *slog.Logger) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("automation runner stopped", "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
