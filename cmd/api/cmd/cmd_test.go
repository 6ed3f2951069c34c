package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justsurfingit/jobsearch-hub/internal/config"
	"github.com/justsurfingit/jobsearch-hub/internal/logger"
	"github.com/justsurfingit/jobsearch-hub/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerConfig(t *testing.T) {
	cfg := &config.Config{
		AutomationPollInterval: 15 * time.Second,
		AutomationLease:        2 * time.Minute,
		AutomationBatchSize:    3,
		AutomationMaxAttempts:  7,
		AutomationBackoff:      time.Second,
	}

	rc := runnerConfig(cfg)
	assert.Equal(t, 15*time.Second, rc.PollInterval)
	assert.Equal(t, 2*time.Minute, rc.Lease)
	assert.Equal(t, 3, rc.BatchSize)
	assert.Equal(t, 7, rc.MaxAttempts)
	assert.Equal(t, time.Second, rc.Backoff)
	assert.Empty(t, rc.ID)
}

func TestMigrateThenRunOnce(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:"+filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"migrate"})
	require.NoError(t, rootCmd.Execute())

	out.Reset()
	rootCmd.SetArgs([]string{"automations", "run-once"})
	require.NoError(t, rootCmd.Execute())

	var summary services.RunSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, services.RunSummary{}, summary)
}

func TestRunOnce_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	rootCmd.SetArgs([]string{"automations", "run-once"})
	assert.Error(t, rootCmd.Execute())
}

type slowRunner struct {
	finished atomic.Bool
}

func (r *slowRunner) Run(ctx context.Context) error {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond) // a tick still writing
	r.finished.Store(true)
	return ctx.Err()
}

func TestStartRunner_StopWaitsForRun(t *testing.T) {
	runner := &slowRunner{}
	stop := startRunner(context.Background(), runner, logger.Discard())

	stop()
	assert.True(t, runner.finished.Load())

	// second call returns immediately
	stop()
}
