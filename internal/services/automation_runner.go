package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/justsurfingit/jobsearch-hub/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

// RunnerConfig tunes the automation poller.
type RunnerConfig struct {
	ID           string        // claim owner, defaults to a random id
	PollInterval time.Duration // time between ticks (default: 1m)
	Lease        time.Duration // a running claim older than this is reclaimed (default: 5m)
	BatchSize    int           // rules per tick (default: 10)
	MaxAttempts  int           // failures before a rule is marked failed (default: 5)
	Backoff      time.Duration // delay after the first failure, doubled each time (default: 30s)
}

// RunSummary reports what one tick did.
type RunSummary struct {
	Claimed   int `json:"claimed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

var errLostClaim = errors.New("claim lost before completion")

// AutomationRunner executes due automation rules. Every rule is claimed with a
// compare-and-swap update before it runs, so overlapping ticks, manual runs and
// other replicas never execute the same rule twice.
type AutomationRunner struct {
	DB  *gorm.DB
	Log *slog.Logger
	Now func() time.Time

	config  RunnerConfig
	running atomic.Bool

	claimed   metric.Int64Counter
	succeeded metric.Int64Counter
	failed    metric.Int64Counter
}

func NewAutomationRunner(db *gorm.DB, log *slog.Logger, config RunnerConfig) *AutomationRunner {
	if config.ID == "" {
		config.ID = "runner-" + uuid.NewString()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	if config.Lease <= 0 {
		config.Lease = 5 * time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.Backoff <= 0 {
		config.Backoff = 30 * time.Second
	}

	r := &AutomationRunner{
		DB:     db,
		Log:    log.With("runner_id", config.ID),
		Now:    func() time.Time { return time.Now().UTC() },
		config: config,
	}

	meter := otel.Meter("jobsearch-hub/automation")
	var err error
	if r.claimed, err = meter.Int64Counter("automation.rules.claimed",
		metric.WithDescription("Automation rules claimed for execution")); err != nil {
		log.Warn("failed to register automation metric", "error", err)
	}
	if r.succeeded, err = meter.Int64Counter("automation.rules.succeeded",
		metric.WithDescription("Automation rules executed successfully")); err != nil {
		log.Warn("failed to register automation metric", "error", err)
	}
	if r.failed, err = meter.Int64Counter("automation.rules.failed",
		metric.WithDescription("Automation rule executions that returned an error")); err != nil {
		log.Warn("failed to register automation metric", "error", err)
	}
	return r
}

// Run ticks until ctx is cancelled. The first tick runs immediately.
func (r *AutomationRunner) Run(ctx context.Context) error {
	r.Log.Info("automation runner started", "poll_interval", r.config.PollInterval.String())

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		r.tick(ctx)

		select {
		case <-ctx.Done():
			r.Log.Info("automation runner stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *AutomationRunner) tick(ctx context.Context) {
	summary, err := r.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		r.Log.Debug("previous automation run still active, skipping tick")
	case err != nil && ctx.Err() == nil:
		r.Log.Error("automation tick failed", "error", err)
	case summary.Claimed > 0 || summary.Skipped > 0:
		r.Log.Info("automation tick finished",
			"claimed", summary.Claimed,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
			"skipped", summary.Skipped)
	}
}

// RunOnce processes one batch of due rules. It returns ErrRunInProgress when
// another RunOnce on this runner has not finished yet.
func (r *AutomationRunner) RunOnce(ctx context.Context) (RunSummary, error) {
	var summary RunSummary
	if !r.running.CompareAndSwap(false, true) {
		return summary, ErrRunInProgress
	}
	defer r.running.Store(false)

	now := r.Now()
	staleBefore := now.Add(-r.config.Lease)

	var due []models.AutomationRule
	err := r.DB.WithContext(ctx).
		Where("(status = ? AND run_at <= ?) OR (status = ? AND claimed_at <= ?)",
			models.RulePending, now, models.RuleRunning, staleBefore).
		Order("run_at ASC, id ASC").
		Limit(r.config.BatchSize).
		Find(&due).Error
	if err != nil {
		return summary, fmt.Errorf("failed to load due automation rules: %w", err)
	}

	for i := range due {
		if ctx.Err() != nil {
			break
		}
		rule := &due[i]

		ok, err := r.claim(ctx, rule, now, staleBefore)
		if err != nil {
			return summary, err
		}
		if !ok {
			summary.Skipped++
			continue
		}
		summary.Claimed++
		r.count(ctx, r.claimed, rule)

		err = r.execute(ctx, rule, now)
		switch {
		case err == nil:
			summary.Succeeded++
			r.count(ctx, r.succeeded, rule)
		case errors.Is(err, errLostClaim):
			r.Log.WarnContext(ctx, "automation rule was reclaimed while running", "rule_id", rule.ID)
			summary.Skipped++
		default:
			summary.Failed++
			r.count(ctx, r.failed, rule)
			r.Log.ErrorContext(ctx, "automation rule failed", "rule_id", rule.ID, "type", rule.Type, "error", err)
			if ferr := r.recordFailure(ctx, rule, now, err); ferr != nil {
				return summary, ferr
			}
		}
	}
	return summary, nil
}

// claim moves a rule to running if nobody else got there first.
func (r *AutomationRunner) claim(ctx context.Context, rule *models.AutomationRule, now, staleBefore time.Time) (bool, error) {
	q := r.DB.WithContext(ctx).Model(&models.AutomationRule{}).Where("id = ?", rule.ID)
	if rule.Status == models.RuleRunning {
		q = q.Where("status = ? AND claimed_at <= ?", models.RuleRunning, staleBefore)
	} else {
		q = q.Where("status = ?", models.RulePending)
	}

	res := q.Updates(map[string]interface{}{
		"status":     models.RuleRunning,
		"claimed_by": r.config.ID,
		"claimed_at": now,
	})
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim automation rule %d: %w", rule.ID, res.Error)
	}
	if res.RowsAffected != 1 {
		return false, nil
	}

	if rule.Status == models.RuleRunning {
		r.Log.WarnContext(ctx, "reclaimed stale automation rule", "rule_id", rule.ID, "previous_owner", rule.ClaimedBy)
	}
	rule.Status = models.RuleRunning
	rule.ClaimedBy = r.config.ID
	rule.ClaimedAt = &now
	return true, nil
}

// execute runs the action and releases the claim in one transaction. If the
// claim was taken over in the meantime the action's writes are rolled back.
// A claimed rule is always finished, even when ctx is cancelled mid-batch.
func (r *AutomationRunner) execute(ctx context.Context, rule *models.AutomationRule, now time.Time) error {
	return r.DB.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		if err := executeAction(tx, rule); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":      models.RuleDone,
			"run_count":   gorm.Expr("run_count + ?", 1),
			"last_run_at": now,
			"attempts":    0,
			"last_error":  "",
			"claimed_by":  "",
			"claimed_at":  nil,
		}
		if days := followUpInterval(rule); days > 0 {
			updates["status"] = models.RulePending
			updates["run_at"] = nextRun(rule.RunAt, now, days)
		}

		res := tx.Model(&models.AutomationRule{}).
			Where("id = ? AND status = ? AND claimed_by = ?", rule.ID, models.RuleRunning, r.config.ID).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to complete automation rule %d: %w", rule.ID, res.Error)
		}
		if res.RowsAffected != 1 {
			return errLostClaim
		}
		return nil
	})
}

// recordFailure schedules a retry with exponential backoff, or marks the rule
// failed once its attempts are used up. Invalid configs fail right away.
func (r *AutomationRunner) recordFailure(ctx context.Context, rule *models.AutomationRule, now time.Time, cause error) error {
	attempts := rule.Attempts + 1
	updates := map[string]interface{}{
		"attempts":    attempts,
		"last_error":  cause.Error(),
		"last_run_at": now,
		"claimed_by":  "",
		"claimed_at":  nil,
	}
	if attempts >= r.config.MaxAttempts || errors.Is(cause, ErrInvalidConfig) {
		updates["status"] = models.RuleFailed
	} else {
		updates["status"] = models.RulePending
		updates["run_at"] = now.Add(r.backoff(attempts))
	}

	// Detached from ctx so a cancelled tick does not leave the rule running until its lease expires.
	res := r.DB.WithContext(context.WithoutCancel(ctx)).Model(&models.AutomationRule{}).
		Where("id = ? AND status = ? AND claimed_by = ?", rule.ID, models.RuleRunning, r.config.ID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to record failure of automation rule %d: %w", rule.ID, res.Error)
	}
	return nil
}

// backoff is Backoff * 2^(attempts-1), capped at one day.
func (r *AutomationRunner) backoff(attempts int) time.Duration {
	d := r.config.Backoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= 24*time.Hour {
			return 24 * time.Hour
		}
	}
	return d
}

// nextRun advances from by whole days until it lies after now.
func nextRun(from, now time.Time, days int) time.Time {
	next := from.AddDate(0, 0, days)
	for !next.After(now) {
		next = next.AddDate(0, 0, days)
	}
	return next
}

func (r *AutomationRunner) count(ctx context.Context, c metric.Int64Counter, rule *models.AutomationRule) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(rule.Type))))
}
