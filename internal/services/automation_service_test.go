package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/justsurfingit/jobsearch-hub/internal/dtos"
	"github.com/justsurfingit/jobsearch-hub/internal/logger"
	"github.com/justsurfingit/jobsearch-hub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newAutomationService(db *gorm.DB) *AutomationService {
	svc := NewAutomationService(db, logger.Discard())
	svc.Now = func() time.Time { return baseTime }
	return svc
}

func createTestJob(t *testing.T, db *gorm.DB, stage string) *models.Job {
	t.Helper()
	job, err := NewJobService(db, logger.Discard()).CreateJob(context.Background(), &dtos.JobCreationRequest{
		CompanyName: "Globex",
		Title:       "Platform Engineer",
		Stage:       stage,
	})
	require.NoError(t, err)
	return job
}

func ruleRequest(ruleType models.RuleType, config string) *dtos.AutomationRuleRequest {
	return &dtos.AutomationRuleRequest{Type: string(ruleType), Config: json.RawMessage(config)}
}

func TestAutomationService_CreateRule(t *testing.T) {
	db := newTestDB(t)
	svc := newAutomationService(db)
	ctx := context.Background()
	job := createTestJob(t, db, "applied")

	rule, err := svc.CreateRule(ctx, ruleRequest(models.RuleFollowUp, `{"jobId": `+itoa(job.ID)+`, "interval": 3}`))
	require.NoError(t, err)
	assert.Equal(t, models.RulePending, rule.Status)
	assert.Equal(t, "follow_up", rule.Name)
	assert.True(t, rule.RunAt.Equal(baseTime), "missing run_at means now")

	req := ruleRequest(models.RuleChecklist, `{"items": [{"label": "resume"}]}`)
	req.Name = "Before applying"
	req.RunAt = dtos.NewFlexTime(baseTime.Add(48 * time.Hour))
	scheduled, err := svc.CreateRule(ctx, req)
	require.NoError(t, err)
	assert.True(t, scheduled.RunAt.Equal(baseTime.Add(48*time.Hour)))

	rules, err := svc.ListRules(ctx, "")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, rule.ID, rules[0].ID)
}

func TestAutomationService_CreateRuleRejectsBadConfig(t *testing.T) {
	svc := newAutomationService(newTestDB(t))
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, ruleRequest(models.RuleFollowUp, `{"interval": 3}`))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = svc.CreateRule(ctx, ruleRequest(models.RuleSubmissionSchedule, `{"jobId": 77}`))
	assert.ErrorIs(t, err, ErrInvalidConfig, "job must exist")

	_, err = svc.ListRules(ctx, "sleeping")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAutomationService_UpdateRearmsRule(t *testing.T) {
	db := newTestDB(t)
	svc := newAutomationService(db)
	ctx := context.Background()

	rule, err := svc.CreateRule(ctx, ruleRequest(models.RuleChecklist, `{"items": [{"label": "a"}]}`))
	require.NoError(t, err)
	require.NoError(t, db.Model(rule).Updates(map[string]interface{}{
		"status": models.RuleFailed, "attempts": 5, "last_error": "boom",
	}).Error)

	updated, err := svc.UpdateRule(ctx, rule.ID, ruleRequest(models.RuleChecklist, `{"items": [{"label": "b"}]}`))
	require.NoError(t, err)
	assert.Equal(t, models.RulePending, updated.Status)
	assert.Zero(t, updated.Attempts)
	assert.Empty(t, updated.LastError)
	assert.JSONEq(t, `{"items": [{"label": "b"}]}`, string(updated.Config))

	require.NoError(t, db.Model(rule).Update("status", models.RuleRunning).Error)
	_, err = svc.UpdateRule(ctx, rule.ID, ruleRequest(models.RuleChecklist, `{"items": [{"label": "c"}]}`))
	assert.ErrorIs(t, err, ErrRuleRunning)

	_, err = svc.UpdateRule(ctx, 999, ruleRequest(models.RuleChecklist, `{"items": [{"label": "c"}]}`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAutomationService_RetryAndDelete(t *testing.T) {
	db := newTestDB(t)
	svc := newAutomationService(db)
	ctx := context.Background()

	req := ruleRequest(models.RuleChecklist, `{"items": [{"label": "a"}]}`)
	req.RunAt = dtos.NewFlexTime(baseTime.Add(-time.Hour))
	rule, err := svc.CreateRule(ctx, req)
	require.NoError(t, err)
	require.NoError(t, db.Model(rule).Updates(map[string]interface{}{
		"status": models.RuleFailed, "attempts": 5, "last_error": "boom",
	}).Error)

	retried, err := svc.RetryRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RulePending, retried.Status)
	assert.Zero(t, retried.Attempts)
	assert.True(t, retried.RunAt.Equal(baseTime))

	require.NoError(t, svc.DeleteRule(ctx, rule.ID))
	_, err = svc.GetRule(ctx, rule.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteRule(ctx, rule.ID), ErrNotFound)
	_, err = svc.RetryRule(ctx, rule.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
