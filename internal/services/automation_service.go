package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/justsurfingit/jobsearch-hub/internal/dtos"
	"github.com/justsurfingit/jobsearch-hub/internal/models"
	"gorm.io/gorm"
)

// AutomationService stores automation rules. Execution lives in AutomationRunner.
type AutomationService struct {
	DB  *gorm.DB
	Log *slog.Logger
	Now func() time.Time
}

func NewAutomationService(db *gorm.DB, log *slog.Logger) *AutomationService {
	return &AutomationService{
		DB:  db,
		Log: log,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *AutomationService) CreateRule(ctx context.Context, req *dtos.AutomationRuleRequest) (*models.AutomationRule, error) {
	rule := &models.AutomationRule{
		Name:   req.Name,
		Type:   models.RuleType(req.Type),
		Status: models.RulePending,
	}
	if err := s.prepare(ctx, rule, req); err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, fmt.Errorf("failed to create automation rule: %w", err)
	}
	s.Log.InfoContext(ctx, "automation rule created", "rule_id", rule.ID, "type", rule.Type, "run_at", rule.RunAt)
	return rule, nil
}

// ListRules returns rules ordered by next run. An empty status means all.
func (s *AutomationService) ListRules(ctx context.Context, status string) ([]models.AutomationRule, error) {
	q := s.DB.WithContext(ctx).Order("run_at ASC, id ASC")
	if status != "" {
		switch models.RuleStatus(status) {
		case models.RulePending, models.RuleRunning, models.RuleDone, models.RuleFailed:
		default:
			return nil, invalid("unknown status %q", status)
		}
		q = q.Where("status = ?", status)
	}

	var rules []models.AutomationRule
	if err := q.Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list automation rules: %w", err)
	}
	return rules, nil
}

func (s *AutomationService) GetRule(ctx context.Context, id uint) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	if err := s.DB.WithContext(ctx).First(&rule, id).Error; err != nil {
		return nil, notFound(err, "automation rule", id)
	}
	return &rule, nil
}

// UpdateRule replaces the rule definition and re-arms it. Rules that are
// currently executing cannot be edited.
func (s *AutomationService) UpdateRule(ctx context.Context, id uint, req *dtos.AutomationRuleRequest) (*models.AutomationRule, error) {
	if _, err := s.GetRule(ctx, id); err != nil {
		return nil, err
	}

	rule := &models.AutomationRule{Name: req.Name, Type: models.RuleType(req.Type)}
	if err := s.prepare(ctx, rule, req); err != nil {
		return nil, err
	}

	res := s.DB.WithContext(ctx).Model(&models.AutomationRule{}).
		Where("id = ? AND status <> ?", id, models.RuleRunning).
		Updates(map[string]interface{}{
			"name":       rule.Name,
			"type":       rule.Type,
			"config":     rule.Config,
			"run_at":     rule.RunAt,
			"status":     models.RulePending,
			"attempts":   0,
			"last_error": "",
			"claimed_by": "",
			"claimed_at": nil,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update automation rule %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("rule %d: %w", id, ErrRuleRunning)
	}
	return s.GetRule(ctx, id)
}

func (s *AutomationService) DeleteRule(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.AutomationRule{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete automation rule %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("automation rule %d: %w", id, ErrNotFound)
	}
	return nil
}

// RetryRule puts a rule back in the queue for an immediate run with a fresh
// attempt budget.
func (s *AutomationService) RetryRule(ctx context.Context, id uint) (*models.AutomationRule, error) {
	if _, err := s.GetRule(ctx, id); err != nil {
		return nil, err
	}

	res := s.DB.WithContext(ctx).Model(&models.AutomationRule{}).
		Where("id = ? AND status <> ?", id, models.RuleRunning).
		Updates(map[string]interface{}{
			"status":     models.RulePending,
			"run_at":     s.Now(),
			"attempts":   0,
			"last_error": "",
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to retry automation rule %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("rule %d: %w", id, ErrRuleRunning)
	}
	return s.GetRule(ctx, id)
}

// prepare validates the request and fills the rule's type, config and schedule.
func (s *AutomationService) prepare(ctx context.Context, rule *models.AutomationRule, req *dtos.AutomationRuleRequest) error {
	cfg, err := DecodeConfig(rule.Type, req.Config)
	if err != nil {
		return err
	}
	if jobID := configJobID(cfg); jobID != 0 {
		if err := s.ensureJob(ctx, jobID); err != nil {
			return err
		}
	}

	rule.Config = []byte(req.Config)
	rule.RunAt = s.Now()
	if req.RunAt != nil && !req.RunAt.IsZero() {
		rule.RunAt = req.RunAt.Time
	}
	if rule.Name == "" {
		rule.Name = string(rule.Type)
	}
	return nil
}

func (s *AutomationService) ensureJob(ctx context.Context, jobID uint) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Job{}).Where("id = ?", jobID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up job %d: %w", jobID, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: job %d does not exist", ErrInvalidConfig, jobID)
	}
	return nil
}

func configJobID(cfg any) uint {
	switch c := cfg.(type) {
	case *ApplicationPackageConfig:
		return c.JobID
	case *SubmissionScheduleConfig:
		return c.JobID
	case *FollowUpConfig:
		return c.JobID
	}
	return 0
}
