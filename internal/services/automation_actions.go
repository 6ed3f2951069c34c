package services

import (
	"fmt"
	"strings"

	"github.com/justsurfingit/jobsearch-hub/internal/models"
	"gorm.io/gorm"
)

// executeAction runs the side effects of one rule inside tx.
func executeAction(tx *gorm.DB, rule *models.AutomationRule) error {
	cfg, err := DecodeConfig(rule.Type, rule.Config)
	if err != nil {
		return err
	}

	switch c := cfg.(type) {
	case *ApplicationPackageConfig:
		return runApplicationPackage(tx, rule, c)
	case *SubmissionScheduleConfig:
		return runSubmissionSchedule(tx, rule, c)
	case *FollowUpConfig:
		return runFollowUp(tx, rule, c)
	case *TemplateResponseConfig:
		return runTemplateResponse(tx, rule, c)
	case *ChecklistConfig:
		return runChecklist(tx, rule, c)
	}
	return fmt.Errorf("%w: no action for rule type %q", ErrInvalidConfig, rule.Type)
}

func loadJob(tx *gorm.DB, id uint) (*models.Job, error) {
	var job models.Job
	if err := tx.Preload("Company").First(&job, id).Error; err != nil {
		return nil, notFound(err, "job", id)
	}
	return &job, nil
}

func jobLabel(job *models.Job) string {
	if job.Company.Name == "" {
		return job.Title
	}
	return fmt.Sprintf("%s at %s", job.Title, job.Company.Name)
}

func runApplicationPackage(tx *gorm.DB, rule *models.AutomationRule, cfg *ApplicationPackageConfig) error {
	job, err := loadJob(tx, cfg.JobID)
	if err != nil {
		return err
	}

	var parts []string
	if cfg.ResumeID != "" {
		parts = append(parts, "resume "+cfg.ResumeID)
	}
	if cfg.CoverLetterID != "" {
		parts = append(parts, "cover letter "+cfg.CoverLetterID)
	}
	if len(cfg.PortfolioURLs) > 0 {
		parts = append(parts, "portfolio "+strings.Join(cfg.PortfolioURLs, ", "))
	}
	contents := "no documents"
	if len(parts) > 0 {
		contents = strings.Join(parts, "; ")
	}

	event := &models.JobEvent{
		JobID:     job.ID,
		EventType: models.EventApplicationPackage,
		Details:   "Prepared application package: " + contents,
	}
	if err := tx.Create(event).Error; err != nil {
		return fmt.Errorf("failed to record package event for job %d: %w", job.ID, err)
	}

	if job.ResumeLink == "" && cfg.ResumeID != "" {
		if err := tx.Model(&models.Job{ID: job.ID}).Update("resume_link", cfg.ResumeID).Error; err != nil {
			return fmt.Errorf("failed to set resume for job %d: %w", job.ID, err)
		}
	}

	return createNotification(tx, &models.Notification{
		RuleID:  rule.ID,
		JobID:   &job.ID,
		Kind:    models.NotificationPackage,
		Title:   "Application package ready: " + jobLabel(job),
		Message: contents,
	})
}

func runSubmissionSchedule(tx *gorm.DB, rule *models.AutomationRule, cfg *SubmissionScheduleConfig) error {
	job, err := loadJob(tx, cfg.JobID)
	if err != nil {
		return err
	}

	if job.Stage == models.StageSaved {
		if err := tx.Model(&models.Job{ID: job.ID}).Update("stage", models.StageApplied).Error; err != nil {
			return fmt.Errorf("failed to move job %d to applied: %w", job.ID, err)
		}
		if err := recordStageChange(tx, job.ID, models.StageSaved, models.StageApplied, "scheduled submission"); err != nil {
			return err
		}
	}

	details := "Application submitted"
	if cfg.Notes != "" {
		details += ": " + cfg.Notes
	}
	if err := tx.Create(&models.JobEvent{JobID: job.ID, EventType: models.EventSubmitted, Details: details}).Error; err != nil {
		return fmt.Errorf("failed to record submission for job %d: %w", job.ID, err)
	}

	return createNotification(tx, &models.Notification{
		RuleID:  rule.ID,
		JobID:   &job.ID,
		Kind:    models.NotificationSubmission,
		Title:   "Submitted: " + jobLabel(job),
		Message: details,
	})
}

func runFollowUp(tx *gorm.DB, rule *models.AutomationRule, cfg *FollowUpConfig) error {
	job, err := loadJob(tx, cfg.JobID)
	if err != nil {
		return err
	}

	msg := cfg.Message
	if msg == "" {
		msg = fmt.Sprintf("Time to follow up on your application for %s.", jobLabel(job))
	}
	return createNotification(tx, &models.Notification{
		RuleID:  rule.ID,
		JobID:   &job.ID,
		Kind:    models.NotificationReminder,
		Title:   "Follow up: " + jobLabel(job),
		Message: msg,
	})
}

func runTemplateResponse(tx *gorm.DB, rule *models.AutomationRule, cfg *TemplateResponseConfig) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Q: %s\nA: %s", cfg.Question, cfg.Answer)
	if cfg.ResumeID != "" {
		fmt.Fprintf(&b, "\nResume: %s", cfg.ResumeID)
	}
	if cfg.CoverletterID != "" {
		fmt.Fprintf(&b, "\nCover letter: %s", cfg.CoverletterID)
	}

	return createNotification(tx, &models.Notification{
		RuleID:  rule.ID,
		Kind:    models.NotificationTemplateResponse,
		Title:   "Response ready: " + cfg.Question,
		Message: b.String(),
	})
}

func runChecklist(tx *gorm.DB, rule *models.AutomationRule, cfg *ChecklistConfig) error {
	var pending []string
	for _, item := range cfg.Items {
		if !item.Done {
			pending = append(pending, item.Label)
		}
	}
	done := len(cfg.Items) - len(pending)

	msg := fmt.Sprintf("%d of %d items done.", done, len(cfg.Items))
	if len(pending) > 0 {
		msg += " Pending: " + strings.Join(pending, ", ")
	}

	title := "Checklist"
	if rule.Name != "" && rule.Name != string(rule.Type) {
		title += ": " + rule.Name
	}
	return createNotification(tx, &models.Notification{
		RuleID:  rule.ID,
		Kind:    models.NotificationChecklist,
		Title:   title,
		Message: msg,
	})
}
