package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/justsurfingit/jobsearch-hub/internal/models"
)

var configValidate = validator.New(validator.WithRequiredStructEnabled())

type ApplicationPackageConfig struct {
	JobID         uint     `json:"jobId" validate:"required"`
	ResumeID      string   `json:"resumeId"`
	CoverLetterID string   `json:"coverLetterId"`
	PortfolioURLs []string `json:"portfolioUrls" validate:"dive,url"`
}

type SubmissionScheduleConfig struct {
	JobID uint   `json:"jobId" validate:"required"`
	Notes string `json:"notes"`
}

// FollowUpConfig repeats every Interval days when Interval > 0.
type FollowUpConfig struct {
	JobID    uint   `json:"jobId" validate:"required"`
	Interval int    `json:"interval" validate:"gte=0"`
	Message  string `json:"message"`
}

type TemplateResponseConfig struct {
	Question      string `json:"question" validate:"required"`
	Answer        string `json:"answer" validate:"required"`
	ResumeID      string `json:"resumeId"`
	CoverletterID string `json:"coverletterId"`
}

type ChecklistItem struct {
	Label string `json:"label" validate:"required"`
	Done  bool   `json:"done"`
}

type ChecklistConfig struct {
	Items []ChecklistItem `json:"items" validate:"required,min=1,dive"`
}

// DecodeConfig parses raw into the config struct matching ruleType and validates it.
// Unknown fields are rejected so a typo does not silently drop a setting.
func DecodeConfig(ruleType models.RuleType, raw []byte) (any, error) {
	var cfg any
	switch ruleType {
	case models.RuleApplicationPackage:
		cfg = &ApplicationPackageConfig{}
	case models.RuleSubmissionSchedule:
		cfg = &SubmissionScheduleConfig{}
	case models.RuleFollowUp:
		cfg = &FollowUpConfig{}
	case models.RuleTemplateResponse:
		cfg = &TemplateResponseConfig{}
	case models.RuleChecklist:
		cfg = &ChecklistConfig{}
	default:
		return nil, fmt.Errorf("%w: unknown rule type %q", ErrInvalidConfig, ruleType)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	if err := configValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, describeValidation(err))
	}
	return cfg, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

// followUpInterval returns the repeat interval in days of a follow_up rule, 0 otherwise.
func followUpInterval(rule *models.AutomationRule) int {
	if rule.Type != models.RuleFollowUp {
		return 0
	}
	cfg, err := DecodeConfig(rule.Type, rule.Config)
	if err != nil {
		return 0
	}
	return cfg.(*FollowUpConfig).Interval
}
