package dtos

import "encoding/json"

type AutomationRuleRequest struct {
	Name   string          `json:"name"`
	Type   string          `json:"type" binding:"required,oneof=application_package submission_schedule follow_up template_response checklist"`
	Config json.RawMessage `json:"config" binding:"required"`

	// RunAt schedules the rule; when absent the rule runs once, immediately.
	RunAt *FlexTime `json:"run_at"`
}
