package dtos

type MilestoneRequest struct {
	Title    string    `json:"title" binding:"required"`
	Deadline *FlexTime `json:"deadline" binding:"required"`
}

type GoalCreationRequest struct {
	Specific    string             `json:"specific" binding:"required"`
	Measurable  string             `json:"measurable"`
	Achievable  bool               `json:"achievable"`
	Relevant    bool               `json:"relevant"`
	Deadline    *FlexTime          `json:"deadline" binding:"required"`
	LinkedJobID *uint              `json:"linked_job_id"`
	Milestones  []MilestoneRequest `json:"milestones" binding:"dive"`
}

// GoalUpdateRequest only touches the fields that are present.
// Milestones are managed through their own endpoints.
type GoalUpdateRequest struct {
	Specific    *string   `json:"specific" binding:"omitempty,min=1"`
	Measurable  *string   `json:"measurable"`
	Achievable  *bool     `json:"achievable"`
	Relevant    *bool     `json:"relevant"`
	Deadline    *FlexTime `json:"deadline"`
	LinkedJobID *uint     `json:"linked_job_id"`
	UnlinkJob   bool      `json:"unlink_job"`
}

type MilestoneUpdateRequest struct {
	Title    *string   `json:"title" binding:"omitempty,min=1"`
	Deadline *FlexTime `json:"deadline"`
}

// MilestoneToggleRequest sets the completion state explicitly; an empty body flips it.
type MilestoneToggleRequest struct {
	Completed *bool `json:"completed"`
}
