package models

import (
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Company struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name string `gorm:"uniqueIndex;not null" json:"company_name"`

	// 'omitempty' prevents infinite loops when fetching a Job -> Company -> Jobs -> ...
	Jobs []Job `json:"jobs,omitempty"`
}

// JobStage is where an application currently stands.
type JobStage string

const (
	StageSaved       JobStage = "saved"
	StageApplied     JobStage = "applied"
	StagePhoneScreen JobStage = "phone-screen"
	StageInterview   JobStage = "interview"
	StageOffer       JobStage = "offer"
	StageRejected    JobStage = "rejected"
	StageWithdrawn   JobStage = "withdrawn"
)

// JobStages lists every valid stage in pipeline order.
var JobStages = []JobStage{
	StageSaved, StageApplied, StagePhoneScreen, StageInterview, StageOffer, StageRejected, StageWithdrawn,
}

// Valid reports whether s is a known stage.
func (s JobStage) Valid() bool {
	for _, st := range JobStages {
		if s == st {
			return true
		}
	}
	return false
}

// ReachedInterview is true for stages at or past the interview round.
func (s JobStage) ReachedInterview() bool {
	return s == StageInterview || s == StageOffer
}

type Job struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Foreign Key
	CompanyID uint `json:"company_id"`
	// Association: GORM needs Preload() to fill this
	Company Company `json:"company"`

	Title       string   `gorm:"not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	JobLink     string   `json:"job_link"`
	Location    string   `json:"location"`
	SalaryRange string   `json:"salary_range"`
	Stage       JobStage `gorm:"default:'applied';index" json:"stage"`
	ResumeLink  string   `json:"resume_link"`
	TechStack   []string `gorm:"serializer:json;type:text" json:"tech_stack"`
}

// Job event types written to the audit log.
const (
	EventStageChange        = "STAGE_CHANGE"
	EventApplicationPackage = "APPLICATION_PACKAGE"
	EventSubmitted          = "SUBMITTED"
)

type JobEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	JobID     uint      `gorm:"index" json:"job_id"`
	EventType string    `json:"event_type"`
	Details   string    `gorm:"type:text" json:"details"`
}

// Goal is a SMART goal broken down into dated milestones.
type Goal struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Specific    string      `gorm:"type:text;not null" json:"specific"`
	Measurable  string      `gorm:"type:text" json:"measurable"`
	Achievable  bool        `json:"achievable"`
	Relevant    bool        `json:"relevant"`
	Deadline    time.Time   `json:"deadline"`
	LinkedJobID *uint       `gorm:"index" json:"linked_job_id,omitempty"`
	Milestones  []Milestone `gorm:"constraint:OnDelete:CASCADE" json:"milestones"`
}

// Milestone is a short-term goal: a sub-deadline inside a Goal.
type Milestone struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	GoalID      uint       `gorm:"index;not null" json:"goal_id"`
	Title       string     `gorm:"not null" json:"title"`
	Deadline    time.Time  `json:"deadline"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GoalProgress is derived from the milestone states.
type GoalProgress string

const (
	ProgressNotStarted GoalProgress = "not_started"
	ProgressInProgress GoalProgress = "in_progress"
	ProgressCompleted  GoalProgress = "completed"
)

// SortMilestones orders milestones by deadline, ties broken by id.
func SortMilestones(ms []Milestone) {
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].Deadline.Equal(ms[j].Deadline) {
			return ms[i].Deadline.Before(ms[j].Deadline)
		}
		return ms[i].ID < ms[j].ID
	})
}

// OrderedMilestones returns a sorted copy of the goal's milestones.
func (g *Goal) OrderedMilestones() []Milestone {
	ms := make([]Milestone, len(g.Milestones))
	copy(ms, g.Milestones)
	SortMilestones(ms)
	return ms
}

// IsCompleted is true when the goal has milestones and all of them are done.
func (g *Goal) IsCompleted() bool {
	if len(g.Milestones) == 0 {
		return false
	}
	for _, m := range g.Milestones {
		if !m.Completed {
			return false
		}
	}
	return true
}

// Progress derives the goal state from its milestones.
func (g *Goal) Progress() GoalProgress {
	if g.IsCompleted() {
		return ProgressCompleted
	}
	for _, m := range g.Milestones {
		if m.Completed {
			return ProgressInProgress
		}
	}
	return ProgressNotStarted
}

// RuleType discriminates AutomationRule.Config.
type RuleType string

const (
	RuleApplicationPackage RuleType = "application_package"
	RuleSubmissionSchedule RuleType = "submission_schedule"
	RuleFollowUp           RuleType = "follow_up"
	RuleTemplateResponse   RuleType = "template_response"
	RuleChecklist          RuleType = "checklist"
)

// RuleStatus is the execution state of an AutomationRule.
type RuleStatus string

const (
	RulePending RuleStatus = "pending"
	RuleRunning RuleStatus = "running"
	RuleDone    RuleStatus = "done"
	RuleFailed  RuleStatus = "failed"
)

// AutomationRule is a stored trigger-action pair executed once RunAt has passed.
type AutomationRule struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name   string         `json:"name"`
	Type   RuleType       `gorm:"not null;index" json:"type"`
	Config datatypes.JSON `json:"config"`
	RunAt  time.Time      `gorm:"index" json:"run_at"`

	Status    RuleStatus `gorm:"default:'pending';index" json:"status"`
	Attempts  int        `json:"attempts"`
	RunCount  int        `json:"run_count"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastError string     `gorm:"type:text" json:"last_error,omitempty"`
	ClaimedBy string     `json:"claimed_by,omitempty"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// Notification kinds produced by automation actions.
const (
	NotificationReminder         = "reminder"
	NotificationPackage          = "application_package"
	NotificationSubmission       = "submission"
	NotificationTemplateResponse = "template_response"
	NotificationChecklist        = "checklist"
)

type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	RuleID    uint      `gorm:"index" json:"rule_id"`
	JobID     *uint     `json:"job_id,omitempty"`
	Kind      string    `gorm:"index" json:"kind"`
	Title     string    `json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	Read      bool      `gorm:"index" json:"read"`
}

// Availability of a reference for new requests.
type Availability string

const (
	Available   Availability = "available"
	Limited     Availability = "limited"
	Unavailable Availability = "unavailable"
)

// Reference is someone who can vouch for the user.
type Reference struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name               string       `gorm:"not null" json:"name"`
	Email              string       `json:"email"`
	Company            string       `json:"company"`
	Relationship       string       `json:"relationship"`
	Tags               []string     `gorm:"serializer:json;type:text" json:"tags"`
	UsageCount         int          `json:"usage_count"`
	SuccessCount       int          `json:"success_count"`
	AvailabilityStatus Availability `gorm:"default:'available'" json:"availability_status"`

	RelationshipHistory []ReferenceContact `gorm:"constraint:OnDelete:CASCADE" json:"relationship_history,omitempty"`
}

// Contact kinds and outcomes for the relationship history.
const (
	ContactEmail   = "email"
	ContactCall    = "call"
	ContactMeeting = "meeting"
	ContactRequest = "request"

	OutcomeSuccess  = "success"
	OutcomeDeclined = "declined"
	OutcomePending  = "pending"
)

// ReferenceContact is one append-only relationship history entry.
type ReferenceContact struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	ReferenceID uint      `gorm:"index;not null" json:"reference_id"`
	Kind        string    `json:"kind"`
	Note        string    `gorm:"type:text" json:"note"`
	Outcome     string    `json:"outcome,omitempty"`
	ContactedAt time.Time `json:"contacted_at"`
}

// All returns every model for migrations.
func All() []any {
	return []any{
		&Company{}, &Job{}, &JobEvent{},
		&Goal{}, &Milestone{},
		&AutomationRule{}, &Notification{},
		&Reference{}, &ReferenceContact{},
	}
}
