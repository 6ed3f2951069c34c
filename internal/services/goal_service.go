package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/justsurfingit/jobsearch-hub/internal/dtos"
	"github.com/justsurfingit/jobsearch-hub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GoalService manages SMART goals and their milestones.
type GoalService struct {
	DB  *gorm.DB
	Log *slog.Logger
	Now func() time.Time
}

func NewGoalService(db *gorm.DB, log *slog.Logger) *GoalService {
	return &GoalService{
		DB:  db,
		Log: log,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *GoalService) CreateGoal(ctx context.Context, req *dtos.GoalCreationRequest) (*models.Goal, error) {
	if req.Deadline == nil || req.Deadline.IsZero() {
		return nil, invalid("deadline is required")
	}
	if req.LinkedJobID != nil {
		if err := s.ensureJob(ctx, *req.LinkedJobID); err != nil {
			return nil, err
		}
	}

	goal := &models.Goal{
		Specific:    req.Specific,
		Measurable:  req.Measurable,
		Achievable:  req.Achievable,
		Relevant:    req.Relevant,
		Deadline:    req.Deadline.Time,
		LinkedJobID: req.LinkedJobID,
	}
	for _, m := range req.Milestones {
		if m.Deadline == nil || m.Deadline.IsZero() {
			return nil, invalid("milestone %q needs a deadline", m.Title)
		}
		goal.Milestones = append(goal.Milestones, models.Milestone{
			Title:    m.Title,
			Deadline: m.Deadline.Time,
		})
	}

	if err := s.DB.WithContext(ctx).Create(goal).Error; err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}
	models.SortMilestones(goal.Milestones)

	s.Log.InfoContext(ctx, "goal created", "goal_id", goal.ID, "milestones", len(goal.Milestones))
	return goal, nil
}

// ListGoals returns every goal with its milestones in chronological order.
func (s *GoalService) ListGoals(ctx context.Context) ([]models.Goal, error) {
	var goals []models.Goal
	err := s.DB.WithContext(ctx).
		Preload("Milestones", orderMilestones).
		Order("id ASC").
		Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return goals, nil
}

func (s *GoalService) GetGoal(ctx context.Context, id uint) (*models.Goal, error) {
	var goal models.Goal
	if err := s.DB.WithContext(ctx).Preload("Milestones", orderMilestones).First(&goal, id).Error; err != nil {
		return nil, notFound(err, "goal", id)
	}
	return &goal, nil
}

func (s *GoalService) UpdateGoal(ctx context.Context, id uint, req *dtos.GoalUpdateRequest) (*models.Goal, error) {
	if _, err := s.GetGoal(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Specific != nil {
		updates["specific"] = *req.Specific
	}
	if req.Measurable != nil {
		updates["measurable"] = *req.Measurable
	}
	if req.Achievable != nil {
		updates["achievable"] = *req.Achievable
	}
	if req.Relevant != nil {
		updates["relevant"] = *req.Relevant
	}
	if req.Deadline != nil && !req.Deadline.IsZero() {
		updates["deadline"] = req.Deadline.Time
	}
	switch {
	case req.UnlinkJob:
		updates["linked_job_id"] = nil
	case req.LinkedJobID != nil:
		if err := s.ensureJob(ctx, *req.LinkedJobID); err != nil {
			return nil, err
		}
		updates["linked_job_id"] = *req.LinkedJobID
	}

	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.Goal{ID: id}).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update goal %d: %w", id, err)
		}
	}
	return s.GetGoal(ctx, id)
}

// DeleteGoal removes the goal together with its milestones.
func (s *GoalService) DeleteGoal(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Goal{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete goal %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("goal %d: %w", id, ErrNotFound)
		}
		return tx.Where("goal_id = ?", id).Delete(&models.Milestone{}).Error
	})
}

func (s *GoalService) AddMilestone(ctx context.Context, goalID uint, req *dtos.MilestoneRequest) (*models.Goal, error) {
	if req.Deadline == nil || req.Deadline.IsZero() {
		if _, err := s.GetGoal(ctx, goalID); err != nil {
			return nil, err
		}
		return nil, invalid("milestone deadline is required")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		milestones, err := lockMilestones(tx, goalID)
		if err != nil {
			return err
		}
		m := models.Milestone{GoalID: goalID, Title: req.Title, Deadline: req.Deadline.Time}

		// The new row gets the highest id, so it sorts last among equal deadlines.
		candidate := m
		candidate.ID = ^uint(0)
		if err := checkMilestoneOrder(append(milestones, candidate)); err != nil {
			return err
		}
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("failed to add milestone to goal %d: %w", goalID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetGoal(ctx, goalID)
}

func (s *GoalService) UpdateMilestone(ctx context.Context, goalID, milestoneID uint, req *dtos.MilestoneUpdateRequest) (*models.Goal, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		milestones, err := lockMilestones(tx, goalID)
		if err != nil {
			return err
		}
		idx := findMilestone(milestones, milestoneID)
		if idx < 0 {
			return fmt.Errorf("milestone %d of goal %d: %w", milestoneID, goalID, ErrNotFound)
		}

		updates := map[string]interface{}{}
		if req.Title != nil {
			updates["title"] = *req.Title
			milestones[idx].Title = *req.Title
		}
		if req.Deadline != nil && !req.Deadline.IsZero() {
			updates["deadline"] = req.Deadline.Time
			milestones[idx].Deadline = req.Deadline.Time
		}
		if len(updates) == 0 {
			return nil
		}
		if err := checkMilestoneOrder(milestones); err != nil {
			return err
		}
		if err := tx.Model(&models.Milestone{ID: milestoneID}).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update milestone %d: %w", milestoneID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetGoal(ctx, goalID)
}

func (s *GoalService) DeleteMilestone(ctx context.Context, goalID, milestoneID uint) (*models.Goal, error) {
	res := s.DB.WithContext(ctx).Where("goal_id = ?", goalID).Delete(&models.Milestone{}, milestoneID)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to delete milestone %d: %w", milestoneID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("milestone %d of goal %d: %w", milestoneID, goalID, ErrNotFound)
	}
	return s.GetGoal(ctx, goalID)
}

// ToggleMilestone completes or re-opens a milestone. A nil target flips the
// current state. Milestones complete strictly in chronological order: every
// earlier milestone must be done before a later one can be completed, and a
// milestone can only be re-opened while every later one is still open.
func (s *GoalService) ToggleMilestone(ctx context.Context, goalID, milestoneID uint, target *bool) (*models.Goal, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		milestones, err := lockMilestones(tx, goalID)
		if err != nil {
			return err
		}

		idx := findMilestone(milestones, milestoneID)
		if idx < 0 {
			return fmt.Errorf("milestone %d of goal %d: %w", milestoneID, goalID, ErrNotFound)
		}
		current := milestones[idx]

		complete := !current.Completed
		if target != nil {
			complete = *target
		}
		if complete == current.Completed {
			return nil
		}
		if err := checkToggleOrder(milestones, idx, complete); err != nil {
			return err
		}

		updates := map[string]interface{}{"completed": complete, "completed_at": nil}
		if complete {
			updates["completed_at"] = s.Now()
		}
		return tx.Model(&models.Milestone{ID: current.ID}).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	goal, err := s.GetGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	s.Log.InfoContext(ctx, "milestone toggled", "goal_id", goalID, "milestone_id", milestoneID, "progress", goal.Progress())
	return goal, nil
}

// checkToggleOrder validates a state change of ordered[idx].
func checkToggleOrder(ordered []models.Milestone, idx int, complete bool) error {
	if complete {
		for _, prev := range ordered[:idx] {
			if !prev.Completed {
				return fmt.Errorf("%w: %q is still open", ErrMilestoneOutOfOrder, prev.Title)
			}
		}
		return nil
	}
	for _, next := range ordered[idx+1:] {
		if next.Completed {
			return fmt.Errorf("%w: %q is already completed", ErrMilestoneOutOfOrder, next.Title)
		}
	}
	return nil
}

// checkMilestoneOrder rejects a milestone set where an open milestone has an
// earlier deadline than a completed one.
func checkMilestoneOrder(ms []models.Milestone) error {
	models.SortMilestones(ms)
	var open *models.Milestone
	for i := range ms {
		switch {
		case !ms[i].Completed && open == nil:
			open = &ms[i]
		case ms[i].Completed && open != nil:
			return fmt.Errorf("%w: %q would come before completed %q", ErrMilestoneOutOfOrder, open.Title, ms[i].Title)
		}
	}
	return nil
}

// lockMilestones locks the goal row and returns its milestones sorted by
// deadline. Every milestone write takes the goal lock first, so concurrent
// changes to one goal run one after another.
func lockMilestones(tx *gorm.DB, goalID uint) ([]models.Milestone, error) {
	forUpdate := clause.Locking{Strength: "UPDATE"}
	var goal models.Goal
	if err := tx.Clauses(forUpdate).Select("id").First(&goal, goalID).Error; err != nil {
		return nil, notFound(err, "goal", goalID)
	}
	var milestones []models.Milestone
	if err := tx.Clauses(forUpdate).Where("goal_id = ?", goalID).Find(&milestones).Error; err != nil {
		return nil, fmt.Errorf("failed to load milestones of goal %d: %w", goalID, err)
	}
	models.SortMilestones(milestones)
	return milestones, nil
}

func (s *GoalService) ensureJob(ctx context.Context, jobID uint) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Job{}).Where("id = ?", jobID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up job %d: %w", jobID, err)
	}
	if count == 0 {
		return invalid("linked job %d does not exist", jobID)
	}
	return nil
}

func findMilestone(ms []models.Milestone, id uint) int {
	for i := range ms {
		if ms[i].ID == id {
			return i
		}
	}
	return -1
}

func orderMilestones(db *gorm.DB) *gorm.DB {
	return db.Order("deadline ASC, id ASC")
}

// Insights loads every goal and job and runs ComputeInsights over them.
func (s *GoalService) Insights(ctx context.Context) (GoalInsights, error) {
	goals, err := s.ListGoals(ctx)
	if err != nil {
		return GoalInsights{}, err
	}
	var jobs []models.Job
	if err := s.DB.WithContext(ctx).Select("id", "stage").Find(&jobs).Error; err != nil {
		return GoalInsights{}, fmt.Errorf("failed to load jobs for insights: %w", err)
	}
	return ComputeInsights(goals, jobs), nil
}
