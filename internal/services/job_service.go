package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/justsurfingit/jobsearch-hub/internal/dtos"
	"github.com/justsurfingit/jobsearch-hub/internal/models"
	"gorm.io/gorm"
)

type JobService struct {
	DB  *gorm.DB
	Log *slog.Logger
}

func NewJobService(db *gorm.DB, log *slog.Logger) *JobService {
	return &JobService{
		DB:  db,
		Log: log,
	}
}

func (s *JobService) CreateJob(ctx context.Context, req *dtos.JobCreationRequest) (*models.Job, error) {
	stage := models.StageApplied
	if req.Stage != "" {
		stage = models.JobStage(req.Stage)
	}
	if !stage.Valid() {
		return nil, invalid("unknown stage %q", req.Stage)
	}

	job := &models.Job{
		Title:       req.Title,
		Description: req.Description,
		JobLink:     req.JobLink,
		Location:    req.Location,
		SalaryRange: req.SalaryRange,
		ResumeLink:  req.ResumeLink,
		TechStack:   req.TechStack,
		Stage:       stage,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := resolveCompany(tx, req.CompanyName)
		if err != nil {
			return err
		}
		job.CompanyID = company.ID
		job.Company = *company
		if err := tx.Omit("Company").Create(job).Error; err != nil {
			return fmt.Errorf("failed to create job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.InfoContext(ctx, "job created", "job_id", job.ID, "company", req.CompanyName, "stage", job.Stage)
	return job, nil
}

// ListJobs returns every job, newest first. An empty stage means all stages.
func (s *JobService) ListJobs(ctx context.Context, stage string) ([]models.Job, error) {
	q := s.DB.WithContext(ctx).Preload("Company").Order("created_at DESC, id DESC")
	if stage != "" {
		if !models.JobStage(stage).Valid() {
			return nil, invalid("unknown stage %q", stage)
		}
		q = q.Where("stage = ?", stage)
	}

	var jobs []models.Job
	if err := q.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func (s *JobService) GetJob(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	if err := s.DB.WithContext(ctx).Preload("Company").First(&job, id).Error; err != nil {
		return nil, notFound(err, "job", id)
	}
	return &job, nil
}

// UpdateJob applies the present fields. A stage change is recorded as a JobEvent.
func (s *JobService) UpdateJob(ctx context.Context, id uint, req *dtos.JobUpdateRequest) (*models.Job, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.JobLink != nil {
		updates["job_link"] = *req.JobLink
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.SalaryRange != nil {
		updates["salary_range"] = *req.SalaryRange
	}
	if req.ResumeLink != nil {
		updates["resume_link"] = *req.ResumeLink
	}

	var newStage models.JobStage
	if req.Stage != nil {
		newStage = models.JobStage(*req.Stage)
		if !newStage.Valid() {
			return nil, invalid("unknown stage %q", *req.Stage)
		}
		if newStage != job.Stage {
			updates["stage"] = newStage
		}
	}

	if len(updates) == 0 && req.TechStack == nil {
		return job, nil
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Job{ID: job.ID}).Updates(updates).Error; err != nil {
				return err
			}
		}
		// Struct update so the json serializer applies.
		if req.TechStack != nil {
			err := tx.Model(&models.Job{ID: job.ID}).Select("tech_stack").Updates(&models.Job{TechStack: req.TechStack}).Error
			if err != nil {
				return err
			}
		}
		if _, ok := updates["stage"]; ok {
			return recordStageChange(tx, job.ID, job.Stage, newStage, "manual update")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update job %d: %w", id, err)
	}

	return s.GetJob(ctx, id)
}

func (s *JobService) DeleteJob(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.Job{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete job %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListEvents returns the audit log of a job, oldest first.
func (s *JobService) ListEvents(ctx context.Context, jobID uint) ([]models.JobEvent, error) {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	var events []models.JobEvent
	if err := s.DB.WithContext(ctx).Where("job_id = ?", jobID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events for job %d: %w", jobID, err)
	}
	return events, nil
}

func recordStageChange(tx *gorm.DB, jobID uint, from, to models.JobStage, reason string) error {
	return tx.Create(&models.JobEvent{
		JobID:     jobID,
		EventType: models.EventStageChange,
		Details:   fmt.Sprintf("Stage changed from %s to %s (%s)", from, to, reason),
	}).Error
}
