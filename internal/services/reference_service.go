package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/justsurfingit/jobsearch-hub/internal/dtos"
	"github.com/justsurfingit/jobsearch-hub/internal/models"
	"gorm.io/gorm"
)

// ReferenceService manages references, their relationship history and the portfolio ranking.
type ReferenceService struct {
	DB         *gorm.DB
	Log        *slog.Logger
	Summarizer ReferenceSummarizer // optional
	Now        func() time.Time
}

func NewReferenceService(db *gorm.DB, log *slog.Logger, summarizer ReferenceSummarizer) *ReferenceService {
	return &ReferenceService{
		DB:         db,
		Log:        log,
		Summarizer: summarizer,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReferenceService) CreateReference(ctx context.Context, req *dtos.ReferenceRequest) (*models.Reference, error) {
	ref := &models.Reference{
		Name:               req.Name,
		Email:              req.Email,
		Company:            req.Company,
		Relationship:       req.Relationship,
		Tags:               normalizeTags(req.Tags),
		AvailabilityStatus: models.Available,
	}
	if req.AvailabilityStatus != "" {
		ref.AvailabilityStatus = models.Availability(req.AvailabilityStatus)
	}

	if err := s.DB.WithContext(ctx).Create(ref).Error; err != nil {
		return nil, fmt.Errorf("failed to create reference: %w", err)
	}
	return ref, nil
}

func (s *ReferenceService) ListReferences(ctx context.Context) ([]models.Reference, error) {
	var refs []models.Reference
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&refs).Error; err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	return refs, nil
}

// GetReference loads a reference with its full relationship history.
func (s *ReferenceService) GetReference(ctx context.Context, id uint) (*models.Reference, error) {
	var ref models.Reference
	err := s.DB.WithContext(ctx).
		Preload("RelationshipHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("contacted_at ASC, id ASC")
		}).
		First(&ref, id).Error
	if err != nil {
		return nil, notFound(err, "reference", id)
	}
	return &ref, nil
}

func (s *ReferenceService) UpdateReference(ctx context.Context, id uint, req *dtos.ReferenceUpdateRequest) (*models.Reference, error) {
	ref, err := s.GetReference(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		ref.Name = *req.Name
	}
	if req.Email != nil {
		ref.Email = *req.Email
	}
	if req.Company != nil {
		ref.Company = *req.Company
	}
	if req.Relationship != nil {
		ref.Relationship = *req.Relationship
	}
	if req.Tags != nil {
		ref.Tags = normalizeTags(*req.Tags)
	}
	if req.AvailabilityStatus != nil {
		ref.AvailabilityStatus = models.Availability(*req.AvailabilityStatus)
	}

	// Save would also write the history; it is append-only and lives in its own table.
	err = s.DB.WithContext(ctx).Model(ref).
		Select("name", "email", "company", "relationship", "tags", "availability_status").
		Updates(ref).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update reference %d: %w", id, err)
	}
	return s.GetReference(ctx, id)
}

func (s *ReferenceService) DeleteReference(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.Reference{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete reference %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reference %d: %w", id, ErrNotFound)
	}
	return nil
}

// AddContact appends to the relationship history. A "request" entry counts as
// one use of the reference, and a successful request also bumps the success count.
func (s *ReferenceService) AddContact(ctx context.Context, id uint, req *dtos.ContactRequest) (*models.Reference, error) {
	contactedAt := s.Now()
	if req.ContactedAt != nil && !req.ContactedAt.IsZero() {
		contactedAt = req.ContactedAt.Time
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ref models.Reference
		if err := tx.First(&ref, id).Error; err != nil {
			return notFound(err, "reference", id)
		}

		entry := models.ReferenceContact{
			ReferenceID: ref.ID,
			Kind:        req.Kind,
			Note:        req.Note,
			Outcome:     req.Outcome,
			ContactedAt: contactedAt,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		if req.Kind != models.ContactRequest {
			return nil
		}
		counters := map[string]interface{}{"usage_count": gorm.Expr("usage_count + ?", 1)}
		if req.Outcome == models.OutcomeSuccess {
			counters["success_count"] = gorm.Expr("success_count + ?", 1)
		}
		return tx.Model(&models.Reference{ID: ref.ID}).Updates(counters).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetReference(ctx, id)
}

// Portfolio ranks the stored references against goal and returns the top entries.
func (s *ReferenceService) Portfolio(ctx context.Context, goal string, limit int) ([]ScoredReference, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, invalid("goal is required")
	}
	if limit > MaxPortfolioSize {
		limit = MaxPortfolioSize
	}

	refs, err := s.ListReferences(ctx)
	if err != nil {
		return nil, err
	}
	portfolio := ScoreReferences(goal, refs, limit)

	if s.Summarizer != nil {
		for i := range portfolio {
			text, err := s.Summarizer.SummarizeReference(ctx, goal, portfolio[i])
			if err != nil {
				s.Log.WarnContext(ctx, "llm summary failed, keeping template summary",
					"reference_id", portfolio[i].Reference.ID, "error", err)
				continue
			}
			portfolio[i].Summary = text
		}
	}
	return portfolio, nil
}

func normalizeTags(tags []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
