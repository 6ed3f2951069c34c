package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/justsurfingit/jobsearch-hub/internal/models"
	"gorm.io/gorm"
)

// NotificationService reads the in-app notifications written by automation actions.
type NotificationService struct {
	DB  *gorm.DB
	Log *slog.Logger
}

func NewNotificationService(db *gorm.DB, log *slog.Logger) *NotificationService {
	return &NotificationService{DB: db, Log: log}
}

// List returns notifications newest first.
func (s *NotificationService) List(ctx context.Context, unreadOnly bool) ([]models.Notification, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC, id DESC")
	if unreadOnly {
		q = q.Where("read = ?", false)
	}

	var out []models.Notification
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return out, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.DB.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, notFound(err, "notification", id)
	}
	if n.Read {
		return &n, nil
	}
	if err := s.DB.WithContext(ctx).Model(&n).Update("read", true).Error; err != nil {
		return nil, fmt.Errorf("failed to mark notification %d read: %w", id, err)
	}
	n.Read = true
	return &n, nil
}

func createNotification(tx *gorm.DB, n *models.Notification) error {
	if err := tx.Create(n).Error; err != nil {
		return fmt.Errorf("failed to create %s notification: %w", n.Kind, err)
	}
	return nil
}
