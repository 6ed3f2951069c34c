package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidConfig       = errors.New("invalid automation config")
	ErrMilestoneOutOfOrder = errors.New("milestones must be completed in chronological order")
	ErrRunInProgress       = errors.New("an automation run is already in progress")
	ErrRuleRunning         = errors.New("automation rule is running")
)

// notFound turns gorm's missing-record error into ErrNotFound and wraps everything else.
func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %d: %w", what, id, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
