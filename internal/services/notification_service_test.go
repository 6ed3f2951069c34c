package services

import (
	"context"
	"testing"

	"github.com/justsurfingit/jobsearch-hub/internal/logger"
	"github.com/justsurfingit/jobsearch-hub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_ListAndMarkRead(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, logger.Discard())
	ctx := context.Background()

	first := &models.Notification{Kind: models.NotificationReminder, Title: "first"}
	second := &models.Notification{Kind: models.NotificationChecklist, Title: "second"}
	require.NoError(t, createNotification(db, first))
	require.NoError(t, createNotification(db, second))

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].Title)

	read, err := svc.MarkRead(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	// idempotent
	_, err = svc.MarkRead(ctx, first.ID)
	require.NoError(t, err)

	unread, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, second.ID, unread[0].ID)

	_, err = svc.MarkRead(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
