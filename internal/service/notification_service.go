// Package service implements the application's business logic on top of the
// repository layer.
package service

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"
)

// NotificationService creates notifications and pushes them to connected
// clients.
type NotificationService struct {
	notifRepo repository.NotificationRepository
	// publish delivers a notification to the recipient's live connections.
	// Nil means persistence only (tests, workers without a hub).
	publish func(userID uint, n *models.Notification)
}

// NewNotificationService returns a new NotificationService.
func NewNotificationService(notifRepo repository.NotificationRepository, publish func(userID uint, n *models.Notification)) *NotificationService {
	return &NotificationService{notifRepo: notifRepo, publish: publish}
}

// Emit persists a notification and pushes it to the recipient. Self-directed
// notifications are dropped. Emit never fails the calling operation; delivery
// problems are logged and counted.
func (s *NotificationService) Emit(ctx context.Context, n *models.Notification) {
	if n.FromUserID == n.ToUserID {
		return
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "failed to persist notification",
			"type", string(n.Type), "to_user", n.ToUserID, "error", err.Error())
		return
	}
	if s.publish != nil {
		s.publish(n.ToUserID, n)
		observability.NotificationsDelivered.WithLabelValues(string(n.Type)).Inc()
	}
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error) {
	return s.notifRepo.ListByUser(ctx, userID, limit, offset)
}

// UnreadCount returns how many unread notifications the user has.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.notifRepo.UnreadCount(ctx, userID)
}

// MarkRead marks a single notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) error {
	return s.notifRepo.MarkRead(ctx, id, userID)
}

// MarkAllRead marks all of the user's notifications as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.notifRepo.MarkAllRead(ctx, userID)
}
