// Package notifications stores user notifications, streams them live and runs the reminder jobs.
package notifications

import (
	"context"
	"strings"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/metrics"
	"medconnect-server/internal/models"
)

// DefaultListLimit caps list responses when the caller gives no limit.
const DefaultListLimit = 50

// Repository is the persistence used by Service.
type Repository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	MarkNotificationRead(ctx context.Context, recipientID, id string) error
	MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error)
	DeleteNotification(ctx context.Context, recipientID, id string) error
}

// Service creates notifications on behalf of other workflows and serves the recipient's inbox.
type Service struct {
	repo        Repository
	broadcaster *Broadcaster
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

func NewService(repo Repository, broadcaster *Broadcaster, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{repo: repo, broadcaster: broadcaster, metrics: m, logger: log}
}

// Notify persists n and pushes it to live subscribers.
func (s *Service) Notify(ctx context.Context, n *models.Notification) error {
	if n.RecipientID == "" && n.RecipientEmail == "" {
		return apperr.Validation("notification needs a recipient")
	}
	if strings.TrimSpace(n.Title) == "" {
		return apperr.Validation("notification title is required")
	}
	if n.Type == "" {
		n.Type = models.NotificationSystem
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return err
	}
	s.Announce(*n)
	return nil
}

// Announce pushes an already persisted notification, e.g. one written
// inside another workflow's transaction, to live subscribers.
func (s *Service) Announce(n models.Notification) {
	s.metrics.NotificationCreated(string(n.Type))
	if s.broadcaster != nil {
		s.broadcaster.Publish(n)
	}
}

// NotifyBestEffort is Notify for side effects that must not fail the caller.
func (s *Service) NotifyBestEffort(ctx context.Context, n *models.Notification) {
	if err := s.Notify(ctx, n); err != nil {
		s.logger.WithComponent("notifications").WithError(err).
			WithField("recipient_id", n.RecipientID).
			WithField("type", n.Type).
			Warn("Failed to create notification")
	}
}

func (s *Service) List(ctx context.Context, actor models.Actor, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = DefaultListLimit
	}
	return s.repo.ListNotifications(ctx, actor.ID, unreadOnly, limit)
}

func (s *Service) UnreadCount(ctx context.Context, actor models.Actor) (int64, error) {
	return s.repo.CountUnread(ctx, actor.ID)
}

func (s *Service) MarkRead(ctx context.Context, actor models.Actor, id string) error {
	return s.repo.MarkNotificationRead(ctx, actor.ID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	return s.repo.MarkAllNotificationsRead(ctx, actor.ID)
}

func (s *Service) Delete(ctx context.Context, actor models.Actor, id string) error {
	return s.repo.DeleteNotification(ctx, actor.ID, id)
}

// Subscribe opens a live stream for the actor.
func (s *Service) Subscribe(actor models.Actor) (<-chan models.Notification, func()) {
	return s.broadcaster.Subscribe(actor.ID)
}
