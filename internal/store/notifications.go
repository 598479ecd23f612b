package store

import (
	"context"
	"time"

	"medconnect-server/internal/models"
)

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return wrap(s.conn(ctx).Create(n).Error, "notification")
}

// ListNotifications returns the recipient's notifications, newest first.
// limit <= 0 means no limit.
func (s *Store) ListNotifications(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	var list []models.Notification
	q := s.conn(ctx).Where("recipient_id = ?", recipientID).Order("created_at desc")
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, wrap(err, "notifications")
	}
	return list, nil
}

func (s *Store) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, wrap(err, "notifications")
}

// MarkNotificationRead marks one notification of recipientID read.
func (s *Store) MarkNotificationRead(ctx context.Context, recipientID, id string) error {
	res := s.conn(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("is_read", true)
	if res.Error != nil {
		return wrap(res.Error, "notification")
	}
	if res.RowsAffected == 0 {
		return wrap(errNotFound, "notification")
	}
	return nil
}

// MarkAllNotificationsRead returns the number of notifications changed.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	res := s.conn(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return res.RowsAffected, wrap(res.Error, "notifications")
}

func (s *Store) DeleteNotification(ctx context.Context, recipientID, id string) error {
	res := s.conn(ctx).Where("id = ? AND recipient_id = ?", id, recipientID).Delete(&models.Notification{})
	if res.Error != nil {
		return wrap(res.Error, "notification")
	}
	if res.RowsAffected == 0 {
		return wrap(errNotFound, "notification")
	}
	return nil
}

// PurgeReadNotifications deletes read notifications created before cutoff.
func (s *Store) PurgeReadNotifications(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.conn(ctx).Where("is_read = ? AND created_at < ?", true, cutoff).Delete(&models.Notification{})
	return res.RowsAffected, wrap(res.Error, "notifications")
}
