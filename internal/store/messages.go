package store

import (
	"context"
	"time"

	"medconnect-server/internal/models"
)

func (s *Store) CreateMessage(ctx context.Context, msg *models.ConsultationMessage) error {
	return wrap(s.conn(ctx).Create(msg).Error, "message")
}

// ListMessages returns an appointment's messages oldest first. A non-zero
// since restricts the result to newer messages.
func (s *Store) ListMessages(ctx context.Context, appointmentID string, since time.Time) ([]models.ConsultationMessage, error) {
	var msgs []models.ConsultationMessage
	q := s.conn(ctx).Where("appointment_id = ?", appointmentID).Order("created_at asc")
	if !since.IsZero() {
		q = q.Where("created_at > ?", since)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, wrap(err, "messages")
	}
	return msgs, nil
}

// MarkMessagesRead marks the messages not sent by readerID as read.
func (s *Store) MarkMessagesRead(ctx context.Context, appointmentID, readerID string, at time.Time) error {
	err := s.conn(ctx).Model(&models.ConsultationMessage{}).
		Where("appointment_id = ? AND sender_id <> ? AND read_at IS NULL", appointmentID, readerID).
		Update("read_at", at).Error
	return wrap(err, "messages")
}
