// Package consultation carries the chat between the patient and doctor of an appointment.
package consultation

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
)

// MaxMessageLength bounds a single chat message in characters.
const MaxMessageLength = 4000

type Repository interface {
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	CreateMessage(ctx context.Context, msg *models.ConsultationMessage) error
	ListMessages(ctx context.Context, appointmentID string, since time.Time) ([]models.ConsultationMessage, error)
	MarkMessagesRead(ctx context.Context, appointmentID, readerID string, at time.Time) error
}

type Notifier interface {
	NotifyBestEffort(ctx context.Context, n *models.Notification)
}

type Service struct {
	repo     Repository
	notifier Notifier
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, log *logger.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: log, now: time.Now}
}

func (s *Service) participant(ctx context.Context, actor models.Actor, appointmentID string) (*models.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.IsParticipant(actor.ID) {
		return nil, apperr.Forbidden("only the patient and doctor of this appointment can use its chat")
	}
	return appt, nil
}

// Send posts a message. The chat is open while the appointment is confirmed.
func (s *Service) Send(ctx context.Context, actor models.Actor, appointmentID, content string) (*models.ConsultationMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.ValidationFields("message is empty", map[string]string{"content": "required"})
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, apperr.ValidationFields("message is too long", map[string]string{"content": "at most 4000 characters"})
	}
	appt, err := s.participant(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status != models.StatusConfirmed {
		return nil, apperr.Conflict("chat is only open for confirmed appointments")
	}

	msg := &models.ConsultationMessage{
		AppointmentID: appt.ID,
		SenderID:      actor.ID,
		SenderRole:    actor.Role,
		Content:       content,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	recipient, email, from := appt.DoctorID, appt.DoctorEmail, appt.PatientName
	if actor.ID == appt.DoctorID {
		recipient, email, from = appt.PatientID, appt.PatientEmail, "Dr. "+appt.DoctorName
	}
	preview := content
	if utf8.RuneCountInString(preview) > 80 {
		preview = string([]rune(preview)[:80]) + "…"
	}
	s.notifier.NotifyBestEffort(ctx, &models.Notification{
		RecipientID:    recipient,
		RecipientEmail: email,
		Title:          "New message from " + from,
		Message:        preview,
		Type:           models.NotificationMessage,
		RelatedID:      appt.ID,
	})
	return msg, nil
}

// List returns the chat history, newest after since when given, and marks
// the other party's messages read.
func (s *Service) List(ctx context.Context, actor models.Actor, appointmentID string, since time.Time) ([]models.ConsultationMessage, error) {
	appt, err := s.participant(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, appt.ID, since)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkMessagesRead(ctx, appt.ID, actor.ID, s.now()); err != nil {
		s.logger.WithComponent("consultation").WithError(err).WithField("appointment_id", appt.ID).Warn("Failed to mark messages read")
	}
	if msgs == nil {
		msgs = []models.ConsultationMessage{}
	}
	return msgs, nil
}
