// Package appointments implements the doctor-side appointment status lifecycle.
package appointments

import (
	"context"
	"fmt"
	"strings"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/booking"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/metrics"
	"medconnect-server/internal/models"
	"medconnect-server/internal/store"
)

var transitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending:   {models.StatusConfirmed, models.StatusRejected, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusCompleted, models.StatusCancelled},
}

// CanTransition reports whether an appointment may move from one status to another.
func CanTransition(from, to models.AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Repository is the persistence used by Service.
type Repository interface {
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]models.Appointment, error)
	TransitionAppointment(ctx context.Context, id string, from, to models.AppointmentStatus, updates map[string]interface{}) error
}

// Notifier delivers side-effect notifications.
type Notifier interface {
	NotifyBestEffort(ctx context.Context, n *models.Notification)
}

type Service struct {
	repo           Repository
	notifier       Notifier
	metrics        *metrics.Metrics
	logger         *logger.Logger
	meetingBaseURL string
}

func NewService(repo Repository, notifier Notifier, m *metrics.Metrics, log *logger.Logger, meetingBaseURL string) *Service {
	return &Service{repo: repo, notifier: notifier, metrics: m, logger: log, meetingBaseURL: meetingBaseURL}
}

// StatusChange is a requested transition.
type StatusChange struct {
	Status      models.AppointmentStatus `json:"status" binding:"required,oneof=confirmed rejected cancelled completed"`
	Reason      string                   `json:"reason"`
	MeetingLink string                   `json:"meetingLink"`
	Notes       string                   `json:"notes"`
}

// List returns the appointments visible to the actor.
func (s *Service) List(ctx context.Context, actor models.Actor, status models.AppointmentStatus) ([]models.Appointment, error) {
	f := store.AppointmentFilter{Status: status}
	switch actor.Role {
	case models.RolePatient:
		f.PatientID = actor.ID
	case models.RoleDoctor:
		f.DoctorID = actor.ID
	case models.RoleAdmin, models.RoleHospital:
	default:
		return nil, apperr.Forbidden("your role cannot view appointments")
	}
	return s.repo.ListAppointments(ctx, f)
}

// Get returns one appointment to a participant or an admin.
func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (*models.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Is(models.RoleAdmin) && !appt.IsParticipant(actor.ID) {
		return nil, apperr.Forbidden("you are not authorized to view this appointment")
	}
	return appt, nil
}

func authorize(actor models.Actor, appt *models.Appointment, to models.AppointmentStatus) error {
	if actor.Is(models.RoleAdmin) {
		return nil
	}
	switch to {
	case models.StatusCancelled:
		if appt.IsParticipant(actor.ID) {
			return nil
		}
	default:
		if actor.ID == appt.DoctorID {
			return nil
		}
	}
	return apperr.Forbidden(fmt.Sprintf("you are not allowed to mark this appointment %s", to))
}

// UpdateStatus applies a transition from the table, guarded against
// concurrent changes, and notifies the other party.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, id string, change StatusChange) (*models.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, appt, change.Status); err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, change.Status) {
		return nil, apperr.Conflict(fmt.Sprintf("cannot change a %s appointment to %s", appt.Status, change.Status))
	}

	updates := map[string]interface{}{}
	switch change.Status {
	case models.StatusRejected:
		reason := strings.TrimSpace(change.Reason)
		if reason == "" {
			return nil, apperr.ValidationFields("rejection reason is required", map[string]string{"reason": "explain why the appointment is rejected"})
		}
		updates["rejection_reason"] = reason
	case models.StatusConfirmed:
		if appt.ConsultationType == models.ConsultationVideo {
			link := strings.TrimSpace(change.MeetingLink)
			if link == "" {
				link = appt.MeetingLink
			}
			if link == "" {
				link = booking.NewMeetingLink(s.meetingBaseURL)
			}
			updates["meeting_link"] = link
		}
	}
	if notes := strings.TrimSpace(change.Notes); notes != "" {
		updates["notes"] = notes
	}

	if err := s.repo.TransitionAppointment(ctx, appt.ID, appt.Status, change.Status, updates); err != nil {
		s.logger.Audit(actor.ID, "status:"+string(change.Status), "appointment", false, map[string]interface{}{"appointment_id": appt.ID, "error": err.Error()})
		return nil, err
	}
	s.metrics.AppointmentTransitioned(string(change.Status))
	s.logger.Audit(actor.ID, "status:"+string(change.Status), "appointment", true, map[string]interface{}{"appointment_id": appt.ID, "from": appt.Status})

	updated, err := s.repo.GetAppointment(ctx, appt.ID)
	if err != nil {
		return nil, err
	}
	s.notifyChange(ctx, actor, updated)
	return updated, nil
}

func (s *Service) notifyChange(ctx context.Context, actor models.Actor, appt *models.Appointment) {
	when := fmt.Sprintf("%s at %s", appt.Date, appt.TimeSlot)
	var title, message string
	switch appt.Status {
	case models.StatusConfirmed:
		title = "Appointment confirmed"
		message = fmt.Sprintf("Dr. %s confirmed your appointment on %s.", appt.DoctorName, when)
		if appt.MeetingLink != "" {
			message += " Join at " + appt.MeetingLink
		}
	case models.StatusRejected:
		title = "Appointment rejected"
		message = fmt.Sprintf("Dr. %s could not accept your appointment on %s: %s", appt.DoctorName, when, appt.RejectionReason)
	case models.StatusCancelled:
		title = "Appointment cancelled"
		message = fmt.Sprintf("The appointment on %s was cancelled.", when)
	case models.StatusCompleted:
		title = "Consultation completed"
		message = fmt.Sprintf("Your consultation with Dr. %s on %s is complete.", appt.DoctorName, when)
	default:
		return
	}

	if actor.ID != appt.PatientID {
		s.notifier.NotifyBestEffort(ctx, &models.Notification{
			RecipientID: appt.PatientID, RecipientEmail: appt.PatientEmail,
			Title: title, Message: message,
			Type: models.NotificationAppointment, RelatedID: appt.ID,
		})
	}
	if appt.Status == models.StatusCancelled && actor.ID != appt.DoctorID {
		s.notifier.NotifyBestEffort(ctx, &models.Notification{
			RecipientID: appt.DoctorID, RecipientEmail: appt.DoctorEmail,
			Title: title, Message: fmt.Sprintf("%s cancelled the appointment on %s.", appt.PatientName, when),
			Type: models.NotificationAppointment, RelatedID: appt.ID,
		})
	}
}
