package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/metrics"
	"medconnect-server/internal/models"
)

// DefaultSlots are offered by doctors that have not configured their own.
var DefaultSlots = []string{
	"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM",
	"02:00 PM", "02:30 PM", "03:00 PM", "03:30 PM", "04:00 PM", "04:30 PM",
}

// Repository is the persistence used by Service.
type Repository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetDoctor(ctx context.Context, id string) (*models.User, error)
	SlotTaken(ctx context.Context, doctorID, date, slot, excludeID string) (bool, error)
	BookedSlots(ctx context.Context, doctorID, date string) ([]string, error)
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	GetAppointmentByIdempotencyKey(ctx context.Context, patientID, key string) (*models.Appointment, error)
	RescheduleAppointment(ctx context.Context, id, date, slot string, start time.Time) error
}

// Notifier delivers side-effect notifications.
type Notifier interface {
	NotifyBestEffort(ctx context.Context, n *models.Notification)
}

// Service books and reschedules appointments.
type Service struct {
	repo           Repository
	notifier       Notifier
	metrics        *metrics.Metrics
	logger         *logger.Logger
	meetingBaseURL string
	now            func() time.Time
}

func NewService(repo Repository, notifier Notifier, m *metrics.Metrics, log *logger.Logger, meetingBaseURL string) *Service {
	return &Service{
		repo:           repo,
		notifier:       notifier,
		metrics:        m,
		logger:         log,
		meetingBaseURL: meetingBaseURL,
		now:            time.Now,
	}
}

// NewMeetingLink synthesises a unique video room URL.
func NewMeetingLink(baseURL string) string {
	return baseURL + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Request is a completed wizard plus transport details.
type Request struct {
	Wizard
	PatientID      string `json:"patientId"`
	IdempotencyKey string `json:"-"`
}

// Book validates the wizard and creates a pending, paid appointment.
// A repeated request with the same idempotency key returns the first
// appointment instead of creating another.
func (s *Service) Book(ctx context.Context, actor models.Actor, req Request) (*models.Appointment, error) {
	patient, err := s.resolvePatient(ctx, actor, req.PatientID)
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.repo.GetAppointmentByIdempotencyKey(ctx, patient.ID, req.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
	}

	if strings.TrimSpace(req.DoctorID) == "" {
		return nil, apperr.ValidationFields("doctor is required", map[string]string{"doctorId": "select a doctor"})
	}
	if err := req.Wizard.Validate(); err != nil {
		return nil, err
	}

	start, err := s.checkSlot(req.Date, req.TimeSlot)
	if err != nil {
		return nil, err
	}

	doctor, err := s.repo.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	profile := doctor.DoctorProfile
	if profile == nil {
		profile = &models.DoctorProfile{}
	}
	if !profile.Offers(req.ConsultationType) {
		return nil, apperr.Validation(fmt.Sprintf("Dr. %s does not offer %s consultations", doctor.FullName(), req.ConsultationType))
	}
	if !slotOffered(profile, req.TimeSlot) {
		return nil, apperr.Validation("time slot " + req.TimeSlot + " is not offered by this doctor")
	}

	taken, err := s.repo.SlotTaken(ctx, doctor.ID, req.Date, req.TimeSlot, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("time slot is already booked")
	}

	appt := &models.Appointment{
		PatientID:        patient.ID,
		PatientName:      strings.TrimSpace(req.PatientName),
		PatientEmail:     firstNonEmpty(req.PatientEmail, patient.Email),
		PatientPhone:     strings.TrimSpace(req.PatientPhone),
		DoctorID:         doctor.ID,
		DoctorName:       doctor.FullName(),
		DoctorEmail:      doctor.Email,
		Date:             req.Date,
		TimeSlot:         req.TimeSlot,
		StartTime:        start,
		ConsultationType: req.ConsultationType,
		Symptoms:         strings.TrimSpace(req.Symptoms),
		Status:           models.StatusPending,
		ConsultationFee:  profile.ConsultationFee,
		PaymentStatus:    models.PaymentStatusPaid,
	}
	if req.ConsultationType == models.ConsultationVideo {
		appt.MeetingLink = NewMeetingLink(s.meetingBaseURL)
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		appt.IdempotencyKey = &key
	}

	if err := s.repo.CreateAppointment(ctx, appt); err != nil {
		// A concurrent replay of the same key lost the race on the unique index.
		if req.IdempotencyKey != "" && apperr.Is(err, apperr.KindConflict) {
			if existing, getErr := s.repo.GetAppointmentByIdempotencyKey(ctx, patient.ID, req.IdempotencyKey); getErr == nil {
				return existing, nil
			}
		}
		s.logger.Audit(actor.ID, "book", "appointment", false, map[string]interface{}{"doctor_id": doctor.ID, "error": err.Error()})
		return nil, err
	}

	s.metrics.AppointmentBooked()
	s.logger.Audit(actor.ID, "book", "appointment", true, map[string]interface{}{"appointment_id": appt.ID, "doctor_id": doctor.ID})

	s.notifier.NotifyBestEffort(ctx, &models.Notification{
		RecipientID:    doctor.ID,
		RecipientEmail: doctor.Email,
		Title:          "New appointment request",
		Message:        fmt.Sprintf("%s requested a %s consultation on %s at %s.", appt.PatientName, appt.ConsultationType, appt.Date, appt.TimeSlot),
		Type:           models.NotificationAppointment,
		RelatedID:      appt.ID,
	})

	return appt, nil
}

// resolvePatient returns the patient a booking is for. Patients book for
// themselves; admins must name the patient.
func (s *Service) resolvePatient(ctx context.Context, actor models.Actor, patientID string) (*models.User, error) {
	switch actor.Role {
	case models.RolePatient:
		if patientID != "" && patientID != actor.ID {
			return nil, apperr.Forbidden("patients can only book appointments for themselves")
		}
		return s.repo.GetUser(ctx, actor.ID)
	case models.RoleAdmin:
		if patientID == "" {
			return nil, apperr.ValidationFields("patient is required", map[string]string{"patientId": "required when booking as admin"})
		}
		patient, err := s.repo.GetUser(ctx, patientID)
		if err != nil {
			return nil, err
		}
		if patient.Role != models.RolePatient {
			return nil, apperr.Validation("appointments can only be booked for patients")
		}
		return patient, nil
	}
	return nil, apperr.Forbidden("only patients can book appointments")
}

// checkSlot parses date and slot and rejects past times.
func (s *Service) checkSlot(date, slot string) (time.Time, error) {
	start, err := models.ParseStart(date, slot)
	if err != nil {
		return time.Time{}, apperr.ValidationFields("invalid date or time slot", map[string]string{
			"date":     "use YYYY-MM-DD",
			"timeSlot": "use a slot such as 10:30 AM",
		})
	}
	if !start.After(s.now()) {
		return time.Time{}, apperr.Validation("appointment time must be in the future")
	}
	return start, nil
}

// Reschedule moves a pending or confirmed appointment to a free slot. Any
// participant or an admin may reschedule; the status is kept.
func (s *Service) Reschedule(ctx context.Context, actor models.Actor, id, date, slot string) (*models.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Is(models.RoleAdmin) && !appt.IsParticipant(actor.ID) {
		return nil, apperr.Forbidden("you are not allowed to reschedule this appointment")
	}
	if !appt.Status.Holds() {
		return nil, apperr.Conflict("only pending or confirmed appointments can be rescheduled")
	}

	start, err := s.checkSlot(date, slot)
	if err != nil {
		return nil, err
	}
	doctor, err := s.repo.GetDoctor(ctx, appt.DoctorID)
	if err != nil {
		return nil, err
	}
	if !slotOffered(doctor.DoctorProfile, slot) {
		return nil, apperr.Validation("time slot " + slot + " is not offered by this doctor")
	}

	taken, err := s.repo.SlotTaken(ctx, appt.DoctorID, date, slot, appt.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("time slot is already booked")
	}

	if err := s.repo.RescheduleAppointment(ctx, appt.ID, date, slot, start); err != nil {
		return nil, err
	}
	s.logger.Audit(actor.ID, "reschedule", "appointment", true, map[string]interface{}{"appointment_id": appt.ID, "date": date, "time_slot": slot})

	message := fmt.Sprintf("Your appointment was moved to %s at %s.", date, slot)
	if actor.ID != appt.PatientID {
		s.notifier.NotifyBestEffort(ctx, &models.Notification{
			RecipientID: appt.PatientID, RecipientEmail: appt.PatientEmail,
			Title: "Appointment rescheduled", Message: message,
			Type: models.NotificationAppointment, RelatedID: appt.ID,
		})
	}
	if actor.ID != appt.DoctorID {
		s.notifier.NotifyBestEffort(ctx, &models.Notification{
			RecipientID: appt.DoctorID, RecipientEmail: appt.DoctorEmail,
			Title: "Appointment rescheduled", Message: message,
			Type: models.NotificationAppointment, RelatedID: appt.ID,
		})
	}

	return s.repo.GetAppointment(ctx, appt.ID)
}

// SlotAvailability is one slot of a doctor's day.
type SlotAvailability struct {
	TimeSlot string `json:"timeSlot"`
	Booked   bool   `json:"booked"`
}

// Availability lists the doctor's slots on date with their booked flag.
func (s *Service) Availability(ctx context.Context, doctorID, date string) ([]SlotAvailability, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, apperr.ValidationFields("invalid date", map[string]string{"date": "use YYYY-MM-DD"})
	}
	doctor, err := s.repo.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	slots := offeredSlots(doctor.DoctorProfile)

	booked, err := s.repo.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	held := make(map[string]bool, len(booked))
	for _, b := range booked {
		held[strings.ToUpper(b)] = true
	}

	out := make([]SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		out = append(out, SlotAvailability{TimeSlot: slot, Booked: held[strings.ToUpper(slot)]})
	}
	return out, nil
}

func offeredSlots(profile *models.DoctorProfile) []string {
	if profile != nil && len(profile.AvailableSlots) > 0 {
		return profile.AvailableSlots
	}
	return DefaultSlots
}

func slotOffered(profile *models.DoctorProfile, slot string) bool {
	if profile != nil && len(profile.AvailableSlots) > 0 {
		return profile.HasSlot(slot)
	}
	for _, s := range DefaultSlots {
		if strings.EqualFold(s, slot) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
