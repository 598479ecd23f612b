// Package prescriptions issues signed prescriptions at the end of a consultation.
package prescriptions

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
	"medconnect-server/internal/store"
)

// Tx is the set of writes that issuing a prescription performs atomically.
type Tx interface {
	CreatePrescription(ctx context.Context, rx *models.Prescription) error
	TransitionAppointment(ctx context.Context, id string, from, to models.AppointmentStatus, updates map[string]interface{}) error
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Repository is the persistence used by Service.
type Repository interface {
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	GetPrescription(ctx context.Context, id string) (*models.Prescription, error)
	ListPrescriptions(ctx context.Context, f store.PrescriptionFilter) ([]models.Prescription, error)
	Atomically(ctx context.Context, fn func(tx Tx) error) error
}

// Announcer pushes notifications committed inside a transaction.
type Announcer interface {
	Announce(n models.Notification)
}

type storeRepository struct {
	*store.Store
}

// NewRepository adapts a Store to Repository.
func NewRepository(s *store.Store) Repository {
	return storeRepository{s}
}

func (r storeRepository) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	return r.Transaction(ctx, func(tx *store.Store) error {
		return fn(tx)
	})
}

type Service struct {
	repo      Repository
	announcer Announcer
	metrics   *metrics.Metrics
	logger    *logger.Logger
	secret    string
}

func NewService(repo Repository, announcer Announcer, m *metrics.Metrics, log *logger.Logger, secret string) *Service {
	return &Service{repo: repo, announcer: announcer, metrics: m, logger: log, secret: secret}
}

// IssueRequest is the doctor's prescription form.
type IssueRequest struct {
	AppointmentID string                      `json:"appointmentId" binding:"required"`
	Diagnosis     string                      `json:"diagnosis"`
	Medicines     []models.PrescribedMedicine `json:"medicines"`
	Advice        string                      `json:"advice"`
	FollowUpDate  string                      `json:"followUpDate"`
}

// Validate checks the form before anything is written.
func (r IssueRequest) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(r.Diagnosis) == "" {
		fields["diagnosis"] = "diagnosis is required"
	}
	if len(r.Medicines) == 0 {
		fields["medicines"] = "add at least one medicine"
	}
	for i, m := range r.Medicines {
		prefix := fmt.Sprintf("medicines[%d].", i)
		if strings.TrimSpace(m.Name) == "" {
			fields[prefix+"name"] = "required"
		}
		if strings.TrimSpace(m.Dosage) == "" {
			fields[prefix+"dosage"] = "required"
		}
		if strings.TrimSpace(m.Frequency) == "" {
			fields[prefix+"frequency"] = "required"
		}
		if strings.TrimSpace(m.Duration) == "" {
			fields[prefix+"duration"] = "required"
		}
	}
	if r.FollowUpDate != "" {
		if _, err := time.Parse(models.DateLayout, r.FollowUpDate); err != nil {
			fields["followUpDate"] = "use YYYY-MM-DD"
		}
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("invalid prescription", fields)
	}
	return nil
}

// Issue creates the prescription, completes the appointment and notifies the
// patient in one transaction. Nothing is written when any step fails.
func (s *Service) Issue(ctx context.Context, actor models.Actor, req IssueRequest) (*models.Prescription, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	appt, err := s.repo.GetAppointment(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if actor.ID != appt.DoctorID {
		return nil, apperr.Forbidden("only the consulting doctor can issue this prescription")
	}
	if appt.Status != models.StatusConfirmed {
		return nil, apperr.Conflict(fmt.Sprintf("prescriptions can only be issued for confirmed appointments, this one is %s", appt.Status))
	}

	medicines := make([]models.PrescribedMedicine, len(req.Medicines))
	for i, m := range req.Medicines {
		medicines[i] = models.PrescribedMedicine{
			Name:         strings.TrimSpace(m.Name),
			Dosage:       strings.TrimSpace(m.Dosage),
			Frequency:    strings.TrimSpace(m.Frequency),
			Duration:     strings.TrimSpace(m.Duration),
			Instructions: strings.TrimSpace(m.Instructions),
		}
	}
	rx := &models.Prescription{
		BaseModel:     models.BaseModel{ID: uuid.NewString()},
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		PatientName:   appt.PatientName,
		PatientEmail:  appt.PatientEmail,
		DoctorID:      appt.DoctorID,
		DoctorName:    appt.DoctorName,
		Diagnosis:     strings.TrimSpace(req.Diagnosis),
		Medicines:     medicines,
		Advice:        strings.TrimSpace(req.Advice),
		FollowUpDate:  req.FollowUpDate,
	}
	rx.DigitalSignature = Sign(s.secret, rx)

	note := &models.Notification{
		RecipientID:    appt.PatientID,
		RecipientEmail: appt.PatientEmail,
		Title:          "New prescription",
		Message:        fmt.Sprintf("Dr. %s issued a prescription for %s.", appt.DoctorName, rx.Diagnosis),
		Type:           models.NotificationPrescription,
		RelatedID:      rx.ID,
	}

	err = s.repo.Atomically(ctx, func(tx Tx) error {
		if err := tx.CreatePrescription(ctx, rx); err != nil {
			return err
		}
		if err := tx.TransitionAppointment(ctx, appt.ID, models.StatusConfirmed, models.StatusCompleted, nil); err != nil {
			return err
		}
		return tx.CreateNotification(ctx, note)
	})
	if err != nil {
		s.logger.Audit(actor.ID, "issue", "prescription", false, map[string]interface{}{"appointment_id": appt.ID, "error": err.Error()})
		return nil, err
	}

	s.metrics.AppointmentTransitioned(string(models.StatusCompleted))
	s.logger.Audit(actor.ID, "issue", "prescription", true, map[string]interface{}{"prescription_id": rx.ID, "appointment_id": appt.ID})
	s.announcer.Announce(*note)
	return rx, nil
}

// List returns the prescriptions visible to the actor, optionally for one appointment.
func (s *Service) List(ctx context.Context, actor models.Actor, appointmentID string) ([]models.Prescription, error) {
	f := store.PrescriptionFilter{AppointmentID: appointmentID}
	switch actor.Role {
	case models.RolePatient:
		f.PatientID = actor.ID
	case models.RoleDoctor:
		f.DoctorID = actor.ID
	case models.RoleAdmin:
	default:
		return nil, apperr.Forbidden("your role cannot view prescriptions")
	}
	return s.repo.ListPrescriptions(ctx, f)
}

func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (*models.Prescription, error) {
	rx, err := s.repo.GetPrescription(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Is(models.RoleAdmin) && actor.ID != rx.PatientID && actor.ID != rx.DoctorID {
		return nil, apperr.Forbidden("you are not authorized to view this prescription")
	}
	return rx, nil
}

// Verification is the result of checking a stored signature.
type Verification struct {
	PrescriptionID string `json:"prescriptionId"`
	Valid          bool   `json:"valid"`
}

func (s *Service) Verify(ctx context.Context, actor models.Actor, id string) (*Verification, error) {
	rx, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &Verification{PrescriptionID: rx.ID, Valid: VerifySignature(s.secret, rx)}, nil
}
