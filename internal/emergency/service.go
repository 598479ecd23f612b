// Package emergency raises emergency requests and fans them out to hospitals.
package emergency

import (
	"context"
	"fmt"
	"strings"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/metrics"
	"medconnect-server/internal/models"
	"medconnect-server/internal/store"
)

// DefaultMaxHospitals bounds the fan-out when no limit is configured.
const DefaultMaxHospitals = 5

type Repository interface {
	CreateEmergency(ctx context.Context, req *models.EmergencyRequest) error
	GetEmergency(ctx context.Context, id string) (*models.EmergencyRequest, error)
	ListEmergencies(ctx context.Context, f store.EmergencyFilter) ([]models.EmergencyRequest, error)
	SetNotifiedHospitals(ctx context.Context, id string, n int) error
	TransitionEmergency(ctx context.Context, id string, from, to models.EmergencyStatus, handledBy string) error
	ListUsersLimit(ctx context.Context, role models.Role, limit int) ([]models.User, error)
}

// Notifier creates notifications and reports failures so fan-out can count them.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

type Service struct {
	repo         Repository
	notifier     Notifier
	metrics      *metrics.Metrics
	logger       *logger.Logger
	maxHospitals int
}

func NewService(repo Repository, notifier Notifier, m *metrics.Metrics, log *logger.Logger, maxHospitals int) *Service {
	if maxHospitals <= 0 {
		maxHospitals = DefaultMaxHospitals
	}
	return &Service{repo: repo, notifier: notifier, metrics: m, logger: log, maxHospitals: maxHospitals}
}

// Request is the emergency form.
type Request struct {
	EmergencyType string   `json:"emergencyType"`
	PatientName   string   `json:"patientName"`
	ContactPhone  string   `json:"contactPhone"`
	Location      string   `json:"location"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Description   string   `json:"description"`
}

func (r Request) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(r.EmergencyType) == "" {
		fields["emergencyType"] = "select the type of emergency"
	}
	if strings.TrimSpace(r.PatientName) == "" {
		fields["patientName"] = "patient name is required"
	}
	if strings.TrimSpace(r.ContactPhone) == "" {
		fields["contactPhone"] = "contact phone is required"
	}
	if r.Latitude != nil && (*r.Latitude < -90 || *r.Latitude > 90) {
		fields["latitude"] = "must be between -90 and 90"
	}
	if r.Longitude != nil && (*r.Longitude < -180 || *r.Longitude > 180) {
		fields["longitude"] = "must be between -180 and 180"
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("invalid emergency request", fields)
	}
	return nil
}

// Raise stores the request and alerts hospitals. Alerts are best effort:
// failures are logged and the request is returned with the number of
// hospitals actually notified.
func (s *Service) Raise(ctx context.Context, actor models.Actor, req Request) (*models.EmergencyRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	er := &models.EmergencyRequest{
		PatientName:   strings.TrimSpace(req.PatientName),
		EmergencyType: strings.TrimSpace(req.EmergencyType),
		Location:      strings.TrimSpace(req.Location),
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		ContactPhone:  strings.TrimSpace(req.ContactPhone),
		Description:   strings.TrimSpace(req.Description),
		Status:        models.EmergencyPending,
	}
	if actor.Is(models.RolePatient) {
		er.PatientID = actor.ID
		er.PatientEmail = actor.Email
	}
	if err := s.repo.CreateEmergency(ctx, er); err != nil {
		return nil, err
	}
	s.metrics.EmergencyRaised()

	log := s.logger.WithComponent("emergency").WithField("emergency_id", er.ID)
	log.WithField("type", er.EmergencyType).Warn("Emergency request raised")

	er.NotifiedHospitals = s.fanOut(ctx, er)
	if err := s.repo.SetNotifiedHospitals(ctx, er.ID, er.NotifiedHospitals); err != nil {
		log.WithError(err).Warn("Failed to record notified hospital count")
	}
	s.logger.Audit(actor.ID, "raise", "emergency", true, map[string]interface{}{
		"emergency_id":       er.ID,
		"notified_hospitals": er.NotifiedHospitals,
	})
	return er, nil
}

func (s *Service) fanOut(ctx context.Context, er *models.EmergencyRequest) int {
	log := s.logger.WithComponent("emergency").WithField("emergency_id", er.ID)
	hospitals, err := s.repo.ListUsersLimit(ctx, models.RoleHospital, s.maxHospitals)
	if err != nil {
		log.WithError(err).Warn("Failed to list hospitals for emergency fan-out")
		return 0
	}

	where := er.Location
	if where == "" {
		where = "an unspecified location"
	}
	message := fmt.Sprintf("%s emergency for %s at %s. Contact %s.", er.EmergencyType, er.PatientName, where, er.ContactPhone)

	notified, failed := 0, 0
	for _, h := range hospitals {
		err := s.notifier.Notify(ctx, &models.Notification{
			RecipientID:    h.ID,
			RecipientEmail: h.Email,
			Title:          "Emergency alert",
			Message:        message,
			Type:           models.NotificationEmergency,
			RelatedID:      er.ID,
		})
		if err != nil {
			failed++
			log.WithError(err).WithField("hospital_id", h.ID).Warn("Failed to alert hospital")
			continue
		}
		notified++
	}
	if failed > 0 {
		log.WithField("failed", failed).WithField("notified", notified).Warn("Emergency fan-out incomplete")
	}
	return notified
}

var nextStatus = map[models.EmergencyStatus]models.EmergencyStatus{
	models.EmergencyPending:      models.EmergencyAcknowledged,
	models.EmergencyAcknowledged: models.EmergencyDispatched,
}

// Advance moves the request strictly forward. Only hospitals and admins may
// handle emergencies.
func (s *Service) Advance(ctx context.Context, actor models.Actor, id string, to models.EmergencyStatus) (*models.EmergencyRequest, error) {
	if !actor.Is(models.RoleHospital, models.RoleAdmin) {
		return nil, apperr.Forbidden("only hospitals can handle emergency requests")
	}
	er, err := s.repo.GetEmergency(ctx, id)
	if err != nil {
		return nil, err
	}
	if next, ok := nextStatus[er.Status]; !ok || next != to {
		return nil, apperr.Conflict(fmt.Sprintf("cannot move a %s emergency request to %s", er.Status, to))
	}
	if err := s.repo.TransitionEmergency(ctx, er.ID, er.Status, to, actor.ID); err != nil {
		return nil, err
	}
	er.Status = to
	er.HandledBy = actor.ID
	s.logger.Audit(actor.ID, "status:"+string(to), "emergency", true, map[string]interface{}{"emergency_id": er.ID})

	if er.PatientID != "" {
		title := "Help is on the way"
		message := "A hospital has acknowledged your emergency request."
		if to == models.EmergencyDispatched {
			message = "An ambulance has been dispatched for your emergency request."
		}
		if err := s.notifier.Notify(ctx, &models.Notification{
			RecipientID:    er.PatientID,
			RecipientEmail: er.PatientEmail,
			Title:          title,
			Message:        message,
			Type:           models.NotificationEmergency,
			RelatedID:      er.ID,
		}); err != nil {
			s.logger.WithComponent("emergency").WithError(err).WithField("emergency_id", er.ID).Warn("Failed to notify patient")
		}
	}
	return er, nil
}

// List returns all requests to hospitals and admins and own requests to patients.
func (s *Service) List(ctx context.Context, actor models.Actor, status models.EmergencyStatus) ([]models.EmergencyRequest, error) {
	f := store.EmergencyFilter{Status: status}
	switch actor.Role {
	case models.RoleHospital, models.RoleAdmin:
	case models.RolePatient:
		f.PatientID = actor.ID
	default:
		return nil, apperr.Forbidden("your role cannot view emergency requests")
	}
	return s.repo.ListEmergencies(ctx, f)
}

func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (*models.EmergencyRequest, error) {
	er, err := s.repo.GetEmergency(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Is(models.RoleHospital, models.RoleAdmin) && er.PatientID != actor.ID {
		return nil, apperr.Forbidden("you are not authorized to view this emergency request")
	}
	return er, nil
}
