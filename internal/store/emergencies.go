package store

import (
	"context"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/models"
)

// EmergencyFilter narrows ListEmergencies. Zero fields are ignored.
type EmergencyFilter struct {
	PatientID string
	Status    models.EmergencyStatus
}

func (s *Store) CreateEmergency(ctx context.Context, req *models.EmergencyRequest) error {
	return wrap(s.conn(ctx).Create(req).Error, "emergency request")
}

func (s *Store) GetEmergency(ctx context.Context, id string) (*models.EmergencyRequest, error) {
	var req models.EmergencyRequest
	if err := s.conn(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "emergency request")
	}
	return &req, nil
}

func (s *Store) ListEmergencies(ctx context.Context, f EmergencyFilter) ([]models.EmergencyRequest, error) {
	var list []models.EmergencyRequest
	q := s.conn(ctx).Order("created_at desc")
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, wrap(err, "emergency requests")
	}
	return list, nil
}

// SetNotifiedHospitals records the fan-out result.
func (s *Store) SetNotifiedHospitals(ctx context.Context, id string, n int) error {
	err := s.conn(ctx).Model(&models.EmergencyRequest{}).Where("id = ?", id).Update("notified_hospitals", n).Error
	return wrap(err, "emergency request")
}

// TransitionEmergency advances the status if it is still from.
func (s *Store) TransitionEmergency(ctx context.Context, id string, from, to models.EmergencyStatus, handledBy string) error {
	res := s.conn(ctx).Model(&models.EmergencyRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "handled_by": handledBy})
	if res.Error != nil {
		return wrap(res.Error, "emergency request")
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("emergency request status changed concurrently, reload and retry")
	}
	return nil
}
