package store

import (
	"context"

	"medconnect-server/internal/models"
)

// PrescriptionFilter narrows ListPrescriptions. Zero fields are ignored.
type PrescriptionFilter struct {
	PatientID     string
	DoctorID      string
	AppointmentID string
}

func (s *Store) CreatePrescription(ctx context.Context, rx *models.Prescription) error {
	return wrap(s.conn(ctx).Create(rx).Error, "prescription")
}

func (s *Store) GetPrescription(ctx context.Context, id string) (*models.Prescription, error) {
	var rx models.Prescription
	if err := s.conn(ctx).First(&rx, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "prescription")
	}
	return &rx, nil
}

func (s *Store) ListPrescriptions(ctx context.Context, f PrescriptionFilter) ([]models.Prescription, error) {
	var list []models.Prescription
	q := s.conn(ctx).Order("created_at desc")
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.AppointmentID != "" {
		q = q.Where("appointment_id = ?", f.AppointmentID)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, wrap(err, "prescriptions")
	}
	return list, nil
}
