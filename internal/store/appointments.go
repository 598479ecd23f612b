package store

import (
	"context"
	"time"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/models"
)

// AppointmentFilter narrows ListAppointments. Zero fields are ignored.
type AppointmentFilter struct {
	PatientID string
	DoctorID  string
	Status    models.AppointmentStatus
	Date      string
}

func (s *Store) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	return wrap(s.conn(ctx).Create(appt).Error, "appointment")
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := s.conn(ctx).First(&appt, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "appointment")
	}
	return &appt, nil
}

// GetAppointmentByIdempotencyKey finds an earlier booking made with key by patientID.
func (s *Store) GetAppointmentByIdempotencyKey(ctx context.Context, patientID, key string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.conn(ctx).Where("patient_id = ? AND idempotency_key = ?", patientID, key).First(&appt).Error
	if err != nil {
		return nil, wrap(err, "appointment")
	}
	return &appt, nil
}

func (s *Store) ListAppointments(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error) {
	var appts []models.Appointment
	q := s.conn(ctx).Order("date desc, start_time desc")
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Date != "" {
		q = q.Where("date = ?", f.Date)
	}
	if err := q.Find(&appts).Error; err != nil {
		return nil, wrap(err, "appointments")
	}
	return appts, nil
}

// SlotTaken reports whether a pending or confirmed appointment holds the slot.
// excludeID skips one appointment, used when rescheduling it.
func (s *Store) SlotTaken(ctx context.Context, doctorID, date, slot, excludeID string) (bool, error) {
	var count int64
	q := s.conn(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ? AND date = ? AND time_slot = ? AND status IN ?",
			doctorID, date, slot, []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed})
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, wrap(err, "appointment")
	}
	return count > 0, nil
}

// BookedSlots lists the held time slots of a doctor on date.
func (s *Store) BookedSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	var slots []string
	err := s.conn(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ? AND date = ? AND status IN ?",
			doctorID, date, []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed}).
		Pluck("time_slot", &slots).Error
	if err != nil {
		return nil, wrap(err, "appointments")
	}
	return slots, nil
}

// TransitionAppointment moves an appointment from one status to another,
// applying extra column updates in the same statement. It fails with a
// conflict when the appointment is no longer in status from.
func (s *Store) TransitionAppointment(ctx context.Context, id string, from, to models.AppointmentStatus, updates map[string]interface{}) error {
	values := map[string]interface{}{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := s.conn(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return wrap(res.Error, "appointment")
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("appointment status changed concurrently, reload and retry")
	}
	return nil
}

// RescheduleAppointment moves a held appointment to a new slot.
func (s *Store) RescheduleAppointment(ctx context.Context, id, date, slot string, start time.Time) error {
	res := s.conn(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", id, []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed}).
		Updates(map[string]interface{}{
			"date":             date,
			"time_slot":        slot,
			"start_time":       start,
			"reminder_sent_at": nil,
		})
	if res.Error != nil {
		return wrap(res.Error, "appointment")
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("appointment can no longer be rescheduled")
	}
	return nil
}

// DueReminders lists confirmed appointments starting in [from, to) without a reminder.
func (s *Store) DueReminders(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.conn(ctx).
		Where("status = ? AND reminder_sent_at IS NULL AND start_time >= ? AND start_time < ?",
			models.StatusConfirmed, from, to).
		Order("start_time asc").
		Find(&appts).Error
	if err != nil {
		return nil, wrap(err, "appointments")
	}
	return appts, nil
}

// MarkReminderSent records the reminder. It reports false when another
// worker already sent it.
func (s *Store) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.conn(ctx).Model(&models.Appointment{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at)
	if res.Error != nil {
		return false, wrap(res.Error, "appointment")
	}
	return res.RowsAffected > 0, nil
}
