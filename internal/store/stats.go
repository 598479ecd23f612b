package store

import (
	"context"

	"medconnect-server/internal/models"
)

// Stats is the admin dashboard summary.
type Stats struct {
	UsersByRole          map[string]int64 `json:"usersByRole"`
	AppointmentsByStatus map[string]int64 `json:"appointmentsByStatus"`
	OrdersByStatus       map[string]int64 `json:"ordersByStatus"`
	OpenEmergencies      int64            `json:"openEmergencies"`
}

type groupCount struct {
	GroupKey string
	Total    int64
}

func (s *Store) countBy(ctx context.Context, model interface{}, column string) (map[string]int64, error) {
	var rows []groupCount
	err := s.conn(ctx).Model(model).
		Select(column + " AS group_key, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.GroupKey] = r.Total
	}
	return out, nil
}

// Stats aggregates counts for the admin dashboard.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var (
		st  Stats
		err error
	)
	if st.UsersByRole, err = s.countBy(ctx, &models.User{}, "role"); err != nil {
		return nil, wrap(err, "stats")
	}
	if st.AppointmentsByStatus, err = s.countBy(ctx, &models.Appointment{}, "status"); err != nil {
		return nil, wrap(err, "stats")
	}
	if st.OrdersByStatus, err = s.countBy(ctx, &models.Order{}, "status"); err != nil {
		return nil, wrap(err, "stats")
	}
	err = s.conn(ctx).Model(&models.EmergencyRequest{}).
		Where("status <> ?", models.EmergencyDispatched).
		Count(&st.OpenEmergencies).Error
	if err != nil {
		return nil, wrap(err, "stats")
	}
	return &st, nil
}
