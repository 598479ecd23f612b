package store

import (
	"context"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/models"
)

// OrderFilter narrows ListOrders. Zero fields are ignored.
type OrderFilter struct {
	PatientID string
	Kind      models.CartKind
	Status    models.OrderStatus
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return wrap(s.conn(ctx).Create(order).Error, "order")
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.conn(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "order")
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	q := s.conn(ctx).Order("created_at desc")
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, wrap(err, "orders")
	}
	return orders, nil
}

// TransitionOrder is the order counterpart of TransitionAppointment.
func (s *Store) TransitionOrder(ctx context.Context, id string, from, to models.OrderStatus, updates map[string]interface{}) error {
	values := map[string]interface{}{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := s.conn(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return wrap(res.Error, "order")
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("order status changed concurrently, reload and retry")
	}
	return nil
}
