package store

import (
	"context"

	"medconnect-server/internal/models"
)

func (s *Store) ListCart(ctx context.Context, userID string, kind models.CartKind) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.conn(ctx).Where("user_id = ? AND kind = ?", userID, kind).Order("created_at asc").Find(&items).Error
	if err != nil {
		return nil, wrap(err, "cart")
	}
	return items, nil
}

func (s *Store) GetCartLine(ctx context.Context, userID string, kind models.CartKind, itemID string) (*models.CartItem, error) {
	var item models.CartItem
	err := s.conn(ctx).Where("user_id = ? AND kind = ? AND item_id = ?", userID, kind, itemID).First(&item).Error
	if err != nil {
		return nil, wrap(err, "cart item")
	}
	return &item, nil
}

// SaveCartLine inserts or updates a cart line.
func (s *Store) SaveCartLine(ctx context.Context, item *models.CartItem) error {
	return wrap(s.conn(ctx).Save(item).Error, "cart item")
}

func (s *Store) DeleteCartLine(ctx context.Context, userID string, kind models.CartKind, itemID string) error {
	res := s.conn(ctx).Where("user_id = ? AND kind = ? AND item_id = ?", userID, kind, itemID).Delete(&models.CartItem{})
	if res.Error != nil {
		return wrap(res.Error, "cart item")
	}
	if res.RowsAffected == 0 {
		return wrap(errNotFound, "cart item")
	}
	return nil
}

func (s *Store) ClearCart(ctx context.Context, userID string, kind models.CartKind) error {
	err := s.conn(ctx).Where("user_id = ? AND kind = ?", userID, kind).Delete(&models.CartItem{}).Error
	return wrap(err, "cart")
}
