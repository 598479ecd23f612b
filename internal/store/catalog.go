package store

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medconnect-server/internal/models"
)

// CatalogFilter narrows catalog listings.
type CatalogFilter struct {
	Query    string
	Category string
}

func (f CatalogFilter) scope(q *gorm.DB) *gorm.DB {
	q = q.Order("name asc")
	if t := strings.TrimSpace(f.Query); t != "" {
		like := "%" + strings.ToLower(t) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	return q
}

func (s *Store) ListMedicines(ctx context.Context, f CatalogFilter) ([]models.Medicine, error) {
	var items []models.Medicine
	if err := s.conn(ctx).Scopes(f.scope).Find(&items).Error; err != nil {
		return nil, wrap(err, "medicines")
	}
	return items, nil
}

func (s *Store) GetMedicine(ctx context.Context, id string) (*models.Medicine, error) {
	var item models.Medicine
	if err := s.conn(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "medicine")
	}
	return &item, nil
}

func (s *Store) ListLabTests(ctx context.Context, f CatalogFilter) ([]models.LabTest, error) {
	var items []models.LabTest
	if err := s.conn(ctx).Scopes(f.scope).Find(&items).Error; err != nil {
		return nil, wrap(err, "lab tests")
	}
	return items, nil
}

func (s *Store) GetLabTest(ctx context.Context, id string) (*models.LabTest, error) {
	var item models.LabTest
	if err := s.conn(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "lab test")
	}
	return &item, nil
}

// UpsertMedicine inserts a medicine or updates the row with the same name.
func (s *Store) UpsertMedicine(ctx context.Context, m *models.Medicine) error {
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"manufacturer", "category", "description", "price", "requires_prescription", "in_stock", "updated_at"}),
	}).Create(m).Error
	return wrap(err, "medicine")
}

// UpsertLabTest inserts a lab test or updates the row with the same name.
func (s *Store) UpsertLabTest(ctx context.Context, t *models.LabTest) error {
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "description", "sample_type", "price", "turnaround_days", "fasting_needed", "updated_at"}),
	}).Create(t).Error
	return wrap(err, "lab test")
}
