package store

import (
	"context"
	"strings"

	"medconnect-server/internal/models"
)

// ListDoctors returns doctor users with their profiles. q matches name or specialty.
func (s *Store) ListDoctors(ctx context.Context, q string) ([]models.Doctor, error) {
	var users []models.User
	query := s.conn(ctx).Preload("DoctorProfile").Where("role = ?", models.RoleDoctor)
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR id IN (?)",
			like, like,
			s.conn(ctx).Model(&models.DoctorProfile{}).Select("user_id").Where("LOWER(specialty) LIKE ?", like),
		)
	}
	if err := query.Order("first_name asc, last_name asc").Find(&users).Error; err != nil {
		return nil, wrap(err, "doctors")
	}

	doctors := make([]models.Doctor, 0, len(users))
	for i := range users {
		doctors = append(doctors, models.NewDoctor(&users[i], users[i].DoctorProfile))
	}
	return doctors, nil
}

// GetDoctor returns a doctor user with the profile preloaded.
func (s *Store) GetDoctor(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.conn(ctx).Preload("DoctorProfile").
		Where("id = ? AND role = ?", id, models.RoleDoctor).
		First(&user).Error
	if err != nil {
		return nil, wrap(err, "doctor")
	}
	return &user, nil
}

// SaveDoctorProfile creates or replaces the profile of profile.UserID.
func (s *Store) SaveDoctorProfile(ctx context.Context, profile *models.DoctorProfile) error {
	var existing models.DoctorProfile
	err := s.conn(ctx).Where("user_id = ?", profile.UserID).First(&existing).Error
	if err == nil {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
		return wrap(s.conn(ctx).Save(profile).Error, "doctor profile")
	}
	if !isNotFound(err) {
		return wrap(err, "doctor profile")
	}
	return wrap(s.conn(ctx).Create(profile).Error, "doctor profile")
}
