package store

import (
	"context"
	"strings"
	"time"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return wrap(s.conn(ctx).Create(user).Error, "user")
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "user")
	}
	return &user, nil
}

// GetUserByEmail looks a user up by normalised email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.conn(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, wrap(err, "user")
	}
	return &user, nil
}

// ListUsers returns users ordered by name. An empty role lists everyone.
func (s *Store) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	q := s.conn(ctx).Order("first_name asc, last_name asc")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, wrap(err, "users")
	}
	return users, nil
}

// ListUsersLimit returns at most limit users with the role, oldest first.
func (s *Store) ListUsersLimit(ctx context.Context, role models.Role, limit int) ([]models.User, error) {
	var users []models.User
	err := s.conn(ctx).Where("role = ?", role).Order("created_at asc").Limit(limit).Find(&users).Error
	if err != nil {
		return nil, wrap(err, "users")
	}
	return users, nil
}

func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	return wrap(s.conn(ctx).Save(user).Error, "user")
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res := s.conn(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return wrap(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return wrap(errNotFound, "user")
	}
	return nil
}

// ListPatientsOfDoctor returns the distinct patients with an appointment with doctorID.
func (s *Store) ListPatientsOfDoctor(ctx context.Context, doctorID string) ([]models.User, error) {
	var users []models.User
	sub := s.conn(ctx).Model(&models.Appointment{}).Select("patient_id").Where("doctor_id = ?", doctorID)
	err := s.conn(ctx).
		Where("role = ? AND id IN (?)", models.RolePatient, sub).
		Order("first_name asc, last_name asc").
		Find(&users).Error
	if err != nil {
		return nil, wrap(err, "patients")
	}
	return users, nil
}

func (s *Store) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return wrap(s.conn(ctx).Create(token).Error, "refresh token")
}

// GetActiveRefreshToken returns an unrevoked, unexpired token for userID.
func (s *Store) GetActiveRefreshToken(ctx context.Context, token, userID string) (*models.RefreshToken, error) {
	var stored models.RefreshToken
	err := s.conn(ctx).
		Where("token_hash = ? AND user_id = ?", models.HashToken(token), userID).
		First(&stored).Error
	if err != nil {
		return nil, wrap(err, "refresh token")
	}
	if !stored.Active(time.Now()) {
		return nil, apperr.NotFound("refresh token not found")
	}
	return &stored, nil
}

// RevokeRefreshToken marks token revoked when it belongs to userID. Unknown
// tokens are not an error.
func (s *Store) RevokeRefreshToken(ctx context.Context, token, userID string) error {
	err := s.conn(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND user_id = ? AND is_revoked = ?", models.HashToken(token), userID, false).
		Updates(map[string]interface{}{"is_revoked": true, "expires_at": time.Now()}).Error
	return wrap(err, "refresh token")
}
