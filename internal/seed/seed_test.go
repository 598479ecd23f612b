package seed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
)

type memRepo struct {
	users     map[string]models.User
	profiles  map[string]models.DoctorProfile
	medicines map[string]models.Medicine
	labTests  map[string]models.LabTest
	failUser  string
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:     map[string]models.User{},
		profiles:  map[string]models.DoctorProfile{},
		medicines: map[string]models.Medicine{},
		labTests:  map[string]models.LabTest{},
	}
}

func (m *memRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		return &u, nil
	}
	return nil, apperr.NotFound("user not found")
}

func (m *memRepo) CreateUser(_ context.Context, u *models.User) error {
	if u.Email == m.failUser {
		return apperr.Internal("database error on user", errors.New("boom"))
	}
	u.ID = fmt.Sprintf("u-%d", len(m.users)+1)
	m.users[u.Email] = *u
	return nil
}

func (m *memRepo) SaveDoctorProfile(_ context.Context, p *models.DoctorProfile) error {
	m.profiles[p.UserID] = *p
	return nil
}

func (m *memRepo) UpsertMedicine(_ context.Context, med *models.Medicine) error {
	m.medicines[med.Name] = *med
	return nil
}

func (m *memRepo) UpsertLabTest(_ context.Context, t *models.LabTest) error {
	m.labTests[t.Name] = *t
	return nil
}

func TestRun_IsIdempotent(t *testing.T) {
	repo := newMemRepo()
	s := New(repo, logger.Discard())

	first, err := s.Run(context.Background(), "sample-pass-1")
	require.NoError(t, err)
	total := len(doctors) + len(hospitals) + len(labPartners)
	assert.Equal(t, total, first.UsersCreated)
	assert.Equal(t, len(doctors), len(repo.profiles))
	assert.Equal(t, len(medicines), len(repo.medicines))
	assert.Equal(t, len(labTests), len(repo.labTests))

	u := repo.users["neha.mehta@medconnect.test"]
	assert.True(t, u.CheckPassword("sample-pass-1"))
	assert.Equal(t, "Cardiologist", repo.profiles[u.ID].Specialty)

	second, err := s.Run(context.Background(), "sample-pass-1")
	require.NoError(t, err)
	assert.Zero(t, second.UsersCreated)
	assert.Equal(t, total, second.UsersSkipped)
	assert.Len(t, repo.users, total)
}

func TestRun_Failures(t *testing.T) {
	_, err := New(newMemRepo(), logger.Discard()).Run(context.Background(), "short")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	repo := newMemRepo()
	repo.failUser = "er@cityheart.test"
	report, err := New(repo, logger.Discard()).Run(context.Background(), "sample-pass-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "er@cityheart.test")
	assert.Equal(t, len(doctors), report.Doctors)
}

func TestSamples(t *testing.T) {
	samples := Samples()
	require.Len(t, samples["Doctor"], len(doctors))
	assert.Equal(t, "Cardiologist", samples["Doctor"][0]["specialty"])
	assert.Equal(t, "sample-doctor-1", samples["Doctor"][0]["id"])
	assert.Len(t, samples["Medicine"], len(medicines))
	assert.Equal(t, "Complete Blood Count", samples["LabTest"][0]["name"])
}
