// Package seed loads sample doctors, hospitals and catalog items.
package seed

import (
	"context"
	"encoding/json"
	"fmt"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
)

type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveDoctorProfile(ctx context.Context, profile *models.DoctorProfile) error
	UpsertMedicine(ctx context.Context, m *models.Medicine) error
	UpsertLabTest(ctx context.Context, t *models.LabTest) error
}

// Report counts what a run inserted or refreshed.
type Report struct {
	UsersCreated int `json:"usersCreated"`
	UsersSkipped int `json:"usersSkipped"`
	Doctors      int `json:"doctors"`
	Medicines    int `json:"medicines"`
	LabTests     int `json:"labTests"`
}

type Seeder struct {
	repo   Repository
	logger *logger.Logger
}

func New(repo Repository, log *logger.Logger) *Seeder {
	return &Seeder{repo: repo, logger: log}
}

// Run inserts the sample data. Users are matched by email and catalog items
// by name, so running it twice changes nothing but catalog prices.
func (s *Seeder) Run(ctx context.Context, password string) (*Report, error) {
	if len(password) < 8 {
		return nil, apperr.Validation("seed password must be at least 8 characters")
	}
	report := &Report{}

	for _, d := range doctors {
		user, created, err := s.ensureUser(ctx, d.user, password)
		if err != nil {
			return report, err
		}
		s.count(report, created)
		profile := d.profile
		profile.UserID = user.ID
		if err := s.repo.SaveDoctorProfile(ctx, &profile); err != nil {
			return report, fmt.Errorf("seed doctor profile %s: %w", user.Email, err)
		}
		report.Doctors++
	}
	for _, group := range [][]models.User{hospitals, labPartners} {
		for _, u := range group {
			_, created, err := s.ensureUser(ctx, u, password)
			if err != nil {
				return report, err
			}
			s.count(report, created)
		}
	}
	for _, m := range medicines {
		m := m
		if err := s.repo.UpsertMedicine(ctx, &m); err != nil {
			return report, fmt.Errorf("seed medicine %s: %w", m.Name, err)
		}
		report.Medicines++
	}
	for _, t := range labTests {
		t := t
		if err := s.repo.UpsertLabTest(ctx, &t); err != nil {
			return report, fmt.Errorf("seed lab test %s: %w", t.Name, err)
		}
		report.LabTests++
	}

	s.logger.WithComponent("seed").
		WithField("users_created", report.UsersCreated).
		WithField("users_skipped", report.UsersSkipped).
		WithField("medicines", report.Medicines).
		WithField("lab_tests", report.LabTests).
		Info("Sample data loaded")
	return report, nil
}

func (s *Seeder) count(r *Report, created bool) {
	if created {
		r.UsersCreated++
	} else {
		r.UsersSkipped++
	}
}

func (s *Seeder) ensureUser(ctx context.Context, u models.User, password string) (*models.User, bool, error) {
	existing, err := s.repo.GetUserByEmail(ctx, u.Email)
	if err == nil {
		return existing, false, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, false, err
	}
	if err := u.SetPassword(password); err != nil {
		return nil, false, apperr.Internal("could not hash seed password", err)
	}
	if err := s.repo.CreateUser(ctx, &u); err != nil {
		return nil, false, fmt.Errorf("seed user %s: %w", u.Email, err)
	}
	return &u, true, nil
}

// Samples returns the sample data as generic records keyed by entity name.
// The entity client serves them when the server is unreachable or empty.
func Samples() map[string][]map[string]interface{} {
	docs := make([]models.Doctor, 0, len(doctors))
	for i, d := range doctors {
		u := d.user
		u.ID = fmt.Sprintf("sample-doctor-%d", i+1)
		p := d.profile
		docs = append(docs, models.NewDoctor(&u, &p))
	}
	meds := make([]models.Medicine, len(medicines))
	for i, m := range medicines {
		m.ID = fmt.Sprintf("sample-medicine-%d", i+1)
		meds[i] = m
	}
	tests := make([]models.LabTest, len(labTests))
	for i, t := range labTests {
		t.ID = fmt.Sprintf("sample-labtest-%d", i+1)
		tests[i] = t
	}
	return map[string][]map[string]interface{}{
		"Doctor":   toRecords(docs),
		"Medicine": toRecords(meds),
		"LabTest":  toRecords(tests),
	}
}

func toRecords(v interface{}) []map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
