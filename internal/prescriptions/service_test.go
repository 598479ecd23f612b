package prescriptions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/metrics"
	"medconnect-server/internal/models"
	"medconnect-server/internal/store"
)

// fakeRepo applies transactional writes to a staging copy and commits them
// only when fn succeeds.
type fakeRepo struct {
	appointments  map[string]models.Appointment
	prescriptions map[string]models.Prescription
	notifications []models.Notification
	failNotify    bool
}

type fakeTx struct {
	repo          *fakeRepo
	appointments  map[string]models.Appointment
	prescriptions []models.Prescription
	notifications []models.Notification
}

func (t *fakeTx) CreatePrescription(_ context.Context, rx *models.Prescription) error {
	t.prescriptions = append(t.prescriptions, *rx)
	return nil
}

func (t *fakeTx) TransitionAppointment(_ context.Context, id string, from, to models.AppointmentStatus, _ map[string]interface{}) error {
	a, ok := t.appointments[id]
	if !ok || a.Status != from {
		return apperr.Conflict("appointment status changed concurrently, reload and retry")
	}
	a.Status = to
	t.appointments[id] = a
	return nil
}

func (t *fakeTx) CreateNotification(_ context.Context, n *models.Notification) error {
	if t.repo.failNotify {
		return apperr.Internal("database error on notification", errors.New("disk full"))
	}
	t.notifications = append(t.notifications, *n)
	return nil
}

func (f *fakeRepo) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	tx := &fakeTx{repo: f, appointments: map[string]models.Appointment{}}
	for k, v := range f.appointments {
		tx.appointments[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	f.appointments = tx.appointments
	for _, rx := range tx.prescriptions {
		f.prescriptions[rx.ID] = rx
	}
	f.notifications = append(f.notifications, tx.notifications...)
	return nil
}

func (f *fakeRepo) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	if a, ok := f.appointments[id]; ok {
		return &a, nil
	}
	return nil, apperr.NotFound("appointment not found")
}

func (f *fakeRepo) GetPrescription(_ context.Context, id string) (*models.Prescription, error) {
	if rx, ok := f.prescriptions[id]; ok {
		return &rx, nil
	}
	return nil, apperr.NotFound("prescription not found")
}

func (f *fakeRepo) ListPrescriptions(_ context.Context, filter store.PrescriptionFilter) ([]models.Prescription, error) {
	var out []models.Prescription
	for _, rx := range f.prescriptions {
		if filter.PatientID != "" && rx.PatientID != filter.PatientID {
			continue
		}
		if filter.DoctorID != "" && rx.DoctorID != filter.DoctorID {
			continue
		}
		out = append(out, rx)
	}
	return out, nil
}

type recordingAnnouncer struct {
	announced []models.Notification
}

func (r *recordingAnnouncer) Announce(n models.Notification) {
	r.announced = append(r.announced, n)
}

var doctor = models.Actor{ID: "doc-1", Role: models.RoleDoctor}

func setup(status models.AppointmentStatus) (*Service, *fakeRepo, *recordingAnnouncer) {
	repo := &fakeRepo{
		appointments: map[string]models.Appointment{
			"apt-1": {
				BaseModel:    models.BaseModel{ID: "apt-1"},
				PatientID:    "pat-1",
				PatientName:  "Asha",
				PatientEmail: "asha@example.com",
				DoctorID:     "doc-1",
				DoctorName:   "Neha Mehta",
				Status:       status,
			},
		},
		prescriptions: map[string]models.Prescription{},
	}
	a := &recordingAnnouncer{}
	return NewService(repo, a, metrics.New(), logger.Discard(), "test-secret"), repo, a
}

func validRequest() IssueRequest {
	return IssueRequest{
		AppointmentID: "apt-1",
		Diagnosis:     "Viral fever",
		Medicines: []models.PrescribedMedicine{
			{Name: "Paracetamol 500mg", Dosage: "1 tablet", Frequency: "Three times a day", Duration: "5 days"},
		},
		Advice:       "Rest and fluids",
		FollowUpDate: "2030-05-20",
	}
}

func TestIssueRequest_Validate(t *testing.T) {
	req := validRequest()
	require.NoError(t, req.Validate())

	req.Diagnosis = "  "
	req.Medicines = []models.PrescribedMedicine{{Name: "Cetirizine", Dosage: "10mg"}}
	req.FollowUpDate = "20/05/2030"
	err := req.Validate()
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "diagnosis")
	assert.Contains(t, appErr.Fields, "medicines[0].frequency")
	assert.Contains(t, appErr.Fields, "medicines[0].duration")
	assert.NotContains(t, appErr.Fields, "medicines[0].name")
	assert.Contains(t, appErr.Fields, "followUpDate")

	empty := validRequest()
	empty.Medicines = nil
	assert.True(t, apperr.Is(empty.Validate(), apperr.KindValidation))
}

func TestIssue_CompletesAppointmentAtomically(t *testing.T) {
	svc, repo, announcer := setup(models.StatusConfirmed)

	rx, err := svc.Issue(context.Background(), doctor, validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, rx.ID)
	assert.Equal(t, "pat-1", rx.PatientID)
	assert.True(t, VerifySignature("test-secret", rx))
	assert.Equal(t, models.StatusCompleted, repo.appointments["apt-1"].Status)
	require.Len(t, repo.notifications, 1)
	assert.Equal(t, models.NotificationPrescription, repo.notifications[0].Type)
	assert.Equal(t, rx.ID, repo.notifications[0].RelatedID)
	assert.Len(t, announcer.announced, 1)
}

func TestIssue_RollsBackWhenNotificationFails(t *testing.T) {
	svc, repo, announcer := setup(models.StatusConfirmed)
	repo.failNotify = true

	_, err := svc.Issue(context.Background(), doctor, validRequest())
	require.Error(t, err)

	assert.Empty(t, repo.prescriptions)
	assert.Equal(t, models.StatusConfirmed, repo.appointments["apt-1"].Status)
	assert.Empty(t, announcer.announced)
}

func TestIssue_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		status models.AppointmentStatus
		actor  models.Actor
		kind   apperr.Kind
	}{
		{"pending appointment", models.StatusPending, doctor, apperr.KindConflict},
		{"already completed", models.StatusCompleted, doctor, apperr.KindConflict},
		{"another doctor", models.StatusConfirmed, models.Actor{ID: "doc-2", Role: models.RoleDoctor}, apperr.KindForbidden},
		{"the patient", models.StatusConfirmed, models.Actor{ID: "pat-1", Role: models.RolePatient}, apperr.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := setup(tt.status)
			_, err := svc.Issue(context.Background(), tt.actor, validRequest())
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Empty(t, repo.prescriptions)
		})
	}
}

func TestVerify_DetectsTampering(t *testing.T) {
	svc, repo, _ := setup(models.StatusConfirmed)
	rx, err := svc.Issue(context.Background(), doctor, validRequest())
	require.NoError(t, err)

	v, err := svc.Verify(context.Background(), doctor, rx.ID)
	require.NoError(t, err)
	assert.True(t, v.Valid)

	stored := repo.prescriptions[rx.ID]
	stored.Medicines = append(stored.Medicines, models.PrescribedMedicine{Name: "Codeine", Dosage: "1", Frequency: "daily", Duration: "30 days"})
	repo.prescriptions[rx.ID] = stored

	v, err = svc.Verify(context.Background(), models.Actor{ID: "pat-1", Role: models.RolePatient}, rx.ID)
	require.NoError(t, err)
	assert.False(t, v.Valid)
}

func TestSign_DependsOnSecret(t *testing.T) {
	rx := &models.Prescription{BaseModel: models.BaseModel{ID: "rx-1"}, Diagnosis: "Migraine"}
	assert.NotEqual(t, Sign("a", rx), Sign("b", rx))
	assert.Equal(t, Sign("a", rx), Sign("a", rx))

	rx.DigitalSignature = "not-hex"
	assert.False(t, VerifySignature("a", rx))
}

func TestSign_FieldBoundariesAreUnambiguous(t *testing.T) {
	a := &models.Prescription{
		BaseModel: models.BaseModel{ID: "rx-1"},
		Medicines: []models.PrescribedMedicine{{Name: "Paracetamol|500mg", Dosage: "", Frequency: "daily"}},
	}
	b := &models.Prescription{
		BaseModel: models.BaseModel{ID: "rx-1"},
		Medicines: []models.PrescribedMedicine{{Name: "Paracetamol", Dosage: "500mg|", Frequency: "daily"}},
	}
	assert.NotEqual(t, Sign("a", a), Sign("a", b))

	c := &models.Prescription{BaseModel: models.BaseModel{ID: "rx-1"}, Diagnosis: "Migraine\n", Advice: ""}
	d := &models.Prescription{BaseModel: models.BaseModel{ID: "rx-1"}, Diagnosis: "Migraine", Advice: "\n"}
	assert.NotEqual(t, Sign("a", c), Sign("a", d))
}

func TestListAndGet_Access(t *testing.T) {
	svc, _, _ := setup(models.StatusConfirmed)
	rx, err := svc.Issue(context.Background(), doctor, validRequest())
	require.NoError(t, err)

	list, err := svc.List(context.Background(), models.Actor{ID: "pat-1", Role: models.RolePatient}, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = svc.List(context.Background(), models.Actor{ID: "pat-2", Role: models.RolePatient}, "")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.List(context.Background(), models.Actor{ID: "h", Role: models.RoleHospital}, "")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.Get(context.Background(), models.Actor{ID: "pat-2", Role: models.RolePatient}, rx.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = svc.Get(context.Background(), models.Actor{ID: "adm", Role: models.RoleAdmin}, rx.ID)
	assert.NoError(t, err)
}
