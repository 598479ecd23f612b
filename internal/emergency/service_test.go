package emergency

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/metrics"
	"medconnect-server/internal/models"
	"medconnect-server/internal/store"
)

type fakeRepo struct {
	requests   map[string]*models.EmergencyRequest
	hospitals  []models.User
	lastLimit  int
	lastFilter store.EmergencyFilter
	seq        int
}

func newFakeRepo(hospitals int) *fakeRepo {
	r := &fakeRepo{requests: map[string]*models.EmergencyRequest{}}
	for i := 1; i <= hospitals; i++ {
		r.hospitals = append(r.hospitals, models.User{
			BaseModel: models.BaseModel{ID: fmt.Sprintf("hosp-%d", i)},
			Email:     fmt.Sprintf("h%d@example.com", i),
			Role:      models.RoleHospital,
		})
	}
	return r
}

func (f *fakeRepo) CreateEmergency(_ context.Context, er *models.EmergencyRequest) error {
	f.seq++
	er.ID = fmt.Sprintf("er-%d", f.seq)
	cp := *er
	f.requests[er.ID] = &cp
	return nil
}

func (f *fakeRepo) GetEmergency(_ context.Context, id string) (*models.EmergencyRequest, error) {
	if er, ok := f.requests[id]; ok {
		cp := *er
		return &cp, nil
	}
	return nil, apperr.NotFound("emergency request not found")
}

func (f *fakeRepo) ListEmergencies(_ context.Context, filter store.EmergencyFilter) ([]models.EmergencyRequest, error) {
	f.lastFilter = filter
	return nil, nil
}

func (f *fakeRepo) SetNotifiedHospitals(_ context.Context, id string, n int) error {
	f.requests[id].NotifiedHospitals = n
	return nil
}

func (f *fakeRepo) TransitionEmergency(_ context.Context, id string, from, to models.EmergencyStatus, handledBy string) error {
	er := f.requests[id]
	if er.Status != from {
		return apperr.Conflict("emergency request status changed concurrently, reload and retry")
	}
	er.Status = to
	er.HandledBy = handledBy
	return nil
}

func (f *fakeRepo) ListUsersLimit(_ context.Context, role models.Role, limit int) ([]models.User, error) {
	f.lastLimit = limit
	if limit < len(f.hospitals) {
		return f.hospitals[:limit], nil
	}
	return f.hospitals, nil
}

type fakeNotifier struct {
	sent   []models.Notification
	failOn map[string]bool
}

func (n *fakeNotifier) Notify(_ context.Context, note *models.Notification) error {
	if n.failOn[note.RecipientID] {
		return apperr.Internal("database error on notification", errors.New("lock wait timeout"))
	}
	n.sent = append(n.sent, *note)
	return nil
}

var (
	patient  = models.Actor{ID: "pat-1", Email: "asha@example.com", Role: models.RolePatient}
	hospital = models.Actor{ID: "hosp-1", Role: models.RoleHospital}
)

func validRequest() Request {
	return Request{
		EmergencyType: "cardiac",
		PatientName:   "Asha",
		ContactPhone:  "+91 98765 43210",
		Location:      "MG Road, Bengaluru",
	}
}

func TestRequest_Validate(t *testing.T) {
	require.NoError(t, validRequest().Validate())

	lat := 123.0
	err := Request{Latitude: &lat}.Validate()
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "emergencyType")
	assert.Contains(t, appErr.Fields, "patientName")
	assert.Contains(t, appErr.Fields, "contactPhone")
	assert.Contains(t, appErr.Fields, "latitude")
}

func TestRaise_FansOutToCappedHospitals(t *testing.T) {
	repo := newFakeRepo(8)
	n := &fakeNotifier{}
	svc := NewService(repo, n, metrics.New(), logger.Discard(), 5)

	er, err := svc.Raise(context.Background(), patient, validRequest())
	require.NoError(t, err)

	assert.Equal(t, 5, repo.lastLimit)
	assert.Equal(t, 5, er.NotifiedHospitals)
	assert.Equal(t, 5, repo.requests[er.ID].NotifiedHospitals)
	assert.Equal(t, models.EmergencyPending, er.Status)
	assert.Equal(t, "pat-1", er.PatientID)
	require.Len(t, n.sent, 5)
	assert.Equal(t, models.NotificationEmergency, n.sent[0].Type)
	assert.Equal(t, er.ID, n.sent[0].RelatedID)
	assert.Contains(t, n.sent[0].Message, "MG Road")
}

func TestRaise_PartialFanOutFailureIsLogged(t *testing.T) {
	repo := newFakeRepo(3)
	n := &fakeNotifier{failOn: map[string]bool{"hosp-2": true}}
	var out bytes.Buffer
	svc := NewService(repo, n, metrics.New(), logger.NewWithOutput("info", &out), 5)

	er, err := svc.Raise(context.Background(), patient, validRequest())
	require.NoError(t, err)

	assert.Equal(t, 2, er.NotifiedHospitals)
	assert.Contains(t, out.String(), "Failed to alert hospital")
	assert.Contains(t, out.String(), "hosp-2")
}

func TestRaise_NoHospitals(t *testing.T) {
	repo := newFakeRepo(0)
	svc := NewService(repo, &fakeNotifier{}, metrics.New(), logger.Discard(), 0)

	er, err := svc.Raise(context.Background(), models.Actor{ID: "adm", Role: models.RoleAdmin}, validRequest())
	require.NoError(t, err)
	assert.Equal(t, 0, er.NotifiedHospitals)
	assert.Empty(t, er.PatientID)
	assert.Equal(t, DefaultMaxHospitals, repo.lastLimit)
}

func TestAdvance_StrictlyForward(t *testing.T) {
	repo := newFakeRepo(1)
	n := &fakeNotifier{}
	svc := NewService(repo, n, metrics.New(), logger.Discard(), 5)
	er, err := svc.Raise(context.Background(), patient, validRequest())
	require.NoError(t, err)
	n.sent = nil

	_, err = svc.Advance(context.Background(), hospital, er.ID, models.EmergencyDispatched)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "cannot skip acknowledged")

	_, err = svc.Advance(context.Background(), patient, er.ID, models.EmergencyAcknowledged)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	got, err := svc.Advance(context.Background(), hospital, er.ID, models.EmergencyAcknowledged)
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyAcknowledged, got.Status)
	assert.Equal(t, "hosp-1", got.HandledBy)

	got, err = svc.Advance(context.Background(), hospital, er.ID, models.EmergencyDispatched)
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyDispatched, got.Status)

	_, err = svc.Advance(context.Background(), hospital, er.ID, models.EmergencyPending)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	require.Len(t, n.sent, 2)
	assert.Equal(t, "pat-1", n.sent[0].RecipientID)
	assert.Contains(t, n.sent[1].Message, "dispatched")
}

func TestList_ByRole(t *testing.T) {
	repo := newFakeRepo(0)
	svc := NewService(repo, &fakeNotifier{}, metrics.New(), logger.Discard(), 5)

	_, err := svc.List(context.Background(), patient, "")
	require.NoError(t, err)
	assert.Equal(t, "pat-1", repo.lastFilter.PatientID)

	_, err = svc.List(context.Background(), hospital, models.EmergencyPending)
	require.NoError(t, err)
	assert.Equal(t, store.EmergencyFilter{Status: models.EmergencyPending}, repo.lastFilter)

	_, err = svc.List(context.Background(), models.Actor{ID: "doc", Role: models.RoleDoctor}, "")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
