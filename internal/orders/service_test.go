package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
	"medconnect-server/internal/store"
)

type fakeRepo struct {
	orders     map[string]models.Order
	records    []models.HealthRecord
	lastFilter store.OrderFilter
	failRecord bool
}

type fakeTx struct {
	repo    *fakeRepo
	orders  map[string]models.Order
	records []models.HealthRecord
}

func (t *fakeTx) TransitionOrder(_ context.Context, id string, from, to models.OrderStatus, updates map[string]interface{}) error {
	o := t.orders[id]
	if o.Status != from {
		return apperr.Conflict("order status changed concurrently, reload and retry")
	}
	o.Status = to
	if v, ok := updates["report_url"].(string); ok {
		o.ReportURL = v
	}
	t.orders[id] = o
	return nil
}

func (t *fakeTx) CreateRecord(_ context.Context, rec *models.HealthRecord) error {
	if t.repo.failRecord {
		return apperr.Internal("database error on health record", errors.New("deadlock"))
	}
	t.records = append(t.records, *rec)
	return nil
}

func (f *fakeRepo) Atomically(_ context.Context, fn func(tx Tx) error) error {
	tx := &fakeTx{repo: f, orders: map[string]models.Order{}}
	for k, v := range f.orders {
		tx.orders[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	f.orders = tx.orders
	f.records = append(f.records, tx.records...)
	return nil
}

func (f *fakeRepo) GetOrder(_ context.Context, id string) (*models.Order, error) {
	if o, ok := f.orders[id]; ok {
		return &o, nil
	}
	return nil, apperr.NotFound("order not found")
}

func (f *fakeRepo) ListOrders(_ context.Context, filter store.OrderFilter) ([]models.Order, error) {
	f.lastFilter = filter
	return nil, nil
}

type recordingNotifier struct {
	sent []models.Notification
}

func (r *recordingNotifier) NotifyBestEffort(_ context.Context, n *models.Notification) {
	r.sent = append(r.sent, *n)
}

var (
	patient    = models.Actor{ID: "pat-1", Role: models.RolePatient}
	admin      = models.Actor{ID: "adm-1", Role: models.RoleAdmin}
	labPartner = models.Actor{ID: "lab-1", Role: models.RoleLabPartner}
)

func setup(kind models.CartKind, status models.OrderStatus) (*Service, *fakeRepo, *recordingNotifier) {
	repo := &fakeRepo{orders: map[string]models.Order{
		"ord-1": {
			BaseModel:    models.BaseModel{ID: "ord-1"},
			Kind:         kind,
			PatientID:    "pat-1",
			PatientEmail: "asha@example.com",
			Items:        []models.OrderItem{{ItemID: "lab-cbc", Name: "Complete Blood Count", Price: 350, Quantity: 1}},
			Status:       status,
		},
	}}
	n := &recordingNotifier{}
	svc := NewService(repo, n, logger.Discard())
	svc.now = func() time.Time { return time.Date(2030, 5, 12, 10, 0, 0, 0, time.UTC) }
	return svc, repo, n
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.CartPharmacy, models.OrderPlaced, models.OrderConfirmed))
	assert.True(t, CanTransition(models.CartPharmacy, models.OrderConfirmed, models.OrderShipped))
	assert.True(t, CanTransition(models.CartPharmacy, models.OrderShipped, models.OrderDelivered))
	assert.False(t, CanTransition(models.CartPharmacy, models.OrderConfirmed, models.OrderSampleCollected))
	assert.False(t, CanTransition(models.CartPharmacy, models.OrderPlaced, models.OrderShipped))

	assert.True(t, CanTransition(models.CartLab, models.OrderConfirmed, models.OrderSampleCollected))
	assert.True(t, CanTransition(models.CartLab, models.OrderSampleCollected, models.OrderCompleted))
	assert.False(t, CanTransition(models.CartLab, models.OrderConfirmed, models.OrderShipped))
	assert.False(t, CanTransition(models.CartLab, models.OrderCompleted, models.OrderPlaced))

	assert.True(t, CanTransition(models.CartLab, models.OrderPlaced, models.OrderCancelled))
	assert.True(t, CanTransition(models.CartPharmacy, models.OrderConfirmed, models.OrderCancelled))
	assert.False(t, CanTransition(models.CartPharmacy, models.OrderShipped, models.OrderCancelled))
	assert.False(t, CanTransition(models.CartLab, models.OrderSampleCollected, models.OrderCancelled))
}

func TestUpdateStatus_LabCompletionFilesReport(t *testing.T) {
	svc, repo, n := setup(models.CartLab, models.OrderSampleCollected)

	o, err := svc.UpdateStatus(context.Background(), labPartner, "ord-1", StatusChange{Status: models.OrderCompleted, ReportURL: "/api/v1/files/f-1"})
	require.NoError(t, err)

	assert.Equal(t, models.OrderCompleted, o.Status)
	assert.Equal(t, "/api/v1/files/f-1", repo.orders["ord-1"].ReportURL)
	require.Len(t, repo.records, 1)
	rec := repo.records[0]
	assert.Equal(t, models.RecordTypeLabReport, rec.RecordType)
	assert.Equal(t, "pat-1", rec.PatientID)
	assert.Contains(t, rec.Title, "Complete Blood Count")
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0].Message, "health records")
}

func TestUpdateStatus_ReportFailureRollsBack(t *testing.T) {
	svc, repo, n := setup(models.CartLab, models.OrderSampleCollected)
	repo.failRecord = true

	_, err := svc.UpdateStatus(context.Background(), labPartner, "ord-1", StatusChange{Status: models.OrderCompleted, ReportURL: "/r.pdf"})
	require.Error(t, err)
	assert.Equal(t, models.OrderSampleCollected, repo.orders["ord-1"].Status)
	assert.Empty(t, n.sent)
}

func TestUpdateStatus_Permissions(t *testing.T) {
	tests := []struct {
		name  string
		kind  models.CartKind
		from  models.OrderStatus
		actor models.Actor
		to    models.OrderStatus
		want  apperr.Kind
	}{
		{"lab partner cannot ship pharmacy orders", models.CartPharmacy, models.OrderConfirmed, labPartner, models.OrderShipped, apperr.KindForbidden},
		{"patient cannot confirm", models.CartPharmacy, models.OrderPlaced, patient, models.OrderConfirmed, apperr.KindForbidden},
		{"other patient cannot cancel", models.CartPharmacy, models.OrderPlaced, models.Actor{ID: "pat-2", Role: models.RolePatient}, models.OrderCancelled, apperr.KindForbidden},
		{"shipped cannot be cancelled", models.CartPharmacy, models.OrderShipped, patient, models.OrderCancelled, apperr.KindConflict},
		{"report on pharmacy order", models.CartPharmacy, models.OrderPlaced, admin, models.OrderConfirmed, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := setup(tt.kind, tt.from)
			change := StatusChange{Status: tt.to}
			if tt.want == apperr.KindValidation {
				change.ReportURL = "/r.pdf"
			}
			_, err := svc.UpdateStatus(context.Background(), tt.actor, "ord-1", change)
			assert.Equal(t, tt.want, apperr.KindOf(err))
		})
	}
}

func TestUpdateStatus_PatientCancelsWithoutSelfNotification(t *testing.T) {
	svc, repo, n := setup(models.CartPharmacy, models.OrderConfirmed)

	o, err := svc.UpdateStatus(context.Background(), patient, "ord-1", StatusChange{Status: models.OrderCancelled})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, o.Status)
	assert.Equal(t, models.OrderCancelled, repo.orders["ord-1"].Status)
	assert.Empty(t, n.sent)
}

func TestList_ByRole(t *testing.T) {
	svc, repo, _ := setup(models.CartLab, models.OrderPlaced)
	ctx := context.Background()

	_, err := svc.List(ctx, patient, "", "")
	require.NoError(t, err)
	assert.Equal(t, store.OrderFilter{PatientID: "pat-1"}, repo.lastFilter)

	_, err = svc.List(ctx, labPartner, "", models.OrderPlaced)
	require.NoError(t, err)
	assert.Equal(t, store.OrderFilter{Kind: models.CartLab, Status: models.OrderPlaced}, repo.lastFilter)

	_, err = svc.List(ctx, labPartner, models.CartPharmacy, "")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.List(ctx, models.Actor{ID: "doc", Role: models.RoleDoctor}, "", "")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestGet_Access(t *testing.T) {
	svc, _, _ := setup(models.CartPharmacy, models.OrderPlaced)
	ctx := context.Background()

	_, err := svc.Get(ctx, patient, "ord-1")
	assert.NoError(t, err)
	_, err = svc.Get(ctx, labPartner, "ord-1")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = svc.Get(ctx, admin, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
