package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/config"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/metrics"
	"medconnect-server/internal/models"
)

type fakeRepo struct {
	mu            sync.Mutex
	notifications []models.Notification
	createErr     error

	due         []models.Appointment
	reminded    map[string]bool
	purgeCutoff time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{reminded: map[string]bool{}}
}

func (f *fakeRepo) CreateNotification(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	n.ID = fmt.Sprintf("n-%d", len(f.notifications)+1)
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeRepo) ListNotifications(_ context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range f.notifications {
		if n.RecipientID == recipientID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) CountUnread(_ context.Context, recipientID string) (int64, error) {
	var c int64
	for _, n := range f.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (f *fakeRepo) MarkNotificationRead(_ context.Context, recipientID, id string) error {
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].RecipientID == recipientID {
			f.notifications[i].IsRead = true
			return nil
		}
	}
	return apperr.NotFound("notification not found")
}

func (f *fakeRepo) MarkAllNotificationsRead(_ context.Context, recipientID string) (int64, error) {
	var c int64
	for i := range f.notifications {
		if f.notifications[i].RecipientID == recipientID && !f.notifications[i].IsRead {
			f.notifications[i].IsRead = true
			c++
		}
	}
	return c, nil
}

func (f *fakeRepo) DeleteNotification(_ context.Context, recipientID, id string) error {
	for i, n := range f.notifications {
		if n.ID == id && n.RecipientID == recipientID {
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("notification not found")
}

func (f *fakeRepo) DueReminders(_ context.Context, from, to time.Time) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range f.due {
		if !a.StartTime.Before(from) && a.StartTime.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkReminderSent(_ context.Context, id string, _ time.Time) (bool, error) {
	if f.reminded[id] {
		return false, nil
	}
	f.reminded[id] = true
	return true, nil
}

func (f *fakeRepo) PurgeReadNotifications(_ context.Context, cutoff time.Time) (int64, error) {
	f.purgeCutoff = cutoff
	return 3, nil
}

func newTestService(repo *fakeRepo) (*Service, *Broadcaster) {
	b := NewBroadcaster()
	return NewService(repo, b, metrics.New(), logger.Discard()), b
}

func TestService_NotifyPersistsAndStreams(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	actor := models.Actor{ID: "pat-1", Role: models.RolePatient}

	stream, unsubscribe := svc.Subscribe(actor)
	defer unsubscribe()

	err := svc.Notify(context.Background(), &models.Notification{
		RecipientID: "pat-1",
		Title:       "Appointment confirmed",
		Type:        models.NotificationAppointment,
	})
	require.NoError(t, err)

	select {
	case n := <-stream:
		assert.Equal(t, "Appointment confirmed", n.Title)
		assert.NotEmpty(t, n.ID)
	case <-time.After(time.Second):
		t.Fatal("notification was not streamed")
	}

	count, err := svc.UnreadCount(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestService_NotifyValidation(t *testing.T) {
	svc, _ := newTestService(newFakeRepo())

	err := svc.Notify(context.Background(), &models.Notification{Title: "x"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = svc.Notify(context.Background(), &models.Notification{RecipientID: "u", Title: "  "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestService_NotifyDefaultsType(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	require.NoError(t, svc.Notify(context.Background(), &models.Notification{RecipientID: "u", Title: "Hi"}))
	assert.Equal(t, models.NotificationSystem, repo.notifications[0].Type)
}

func TestService_NotifyBestEffortSwallowsErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("db down")
	svc, _ := newTestService(repo)

	assert.NotPanics(t, func() {
		svc.NotifyBestEffort(context.Background(), &models.Notification{RecipientID: "u", Title: "Hi"})
	})
	assert.Empty(t, repo.notifications)
}

func TestService_InboxOperations(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	me := models.Actor{ID: "pat-1"}

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Notify(ctx, &models.Notification{RecipientID: "pat-1", Title: fmt.Sprintf("n%d", i)}))
	}
	require.NoError(t, svc.Notify(ctx, &models.Notification{RecipientID: "other", Title: "theirs"}))

	list, err := svc.List(ctx, me, false, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	require.NoError(t, svc.MarkRead(ctx, me, list[0].ID))
	assert.True(t, apperr.Is(svc.MarkRead(ctx, me, "n-4"), apperr.KindNotFound), "cannot touch another user's notification")

	unread, err := svc.List(ctx, me, true, 0)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	changed, err := svc.MarkAllRead(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	require.NoError(t, svc.Delete(ctx, me, list[1].ID))
	remaining, err := svc.List(ctx, me, false, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestBroadcaster_SubscribeAndUnsubscribe(t *testing.T) {
	b := NewBroadcaster()

	ch1, unsub1 := b.Subscribe("u1")
	_, unsub2 := b.Subscribe("u1")
	assert.Equal(t, 2, b.Subscribers("u1"))

	assert.Equal(t, 2, b.Publish(models.Notification{RecipientID: "u1", Title: "a"}))
	assert.Equal(t, 0, b.Publish(models.Notification{RecipientID: "u2", Title: "b"}))

	unsub1()
	unsub1()
	_, open := <-drain(ch1)
	assert.False(t, open)
	assert.Equal(t, 1, b.Subscribers("u1"))

	unsub2()
	assert.Equal(t, 0, b.Subscribers("u1"))
}

// drain empties buffered values so the next receive observes closure.
func drain(ch <-chan models.Notification) <-chan models.Notification {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return ch
			}
		default:
			return ch
		}
	}
}

func TestBroadcaster_PublishNeverBlocks(t *testing.T) {
	b := NewBroadcaster()
	_, unsub := b.Subscribe("u1")
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			b.Publish(models.Notification{RecipientID: "u1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestJobs_SendReminders(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.Local)

	repo.due = []models.Appointment{
		{BaseModel: models.BaseModel{ID: "soon"}, PatientID: "pat-1", DoctorID: "doc-1", StartTime: now.Add(30 * time.Minute)},
		{BaseModel: models.BaseModel{ID: "later"}, PatientID: "pat-2", DoctorID: "doc-1", StartTime: now.Add(3 * time.Hour)},
	}

	jobs := NewJobs(repo, svc, config.JobsConfig{ReminderLead: time.Hour, NotificationRetention: 30 * 24 * time.Hour}, logger.Discard())
	jobs.now = func() time.Time { return now }

	sent, err := jobs.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, repo.notifications, 2)
	assert.Equal(t, "pat-1", repo.notifications[0].RecipientID)
	assert.Equal(t, "doc-1", repo.notifications[1].RecipientID)
	assert.Equal(t, models.NotificationReminder, repo.notifications[0].Type)

	sent, err = jobs.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent, "each appointment is reminded once")
}

func TestJobs_PurgeRead(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	now := time.Date(2030, 3, 31, 3, 0, 0, 0, time.UTC)

	jobs := NewJobs(repo, svc, config.JobsConfig{NotificationRetention: 30 * 24 * time.Hour}, logger.Discard())
	jobs.now = func() time.Time { return now }

	n, err := jobs.PurgeRead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, time.Date(2030, 3, 1, 3, 0, 0, 0, time.UTC), repo.purgeCutoff)
}
