package consultation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
)

type fakeRepo struct {
	appt     models.Appointment
	messages []models.ConsultationMessage
	readBy   string
}

func (f *fakeRepo) GetAppointment(_ context.Context, id string) (*models.Appointment, error) {
	if id != f.appt.ID {
		return nil, apperr.NotFound("appointment not found")
	}
	a := f.appt
	return &a, nil
}

func (f *fakeRepo) CreateMessage(_ context.Context, msg *models.ConsultationMessage) error {
	msg.ID = "msg"
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeRepo) ListMessages(_ context.Context, _ string, _ time.Time) ([]models.ConsultationMessage, error) {
	return f.messages, nil
}

func (f *fakeRepo) MarkMessagesRead(_ context.Context, _ string, readerID string, at time.Time) error {
	f.readBy = readerID
	for i := range f.messages {
		if f.messages[i].SenderID != readerID && f.messages[i].ReadAt == nil {
			t := at
			f.messages[i].ReadAt = &t
		}
	}
	return nil
}

type recordingNotifier struct {
	sent []models.Notification
}

func (r *recordingNotifier) NotifyBestEffort(_ context.Context, n *models.Notification) {
	r.sent = append(r.sent, *n)
}

var (
	patient = models.Actor{ID: "pat-1", Role: models.RolePatient}
	doctor  = models.Actor{ID: "doc-1", Role: models.RoleDoctor}
)

func setup(status models.AppointmentStatus) (*Service, *fakeRepo, *recordingNotifier) {
	repo := &fakeRepo{appt: models.Appointment{
		BaseModel:   models.BaseModel{ID: "apt-1"},
		PatientID:   "pat-1",
		PatientName: "Asha",
		DoctorID:    "doc-1",
		DoctorName:  "Neha Mehta",
		Status:      status,
	}}
	n := &recordingNotifier{}
	return NewService(repo, n, logger.Discard()), repo, n
}

func TestSend_NotifiesOtherParty(t *testing.T) {
	svc, repo, n := setup(models.StatusConfirmed)

	msg, err := svc.Send(context.Background(), patient, "apt-1", "  I still have a fever  ")
	require.NoError(t, err)
	assert.Equal(t, "I still have a fever", msg.Content)
	assert.Equal(t, models.RolePatient, msg.SenderRole)
	assert.Len(t, repo.messages, 1)

	require.Len(t, n.sent, 1)
	assert.Equal(t, "doc-1", n.sent[0].RecipientID)
	assert.Equal(t, models.NotificationMessage, n.sent[0].Type)

	_, err = svc.Send(context.Background(), doctor, "apt-1", strings.Repeat("a", 100))
	require.NoError(t, err)
	assert.Equal(t, "pat-1", n.sent[1].RecipientID)
	assert.Contains(t, n.sent[1].Title, "Dr. Neha Mehta")
	assert.True(t, strings.HasSuffix(n.sent[1].Message, "…"))
}

func TestSend_Rejections(t *testing.T) {
	svc, _, _ := setup(models.StatusPending)
	ctx := context.Background()

	_, err := svc.Send(ctx, patient, "apt-1", "hello")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.Send(ctx, patient, "apt-1", "   ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Send(ctx, patient, "apt-1", strings.Repeat("x", MaxMessageLength+1))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Send(ctx, models.Actor{ID: "pat-9", Role: models.RolePatient}, "apt-1", "hi")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestList_MarksOtherPartyRead(t *testing.T) {
	svc, repo, _ := setup(models.StatusConfirmed)
	ctx := context.Background()
	_, err := svc.Send(ctx, patient, "apt-1", "hello doctor")
	require.NoError(t, err)

	msgs, err := svc.List(ctx, patient, "apt-1", time.Time{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Nil(t, repo.messages[0].ReadAt, "own messages stay unread")

	_, err = svc.List(ctx, doctor, "apt-1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", repo.readBy)
	assert.NotNil(t, repo.messages[0].ReadAt)
}

func TestList_EmptyHistoryIsNotNil(t *testing.T) {
	svc, _, _ := setup(models.StatusCompleted)
	msgs, err := svc.List(context.Background(), doctor, "apt-1", time.Time{})
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}
