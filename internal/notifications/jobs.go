package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"medconnect-server/internal/config"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
)

// JobRepository is the persistence used by the background jobs.
type JobRepository interface {
	DueReminders(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error)
	PurgeReadNotifications(ctx context.Context, cutoff time.Time) (int64, error)
}

// Jobs runs appointment reminders and notification retention on a gocron scheduler.
type Jobs struct {
	repo      JobRepository
	notifier  *Service
	cfg       config.JobsConfig
	logger    *logger.Logger
	now       func() time.Time
	scheduler *gocron.Scheduler
}

func NewJobs(repo JobRepository, notifier *Service, cfg config.JobsConfig, log *logger.Logger) *Jobs {
	return &Jobs{
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		logger:   log,
		now:      time.Now,
	}
}

// Start schedules the jobs and starts the scheduler in the background.
func (j *Jobs) Start() error {
	log := j.logger.WithComponent("jobs")
	scheduler := gocron.NewScheduler(time.Local)
	scheduler.SingletonModeAll()

	if _, err := scheduler.Every(j.cfg.ReminderInterval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		sent, err := j.SendReminders(ctx)
		if err != nil {
			log.WithError(err).Error("Appointment reminder run failed")
			return
		}
		if sent > 0 {
			log.WithField("sent", sent).Info("Appointment reminders sent")
		}
	}); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}

	if _, err := scheduler.Every(1).Day().At("03:00").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		purged, err := j.PurgeRead(ctx)
		if err != nil {
			log.WithError(err).Error("Notification retention run failed")
			return
		}
		log.WithField("purged", purged).Info("Old read notifications purged")
	}); err != nil {
		return fmt.Errorf("schedule retention: %w", err)
	}

	scheduler.StartAsync()
	j.scheduler = scheduler
	log.WithField("reminder_interval", j.cfg.ReminderInterval.String()).Info("Background jobs started")
	return nil
}

// Stop stops the scheduler. Running jobs finish on their own.
func (j *Jobs) Stop() {
	if j.scheduler != nil {
		j.scheduler.Stop()
	}
}

// SendReminders notifies both parties of confirmed appointments starting
// within the reminder lead time. Each appointment is reminded once.
func (j *Jobs) SendReminders(ctx context.Context) (int, error) {
	now := j.now()
	due, err := j.repo.DueReminders(ctx, now, now.Add(j.cfg.ReminderLead))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, appt := range due {
		claimed, err := j.repo.MarkReminderSent(ctx, appt.ID, now)
		if err != nil {
			j.logger.WithComponent("jobs").WithError(err).WithField("appointment_id", appt.ID).Warn("Failed to claim reminder")
			continue
		}
		if !claimed {
			continue
		}

		when := fmt.Sprintf("%s at %s", appt.Date, appt.TimeSlot)
		j.notifier.NotifyBestEffort(ctx, &models.Notification{
			RecipientID:    appt.PatientID,
			RecipientEmail: appt.PatientEmail,
			Title:          "Upcoming appointment",
			Message:        fmt.Sprintf("Your %s consultation with %s is on %s.", appt.ConsultationType, appt.DoctorName, when),
			Type:           models.NotificationReminder,
			RelatedID:      appt.ID,
		})
		j.notifier.NotifyBestEffort(ctx, &models.Notification{
			RecipientID:    appt.DoctorID,
			RecipientEmail: appt.DoctorEmail,
			Title:          "Upcoming appointment",
			Message:        fmt.Sprintf("%s consultation with %s on %s.", appt.ConsultationType, appt.PatientName, when),
			Type:           models.NotificationReminder,
			RelatedID:      appt.ID,
		})
		sent++
	}
	return sent, nil
}

// PurgeRead deletes read notifications older than the retention period.
func (j *Jobs) PurgeRead(ctx context.Context) (int64, error) {
	return j.repo.PurgeReadNotifications(ctx, j.now().Add(-j.cfg.NotificationRetention))
}
