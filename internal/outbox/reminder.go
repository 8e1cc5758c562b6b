package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UpcomingAppointment is the slice of the appointment record the reminder
// job needs.
type UpcomingAppointment struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	PhysicianID uuid.UUID
	Day         string
	StartTime   string
	EndTime     string
}

// UpcomingSource lists confirmed appointments starting inside a window.
type UpcomingSource interface {
	ConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]UpcomingAppointment, error)
}

// Reminder enqueues APPOINTMENT_REMINDER events for confirmed appointments
// starting roughly an hour out. Enqueueing is idempotent per appointment:
// an appointment already holding a reminder event is skipped, so the job
// can run every minute with overlapping windows.
type Reminder struct {
	source UpcomingSource
	repo   Repository
	log    zerolog.Logger
	now    func() time.Time
}

func NewReminder(source UpcomingSource, repo Repository, log zerolog.Logger) *Reminder {
	return &Reminder{
		source: source,
		repo:   repo,
		log:    log,
		now:    time.Now,
	}
}

func (r *Reminder) Run(ctx context.Context) error {
	now := r.now()
	from := now.Add(55 * time.Minute)
	to := now.Add(65 * time.Minute)

	upcoming, err := r.source.ConfirmedStartingBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load upcoming appointments: %w", err)
	}

	for _, appt := range upcoming {
		exists, err := r.repo.HasEvent(ctx, appt.ID, EventAppointmentReminder)
		if err != nil {
			r.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("reminder lookup failed")
			continue
		}
		if exists {
			continue
		}

		payload, _ := json.Marshal(map[string]any{
			"appointment_id": appt.ID.String(),
			"patient_id":     appt.PatientID.String(),
			"physician_id":   appt.PhysicianID.String(),
			"day":            appt.Day,
			"start_time":     appt.StartTime,
			"end_time":       appt.EndTime,
		})

		if err := r.repo.Insert(ctx, Event{
			AppointmentID: appt.ID,
			EventType:     EventAppointmentReminder,
			Payload:       payload,
			Status:        EventPending,
		}); err != nil {
			r.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("enqueue reminder failed")
			continue
		}

		r.log.Info().Str("appointment_id", appt.ID.String()).Msg("reminder enqueued")
	}

	return nil
}
