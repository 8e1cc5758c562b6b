package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MeetingLinks is the external collaborator that provisions video session
// links.
type MeetingLinks interface {
	CreateLink(ctx context.Context, appointmentID uuid.UUID) (string, error)
}

// MeetingLinkSaver writes a provisioned link back onto the appointment.
// The scheduling repository implements it.
type MeetingLinkSaver interface {
	SetMeetingLink(ctx context.Context, appointmentID uuid.UUID, link string) error
}

// Notification is one delivery request handed to the notifier collaborator.
// Receivers deduplicate on (AppointmentID, EventType).
type Notification struct {
	AppointmentID uuid.UUID
	EventType     string
	Payload       []byte
}

// Notifier delivers a notification. At-least-once semantics: the dispatcher
// retries on the next drain if delivery fails.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Dispatcher drains pending events and hands them to the collaborators.
// It runs outside every booking critical section; a failing collaborator
// bumps the event's attempt counter and leaves it pending for the next
// drain, and never surfaces into a booking or transition result.
type Dispatcher struct {
	repo     Repository
	links    MeetingLinks
	saver    MeetingLinkSaver
	notifier Notifier
	log      zerolog.Logger
	batch    int
}

func NewDispatcher(repo Repository, links MeetingLinks, saver MeetingLinkSaver, notifier Notifier, log zerolog.Logger, batch int) *Dispatcher {
	if batch <= 0 {
		batch = 100
	}
	return &Dispatcher{
		repo:     repo,
		links:    links,
		saver:    saver,
		notifier: notifier,
		log:      log,
		batch:    batch,
	}
}

// DispatchPending processes one batch. It returns how many events were
// successfully dispatched; per-event failures are logged and retried later
// rather than aborting the batch.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	events, err := d.repo.ListPending(ctx, d.batch)
	if err != nil {
		return 0, fmt.Errorf("list pending events: %w", err)
	}

	sent := 0
	for _, ev := range events {
		if err := d.dispatch(ctx, ev); err != nil {
			d.log.Warn().
				Err(err).
				Int64("event_id", ev.ID).
				Str("event_type", ev.EventType).
				Str("appointment_id", ev.AppointmentID.String()).
				Int("attempts", ev.Attempts+1).
				Msg("event dispatch failed, will retry")
			if markErr := d.repo.MarkFailed(ctx, ev.ID); markErr != nil {
				d.log.Error().Err(markErr).Int64("event_id", ev.ID).Msg("mark failed")
			}
			continue
		}

		if err := d.repo.MarkSent(ctx, ev.ID); err != nil {
			// The side effect ran but the bookkeeping write failed; the event
			// stays pending and will be re-dispatched. Receivers dedupe on
			// (appointment_id, event_type), so the repeat is harmless.
			d.log.Error().Err(err).Int64("event_id", ev.ID).Msg("mark sent")
			continue
		}
		sent++
	}

	return sent, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, ev Event) error {
	switch ev.EventType {
	case EventMeetingLinkRequested:
		link, err := d.links.CreateLink(ctx, ev.AppointmentID)
		if err != nil {
			return fmt.Errorf("create meeting link: %w", err)
		}
		if err := d.saver.SetMeetingLink(ctx, ev.AppointmentID, link); err != nil {
			return fmt.Errorf("save meeting link: %w", err)
		}
		return nil
	default:
		return d.notifier.Notify(ctx, Notification{
			AppointmentID: ev.AppointmentID,
			EventType:     ev.EventType,
			Payload:       ev.Payload,
		})
	}
}
