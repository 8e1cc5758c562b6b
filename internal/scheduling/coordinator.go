package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/telehealth-scheduling/internal/outbox"
	redisclient "github.com/carelink/telehealth-scheduling/internal/redis"
	"github.com/carelink/telehealth-scheduling/internal/timeutil"
)

// Coordinator is the only entry point that turns a booking intent into a
// durable appointment and the only entry point that performs status
// transitions. Reads stay lock-free; the overlap-check-and-insert sequence
// runs under a per-(physician, day) lock so that at most one of any set of
// racing bookings for an overlapping window can succeed.
type Coordinator struct {
	repo      Repository
	validator *Validator
	locker    redisclient.Locker
	log       zerolog.Logger
}

func NewCoordinator(repo Repository, validator *Validator, locker redisclient.Locker, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		repo:      repo,
		validator: validator,
		locker:    locker,
		log:       log,
	}
}

// BookSlot validates the request, then re-checks for overlap inside the
// schedule lock before inserting the PENDING appointment and its
// notification event in one transaction. A conflict that appeared since
// validation surfaces as ErrSlotNotAvailable, indistinguishable from a
// stale read.
func (c *Coordinator) BookSlot(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := c.validator.Validate(ctx, req); err != nil {
		return nil, err
	}

	day := timeutil.DateOf(req.Day)
	var created *Appointment

	err := c.locker.WithScheduleLock(ctx, req.PhysicianID, day, func(lockCtx context.Context) error {
		conflict, err := c.repo.ActiveOverlapExists(lockCtx, req.PhysicianID, day, req.StartMin, req.EndMin)
		if err != nil {
			return fmt.Errorf("overlap re-check: %w", err)
		}
		if conflict {
			return ErrSlotNotAvailable
		}

		appt := &Appointment{
			ID:               uuid.New(),
			PatientID:        req.PatientID,
			PhysicianID:      req.PhysicianID,
			ServiceID:        req.ServiceID,
			Day:              day,
			StartMin:         req.StartMin,
			EndMin:           req.EndMin,
			ConsultationType: req.ConsultationType,
			Status:           StatusPending,
		}

		created, err = c.repo.CreatePending(lockCtx, appt, []outbox.Event{
			newEvent(appt, outbox.EventAppointmentRequested),
		})
		if err != nil {
			return fmt.Errorf("create pending appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("physician_id", req.PhysicianID.String()).
		Str("day", timeutil.FormatDate(day)).
		Str("window", timeutil.FormatHHMM(req.StartMin)+"-"+timeutil.FormatHHMM(req.EndMin)).
		Msg("appointment booked")

	return created, nil
}

// Transition moves an appointment along one legal state-machine edge.
// The status write is a compare-and-set; side-effect events are persisted in
// the same transaction and dispatched after commit by the outbox worker, so
// a flaky downstream integration can never block or corrupt the status.
func (c *Coordinator) Transition(ctx context.Context, appointmentID uuid.UUID, target Status, actor Actor) (*Appointment, error) {
	appt, err := c.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if !CanTransition(appt.Status, target) {
		return nil, &InvalidTransitionError{From: appt.Status, To: target}
	}
	if !ActorMayTransition(appt.Status, target, actor) {
		return nil, ErrActorNotAllowed
	}

	var events []outbox.Event
	for _, kind := range transitionEvents(appt, target) {
		events = append(events, newEvent(appt, kind))
	}

	updated, err := c.repo.UpdateStatus(ctx, appt.ID, appt.Status, target, events)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The CAS missed: another transition won the race. Re-read so the
			// error names the status that actually blocked us.
			if current, loadErr := c.repo.GetAppointmentByID(ctx, appointmentID); loadErr == nil {
				return nil, &InvalidTransitionError{From: current.Status, To: target}
			}
			return nil, err
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	c.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("from", string(appt.Status)).
		Str("to", string(target)).
		Str("actor", string(actor)).
		Msg("appointment transitioned")

	return updated, nil
}

// GetAppointment retrieves an appointment by id.
func (c *Coordinator) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return c.repo.GetAppointmentByID(ctx, id)
}

// ListByPatient retrieves a patient's appointment history, newest first.
func (c *Coordinator) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return c.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ListByPhysician retrieves a physician's appointments, newest first.
func (c *Coordinator) ListByPhysician(ctx context.Context, physicianID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return c.repo.ListByPhysician(ctx, physicianID, limit, offset)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func newEvent(appt *Appointment, kind string) outbox.Event {
	payload, err := json.Marshal(map[string]any{
		"appointment_id":    appt.ID.String(),
		"patient_id":        appt.PatientID.String(),
		"physician_id":      appt.PhysicianID.String(),
		"day":               timeutil.FormatDate(appt.Day),
		"start_time":        timeutil.FormatHHMM(appt.StartMin),
		"end_time":          timeutil.FormatHHMM(appt.EndMin),
		"consultation_type": string(appt.ConsultationType),
	})
	if err != nil {
		payload = nil
	}

	return outbox.Event{
		AppointmentID: appt.ID,
		EventType:     kind,
		Payload:       payload,
		Status:        outbox.EventPending,
	}
}
