package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/telehealth-scheduling/internal/outbox"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the scheduling core.
// Write methods that take events persist the appointment change and the
// outbox rows in one transaction.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListActiveByPhysicianDay returns the {pending, confirmed} appointments
	// for one physician-day; the slot generator marks overlapping slots
	// unbookable from this set.
	ListActiveByPhysicianDay(ctx context.Context, physicianID uuid.UUID, day time.Time) ([]Appointment, error)

	// ActiveOverlapExists is the commit-time re-check run under the schedule
	// lock: does any {pending, confirmed} appointment overlap [startMin, endMin)?
	ActiveOverlapExists(ctx context.Context, physicianID uuid.UUID, day time.Time, startMin, endMin int) (bool, error)

	CreatePending(ctx context.Context, appt *Appointment, events []outbox.Event) (*Appointment, error)

	// UpdateStatus is a compare-and-set on status: the update applies only
	// while the stored status still equals from, so concurrent transitions
	// cannot stack.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, events []outbox.Event) (*Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListByPhysician(ctx context.Context, physicianID uuid.UUID, limit, offset int) ([]Appointment, error)

	// ListConfirmedStartingBetween feeds the reminder job.
	ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]Appointment, error)
}
