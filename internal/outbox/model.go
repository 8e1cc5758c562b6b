package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Event types produced by the scheduling core. Consumers treat
// (appointment_id, event_type) as the idempotency key.
const (
	EventAppointmentRequested = "APPOINTMENT_REQUESTED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentNoShow    = "APPOINTMENT_NO_SHOW"
	EventAppointmentReminder  = "APPOINTMENT_REMINDER"
	EventMeetingLinkRequested = "MEETING_LINK_REQUESTED"
)

type EventStatus string

const (
	EventPending EventStatus = "pending"
	EventSent    EventStatus = "sent"
)

// Event is one durable side-effect request. Events are written in the same
// transaction as the appointment change that caused them, and drained by the
// outbox worker after commit; a failing collaborator delays delivery but
// never rolls back the appointment.
type Event struct {
	ID            int64
	AppointmentID uuid.UUID
	EventType     string
	Payload       []byte
	Status        EventStatus
	Attempts      int
	CreatedAt     time.Time
	SentAt        *time.Time
}
