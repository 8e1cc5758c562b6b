package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// ParseStatus maps an API string to a Status, case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(s)) {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return Status(strings.ToLower(s)), true
	}
	return "", false
}

type ConsultationType string

const (
	ConsultationVideo    ConsultationType = "video"
	ConsultationPhone    ConsultationType = "phone"
	ConsultationInPerson ConsultationType = "in_person"
)

// RequiresMeetingLink reports whether confirming this consultation must
// produce a meeting link.
func (c ConsultationType) RequiresMeetingLink() bool {
	return c == ConsultationVideo
}

func ParseConsultationType(s string) (ConsultationType, bool) {
	switch ConsultationType(strings.ToLower(s)) {
	case ConsultationVideo, ConsultationPhone, ConsultationInPerson:
		return ConsultationType(strings.ToLower(s)), true
	}
	return "", false
}

// Actor identifies who requested a status transition.
type Actor string

const (
	ActorPatient   Actor = "patient"
	ActorPhysician Actor = "physician"
	ActorAdmin     Actor = "admin"
)

func ParseActor(s string) (Actor, bool) {
	switch Actor(strings.ToLower(s)) {
	case ActorPatient, ActorPhysician, ActorAdmin:
		return Actor(strings.ToLower(s)), true
	}
	return "", false
}

// Appointment is the durable booking record. Day holds midnight UTC of the
// appointment date; StartMin/EndMin are minutes of that day, half-open.
// Appointments are never physically deleted; cancellation is a terminal
// status retained for history.
type Appointment struct {
	ID               uuid.UUID
	PatientID        uuid.UUID
	PhysicianID      uuid.UUID
	ServiceID        uuid.UUID
	Day              time.Time
	StartMin         int
	EndMin           int
	ConsultationType ConsultationType
	Status           Status
	MeetingLink      *string
	Notes            *string
	Symptoms         *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Slot is a computed candidate booking window. Slots are derived fresh on
// every query and never persisted; their validity depends on the live
// appointment set.
type Slot struct {
	PhysicianID uuid.UUID
	Day         time.Time
	StartMin    int
	EndMin      int
	Bookable    bool
}

// BookingRequest is the typed booking intent passed into the core.
type BookingRequest struct {
	PatientID        uuid.UUID
	PhysicianID      uuid.UUID
	ServiceID        uuid.UUID
	Day              time.Time
	StartMin         int
	EndMin           int
	ConsultationType ConsultationType
	Notes            *string
	Symptoms         *string
}
