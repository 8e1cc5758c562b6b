package directory

import (
	"time"

	"github.com/google/uuid"
)

type PhysicianStatus string

const (
	PhysicianPending   PhysicianStatus = "pending"
	PhysicianApproved  PhysicianStatus = "approved"
	PhysicianSuspended PhysicianStatus = "suspended"
)

type Physician struct {
	ID              uuid.UUID
	Name            string
	Specialty       *string
	Status          PhysicianStatus
	ConsultationFee int64 // minor currency units
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Service struct {
	ID              uuid.UUID
	Name            string
	DurationMinutes int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
