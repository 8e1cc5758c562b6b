package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPhysicianNotFound = errors.New("physician not found")
	ErrServiceNotFound   = errors.New("service not found")
	ErrPatientNotFound   = errors.New("patient not found")
)

// Repository contains the lookups needed by the booking path.
type Repository interface {
	GetPhysicianByID(ctx context.Context, id uuid.UUID) (*Physician, error)
	GetServiceByID(ctx context.Context, id uuid.UUID) (*Service, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}
