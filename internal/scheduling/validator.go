package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/telehealth-scheduling/internal/directory"
	"github.com/carelink/telehealth-scheduling/internal/timeutil"
)

// PhysicianDirectory and ServiceCatalog are the external collaborators the
// validator consults. The directory package provides implementations; the
// validator only needs these lookups.
type PhysicianDirectory interface {
	GetPhysicianByID(ctx context.Context, id uuid.UUID) (*directory.Physician, error)
}

type ServiceCatalog interface {
	GetServiceByID(ctx context.Context, id uuid.UUID) (*directory.Service, error)
}

// Validator decides whether a booking request may proceed against the
// current view of the system. It is a pure decision function over
// collaborator data and performs no writes; its verdict is advisory until
// the coordinator re-checks under the schedule lock.
type Validator struct {
	slots      *SlotGenerator
	physicians PhysicianDirectory
	services   ServiceCatalog
	now        func() time.Time
}

func NewValidator(slots *SlotGenerator, physicians PhysicianDirectory, services ServiceCatalog) *Validator {
	return &Validator{
		slots:      slots,
		physicians: physicians,
		services:   services,
		now:        time.Now,
	}
}

// Validate runs the checks in a fixed order and stops at the first failure:
// physician active, service active, exact bookable slot match, not in the
// past. The slot grid is derived from the service's duration, so a window
// of any other length or offset can never match an advertised slot.
func (v *Validator) Validate(ctx context.Context, req BookingRequest) error {
	if problems := requestProblems(req); len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	phys, err := v.physicians.GetPhysicianByID(ctx, req.PhysicianID)
	if err != nil {
		if errors.Is(err, directory.ErrPhysicianNotFound) {
			return ErrPhysicianUnavailable
		}
		return fmt.Errorf("load physician: %w", err)
	}
	if phys.Status != directory.PhysicianApproved {
		return ErrPhysicianUnavailable
	}

	svc, err := v.services.GetServiceByID(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, directory.ErrServiceNotFound) {
			return ErrServiceUnavailable
		}
		return fmt.Errorf("load service: %w", err)
	}
	if !svc.Active {
		return ErrServiceUnavailable
	}

	day := timeutil.DateOf(req.Day)
	if req.EndMin-req.StartMin != svc.DurationMinutes {
		return ErrSlotNotAvailable
	}

	slots, err := v.slots.Generate(ctx, req.PhysicianID, day, day, svc.DurationMinutes)
	if err != nil {
		return err
	}

	matched := false
	for _, s := range slots {
		if s.StartMin == req.StartMin && s.EndMin == req.EndMin {
			if s.Bookable {
				matched = true
			}
			break
		}
	}
	if !matched {
		return ErrSlotNotAvailable
	}

	now := v.now().UTC()
	if day.Before(timeutil.DateOf(now)) ||
		(day.Equal(timeutil.DateOf(now)) && req.StartMin <= timeutil.MinuteOfDay(now)) {
		return ErrBookingInPast
	}

	return nil
}

func requestProblems(req BookingRequest) []string {
	var problems []string
	if req.PatientID == uuid.Nil {
		problems = append(problems, "patient_id is required")
	}
	if req.PhysicianID == uuid.Nil {
		problems = append(problems, "physician_id is required")
	}
	if req.ServiceID == uuid.Nil {
		problems = append(problems, "service_id is required")
	}
	if req.Day.IsZero() {
		problems = append(problems, "date is required")
	}
	if req.StartMin < 0 || req.EndMin > timeutil.MinutesPerDay || req.StartMin >= req.EndMin {
		problems = append(problems, fmt.Sprintf("window %s-%s is not a valid interval",
			timeutil.FormatHHMM(req.StartMin), timeutil.FormatHHMM(req.EndMin)))
	}
	if req.ConsultationType != "" {
		if _, ok := ParseConsultationType(string(req.ConsultationType)); !ok {
			problems = append(problems, fmt.Sprintf("unknown consultation type %q", req.ConsultationType))
		}
	}
	return problems
}
