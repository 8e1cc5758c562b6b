package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/telehealth-scheduling/internal/directory"
)

type validatorFixture struct {
	avail *stubAvail
	repo  *memRepo
	dir   *stubDirectory
	v     *Validator

	physID uuid.UUID
	svcID  uuid.UUID
}

// newValidatorFixture wires a validator whose clock is pinned to the Monday
// before tuesday, so tuesday bookings are always in the future.
func newValidatorFixture() *validatorFixture {
	avail := newStubAvail()
	repo := newMemRepo()
	dir := newStubDirectory()

	v := NewValidator(NewSlotGenerator(avail, repo), dir, dir)
	v.now = func() time.Time { return tuesday.AddDate(0, 0, -1).Add(12 * time.Hour) }

	f := &validatorFixture{
		avail:  avail,
		repo:   repo,
		dir:    dir,
		v:      v,
		physID: dir.approvedPhysician(),
		svcID:  dir.activeService(),
	}
	f.avail.open(f.physID, tuesday, 540, 720)
	return f
}

func (f *validatorFixture) request() BookingRequest {
	return BookingRequest{
		PatientID:        uuid.New(),
		PhysicianID:      f.physID,
		ServiceID:        f.svcID,
		Day:              tuesday,
		StartMin:         600,
		EndMin:           630,
		ConsultationType: ConsultationVideo,
	}
}

func TestValidateAccepts(t *testing.T) {
	f := newValidatorFixture()
	if err := f.v.Validate(context.Background(), f.request()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsMalformedRequest(t *testing.T) {
	f := newValidatorFixture()

	req := f.request()
	req.PatientID = uuid.Nil
	req.StartMin = 630
	req.EndMin = 600
	req.ConsultationType = "telepathy"

	err := f.v.Validate(context.Background(), req)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if len(ve.Problems) != 3 {
		t.Errorf("expected 3 problems, got %v", ve.Problems)
	}
}

func TestValidateRejectsUnknownPhysician(t *testing.T) {
	f := newValidatorFixture()

	req := f.request()
	req.PhysicianID = uuid.New()

	if err := f.v.Validate(context.Background(), req); !errors.Is(err, ErrPhysicianUnavailable) {
		t.Fatalf("got %v, want ErrPhysicianUnavailable", err)
	}
}

func TestValidateRejectsUnapprovedPhysician(t *testing.T) {
	f := newValidatorFixture()
	f.dir.physicians[f.physID].Status = directory.PhysicianSuspended

	if err := f.v.Validate(context.Background(), f.request()); !errors.Is(err, ErrPhysicianUnavailable) {
		t.Fatalf("got %v, want ErrPhysicianUnavailable", err)
	}
}

func TestValidateRejectsInactiveService(t *testing.T) {
	f := newValidatorFixture()
	f.dir.services[f.svcID].Active = false

	if err := f.v.Validate(context.Background(), f.request()); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("got %v, want ErrServiceUnavailable", err)
	}
}

func TestValidateRejectsUnknownService(t *testing.T) {
	f := newValidatorFixture()

	req := f.request()
	req.ServiceID = uuid.New()

	if err := f.v.Validate(context.Background(), req); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("got %v, want ErrServiceUnavailable", err)
	}
}

// The slot grid comes from the service's duration, not from whatever window
// the client asks for. A window of the wrong length never matches a slot,
// even when it lines up with the day's opening time.
func TestValidateRejectsWindowNotMatchingServiceDuration(t *testing.T) {
	f := newValidatorFixture()

	cases := []struct {
		name     string
		startMin int
		endMin   int
	}{
		{"whole morning", 540, 720},
		{"40 minutes from opening", 540, 580},
		{"double slot", 600, 660},
		{"half slot", 600, 615},
	}
	for _, tc := range cases {
		req := f.request()
		req.StartMin = tc.startMin
		req.EndMin = tc.endMin

		if err := f.v.Validate(context.Background(), req); !errors.Is(err, ErrSlotNotAvailable) {
			t.Errorf("%s (%d-%d): got %v, want ErrSlotNotAvailable", tc.name, tc.startMin, tc.endMin, err)
		}
	}
}

// A service with a different duration defines its own grid.
func TestValidateGridFollowsServiceDuration(t *testing.T) {
	f := newValidatorFixture()
	f.dir.services[f.svcID].DurationMinutes = 60

	req := f.request()
	req.StartMin = 540
	req.EndMin = 600
	if err := f.v.Validate(context.Background(), req); err != nil {
		t.Fatalf("60-minute slot for a 60-minute service rejected: %v", err)
	}

	req.StartMin = 600
	req.EndMin = 630
	if err := f.v.Validate(context.Background(), req); !errors.Is(err, ErrSlotNotAvailable) {
		t.Fatalf("30-minute window for a 60-minute service: got %v, want ErrSlotNotAvailable", err)
	}
}

func TestValidateRejectsOffGridWindow(t *testing.T) {
	f := newValidatorFixture()

	// 10:10-10:40 does not line up with any 30-minute slot boundary.
	req := f.request()
	req.StartMin = 610
	req.EndMin = 640

	if err := f.v.Validate(context.Background(), req); !errors.Is(err, ErrSlotNotAvailable) {
		t.Fatalf("got %v, want ErrSlotNotAvailable", err)
	}
}

func TestValidateRejectsBookedSlot(t *testing.T) {
	f := newValidatorFixture()

	f.repo.CreatePending(context.Background(), &Appointment{
		ID:          uuid.New(),
		PhysicianID: f.physID,
		Day:         tuesday,
		StartMin:    600,
		EndMin:      630,
	}, nil)

	if err := f.v.Validate(context.Background(), f.request()); !errors.Is(err, ErrSlotNotAvailable) {
		t.Fatalf("got %v, want ErrSlotNotAvailable", err)
	}
}

func TestValidateRejectsClosedDay(t *testing.T) {
	f := newValidatorFixture()

	req := f.request()
	req.Day = tuesday.AddDate(0, 0, 1) // no window configured

	if err := f.v.Validate(context.Background(), req); !errors.Is(err, ErrSlotNotAvailable) {
		t.Fatalf("got %v, want ErrSlotNotAvailable", err)
	}
}

func TestValidateRejectsPausedBookings(t *testing.T) {
	f := newValidatorFixture()
	f.avail.accepting[f.physID] = false

	if err := f.v.Validate(context.Background(), f.request()); !errors.Is(err, ErrSlotNotAvailable) {
		t.Fatalf("got %v, want ErrSlotNotAvailable", err)
	}
}

func TestValidateRejectsPastBooking(t *testing.T) {
	f := newValidatorFixture()
	f.v.now = func() time.Time { return tuesday.Add(11 * time.Hour) } // 11:00 on the day

	req := f.request() // starts 10:00
	if err := f.v.Validate(context.Background(), req); !errors.Is(err, ErrBookingInPast) {
		t.Fatalf("got %v, want ErrBookingInPast", err)
	}

	// Later the same day is still fine.
	req.StartMin = 690
	req.EndMin = 720
	if err := f.v.Validate(context.Background(), req); err != nil {
		t.Fatalf("same-day future booking rejected: %v", err)
	}
}

// Physician problems mask everything downstream: a suspended physician with
// an inactive service and a taken slot reports the physician first.
func TestValidateCheckOrder(t *testing.T) {
	f := newValidatorFixture()
	f.dir.physicians[f.physID].Status = directory.PhysicianSuspended
	f.dir.services[f.svcID].Active = false
	f.repo.CreatePending(context.Background(), &Appointment{
		ID:          uuid.New(),
		PhysicianID: f.physID,
		Day:         tuesday,
		StartMin:    600,
		EndMin:      630,
	}, nil)

	if err := f.v.Validate(context.Background(), f.request()); !errors.Is(err, ErrPhysicianUnavailable) {
		t.Fatalf("got %v, want ErrPhysicianUnavailable", err)
	}

	// Restore the physician; the service check is next in line.
	f.dir.physicians[f.physID].Status = directory.PhysicianApproved
	if err := f.v.Validate(context.Background(), f.request()); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("got %v, want ErrServiceUnavailable", err)
	}
}
