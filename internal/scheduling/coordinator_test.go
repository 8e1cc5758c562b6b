package scheduling

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/telehealth-scheduling/internal/outbox"
	"github.com/carelink/telehealth-scheduling/internal/timeutil"
)

type coordFixture struct {
	avail *stubAvail
	repo  *memRepo
	dir   *stubDirectory
	coord *Coordinator

	physID uuid.UUID
	svcID  uuid.UUID
}

func newCoordFixture() *coordFixture {
	avail := newStubAvail()
	repo := newMemRepo()
	dir := newStubDirectory()

	validator := NewValidator(NewSlotGenerator(avail, repo), dir, dir)
	validator.now = func() time.Time { return tuesday.AddDate(0, 0, -1).Add(12 * time.Hour) }

	coord := NewCoordinator(repo, validator, newLocalLocker(), zerolog.New(io.Discard))

	f := &coordFixture{
		avail:  avail,
		repo:   repo,
		dir:    dir,
		coord:  coord,
		physID: dir.approvedPhysician(),
		svcID:  dir.activeService(),
	}
	f.avail.open(f.physID, tuesday, 540, 720)
	return f
}

func (f *coordFixture) request(startMin, endMin int) BookingRequest {
	return BookingRequest{
		PatientID:        uuid.New(),
		PhysicianID:      f.physID,
		ServiceID:        f.svcID,
		Day:              tuesday,
		StartMin:         startMin,
		EndMin:           endMin,
		ConsultationType: ConsultationVideo,
	}
}

func TestBookSlotCreatesPendingWithEvent(t *testing.T) {
	f := newCoordFixture()

	appt, err := f.coord.BookSlot(context.Background(), f.request(600, 630))
	if err != nil {
		t.Fatalf("BookSlot: %v", err)
	}
	if appt.Status != StatusPending {
		t.Errorf("status = %s, want pending", appt.Status)
	}
	if appt.StartMin != 600 || appt.EndMin != 630 {
		t.Errorf("window %d-%d, want 600-630", appt.StartMin, appt.EndMin)
	}

	events := f.repo.eventsOfType(outbox.EventAppointmentRequested)
	if len(events) != 1 {
		t.Fatalf("expected 1 requested event, got %d", len(events))
	}
	if events[0].AppointmentID != appt.ID {
		t.Errorf("event appointment %s, want %s", events[0].AppointmentID, appt.ID)
	}
	if events[0].Status != outbox.EventPending {
		t.Errorf("event status %s, want pending", events[0].Status)
	}
}

func TestBookSlotRejectsWindowOffServiceGrid(t *testing.T) {
	f := newCoordFixture()

	// 09:00-12:00 spans the whole morning; the service's grid is 30 minutes.
	if _, err := f.coord.BookSlot(context.Background(), f.request(540, 720)); !errors.Is(err, ErrSlotNotAvailable) {
		t.Fatalf("whole-morning window: got %v, want ErrSlotNotAvailable", err)
	}
	// 09:00-09:40 starts on the grid but has the wrong length.
	if _, err := f.coord.BookSlot(context.Background(), f.request(540, 580)); !errors.Is(err, ErrSlotNotAvailable) {
		t.Fatalf("40-minute window: got %v, want ErrSlotNotAvailable", err)
	}
	if got := len(f.repo.activeIntervals(f.physID, tuesday)); got != 0 {
		t.Fatalf("off-grid bookings wrote %d rows, want 0", got)
	}
}

func TestBookSlotRejectsTakenSlot(t *testing.T) {
	f := newCoordFixture()

	if _, err := f.coord.BookSlot(context.Background(), f.request(600, 630)); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if _, err := f.coord.BookSlot(context.Background(), f.request(600, 630)); !errors.Is(err, ErrSlotNotAvailable) {
		t.Fatalf("second booking: got %v, want ErrSlotNotAvailable", err)
	}
	if got := len(f.repo.activeIntervals(f.physID, tuesday)); got != 1 {
		t.Fatalf("expected 1 stored appointment, got %d", got)
	}
}

// staleRepo reports the slot free during validation, then flips to a
// conflict for the re-check under the lock, simulating a booking that landed
// between read and commit.
type staleRepo struct {
	*memRepo
	mu       sync.Mutex
	conflict bool
}

func (s *staleRepo) ActiveOverlapExists(ctx context.Context, physicianID uuid.UUID, day time.Time, startMin, endMin int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conflict, nil
}

func TestBookSlotStaleReadCreatesNoRow(t *testing.T) {
	avail := newStubAvail()
	dir := newStubDirectory()
	repo := &staleRepo{memRepo: newMemRepo()}

	validator := NewValidator(NewSlotGenerator(avail, repo), dir, dir)
	validator.now = func() time.Time { return tuesday.AddDate(0, 0, -1) }
	coord := NewCoordinator(repo, validator, newLocalLocker(), zerolog.New(io.Discard))

	physID := dir.approvedPhysician()
	svcID := dir.activeService()
	avail.open(physID, tuesday, 540, 720)

	// Validation sees a free slot; the lock-held re-check does not.
	repo.conflict = true

	_, err := coord.BookSlot(context.Background(), BookingRequest{
		PatientID:        uuid.New(),
		PhysicianID:      physID,
		ServiceID:        svcID,
		Day:              tuesday,
		StartMin:         600,
		EndMin:           630,
		ConsultationType: ConsultationPhone,
	})
	if !errors.Is(err, ErrSlotNotAvailable) {
		t.Fatalf("got %v, want ErrSlotNotAvailable", err)
	}
	if got := len(repo.activeIntervals(physID, tuesday)); got != 0 {
		t.Fatalf("stale booking wrote %d rows, want 0", got)
	}
}

func TestBookSlotConcurrentRaceHasOneWinner(t *testing.T) {
	f := newCoordFixture()

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.coord.BookSlot(context.Background(), f.request(600, 630))
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrSlotNotAvailable):
		default:
			t.Errorf("racer %d: unexpected error %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}
	if got := len(f.repo.activeIntervals(f.physID, tuesday)); got != 1 {
		t.Fatalf("expected 1 stored appointment, got %d", got)
	}
}

func TestBookSlotConcurrentDistinctSlotsAllSucceed(t *testing.T) {
	f := newCoordFixture()

	starts := []int{540, 570, 600, 630, 660, 690}
	var wg sync.WaitGroup
	errs := make([]error, len(starts))

	for i, start := range starts {
		wg.Add(1)
		go func(i, start int) {
			defer wg.Done()
			_, errs[i] = f.coord.BookSlot(context.Background(), f.request(start, start+30))
		}(i, start)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("slot %d: %v", starts[i], err)
		}
	}

	intervals := f.repo.activeIntervals(f.physID, tuesday)
	if len(intervals) != len(starts) {
		t.Fatalf("expected %d appointments, got %d", len(starts), len(intervals))
	}
	for i, a := range intervals {
		for j, b := range intervals {
			if i != j && timeutil.Overlaps(a[0], a[1], b[0], b[1]) {
				t.Fatalf("stored overlapping intervals %v and %v", a, b)
			}
		}
	}
}

func TestTransitionConfirmEnqueuesEvents(t *testing.T) {
	f := newCoordFixture()

	appt, err := f.coord.BookSlot(context.Background(), f.request(600, 630))
	if err != nil {
		t.Fatalf("BookSlot: %v", err)
	}

	updated, err := f.coord.Transition(context.Background(), appt.ID, StatusConfirmed, ActorPhysician)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if updated.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", updated.Status)
	}

	// Video consultation without a link: link request plus confirmation.
	if got := len(f.repo.eventsOfType(outbox.EventMeetingLinkRequested)); got != 1 {
		t.Errorf("meeting link events = %d, want 1", got)
	}
	if got := len(f.repo.eventsOfType(outbox.EventAppointmentConfirmed)); got != 1 {
		t.Errorf("confirmed events = %d, want 1", got)
	}
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	f := newCoordFixture()

	appt, _ := f.coord.BookSlot(context.Background(), f.request(600, 630))

	_, err := f.coord.Transition(context.Background(), appt.ID, StatusCompleted, ActorPhysician)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("got %v, want InvalidTransitionError", err)
	}
	if ite.From != StatusPending || ite.To != StatusCompleted {
		t.Errorf("error names %s -> %s", ite.From, ite.To)
	}
}

func TestTransitionRejectsForbiddenActor(t *testing.T) {
	f := newCoordFixture()

	appt, _ := f.coord.BookSlot(context.Background(), f.request(600, 630))

	if _, err := f.coord.Transition(context.Background(), appt.ID, StatusConfirmed, ActorPatient); !errors.Is(err, ErrActorNotAllowed) {
		t.Fatalf("got %v, want ErrActorNotAllowed", err)
	}

	got, err := f.coord.GetAppointment(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("GetAppointment: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("rejected transition changed status to %s", got.Status)
	}
}

func TestTransitionTerminalStatesImmutable(t *testing.T) {
	f := newCoordFixture()

	appt, _ := f.coord.BookSlot(context.Background(), f.request(600, 630))
	if _, err := f.coord.Transition(context.Background(), appt.ID, StatusCancelled, ActorPatient); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	for _, target := range allStatuses {
		_, err := f.coord.Transition(context.Background(), appt.ID, target, ActorAdmin)
		var ite *InvalidTransitionError
		if !errors.As(err, &ite) {
			t.Errorf("cancelled -> %s: got %v, want InvalidTransitionError", target, err)
		}
	}
}

func TestTransitionCancellationFreesSlot(t *testing.T) {
	f := newCoordFixture()

	appt, _ := f.coord.BookSlot(context.Background(), f.request(600, 630))
	if _, err := f.coord.Transition(context.Background(), appt.ID, StatusCancelled, ActorPatient); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// The slot is immediately rebookable.
	rebooked, err := f.coord.BookSlot(context.Background(), f.request(600, 630))
	if err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
	if rebooked.ID == appt.ID {
		t.Error("rebooking reused the cancelled appointment row")
	}

	if got := len(f.repo.eventsOfType(outbox.EventAppointmentCancelled)); got != 1 {
		t.Errorf("cancelled events = %d, want 1", got)
	}
}

func TestTransitionCASMissReportsCurrentStatus(t *testing.T) {
	f := newCoordFixture()

	appt, _ := f.coord.BookSlot(context.Background(), f.request(600, 630))

	// Move the row underneath the coordinator between its read and write.
	f.repo.mu.Lock()
	f.repo.appts[appt.ID].Status = StatusConfirmed
	f.repo.mu.Unlock()

	// The coordinator validated pending -> confirmed against its stale read;
	// direct CAS against the repository shows what happens on the miss.
	_, err := f.repo.UpdateStatus(context.Background(), appt.ID, StatusPending, StatusCancelled, nil)
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("CAS miss: got %v, want ErrAppointmentNotFound", err)
	}

	// Through the coordinator the same race surfaces as an invalid
	// transition naming the live status.
	_, err = f.coord.Transition(context.Background(), appt.ID, StatusConfirmed, ActorPhysician)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("got %v, want InvalidTransitionError", err)
	}
	if ite.From != StatusConfirmed {
		t.Errorf("error From = %s, want confirmed", ite.From)
	}
}

func TestListClampsPagination(t *testing.T) {
	limit, offset := clampPage(0, -5)
	if limit != 20 || offset != 0 {
		t.Errorf("clampPage(0, -5) = %d, %d", limit, offset)
	}
	limit, offset = clampPage(500, 10)
	if limit != 100 || offset != 10 {
		t.Errorf("clampPage(500, 10) = %d, %d", limit, offset)
	}
}
