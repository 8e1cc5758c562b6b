package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/telehealth-scheduling/internal/availability"
	"github.com/carelink/telehealth-scheduling/internal/directory"
	"github.com/carelink/telehealth-scheduling/internal/outbox"
	"github.com/carelink/telehealth-scheduling/internal/timeutil"
)

// -- In-memory appointment repository --

type memRepo struct {
	mu     sync.Mutex
	appts  map[uuid.UUID]*Appointment
	events []outbox.Event
}

func newMemRepo() *memRepo {
	return &memRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) ListActiveByPhysicianDay(_ context.Context, physicianID uuid.UUID, day time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Appointment
	for _, a := range m.appts {
		if a.PhysicianID == physicianID && a.Day.Equal(day) &&
			(a.Status == StatusPending || a.Status == StatusConfirmed) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *memRepo) ActiveOverlapExists(_ context.Context, physicianID uuid.UUID, day time.Time, startMin, endMin int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.PhysicianID == physicianID && a.Day.Equal(day) &&
			(a.Status == StatusPending || a.Status == StatusConfirmed) &&
			timeutil.Overlaps(startMin, endMin, a.StartMin, a.EndMin) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) CreatePending(_ context.Context, appt *Appointment, events []outbox.Event) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	cp := *appt
	cp.Status = StatusPending
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.appts[cp.ID] = &cp
	m.events = append(m.events, events...)
	out := cp
	return &out, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status, events []outbox.Event) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	m.events = append(m.events, events...)
	cp := *a
	return &cp, nil
}

func (m *memRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *memRepo) ListByPhysician(_ context.Context, physicianID uuid.UUID, limit, offset int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Appointment
	for _, a := range m.appts {
		if a.PhysicianID == physicianID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *memRepo) ListConfirmedStartingBetween(_ context.Context, from, to time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Appointment
	for _, a := range m.appts {
		if a.Status != StatusConfirmed {
			continue
		}
		start := a.Day.Add(time.Duration(a.StartMin) * time.Minute)
		if !start.Before(from) && !start.After(to) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *memRepo) eventsOfType(kind string) []outbox.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []outbox.Event
	for _, ev := range m.events {
		if ev.EventType == kind {
			result = append(result, ev)
		}
	}
	return result
}

// activeIntervals snapshots the {pending, confirmed} intervals per
// physician-day for overlap assertions.
func (m *memRepo) activeIntervals(physicianID uuid.UUID, day time.Time) [][2]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result [][2]int
	for _, a := range m.appts {
		if a.PhysicianID == physicianID && a.Day.Equal(day) &&
			(a.Status == StatusPending || a.Status == StatusConfirmed) {
			result = append(result, [2]int{a.StartMin, a.EndMin})
		}
	}
	return result
}

// -- Availability stub --

type stubAvail struct {
	accepting map[uuid.UUID]bool
	windows   map[string]availability.Window // key physicianID|YYYY-MM-DD
	calls     int
}

func newStubAvail() *stubAvail {
	return &stubAvail{
		accepting: make(map[uuid.UUID]bool),
		windows:   make(map[string]availability.Window),
	}
}

func availKey(physicianID uuid.UUID, day time.Time) string {
	return physicianID.String() + "|" + timeutil.FormatDate(day)
}

func (s *stubAvail) open(physicianID uuid.UUID, day time.Time, startMin, endMin int) {
	s.windows[availKey(physicianID, day)] = availability.Window{Open: true, StartMin: startMin, EndMin: endMin}
}

func (s *stubAvail) AcceptingBookings(_ context.Context, physicianID uuid.UUID) (bool, error) {
	s.calls++
	if accepting, ok := s.accepting[physicianID]; ok {
		return accepting, nil
	}
	return true, nil
}

func (s *stubAvail) EffectiveWindow(_ context.Context, physicianID uuid.UUID, day time.Time) (availability.Window, error) {
	return s.windows[availKey(physicianID, day)], nil
}

// -- Directory stubs --

type stubDirectory struct {
	physicians map[uuid.UUID]*directory.Physician
	services   map[uuid.UUID]*directory.Service
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		physicians: make(map[uuid.UUID]*directory.Physician),
		services:   make(map[uuid.UUID]*directory.Service),
	}
}

func (s *stubDirectory) approvedPhysician() uuid.UUID {
	id := uuid.New()
	s.physicians[id] = &directory.Physician{ID: id, Name: "Dr. Test", Status: directory.PhysicianApproved}
	return id
}

func (s *stubDirectory) activeService() uuid.UUID {
	id := uuid.New()
	s.services[id] = &directory.Service{ID: id, Name: "Consultation", DurationMinutes: 30, Active: true}
	return id
}

func (s *stubDirectory) GetPhysicianByID(_ context.Context, id uuid.UUID) (*directory.Physician, error) {
	p, ok := s.physicians[id]
	if !ok {
		return nil, directory.ErrPhysicianNotFound
	}
	return p, nil
}

func (s *stubDirectory) GetServiceByID(_ context.Context, id uuid.UUID) (*directory.Service, error) {
	svc, ok := s.services[id]
	if !ok {
		return nil, directory.ErrServiceNotFound
	}
	return svc, nil
}

// -- Local locker --

// localLocker serializes per key with in-process mutexes; it mirrors the
// Redis schedule lock's observable guarantee for tests.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLocalLocker() *localLocker {
	return &localLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *localLocker) WithScheduleLock(ctx context.Context, physicianID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	key := physicianID.String() + "|" + timeutil.FormatDate(day)

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}
