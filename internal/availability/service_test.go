package availability

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock repository --

type mockRepo struct {
	rules     map[uuid.UUID]map[int]*WeekdayRule
	overrides map[uuid.UUID]map[string]*DateOverride
	accepting map[uuid.UUID]bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		rules:     make(map[uuid.UUID]map[int]*WeekdayRule),
		overrides: make(map[uuid.UUID]map[string]*DateOverride),
		accepting: make(map[uuid.UUID]bool),
	}
}

func (m *mockRepo) GetWeekdayRule(_ context.Context, physicianID uuid.UUID, weekday int) (*WeekdayRule, error) {
	week, ok := m.rules[physicianID]
	if !ok {
		return nil, ErrWeekdayRuleNotFound
	}
	r, ok := week[weekday]
	if !ok {
		return nil, ErrWeekdayRuleNotFound
	}
	return r, nil
}

func (m *mockRepo) ListWeekdayRules(_ context.Context, physicianID uuid.UUID) ([]WeekdayRule, error) {
	var result []WeekdayRule
	for wd := 0; wd <= 6; wd++ {
		if r, ok := m.rules[physicianID][wd]; ok {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRepo) ReplaceWeek(_ context.Context, physicianID uuid.UUID, rules []WeekdayRule) error {
	week := make(map[int]*WeekdayRule)
	for i := range rules {
		r := rules[i]
		week[r.Weekday] = &r
	}
	m.rules[physicianID] = week
	return nil
}

func (m *mockRepo) GetDateOverride(_ context.Context, physicianID uuid.UUID, day time.Time) (*DateOverride, error) {
	ov, ok := m.overrides[physicianID][day.Format("2006-01-02")]
	if !ok {
		return nil, ErrOverrideNotFound
	}
	return ov, nil
}

func (m *mockRepo) UpsertDateOverride(_ context.Context, ov *DateOverride) error {
	if m.overrides[ov.PhysicianID] == nil {
		m.overrides[ov.PhysicianID] = make(map[string]*DateOverride)
	}
	m.overrides[ov.PhysicianID][ov.Day.Format("2006-01-02")] = ov
	return nil
}

func (m *mockRepo) DeleteDateOverride(_ context.Context, physicianID uuid.UUID, day time.Time) error {
	delete(m.overrides[physicianID], day.Format("2006-01-02"))
	return nil
}

func (m *mockRepo) GetAcceptingBookings(_ context.Context, physicianID uuid.UUID) (bool, error) {
	accepting, ok := m.accepting[physicianID]
	if !ok {
		return true, nil
	}
	return accepting, nil
}

func (m *mockRepo) SetAcceptingBookings(_ context.Context, physicianID uuid.UUID, accepting bool) error {
	m.accepting[physicianID] = accepting
	return nil
}

// -- Helpers --

func testService(repo Repository) *Service {
	return NewService(repo, zerolog.New(io.Discard))
}

func fullWeek(openDays map[int][2]string) []WeekdayRule {
	rules := make([]WeekdayRule, 0, 7)
	for wd := 0; wd <= 6; wd++ {
		r := WeekdayRule{Weekday: wd, Available: false}
		if window, ok := openDays[wd]; ok {
			r.Available = true
			r.StartTime = window[0]
			r.EndTime = window[1]
		}
		rules = append(rules, r)
	}
	return rules
}

// monday is a fixed Monday used across tests.
var monday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

func TestEffectiveWindowFromWeeklyRule(t *testing.T) {
	repo := newMockRepo()
	svc := testService(repo)
	phys := uuid.New()

	if err := svc.UpsertWeeklySchedule(context.Background(), phys, fullWeek(map[int][2]string{
		1: {"09:00", "12:00"},
	})); err != nil {
		t.Fatalf("upsert week: %v", err)
	}

	w, err := svc.EffectiveWindow(context.Background(), phys, monday)
	if err != nil {
		t.Fatalf("effective window: %v", err)
	}
	if !w.Open || w.StartMin != 540 || w.EndMin != 720 {
		t.Errorf("window = %+v, want open 540..720", w)
	}

	// Tuesday has no open rule
	w, err = svc.EffectiveWindow(context.Background(), phys, monday.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("effective window: %v", err)
	}
	if w.Open {
		t.Errorf("expected closed Tuesday, got %+v", w)
	}
}

func TestEffectiveWindowNoScheduleMeansClosed(t *testing.T) {
	svc := testService(newMockRepo())

	w, err := svc.EffectiveWindow(context.Background(), uuid.New(), monday)
	if err != nil {
		t.Fatalf("effective window: %v", err)
	}
	if w.Open {
		t.Errorf("expected closed, got %+v", w)
	}
}

func TestOverrideBeatsWeeklyRule(t *testing.T) {
	repo := newMockRepo()
	svc := testService(repo)
	phys := uuid.New()

	if err := svc.UpsertWeeklySchedule(context.Background(), phys, fullWeek(map[int][2]string{
		1: {"09:00", "17:00"},
	})); err != nil {
		t.Fatalf("upsert week: %v", err)
	}

	// Full-day block
	if err := svc.SetDateOverride(context.Background(), DateOverride{
		PhysicianID: phys,
		Day:         monday,
		Available:   false,
	}); err != nil {
		t.Fatalf("set override: %v", err)
	}

	w, err := svc.EffectiveWindow(context.Background(), phys, monday)
	if err != nil {
		t.Fatalf("effective window: %v", err)
	}
	if w.Open {
		t.Errorf("blocked day should be closed, got %+v", w)
	}

	// Replacement window
	if err := svc.SetDateOverride(context.Background(), DateOverride{
		PhysicianID: phys,
		Day:         monday,
		Available:   true,
		StartTime:   "14:00",
		EndTime:     "16:00",
	}); err != nil {
		t.Fatalf("set override: %v", err)
	}

	w, err = svc.EffectiveWindow(context.Background(), phys, monday)
	if err != nil {
		t.Fatalf("effective window: %v", err)
	}
	if !w.Open || w.StartMin != 840 || w.EndMin != 960 {
		t.Errorf("window = %+v, want open 840..960", w)
	}

	// Clearing restores the weekly rule
	if err := svc.ClearDateOverride(context.Background(), phys, monday); err != nil {
		t.Fatalf("clear override: %v", err)
	}
	w, _ = svc.EffectiveWindow(context.Background(), phys, monday)
	if !w.Open || w.StartMin != 540 {
		t.Errorf("window after clear = %+v, want weekly 540..1020", w)
	}
}

func TestUpsertWeeklyScheduleRejectsPartialWeek(t *testing.T) {
	svc := testService(newMockRepo())

	rules := fullWeek(map[int][2]string{1: {"09:00", "12:00"}})
	rules = rules[:6] // drop Saturday

	err := svc.UpsertWeeklySchedule(context.Background(), uuid.New(), rules)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Problems) != 1 {
		t.Errorf("problems = %v, want exactly the missing weekday", verr.Problems)
	}
}

func TestUpsertWeeklyScheduleRejectsInvertedWindow(t *testing.T) {
	svc := testService(newMockRepo())

	rules := fullWeek(map[int][2]string{
		1: {"12:00", "09:00"},
		3: {"bad", "10:00"},
	})

	err := svc.UpsertWeeklySchedule(context.Background(), uuid.New(), rules)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Problems) != 2 {
		t.Errorf("problems = %v, want one per malformed day", verr.Problems)
	}
}

func TestUpsertWeeklyScheduleRejectsDuplicateDay(t *testing.T) {
	svc := testService(newMockRepo())

	rules := fullWeek(nil)
	rules[2].Weekday = 1 // Tuesday entry duplicated onto Monday

	err := svc.UpsertWeeklySchedule(context.Background(), uuid.New(), rules)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSetDateOverrideValidatesWindow(t *testing.T) {
	svc := testService(newMockRepo())

	err := svc.SetDateOverride(context.Background(), DateOverride{
		PhysicianID: uuid.New(),
		Day:         monday,
		Available:   true,
		StartTime:   "16:00",
		EndTime:     "14:00",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAcceptingBookingsDefaultsTrue(t *testing.T) {
	repo := newMockRepo()
	svc := testService(repo)
	phys := uuid.New()

	accepting, err := svc.AcceptingBookings(context.Background(), phys)
	if err != nil {
		t.Fatalf("accepting bookings: %v", err)
	}
	if !accepting {
		t.Error("expected accepting by default")
	}

	if err := svc.SetAcceptingBookings(context.Background(), phys, false); err != nil {
		t.Fatalf("set accepting: %v", err)
	}
	accepting, _ = svc.AcceptingBookings(context.Background(), phys)
	if accepting {
		t.Error("expected not accepting after switch off")
	}
}
