package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/telehealth-scheduling/internal/timeutil"
)

// ValidationError reports malformed availability input. It is never retried
// automatically; the caller fixes the input and resubmits.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid availability input: " + strings.Join(e.Problems, "; ")
}

// Service answers "is physician P open on day D, and during what window?"
// with no side effects, and owns all writes to the availability data.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// EffectiveWindow resolves the bookable window for one physician-day.
// A date override fully replaces the weekly rule for that day; a missing
// weekly rule means closed. The global accepting-bookings switch is not
// consulted here; the slot generator applies it before any per-day lookup.
func (s *Service) EffectiveWindow(ctx context.Context, physicianID uuid.UUID, day time.Time) (Window, error) {
	day = timeutil.DateOf(day)

	ov, err := s.repo.GetDateOverride(ctx, physicianID, day)
	if err != nil && !errors.Is(err, ErrOverrideNotFound) {
		return Closed, fmt.Errorf("load date override: %w", err)
	}
	if ov != nil {
		if !ov.Available {
			return Closed, nil
		}
		return windowFromTimes(ov.StartTime, ov.EndTime)
	}

	rule, err := s.repo.GetWeekdayRule(ctx, physicianID, int(day.Weekday()))
	if err != nil {
		if errors.Is(err, ErrWeekdayRuleNotFound) {
			return Closed, nil
		}
		return Closed, fmt.Errorf("load weekday rule: %w", err)
	}
	if !rule.Available {
		return Closed, nil
	}
	return windowFromTimes(rule.StartTime, rule.EndTime)
}

func windowFromTimes(start, end string) (Window, error) {
	startMin, err := timeutil.ParseHHMM(start)
	if err != nil {
		return Closed, fmt.Errorf("stored window start: %w", err)
	}
	endMin, err := timeutil.ParseHHMM(end)
	if err != nil {
		return Closed, fmt.Errorf("stored window end: %w", err)
	}
	return Window{Open: true, StartMin: startMin, EndMin: endMin}, nil
}

// UpsertWeeklySchedule replaces the physician's full weekly grid atomically.
// A partial or malformed week is rejected as a whole; the error lists every
// bad day so the physician can fix the form in one pass.
func (s *Service) UpsertWeeklySchedule(ctx context.Context, physicianID uuid.UUID, rules []WeekdayRule) error {
	var problems []string

	seen := make(map[int]bool)
	for i, r := range rules {
		if r.Weekday < 0 || r.Weekday > 6 {
			problems = append(problems, fmt.Sprintf("entry %d: weekday %d out of range", i, r.Weekday))
			continue
		}
		if seen[r.Weekday] {
			problems = append(problems, fmt.Sprintf("weekday %d appears more than once", r.Weekday))
			continue
		}
		seen[r.Weekday] = true

		if !r.Available {
			continue
		}
		startMin, err := timeutil.ParseHHMM(r.StartTime)
		if err != nil {
			problems = append(problems, fmt.Sprintf("weekday %d: %v", r.Weekday, err))
			continue
		}
		endMin, err := timeutil.ParseHHMM(r.EndTime)
		if err != nil {
			problems = append(problems, fmt.Sprintf("weekday %d: %v", r.Weekday, err))
			continue
		}
		if startMin >= endMin {
			problems = append(problems, fmt.Sprintf("weekday %d: start %s is not before end %s", r.Weekday, r.StartTime, r.EndTime))
		}
	}
	for wd := 0; wd <= 6; wd++ {
		if !seen[wd] {
			problems = append(problems, fmt.Sprintf("weekday %d missing", wd))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	for i := range rules {
		rules[i].PhysicianID = physicianID
	}

	if err := s.repo.ReplaceWeek(ctx, physicianID, rules); err != nil {
		return fmt.Errorf("replace weekly schedule: %w", err)
	}

	s.log.Info().
		Str("physician_id", physicianID.String()).
		Msg("weekly schedule replaced")
	return nil
}

// SetDateOverride records a one-off exception for a single day: either a
// full-day block or a replacement window.
func (s *Service) SetDateOverride(ctx context.Context, ov DateOverride) error {
	ov.Day = timeutil.DateOf(ov.Day)

	if ov.Available {
		startMin, err := timeutil.ParseHHMM(ov.StartTime)
		if err != nil {
			return &ValidationError{Problems: []string{err.Error()}}
		}
		endMin, err := timeutil.ParseHHMM(ov.EndTime)
		if err != nil {
			return &ValidationError{Problems: []string{err.Error()}}
		}
		if startMin >= endMin {
			return &ValidationError{Problems: []string{
				fmt.Sprintf("override start %s is not before end %s", ov.StartTime, ov.EndTime),
			}}
		}
	}

	if err := s.repo.UpsertDateOverride(ctx, &ov); err != nil {
		return fmt.Errorf("upsert date override: %w", err)
	}

	s.log.Info().
		Str("physician_id", ov.PhysicianID.String()).
		Str("day", timeutil.FormatDate(ov.Day)).
		Bool("available", ov.Available).
		Msg("date override set")
	return nil
}

// ClearDateOverride removes the exception for a day, restoring the weekly rule.
func (s *Service) ClearDateOverride(ctx context.Context, physicianID uuid.UUID, day time.Time) error {
	return s.repo.DeleteDateOverride(ctx, physicianID, timeutil.DateOf(day))
}

// WeeklySchedule returns the stored grid for display and editing.
func (s *Service) WeeklySchedule(ctx context.Context, physicianID uuid.UUID) ([]WeekdayRule, error) {
	return s.repo.ListWeekdayRules(ctx, physicianID)
}

// AcceptingBookings reports the physician-level master switch.
func (s *Service) AcceptingBookings(ctx context.Context, physicianID uuid.UUID) (bool, error) {
	return s.repo.GetAcceptingBookings(ctx, physicianID)
}

// SetAcceptingBookings flips the master switch. When off, no slots are
// generated regardless of the weekly grid or overrides.
func (s *Service) SetAcceptingBookings(ctx context.Context, physicianID uuid.UUID, accepting bool) error {
	if err := s.repo.SetAcceptingBookings(ctx, physicianID, accepting); err != nil {
		return fmt.Errorf("set accepting bookings: %w", err)
	}
	s.log.Info().
		Str("physician_id", physicianID.String()).
		Bool("accepting", accepting).
		Msg("global availability switched")
	return nil
}
