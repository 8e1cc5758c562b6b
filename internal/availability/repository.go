package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOverrideNotFound    = errors.New("date override not found")
	ErrWeekdayRuleNotFound = errors.New("weekday rule not found")
)

// Repository contains all DB interactions needed by the availability service.
type Repository interface {
	GetWeekdayRule(ctx context.Context, physicianID uuid.UUID, weekday int) (*WeekdayRule, error)
	ListWeekdayRules(ctx context.Context, physicianID uuid.UUID) ([]WeekdayRule, error)
	// ReplaceWeek swaps the physician's full weekly grid in one transaction.
	ReplaceWeek(ctx context.Context, physicianID uuid.UUID, rules []WeekdayRule) error

	GetDateOverride(ctx context.Context, physicianID uuid.UUID, day time.Time) (*DateOverride, error)
	UpsertDateOverride(ctx context.Context, ov *DateOverride) error
	DeleteDateOverride(ctx context.Context, physicianID uuid.UUID, day time.Time) error

	// Global master switch: when false the physician takes no bookings at all.
	GetAcceptingBookings(ctx context.Context, physicianID uuid.UUID) (bool, error)
	SetAcceptingBookings(ctx context.Context, physicianID uuid.UUID, accepting bool) error
}
