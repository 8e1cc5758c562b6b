package availability

import (
	"time"

	"github.com/google/uuid"
)

// WeekdayRule is one row of a physician's recurring weekly grid. Times are
// local wall-clock "HH:mm" strings as entered by the physician; they are
// normalized to minute-of-day integers at the query boundary.
type WeekdayRule struct {
	ID          uuid.UUID
	PhysicianID uuid.UUID
	Weekday     int // 0 = Sunday .. 6 = Saturday
	StartTime   string
	EndTime     string
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DateOverride replaces the weekly rule for one specific calendar day:
// a full-day block when Available is false, otherwise a replacement window.
// At most one override exists per (physician, day).
type DateOverride struct {
	ID          uuid.UUID
	PhysicianID uuid.UUID
	Day         time.Time // midnight UTC
	Available   bool
	StartTime   string
	EndTime     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Window is the resolved bookable interval for one physician-day,
// in minute-of-day units.
type Window struct {
	Open     bool
	StartMin int
	EndMin   int
}

// Closed is the window of a day with no availability.
var Closed = Window{}
