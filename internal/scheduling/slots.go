package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/telehealth-scheduling/internal/availability"
	"github.com/carelink/telehealth-scheduling/internal/timeutil"
)

// AvailabilitySource is the slice of the availability service the generator
// needs.
type AvailabilitySource interface {
	AcceptingBookings(ctx context.Context, physicianID uuid.UUID) (bool, error)
	EffectiveWindow(ctx context.Context, physicianID uuid.UUID, day time.Time) (availability.Window, error)
}

// SlotGenerator enumerates discrete candidate slots for a physician across a
// date range, net of existing bookings. Results are computed from scratch on
// every call and never cached; stale reads are resolved by the commit-time
// re-check in the coordinator, not here.
type SlotGenerator struct {
	avail AvailabilitySource
	appts Repository
}

func NewSlotGenerator(avail AvailabilitySource, appts Repository) *SlotGenerator {
	return &SlotGenerator{avail: avail, appts: appts}
}

// Generate partitions each open day in [from, to] into consecutive
// slotMinutes-sized intervals, discarding any trailing remainder shorter
// than a full slot. An inverted or empty range yields an empty result, not
// an error. The physician-level master switch short-circuits the whole range.
func (g *SlotGenerator) Generate(ctx context.Context, physicianID uuid.UUID, from, to time.Time, slotMinutes int) ([]Slot, error) {
	if slotMinutes <= 0 {
		return nil, &ValidationError{Problems: []string{
			fmt.Sprintf("slot duration must be positive, got %d", slotMinutes),
		}}
	}

	from = timeutil.DateOf(from)
	to = timeutil.DateOf(to)

	slots := []Slot{}
	if to.Before(from) {
		return slots, nil
	}

	accepting, err := g.avail.AcceptingBookings(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("load global availability: %w", err)
	}
	if !accepting {
		return slots, nil
	}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		daySlots, err := g.generateDay(ctx, physicianID, day, slotMinutes)
		if err != nil {
			return nil, err
		}
		slots = append(slots, daySlots...)
	}

	return slots, nil
}

func (g *SlotGenerator) generateDay(ctx context.Context, physicianID uuid.UUID, day time.Time, slotMinutes int) ([]Slot, error) {
	window, err := g.avail.EffectiveWindow(ctx, physicianID, day)
	if err != nil {
		return nil, fmt.Errorf("effective window for %s: %w", timeutil.FormatDate(day), err)
	}
	if !window.Open {
		return nil, nil
	}

	booked, err := g.appts.ListActiveByPhysicianDay(ctx, physicianID, day)
	if err != nil {
		return nil, fmt.Errorf("load active appointments for %s: %w", timeutil.FormatDate(day), err)
	}

	var slots []Slot
	for start := window.StartMin; start+slotMinutes <= window.EndMin; start += slotMinutes {
		end := start + slotMinutes

		bookable := true
		for _, appt := range booked {
			if timeutil.Overlaps(start, end, appt.StartMin, appt.EndMin) {
				bookable = false
				break
			}
		}

		slots = append(slots, Slot{
			PhysicianID: physicianID,
			Day:         day,
			StartMin:    start,
			EndMin:      end,
			Bookable:    bookable,
		})
	}

	return slots, nil
}
