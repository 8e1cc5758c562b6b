package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/carelink/telehealth-scheduling/internal/availability"
	"github.com/carelink/telehealth-scheduling/internal/scheduling"
	"github.com/carelink/telehealth-scheduling/internal/timeutil"
)

type BookAppointmentRequest struct {
	PatientID        string  `json:"patient_id"`
	PhysicianID      string  `json:"physician_id"`
	ServiceID        string  `json:"service_id"`
	Date             string  `json:"date"`       // YYYY-MM-DD
	StartTime        string  `json:"start_time"` // HH:mm
	EndTime          string  `json:"end_time"`
	ConsultationType string  `json:"consultation_type"`
	Notes            *string `json:"notes,omitempty"`
	Symptoms         *string `json:"symptoms,omitempty"`
}

type TransitionRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
}

type AppointmentResponse struct {
	ID               uuid.UUID `json:"id"`
	PatientID        uuid.UUID `json:"patient_id"`
	PhysicianID      uuid.UUID `json:"physician_id"`
	ServiceID        uuid.UUID `json:"service_id"`
	Date             string    `json:"date"`
	StartTime        string    `json:"start_time"`
	EndTime          string    `json:"end_time"`
	ConsultationType string    `json:"consultation_type"`
	Status           string    `json:"status"`
	MeetingLink      *string   `json:"meeting_link,omitempty"`
	Notes            *string   `json:"notes,omitempty"`
	Symptoms         *string   `json:"symptoms,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:               a.ID,
		PatientID:        a.PatientID,
		PhysicianID:      a.PhysicianID,
		ServiceID:        a.ServiceID,
		Date:             timeutil.FormatDate(a.Day),
		StartTime:        timeutil.FormatHHMM(a.StartMin),
		EndTime:          timeutil.FormatHHMM(a.EndMin),
		ConsultationType: string(a.ConsultationType),
		Status:           string(a.Status),
		MeetingLink:      a.MeetingLink,
		Notes:            a.Notes,
		Symptoms:         a.Symptoms,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

type SlotResponse struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Bookable  bool   `json:"bookable"`
}

func toSlotResponses(slots []scheduling.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{
			Date:      timeutil.FormatDate(s.Day),
			StartTime: timeutil.FormatHHMM(s.StartMin),
			EndTime:   timeutil.FormatHHMM(s.EndMin),
			Bookable:  s.Bookable,
		})
	}
	return out
}

type WeekdayRuleJSON struct {
	Weekday   int    `json:"weekday"` // 0=Sunday .. 6=Saturday
	Available bool   `json:"available"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

type WeeklyScheduleRequest struct {
	Days []WeekdayRuleJSON `json:"days"`
}

type WeeklyScheduleResponse struct {
	PhysicianID uuid.UUID         `json:"physician_id"`
	Days        []WeekdayRuleJSON `json:"days"`
}

func toWeekdayRules(physicianID uuid.UUID, days []WeekdayRuleJSON) []availability.WeekdayRule {
	rules := make([]availability.WeekdayRule, 0, len(days))
	for _, d := range days {
		rules = append(rules, availability.WeekdayRule{
			PhysicianID: physicianID,
			Weekday:     d.Weekday,
			Available:   d.Available,
			StartTime:   d.StartTime,
			EndTime:     d.EndTime,
		})
	}
	return rules
}

type DateOverrideRequest struct {
	Available bool   `json:"available"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

type GlobalAvailabilityRequest struct {
	AcceptingBookings bool `json:"accepting_bookings"`
}

type GlobalAvailabilityResponse struct {
	PhysicianID       uuid.UUID `json:"physician_id"`
	AcceptingBookings bool      `json:"accepting_bookings"`
}

type ErrorResponse struct {
	Error    string   `json:"error"`
	Details  string   `json:"details,omitempty"`
	Problems []string `json:"problems,omitempty"`
}
