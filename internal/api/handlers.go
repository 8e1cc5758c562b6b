package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carelink/telehealth-scheduling/internal/availability"
	"github.com/carelink/telehealth-scheduling/internal/directory"
	redisclient "github.com/carelink/telehealth-scheduling/internal/redis"
	"github.com/carelink/telehealth-scheduling/internal/scheduling"
	"github.com/carelink/telehealth-scheduling/internal/timeutil"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// -- Slots --

func listSlotsHandler(gen *scheduling.SlotGenerator, services scheduling.ServiceCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_physician_id", "id must be a valid UUID")
			return
		}

		serviceID, err := uuid.Parse(r.URL.Query().Get("service_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}

		svc, err := services.GetServiceByID(r.Context(), serviceID)
		if err != nil {
			if errors.Is(err, directory.ErrServiceNotFound) {
				writeError(w, http.StatusNotFound, "service_not_found", "no such service")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		from := timeutil.DateOf(time.Now().UTC())
		if s := r.URL.Query().Get("from"); s != "" {
			if from, err = timeutil.ParseDate(s); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
				return
			}
		}
		to := from.AddDate(0, 0, 6)
		if s := r.URL.Query().Get("to"); s != "" {
			if to, err = timeutil.ParseDate(s); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
				return
			}
		}

		slots, err := gen.Generate(r.Context(), physicianID, from, to, svc.DurationMinutes)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"slots": toSlotResponses(slots)})
	}
}

// -- Appointments --

func bookAppointmentHandler(coord *scheduling.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		req, problems := toBookingRequest(body)
		if len(problems) > 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Problems: problems})
			return
		}

		appt, err := coord.BookSlot(r.Context(), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

// toBookingRequest translates the JSON shape into the typed booking intent.
// Only syntactic problems are reported here; semantic checks belong to the
// validator.
func toBookingRequest(body BookAppointmentRequest) (scheduling.BookingRequest, []string) {
	var problems []string
	var req scheduling.BookingRequest

	parseID := func(raw, field string) uuid.UUID {
		id, err := uuid.Parse(raw)
		if err != nil {
			problems = append(problems, field+" must be a valid UUID")
		}
		return id
	}
	req.PatientID = parseID(body.PatientID, "patient_id")
	req.PhysicianID = parseID(body.PhysicianID, "physician_id")
	req.ServiceID = parseID(body.ServiceID, "service_id")

	day, err := timeutil.ParseDate(body.Date)
	if err != nil {
		problems = append(problems, "date must be YYYY-MM-DD")
	}
	req.Day = day

	if req.StartMin, err = timeutil.ParseHHMM(body.StartTime); err != nil {
		problems = append(problems, "start_time must be HH:mm")
	}
	if req.EndMin, err = timeutil.ParseHHMM(body.EndTime); err != nil {
		problems = append(problems, "end_time must be HH:mm")
	}

	ct, ok := scheduling.ParseConsultationType(body.ConsultationType)
	if !ok {
		problems = append(problems, "consultation_type must be video, phone or in_person")
	}
	req.ConsultationType = ct
	req.Notes = body.Notes
	req.Symptoms = body.Symptoms

	return req, problems
}

func getAppointmentHandler(coord *scheduling.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := coord.GetAppointment(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(coord *scheduling.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))

		var (
			appts []scheduling.Appointment
			err   error
		)
		switch {
		case q.Get("patient_id") != "":
			patientID, parseErr := uuid.Parse(q.Get("patient_id"))
			if parseErr != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			appts, err = coord.ListByPatient(r.Context(), patientID, limit, offset)
		case q.Get("physician_id") != "":
			physicianID, parseErr := uuid.Parse(q.Get("physician_id"))
			if parseErr != nil {
				writeError(w, http.StatusBadRequest, "invalid_physician_id", "physician_id must be a valid UUID")
				return
			}
			appts, err = coord.ListByPhysician(r.Context(), physicianID, limit, offset)
		default:
			writeError(w, http.StatusBadRequest, "missing_filter", "patient_id or physician_id is required")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			out = append(out, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
	}
}

func transitionAppointmentHandler(coord *scheduling.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var body TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		target, ok := scheduling.ParseStatus(body.Status)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be one of pending, confirmed, completed, cancelled, no_show")
			return
		}
		actor, ok := scheduling.ParseActor(body.Actor)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_actor", "actor must be patient, physician or admin")
			return
		}

		appt, err := coord.Transition(r.Context(), id, target, actor)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// -- Availability --

func getWeeklyScheduleHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_physician_id", "id must be a valid UUID")
			return
		}

		rules, err := svc.WeeklySchedule(r.Context(), physicianID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		days := make([]WeekdayRuleJSON, 0, len(rules))
		for _, rule := range rules {
			days = append(days, WeekdayRuleJSON{
				Weekday:   rule.Weekday,
				Available: rule.Available,
				StartTime: rule.StartTime,
				EndTime:   rule.EndTime,
			})
		}
		writeJSON(w, http.StatusOK, WeeklyScheduleResponse{PhysicianID: physicianID, Days: days})
	}
}

func putWeeklyScheduleHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_physician_id", "id must be a valid UUID")
			return
		}

		var body WeeklyScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := svc.UpsertWeeklySchedule(r.Context(), physicianID, toWeekdayRules(physicianID, body.Days)); err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func putDateOverrideHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_physician_id", "id must be a valid UUID")
			return
		}
		day, err := timeutil.ParseDate(chi.URLParam(r, "date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		var body DateOverrideRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		err = svc.SetDateOverride(r.Context(), availability.DateOverride{
			PhysicianID: physicianID,
			Day:         day,
			Available:   body.Available,
			StartTime:   body.StartTime,
			EndTime:     body.EndTime,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteDateOverrideHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_physician_id", "id must be a valid UUID")
			return
		}
		day, err := timeutil.ParseDate(chi.URLParam(r, "date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		if err := svc.ClearDateOverride(r.Context(), physicianID, day); err != nil {
			if errors.Is(err, availability.ErrOverrideNotFound) {
				writeError(w, http.StatusNotFound, "override_not_found", "no override for that date")
				return
			}
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func getGlobalAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_physician_id", "id must be a valid UUID")
			return
		}

		accepting, err := svc.AcceptingBookings(r.Context(), physicianID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, GlobalAvailabilityResponse{PhysicianID: physicianID, AcceptingBookings: accepting})
	}
}

func putGlobalAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_physician_id", "id must be a valid UUID")
			return
		}

		var body GlobalAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := svc.SetAcceptingBookings(r.Context(), physicianID, body.AcceptingBookings); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, GlobalAvailabilityResponse{PhysicianID: physicianID, AcceptingBookings: body.AcceptingBookings})
	}
}

// writeDomainError maps core errors onto the HTTP surface. Conflicts (lost
// races, illegal transitions) are 409, a lock that could not be acquired in
// time is a retryable 503.
func writeDomainError(w http.ResponseWriter, err error) {
	var schedVal *scheduling.ValidationError
	var availVal *availability.ValidationError
	var invalidTransition *scheduling.InvalidTransitionError

	switch {
	case errors.As(err, &schedVal):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Problems: schedVal.Problems})
	case errors.As(err, &availVal):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_availability", Problems: availVal.Problems})
	case errors.Is(err, scheduling.ErrBookingInPast):
		writeError(w, http.StatusBadRequest, "booking_in_past", err.Error())
	case errors.Is(err, scheduling.ErrPhysicianUnavailable):
		writeError(w, http.StatusUnprocessableEntity, "physician_unavailable", err.Error())
	case errors.Is(err, scheduling.ErrServiceUnavailable):
		writeError(w, http.StatusUnprocessableEntity, "service_unavailable", err.Error())
	case errors.Is(err, scheduling.ErrSlotNotAvailable):
		writeError(w, http.StatusConflict, "slot_not_available", err.Error())
	case errors.As(err, &invalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, scheduling.ErrActorNotAllowed):
		writeError(w, http.StatusForbidden, "actor_not_allowed", err.Error())
	case errors.Is(err, redisclient.ErrLockTimeout):
		writeError(w, http.StatusServiceUnavailable, "schedule_busy", "the physician's schedule is busy, please retry")
	case errors.Is(err, context.DeadlineExceeded):
		// A write that ran out of time inside the lock's TTL window; nothing
		// partial was committed, so the whole request is safe to retry.
		writeError(w, http.StatusServiceUnavailable, "timeout", "the operation timed out, please retry")
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, directory.ErrPhysicianNotFound):
		writeError(w, http.StatusNotFound, "physician_not_found", err.Error())
	case errors.Is(err, directory.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
