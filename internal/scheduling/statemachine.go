package scheduling

import "github.com/carelink/telehealth-scheduling/internal/outbox"

// transitions is the full table of legal status edges and who may trigger
// them. COMPLETED, CANCELLED and NO_SHOW are terminal.
var transitions = map[Status]map[Status][]Actor{
	StatusPending: {
		StatusConfirmed: {ActorPhysician, ActorAdmin},
		StatusCancelled: {ActorPatient, ActorPhysician, ActorAdmin},
	},
	StatusConfirmed: {
		StatusCompleted: {ActorPhysician, ActorAdmin},
		StatusCancelled: {ActorPatient, ActorPhysician, ActorAdmin},
		StatusNoShow:    {ActorPhysician, ActorAdmin},
	},
}

// CanTransition reports whether the edge from -> to exists at all,
// regardless of actor.
func CanTransition(from, to Status) bool {
	_, ok := transitions[from][to]
	return ok
}

// ActorMayTransition reports whether the given actor is an allowed trigger
// for an existing edge.
func ActorMayTransition(from, to Status, actor Actor) bool {
	allowed, ok := transitions[from][to]
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == actor {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing edges.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// transitionEvents returns the outbox event types bound to an edge. The
// events are written in the same transaction as the status change and
// dispatched after commit.
func transitionEvents(appt *Appointment, to Status) []string {
	var kinds []string

	switch {
	case appt.Status == StatusPending && to == StatusConfirmed:
		if appt.ConsultationType.RequiresMeetingLink() && appt.MeetingLink == nil {
			kinds = append(kinds, outbox.EventMeetingLinkRequested)
		}
		kinds = append(kinds, outbox.EventAppointmentConfirmed)
	case to == StatusCancelled:
		kinds = append(kinds, outbox.EventAppointmentCancelled)
	case to == StatusCompleted:
		kinds = append(kinds, outbox.EventAppointmentCompleted)
	case to == StatusNoShow:
		kinds = append(kinds, outbox.EventAppointmentNoShow)
	}

	return kinds
}
