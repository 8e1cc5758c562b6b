package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/carelink/telehealth-scheduling/internal/directory"
)

// PatientLookup resolves the recipient of a patient-facing notification.
type PatientLookup interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}

// Patient aliases the directory record so callers wire the directory
// repository straight in.
type Patient = directory.Patient

var subjects = map[string]string{
	EventAppointmentRequested: "Your appointment request was received",
	EventAppointmentConfirmed: "Your appointment is confirmed",
	EventAppointmentCancelled: "Your appointment was cancelled",
	EventAppointmentCompleted: "Thanks for your visit — leave a review",
	EventAppointmentNoShow:    "You missed your appointment",
	EventAppointmentReminder:  "Reminder: your appointment starts soon",
}

// SMTPNotifier delivers patient notifications over email. Events without a
// resolvable recipient are dropped as sent; delivery mechanics beyond SMTP
// (push, SMS) belong to the downstream collaborator.
type SMTPNotifier struct {
	dialer   *gomail.Dialer
	from     string
	patients PatientLookup
}

func NewSMTPNotifier(host string, port int, user, pass, from string, patients PatientLookup) *SMTPNotifier {
	return &SMTPNotifier{
		dialer:   gomail.NewDialer(host, port, user, pass),
		from:     from,
		patients: patients,
	}
}

func (n *SMTPNotifier) Notify(ctx context.Context, note Notification) error {
	var payload struct {
		PatientID string `json:"patient_id"`
		Day       string `json:"day"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}
	if err := json.Unmarshal(note.Payload, &payload); err != nil {
		return fmt.Errorf("decode notification payload: %w", err)
	}

	patientID, err := uuid.Parse(payload.PatientID)
	if err != nil {
		return fmt.Errorf("notification payload patient_id: %w", err)
	}

	patient, err := n.patients.GetPatientByID(ctx, patientID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if patient.Email == nil || *patient.Email == "" {
		// No deliverable address; nothing to retry.
		return nil
	}

	subject, ok := subjects[note.EventType]
	if !ok {
		subject = "Appointment update"
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", *patient.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", fmt.Sprintf(
		"<p>Hello %s,</p><p>%s</p><p>Date: %s<br>Time: %s&ndash;%s</p>",
		patient.Name, subject, payload.Day, payload.StartTime, payload.EndTime,
	))

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}
	return nil
}

// LogNotifier stands in when SMTP is not configured (dev, tests): it records
// the notification and reports success.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.Log.Info().
		Str("appointment_id", note.AppointmentID.String()).
		Str("event_type", note.EventType).
		Str("payload", string(note.Payload)).
		Msg("notification (log only)")
	return nil
}
