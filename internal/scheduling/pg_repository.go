package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/telehealth-scheduling/internal/outbox"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, patient_id, physician_id, service_id, day, start_min, end_min,
	consultation_type, status, meeting_link, notes, symptoms, created_at, updated_at
`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var meetingLink, notes, symptoms *string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PhysicianID,
		&a.ServiceID,
		&a.Day,
		&a.StartMin,
		&a.EndMin,
		&a.ConsultationType,
		&a.Status,
		&meetingLink,
		&notes,
		&symptoms,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.MeetingLink = meetingLink
	a.Notes = notes
	a.Symptoms = symptoms
	return &a, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListActiveByPhysicianDay(ctx context.Context, physicianID uuid.UUID, day time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE physician_id = $1
		  AND day = $2
		  AND status IN ('pending', 'confirmed')
		ORDER BY start_min
	`, physicianID, day)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ActiveOverlapExists(ctx context.Context, physicianID uuid.UUID, day time.Time, startMin, endMin int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE physician_id = $1
			  AND day = $2
			  AND status IN ('pending', 'confirmed')
			  AND start_min < $4
			  AND $3 < end_min
		)
	`, physicianID, day, startMin, endMin).Scan(&exists)
	return exists, err
}

func (r *PgRepository) CreatePending(ctx context.Context, appt *Appointment, events []outbox.Event) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_id, physician_id, service_id, day, start_min, end_min,
			consultation_type, status, notes, symptoms, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9, $10, now(), now())
		RETURNING `+appointmentColumns+`
	`, appt.ID, appt.PatientID, appt.PhysicianID, appt.ServiceID, appt.Day,
		appt.StartMin, appt.EndMin, appt.ConsultationType, appt.Notes, appt.Symptoms)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	for _, ev := range events {
		if err := outbox.InsertTx(ctx, tx, ev); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}

	return created, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, events []outbox.Event) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	for _, ev := range events {
		if err := outbox.InsertTx(ctx, tx, ev); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	return updated, nil
}

// SetMeetingLink is called by the outbox dispatcher once the meeting link
// collaborator has produced a link for a confirmed video consultation.
func (r *PgRepository) SetMeetingLink(ctx context.Context, id uuid.UUID, link string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET meeting_link = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, link)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY day DESC, start_min DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByPhysician(ctx context.Context, physicianID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE physician_id = $1
		ORDER BY day DESC, start_min DESC
		LIMIT $2 OFFSET $3
	`, physicianID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'confirmed'
		  AND day + make_interval(mins => start_min) BETWEEN $1 AND $2
		ORDER BY day, start_min
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
