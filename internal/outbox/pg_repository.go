package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEventNotFound = errors.New("outbox event not found")

// Repository contains the DB interactions of the outbox worker.
type Repository interface {
	// ListPending returns the oldest undispatched events, bounded by limit.
	ListPending(ctx context.Context, limit int) ([]Event, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
	// HasEvent supports idempotent enqueueing keyed by
	// (appointment_id, event_type).
	HasEvent(ctx context.Context, appointmentID uuid.UUID, eventType string) (bool, error)
	Insert(ctx context.Context, ev Event) error
}

// InsertTx writes an event inside a caller-owned transaction so the event
// commits or rolls back together with the appointment change that caused it.
func InsertTx(ctx context.Context, tx pgx.Tx, ev Event) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (appointment_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, 'pending', 0, now())
	`, ev.AppointmentID, ev.EventType, ev.Payload)
	if err != nil {
		return fmt.Errorf("insert outbox event %s: %w", ev.EventType, err)
	}
	return nil
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanEvent(row pgx.Row) (*Event, error) {
	var ev Event
	var sentAt *time.Time

	err := row.Scan(
		&ev.ID,
		&ev.AppointmentID,
		&ev.EventType,
		&ev.Payload,
		&ev.Status,
		&ev.Attempts,
		&ev.CreatedAt,
		&sentAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	ev.SentAt = sentAt
	return &ev, nil
}

func (r *PgRepository) ListPending(ctx context.Context, limit int) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, event_type, payload, status, attempts, created_at, sent_at
		FROM outbox_events
		WHERE status = 'pending'
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) MarkSent(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'sent',
		    attempts = attempts + 1,
		    sent_at = now()
		WHERE id = $1
	`, id)
	return err
}

func (r *PgRepository) MarkFailed(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox_events
		SET attempts = attempts + 1
		WHERE id = $1
	`, id)
	return err
}

func (r *PgRepository) HasEvent(ctx context.Context, appointmentID uuid.UUID, eventType string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM outbox_events
			WHERE appointment_id = $1 AND event_type = $2
		)
	`, appointmentID, eventType).Scan(&exists)
	return exists, err
}

func (r *PgRepository) Insert(ctx context.Context, ev Event) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO outbox_events (appointment_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, 'pending', 0, now())
	`, ev.AppointmentID, ev.EventType, ev.Payload)
	if err != nil {
		return fmt.Errorf("insert outbox event %s: %w", ev.EventType, err)
	}
	return nil
}
