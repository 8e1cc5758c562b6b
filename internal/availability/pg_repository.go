package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanWeekdayRule(row pgx.Row) (*WeekdayRule, error) {
	var r WeekdayRule

	err := row.Scan(
		&r.ID,
		&r.PhysicianID,
		&r.Weekday,
		&r.StartTime,
		&r.EndTime,
		&r.Available,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWeekdayRuleNotFound
		}
		return nil, err
	}

	return &r, nil
}

func scanDateOverride(row pgx.Row) (*DateOverride, error) {
	var ov DateOverride

	err := row.Scan(
		&ov.ID,
		&ov.PhysicianID,
		&ov.Day,
		&ov.Available,
		&ov.StartTime,
		&ov.EndTime,
		&ov.CreatedAt,
		&ov.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOverrideNotFound
		}
		return nil, err
	}

	return &ov, nil
}

func (r *PgRepository) GetWeekdayRule(ctx context.Context, physicianID uuid.UUID, weekday int) (*WeekdayRule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, physician_id, weekday, start_time, end_time, available, created_at, updated_at
		FROM weekly_availability
		WHERE physician_id = $1 AND weekday = $2
	`, physicianID, weekday)
	return scanWeekdayRule(row)
}

func (r *PgRepository) ListWeekdayRules(ctx context.Context, physicianID uuid.UUID) ([]WeekdayRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, physician_id, weekday, start_time, end_time, available, created_at, updated_at
		FROM weekly_availability
		WHERE physician_id = $1
		ORDER BY weekday
	`, physicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WeekdayRule
	for rows.Next() {
		rule, err := scanWeekdayRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// ReplaceWeek deletes and reinserts the physician's grid in one transaction,
// so readers never observe a partial week.
func (r *PgRepository) ReplaceWeek(ctx context.Context, physicianID uuid.UUID, rules []WeekdayRule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM weekly_availability WHERE physician_id = $1
	`, physicianID); err != nil {
		return fmt.Errorf("clear weekly availability: %w", err)
	}

	for _, rule := range rules {
		id := rule.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO weekly_availability (id, physician_id, weekday, start_time, end_time, available, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		`, id, physicianID, rule.Weekday, rule.StartTime, rule.EndTime, rule.Available); err != nil {
			return fmt.Errorf("insert weekday %d: %w", rule.Weekday, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) GetDateOverride(ctx context.Context, physicianID uuid.UUID, day time.Time) (*DateOverride, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, physician_id, day, available, start_time, end_time, created_at, updated_at
		FROM availability_overrides
		WHERE physician_id = $1 AND day = $2
	`, physicianID, day)
	return scanDateOverride(row)
}

func (r *PgRepository) UpsertDateOverride(ctx context.Context, ov *DateOverride) error {
	id := ov.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_overrides (id, physician_id, day, available, start_time, end_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (physician_id, day)
		DO UPDATE SET available = $4, start_time = $5, end_time = $6, updated_at = now()
	`, id, ov.PhysicianID, ov.Day, ov.Available, ov.StartTime, ov.EndTime)
	if err != nil {
		return fmt.Errorf("upsert date override: %w", err)
	}

	return nil
}

func (r *PgRepository) DeleteDateOverride(ctx context.Context, physicianID uuid.UUID, day time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_overrides
		WHERE physician_id = $1 AND day = $2
	`, physicianID, day)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOverrideNotFound
	}
	return nil
}

func (r *PgRepository) GetAcceptingBookings(ctx context.Context, physicianID uuid.UUID) (bool, error) {
	var accepting bool
	err := r.pool.QueryRow(ctx, `
		SELECT accepting_bookings
		FROM physician_settings
		WHERE physician_id = $1
	`, physicianID).Scan(&accepting)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No settings row yet means the physician never opted out.
			return true, nil
		}
		return false, err
	}
	return accepting, nil
}

func (r *PgRepository) SetAcceptingBookings(ctx context.Context, physicianID uuid.UUID, accepting bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO physician_settings (physician_id, accepting_bookings, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (physician_id)
		DO UPDATE SET accepting_bookings = $2, updated_at = now()
	`, physicianID, accepting)
	return err
}
