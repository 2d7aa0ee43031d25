package crdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/teetimex/tee-time-exchange/internal/domain"
)

const teeTimeColumns = "id, course_id, tee_date, time_of_day, players, status, holder_id, created_at"

func (r *Repository) CreateTeeTime(ctx context.Context, tx pgx.Tx, t domain.TeeTime) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO tee_times (id, course_id, tee_date, time_of_day, players, status, holder_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.CourseID, t.Date, t.TimeOfDay, t.Players, t.Status, t.HolderID, t.CreatedAt)
	return mapPgError(err)
}

func (r *Repository) GetTeeTime(ctx context.Context, id uuid.UUID) (*domain.TeeTime, error) {
	return scanTeeTime(r.pool.QueryRow(ctx, `
		SELECT `+teeTimeColumns+` FROM tee_times WHERE id = $1
	`, id))
}

// GetTeeTimeForUpdate locks the slot row for the rest of the transaction. Every
// mutation of a tee time goes through this lock, which is what makes the
// committed transition sequence per slot a single total order.
func (r *Repository) GetTeeTimeForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.TeeTime, error) {
	return scanTeeTime(tx.QueryRow(ctx, `
		SELECT `+teeTimeColumns+` FROM tee_times WHERE id = $1 FOR UPDATE
	`, id))
}

func scanTeeTime(row pgx.Row) (*domain.TeeTime, error) {
	var t domain.TeeTime
	err := row.Scan(&t.ID, &t.CourseID, &t.Date, &t.TimeOfDay, &t.Players, &t.Status, &t.HolderID, &t.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type TeeTimeFilter struct {
	HolderID *uuid.UUID
	CourseID *uuid.UUID
	Statuses []domain.TeeTimeStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// ListTeeTimes returns matching slots ordered by date ascending, then creation
// order. The query is restartable; callers re-run it to refresh.
func (r *Repository) ListTeeTimes(ctx context.Context, f TeeTimeFilter) ([]domain.TeeTime, error) {
	query := `SELECT ` + teeTimeColumns + ` FROM tee_times WHERE 1=1`
	args := []interface{}{}

	if f.HolderID != nil {
		args = append(args, *f.HolderID)
		query += fmt.Sprintf(" AND holder_id = $%d", len(args))
	}
	if f.CourseID != nil {
		args = append(args, *f.CourseID)
		query += fmt.Sprintf(" AND course_id = $%d", len(args))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	if f.DateFrom != nil {
		args = append(args, *f.DateFrom)
		query += fmt.Sprintf(" AND tee_date >= $%d", len(args))
	}
	if f.DateTo != nil {
		args = append(args, *f.DateTo)
		query += fmt.Sprintf(" AND tee_date <= $%d", len(args))
	}
	query += " ORDER BY tee_date ASC, created_at ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teeTimes []domain.TeeTime
	for rows.Next() {
		var t domain.TeeTime
		if err := rows.Scan(&t.ID, &t.CourseID, &t.Date, &t.TimeOfDay, &t.Players, &t.Status, &t.HolderID, &t.CreatedAt); err != nil {
			return nil, err
		}
		teeTimes = append(teeTimes, t)
	}
	return teeTimes, rows.Err()
}

// UpdateTeeTime rewrites the slot's details. Callers hold the row lock and
// have already validated holder and the new values; status and holder are not
// touched here.
func (r *Repository) UpdateTeeTime(ctx context.Context, tx pgx.Tx, t domain.TeeTime) error {
	result, err := tx.Exec(ctx, `
		UPDATE tee_times SET course_id = $2, tee_date = $3, time_of_day = $4, players = $5
		WHERE id = $1 AND status IN ('booked', 'traded')
	`, t.ID, t.CourseID, t.Date, t.TimeOfDay, t.Players)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

// CancelTeeTime clears the holder and marks the slot cancelled. Callers hold
// the row lock and have already validated holder and status.
func (r *Repository) CancelTeeTime(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE tee_times SET status = 'cancelled', holder_id = NULL
		WHERE id = $1 AND status IN ('booked', 'traded')
	`, id)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

// TransferHolder reassigns the slot from one holder to another. Invoked only
// by the trade exchange inside its accept transaction. The compare-and-set on
// the current holder reports Conflict when the slot changed hands underneath
// the offer.
func (r *Repository) TransferHolder(ctx context.Context, tx pgx.Tx, id, fromHolder, toHolder uuid.UUID, status domain.TeeTimeStatus) error {
	result, err := tx.Exec(ctx, `
		UPDATE tee_times SET holder_id = $3, status = $4
		WHERE id = $1 AND holder_id = $2 AND status IN ('booked', 'traded')
	`, id, fromHolder, toHolder, status)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}
