package crdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/teetimex/tee-time-exchange/internal/domain"
)

const tradeColumns = "id, tee_time_id, offered_by, offered_to, status, created_at, updated_at"

// CreateTrade inserts a pending trade. The partial unique index on
// (tee_time_id) WHERE status = 'pending' makes the single-active-offer
// invariant hold even under concurrent offers: the loser's insert affects
// zero rows and surfaces as Conflict.
func (r *Repository) CreateTrade(ctx context.Context, tx pgx.Tx, t domain.Trade) error {
	result, err := tx.Exec(ctx, `
		INSERT INTO trades (id, tee_time_id, offered_by, offered_to, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tee_time_id) WHERE status = 'pending' DO NOTHING
	`, t.ID, t.TeeTimeID, t.OfferedBy, t.OfferedTo, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *Repository) GetTrade(ctx context.Context, id uuid.UUID) (*domain.Trade, error) {
	return scanTrade(r.pool.QueryRow(ctx, `
		SELECT `+tradeColumns+` FROM trades WHERE id = $1
	`, id))
}

// GetTradeForUpdate locks the trade row. Accept locks the tee time first and
// the trade second; keeping that order everywhere rules out lock cycles.
func (r *Repository) GetTradeForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Trade, error) {
	return scanTrade(tx.QueryRow(ctx, `
		SELECT `+tradeColumns+` FROM trades WHERE id = $1 FOR UPDATE
	`, id))
}

func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	err := row.Scan(&t.ID, &t.TeeTimeID, &t.OfferedBy, &t.OfferedTo, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTradeStatus moves a trade out of pending. The status guard in the
// WHERE clause is the terminal-state enforcement: a second responder, or a
// replayed accept, matches zero rows and observes InvalidState.
func (r *Repository) UpdateTradeStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, to domain.TradeStatus) error {
	result, err := tx.Exec(ctx, `
		UPDATE trades SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, to)
	if err != nil {
		return mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

// CancelPendingTrades force-cancels every pending trade on a slot and returns
// the affected trades. Used by the cancel cascade.
func (r *Repository) CancelPendingTrades(ctx context.Context, tx pgx.Tx, teeTimeID uuid.UUID) ([]domain.Trade, error) {
	rows, err := tx.Query(ctx, `
		UPDATE trades SET status = 'cancelled', updated_at = now()
		WHERE tee_time_id = $1 AND status = 'pending'
		RETURNING `+tradeColumns+`
	`, teeTimeID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(&t.ID, &t.TeeTimeID, &t.OfferedBy, &t.OfferedTo, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ListTradesForUser returns trades where the user is offeror or receiver,
// newest first.
func (r *Repository) ListTradesForUser(ctx context.Context, userID uuid.UUID) ([]domain.Trade, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tradeColumns+` FROM trades
		WHERE offered_by = $1 OR offered_to = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(&t.ID, &t.TeeTimeID, &t.OfferedBy, &t.OfferedTo, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// PendingTradeForTeeTime returns the active offer on a slot, if any.
func (r *Repository) PendingTradeForTeeTime(ctx context.Context, teeTimeID uuid.UUID) (*domain.Trade, error) {
	return scanTrade(r.pool.QueryRow(ctx, `
		SELECT `+tradeColumns+` FROM trades WHERE tee_time_id = $1 AND status = 'pending'
	`, teeTimeID))
}
