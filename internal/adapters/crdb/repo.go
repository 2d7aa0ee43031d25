package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/teetimex/tee-time-exchange/internal/domain"
	"github.com/teetimex/tee-time-exchange/internal/observability"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a SERIALIZABLE transaction. Serialization failures
// surface as domain.ErrSerializationFailure; the caller decides whether to
// retry (the HTTP layer does not, it reports a conflict).
func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return mapPgError(err)
	}

	return mapPgError(tx.Commit(ctx))
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case SerializationFailureCode:
			return domain.ErrSerializationFailure
		case UniqueViolationCode:
			return errors.Wrap(domain.ErrConflict, pgErr.ConstraintName)
		}
	}
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	full_name TEXT NOT NULL,
	handicap INT,
	hashed_password TEXT NOT NULL,
	notification_preferences TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS tee_times (
	id UUID PRIMARY KEY,
	course_id UUID NOT NULL,
	tee_date DATE NOT NULL,
	time_of_day TEXT NOT NULL,
	players INT NOT NULL CHECK (players BETWEEN 1 AND 4),
	status TEXT NOT NULL CHECK (status IN ('available', 'booked', 'traded', 'cancelled')),
	holder_id UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS tee_times_holder_idx ON tee_times (holder_id);
CREATE TABLE IF NOT EXISTS trades (
	id UUID PRIMARY KEY,
	tee_time_id UUID NOT NULL,
	offered_by UUID NOT NULL,
	offered_to UUID NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'rejected', 'cancelled')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS trades_single_pending ON trades (tee_time_id) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS trades_user_idx ON trades (offered_by, offered_to);
CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id UUID NOT NULL,
	event_type TEXT NOT NULL,
	payload_json JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ,
	status TEXT NOT NULL DEFAULT 'NEW',
	dedupe_key TEXT NOT NULL
);
`

// EnsureSchema creates the tables and indexes the engine needs. The partial
// unique index on trades is what enforces the single-active-offer invariant.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}
