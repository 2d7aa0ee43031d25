// Package ledger owns the lifecycle of tee-time slots: creation, cancellation
// and the authoritative current holder. Holder transfers happen only through
// the trade exchange, inside its own transaction.
package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/teetimex/tee-time-exchange/internal/adapters/crdb"
	"github.com/teetimex/tee-time-exchange/internal/domain"
	"github.com/teetimex/tee-time-exchange/internal/observability"
	"github.com/teetimex/tee-time-exchange/internal/readmodel"
)

// Registry answers whether a course id references known reference data.
type Registry interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Cache invalidates read projections after commits.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Audit records committed transitions; failures are logged, never fatal.
type Audit interface {
	LogTeeTime(ctx context.Context, action string, t domain.TeeTime) error
}

type Ledger struct {
	repo     *crdb.Repository
	registry Registry
	cache    Cache
	audit    Audit
	logger   observability.Logger
}

func New(repo *crdb.Repository, registry Registry, cache Cache, audit Audit, logger observability.Logger) *Ledger {
	return &Ledger{repo: repo, registry: registry, cache: cache, audit: audit, logger: logger}
}

type CreateInput struct {
	CourseID  uuid.UUID
	Date      time.Time
	TimeOfDay string
	Players   int
}

// Create books a new slot held by holderID.
func (l *Ledger) Create(ctx context.Context, holderID uuid.UUID, in CreateInput) (*domain.TeeTime, error) {
	if l.registry != nil {
		known, err := l.registry.Exists(ctx, in.CourseID)
		if err != nil {
			return nil, err
		}
		if !known {
			return nil, errors.Wrap(domain.ErrValidation, "unknown course")
		}
	}

	t, err := domain.NewTeeTime(holderID, in.CourseID, in.Date, in.TimeOfDay, in.Players, time.Now())
	if err != nil {
		return nil, err
	}

	err = l.repo.WithTx(ctx, func(tx pgx.Tx) error {
		if err := l.repo.CreateTeeTime(ctx, tx, t); err != nil {
			return err
		}
		return l.insertEvent(ctx, tx, "teetime.created", t)
	})
	if err != nil {
		return nil, err
	}

	l.afterCommit(ctx, "teetime.created", t, holderID)
	return &t, nil
}

// Update rewrites a slot's course, date, time and player count. Only the
// current holder may edit, and only while the slot is booked or traded. Any
// pending trade on the slot is force-cancelled in the same transaction: the
// receiver agreed to the old details, not the new ones.
func (l *Ledger) Update(ctx context.Context, teeTimeID, callerID uuid.UUID, in CreateInput) (*domain.TeeTime, error) {
	if l.registry != nil {
		known, err := l.registry.Exists(ctx, in.CourseID)
		if err != nil {
			return nil, err
		}
		if !known {
			return nil, errors.Wrap(domain.ErrValidation, "unknown course")
		}
	}

	var (
		updated  domain.TeeTime
		cascaded []domain.Trade
	)
	err := l.repo.WithTx(ctx, func(tx pgx.Tx) error {
		t, err := l.repo.GetTeeTimeForUpdate(ctx, tx, teeTimeID)
		if err != nil {
			return err
		}
		if !t.Held() {
			return errors.Wrapf(domain.ErrInvalidState, "tee time is %s", t.Status)
		}
		if !t.HeldBy(callerID) {
			return errors.Wrap(domain.ErrNotAuthorized, "only the current holder can edit")
		}
		updated, err = t.Reschedule(in.CourseID, in.Date, in.TimeOfDay, in.Players, time.Now())
		if err != nil {
			return err
		}
		if err := l.repo.UpdateTeeTime(ctx, tx, updated); err != nil {
			return err
		}
		cascaded, err = l.repo.CancelPendingTrades(ctx, tx, teeTimeID)
		if err != nil {
			return err
		}
		if err := l.insertEvent(ctx, tx, "teetime.updated", updated); err != nil {
			return err
		}
		for _, tr := range cascaded {
			if err := l.insertTradeEvent(ctx, tx, tr); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.afterCommit(ctx, "teetime.updated", updated, callerID)
	if l.cache != nil {
		for _, tr := range cascaded {
			l.cache.Invalidate(ctx, readmodel.DashboardKey(tr.OfferedTo))
		}
	}
	return &updated, nil
}

// Cancel terminates a slot. Only the current holder may cancel, and only while
// the slot is booked or traded. Any pending trade on the slot is
// force-cancelled in the same transaction, so a crash can never leave a
// pending offer on a dead slot.
func (l *Ledger) Cancel(ctx context.Context, teeTimeID, callerID uuid.UUID) error {
	var (
		slot     domain.TeeTime
		cascaded []domain.Trade
	)
	err := l.repo.WithTx(ctx, func(tx pgx.Tx) error {
		t, err := l.repo.GetTeeTimeForUpdate(ctx, tx, teeTimeID)
		if err != nil {
			return err
		}
		if !t.Held() {
			return errors.Wrapf(domain.ErrInvalidState, "tee time is %s", t.Status)
		}
		if !t.HeldBy(callerID) {
			return errors.Wrap(domain.ErrNotAuthorized, "only the current holder can cancel")
		}
		if err := l.repo.CancelTeeTime(ctx, tx, teeTimeID); err != nil {
			return err
		}
		cascaded, err = l.repo.CancelPendingTrades(ctx, tx, teeTimeID)
		if err != nil {
			return err
		}
		slot = *t
		slot.Status = domain.TeeTimeCancelled
		slot.HolderID = nil
		if err := l.insertEvent(ctx, tx, "teetime.cancelled", slot); err != nil {
			return err
		}
		for _, tr := range cascaded {
			if err := l.insertTradeEvent(ctx, tx, tr); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.afterCommit(ctx, "teetime.cancelled", slot, callerID)
	if l.cache != nil {
		for _, tr := range cascaded {
			l.cache.Invalidate(ctx, readmodel.DashboardKey(tr.OfferedTo))
		}
	}
	return nil
}

// Get serves a slot through the read cache.
func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*domain.TeeTime, error) {
	if l.cache != nil {
		var cached domain.TeeTime
		if ok, err := l.cache.GetJSON(ctx, readmodel.TeeTimeKey(id), &cached); err == nil && ok {
			return &cached, nil
		}
	}
	t, err := l.repo.GetTeeTime(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		l.cache.SetJSON(ctx, readmodel.TeeTimeKey(id), t, time.Minute)
	}
	return t, nil
}

func (l *Ledger) List(ctx context.Context, f crdb.TeeTimeFilter) ([]domain.TeeTime, error) {
	return l.repo.ListTeeTimes(ctx, f)
}

func (l *Ledger) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, t domain.TeeTime) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"tee_time_id": t.ID,
		"course_id":   t.CourseID,
		"date":        t.Date.Format("2006-01-02"),
		"time":        t.TimeOfDay,
		"status":      t.Status,
	})
	return l.repo.InsertOutbox(ctx, tx, crdb.OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "teetime",
		AggregateID:   t.ID,
		EventType:     eventType,
		Payload:       payload,
		DedupeKey:     uuid.New().String(),
	})
}

func (l *Ledger) insertTradeEvent(ctx context.Context, tx pgx.Tx, tr domain.Trade) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"trade_id":    tr.ID,
		"tee_time_id": tr.TeeTimeID,
		"offered_by":  tr.OfferedBy,
		"offered_to":  tr.OfferedTo,
		"status":      tr.Status,
	})
	return l.repo.InsertOutbox(ctx, tx, crdb.OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "trade",
		AggregateID:   tr.ID,
		EventType:     "trade.cancelled",
		Payload:       payload,
		DedupeKey:     uuid.New().String(),
	})
}

func (l *Ledger) afterCommit(ctx context.Context, action string, t domain.TeeTime, userID uuid.UUID) {
	if l.audit != nil {
		if err := l.audit.LogTeeTime(ctx, action, t); err != nil && l.logger != nil {
			l.logger.WithField("tee_time_id", t.ID).Warn("audit write failed: ", err)
		}
	}
	if l.cache != nil {
		l.cache.Invalidate(ctx, readmodel.TeeTimeKey(t.ID), readmodel.DashboardKey(userID))
	}
}
