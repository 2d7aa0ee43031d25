// Package exchange manages trade offers between two users over a single
// tee-time slot. It enforces at-most-one-active-trade-per-slot and performs
// the atomic ownership swap when a trade is accepted.
package exchange

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/teetimex/tee-time-exchange/internal/adapters/crdb"
	"github.com/teetimex/tee-time-exchange/internal/domain"
	"github.com/teetimex/tee-time-exchange/internal/observability"
	"github.com/teetimex/tee-time-exchange/internal/readmodel"
)

type Cache interface {
	Invalidate(ctx context.Context, keys ...string) error
}

type Audit interface {
	LogTrade(ctx context.Context, action string, t domain.Trade) error
}

type Exchange struct {
	repo   *crdb.Repository
	cache  Cache
	audit  Audit
	logger observability.Logger

	// acceptMarksTraded flips the slot status to "traded" after a successful
	// accept instead of leaving it "booked". Either way the new holder keeps
	// full rights over the slot.
	acceptMarksTraded bool
}

func New(repo *crdb.Repository, cache Cache, audit Audit, logger observability.Logger, acceptMarksTraded bool) *Exchange {
	return &Exchange{
		repo:              repo,
		cache:             cache,
		audit:             audit,
		logger:            logger,
		acceptMarksTraded: acceptMarksTraded,
	}
}

// Offer creates a pending trade of teeTimeID from offeredBy to offeredTo.
// Offering does not change the slot itself; the holder keeps the right to
// cancel the slot directly, which cascades into the offer.
func (e *Exchange) Offer(ctx context.Context, teeTimeID, offeredBy, offeredTo uuid.UUID) (*domain.Trade, error) {
	trade, err := domain.NewTrade(teeTimeID, offeredBy, offeredTo)
	if err != nil {
		return nil, err
	}
	if _, err := e.repo.GetUser(ctx, offeredTo); err != nil {
		return nil, errors.Wrap(err, "receiving user")
	}

	err = e.repo.WithTx(ctx, func(tx pgx.Tx) error {
		t, err := e.repo.GetTeeTimeForUpdate(ctx, tx, teeTimeID)
		if err != nil {
			return err
		}
		if !t.HeldBy(offeredBy) {
			return errors.Wrap(domain.ErrNotAuthorized, "only the current holder can offer a trade")
		}
		if err := e.repo.CreateTrade(ctx, tx, trade); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return errors.Wrap(domain.ErrConflict, "an offer is already pending for this tee time")
			}
			return err
		}
		return e.insertEvent(ctx, tx, "trade.offered", trade)
	})
	if err != nil {
		return nil, err
	}

	e.afterCommit(ctx, "trade.offered", trade)
	return &trade, nil
}

// Respond resolves a pending trade. Only the receiving user may respond.
//
// Accept is the one operation that touches two aggregates. It runs in a
// single SERIALIZABLE transaction and locks the tee time before the trade:
// the holder is re-checked against the offeror at commit time, and if the
// slot changed hands in the meantime the trade is transitioned to cancelled
// (committed, so no orphaned pending offer survives) and the call reports
// Conflict.
func (e *Exchange) Respond(ctx context.Context, tradeID, responderID uuid.UUID, decision domain.TradeDecision) (*domain.Trade, error) {
	pre, err := e.repo.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if pre.OfferedTo != responderID {
		return nil, errors.Wrap(domain.ErrNotAuthorized, "only the receiving user can respond")
	}

	var (
		resolved domain.Trade
		stale    bool
	)
	err = e.repo.WithTx(ctx, func(tx pgx.Tx) error {
		if decision == domain.DecisionReject {
			trade, err := e.repo.GetTradeForUpdate(ctx, tx, tradeID)
			if err != nil {
				return err
			}
			if err := e.repo.UpdateTradeStatus(ctx, tx, tradeID, domain.TradeRejected); err != nil {
				return err
			}
			resolved = *trade
			resolved.Status = domain.TradeRejected
			return e.insertEvent(ctx, tx, "trade.rejected", resolved)
		}

		// Lock order: tee time first, then trade.
		slot, err := e.repo.GetTeeTimeForUpdate(ctx, tx, pre.TeeTimeID)
		if err != nil {
			return err
		}
		trade, err := e.repo.GetTradeForUpdate(ctx, tx, tradeID)
		if err != nil {
			return err
		}
		if trade.Status != domain.TradePending {
			return errors.Wrapf(domain.ErrInvalidState, "trade is %s", trade.Status)
		}

		if !slot.HeldBy(trade.OfferedBy) {
			stale = true
			if err := e.repo.UpdateTradeStatus(ctx, tx, tradeID, domain.TradeCancelled); err != nil {
				return err
			}
			resolved = *trade
			resolved.Status = domain.TradeCancelled
			return e.insertEvent(ctx, tx, "trade.cancelled", resolved)
		}

		status := domain.TeeTimeBooked
		if e.acceptMarksTraded {
			status = domain.TeeTimeTraded
		}
		if err := e.repo.TransferHolder(ctx, tx, slot.ID, trade.OfferedBy, trade.OfferedTo, status); err != nil {
			return err
		}
		if err := e.repo.UpdateTradeStatus(ctx, tx, tradeID, domain.TradeAccepted); err != nil {
			return err
		}
		resolved = *trade
		resolved.Status = domain.TradeAccepted
		return e.insertEvent(ctx, tx, "trade.accepted", resolved)
	})
	if err != nil {
		return nil, err
	}

	if stale {
		observability.AcceptConflicts.Inc()
		e.afterCommit(ctx, "trade.cancelled", resolved)
		return nil, errors.Wrap(domain.ErrConflict, "tee time is no longer held by the offeror")
	}

	e.afterCommit(ctx, "trade."+string(resolved.Status), resolved)
	return &resolved, nil
}

// CancelOffer withdraws a pending trade. Only the offeror may cancel.
func (e *Exchange) CancelOffer(ctx context.Context, tradeID, callerID uuid.UUID) error {
	pre, err := e.repo.GetTrade(ctx, tradeID)
	if err != nil {
		return err
	}
	if pre.OfferedBy != callerID {
		return errors.Wrap(domain.ErrNotAuthorized, "only the offeror can cancel an offer")
	}

	var cancelled domain.Trade
	err = e.repo.WithTx(ctx, func(tx pgx.Tx) error {
		trade, err := e.repo.GetTradeForUpdate(ctx, tx, tradeID)
		if err != nil {
			return err
		}
		if err := e.repo.UpdateTradeStatus(ctx, tx, tradeID, domain.TradeCancelled); err != nil {
			return err
		}
		cancelled = *trade
		cancelled.Status = domain.TradeCancelled
		return e.insertEvent(ctx, tx, "trade.cancelled", cancelled)
	})
	if err != nil {
		return err
	}

	e.afterCommit(ctx, "trade.cancelled", cancelled)
	return nil
}

// ListForUser returns every trade where the user is offeror or receiver,
// newest first.
func (e *Exchange) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Trade, error) {
	return e.repo.ListTradesForUser(ctx, userID)
}

func (e *Exchange) Get(ctx context.Context, tradeID uuid.UUID) (*domain.Trade, error) {
	return e.repo.GetTrade(ctx, tradeID)
}

func (e *Exchange) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, t domain.Trade) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"trade_id":    t.ID,
		"tee_time_id": t.TeeTimeID,
		"offered_by":  t.OfferedBy,
		"offered_to":  t.OfferedTo,
		"status":      t.Status,
	})
	return e.repo.InsertOutbox(ctx, tx, crdb.OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "trade",
		AggregateID:   t.ID,
		EventType:     eventType,
		Payload:       payload,
		DedupeKey:     uuid.New().String(),
	})
}

func (e *Exchange) afterCommit(ctx context.Context, action string, t domain.Trade) {
	if t.Status.Terminal() {
		observability.TradesResolved.WithLabelValues(string(t.Status)).Inc()
	}
	if e.audit != nil {
		if err := e.audit.LogTrade(ctx, action, t); err != nil && e.logger != nil {
			e.logger.WithField("trade_id", t.ID).Warn("audit write failed: ", err)
		}
	}
	if e.cache != nil {
		e.cache.Invalidate(ctx,
			readmodel.TeeTimeKey(t.TeeTimeID),
			readmodel.DashboardKey(t.OfferedBy),
			readmodel.DashboardKey(t.OfferedTo),
		)
	}
}
