package domain

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeAccepted  TradeStatus = "accepted"
	TradeRejected  TradeStatus = "rejected"
	TradeCancelled TradeStatus = "cancelled"
)

type TradeDecision string

const (
	DecisionAccept TradeDecision = "accepted"
	DecisionReject TradeDecision = "rejected"
)

func ParseDecision(s string) (TradeDecision, error) {
	switch TradeDecision(s) {
	case DecisionAccept, DecisionReject:
		return TradeDecision(s), nil
	}
	return "", errors.Wrapf(ErrValidation, "status must be %q or %q", DecisionAccept, DecisionReject)
}

// Trade is a proposed holder transfer of one tee time, from OfferedBy to
// OfferedTo. Pending is the only state with outgoing transitions; accepted,
// rejected and cancelled are terminal and the record stays as an audit entry.
type Trade struct {
	ID        uuid.UUID
	TeeTimeID uuid.UUID
	OfferedBy uuid.UUID
	OfferedTo uuid.UUID
	Status    TradeStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewTrade(teeTimeID, offeredBy, offeredTo uuid.UUID) (Trade, error) {
	if offeredBy == offeredTo {
		return Trade{}, errors.Wrap(ErrValidation, "cannot offer a trade to yourself")
	}
	now := time.Now().UTC()
	return Trade{
		ID:        uuid.New(),
		TeeTimeID: teeTimeID,
		OfferedBy: offeredBy,
		OfferedTo: offeredTo,
		Status:    TradePending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Terminal reports whether the status admits no further transitions.
func (s TradeStatus) Terminal() bool {
	return s == TradeAccepted || s == TradeRejected || s == TradeCancelled
}

// CanTransition reports whether a trade may move from its current status to
// the target one. Only pending -> {accepted, rejected, cancelled} is legal.
func (t Trade) CanTransition(to TradeStatus) bool {
	return t.Status == TradePending && to.Terminal()
}
