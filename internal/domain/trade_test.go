package domain_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/teetimex/tee-time-exchange/internal/domain"
)

func TestNewTrade(t *testing.T) {
	offeredBy := uuid.New()
	offeredTo := uuid.New()

	trade, err := domain.NewTrade(uuid.New(), offeredBy, offeredTo)
	if err != nil {
		t.Fatal(err)
	}
	if trade.Status != domain.TradePending {
		t.Errorf("expected pending, got %s", trade.Status)
	}

	_, err = domain.NewTrade(uuid.New(), offeredBy, offeredBy)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for self-trade, got %v", err)
	}
}

func TestParseDecision(t *testing.T) {
	if _, err := domain.ParseDecision("accepted"); err != nil {
		t.Error(err)
	}
	if _, err := domain.ParseDecision("rejected"); err != nil {
		t.Error(err)
	}
	for _, bad := range []string{"", "pending", "cancelled", "ACCEPTED"} {
		if _, err := domain.ParseDecision(bad); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected validation error for %q, got %v", bad, err)
		}
	}
}

func TestTrade_CanTransition(t *testing.T) {
	trade := domain.Trade{Status: domain.TradePending}
	for _, to := range []domain.TradeStatus{domain.TradeAccepted, domain.TradeRejected, domain.TradeCancelled} {
		if !trade.CanTransition(to) {
			t.Errorf("pending must transition to %s", to)
		}
	}
	if trade.CanTransition(domain.TradePending) {
		t.Error("pending -> pending must be rejected")
	}

	for _, terminal := range []domain.TradeStatus{domain.TradeAccepted, domain.TradeRejected, domain.TradeCancelled} {
		trade.Status = terminal
		if !terminal.Terminal() {
			t.Errorf("%s must be terminal", terminal)
		}
		if trade.CanTransition(domain.TradeAccepted) {
			t.Errorf("%s must admit no transitions", terminal)
		}
	}
}
