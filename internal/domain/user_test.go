package domain_test

import (
	"errors"
	"testing"

	"github.com/teetimex/tee-time-exchange/internal/domain"
)

func TestNewUser(t *testing.T) {
	handicap := 12
	u, err := domain.NewUser("Player@Example.COM ", "Sam Snead", "hashed", &handicap)
	if err != nil {
		t.Fatal(err)
	}
	if u.Email != "player@example.com" {
		t.Errorf("expected normalized email, got %q", u.Email)
	}
	if !u.WantsNotification("trade_offers") {
		t.Error("new users opt into all notification classes")
	}

	if _, err := domain.NewUser("not-an-email", "Sam", "hashed", nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := domain.NewUser("a@b.com", "  ", "hashed", nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for empty name, got %v", err)
	}
}

func TestValidateHandicap(t *testing.T) {
	for _, ok := range []int{0, 27, 54} {
		h := ok
		if err := domain.ValidateHandicap(&h); err != nil {
			t.Errorf("handicap %d: %v", ok, err)
		}
	}
	for _, bad := range []int{-1, 55} {
		h := bad
		if err := domain.ValidateHandicap(&h); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("handicap %d: expected validation error, got %v", bad, err)
		}
	}
	if err := domain.ValidateHandicap(nil); err != nil {
		t.Errorf("nil handicap is allowed: %v", err)
	}
}

func TestValidateNotifyPrefs(t *testing.T) {
	if err := domain.ValidateNotifyPrefs([]string{"trade_offers", "cancellations"}); err != nil {
		t.Error(err)
	}
	if err := domain.ValidateNotifyPrefs([]string{"carrier_pigeon"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
