package domain

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

const (
	MinHandicap = 0
	MaxHandicap = 54
)

// Known notification preference names. Unknown names are rejected at the
// boundary so the notify worker never has to guess.
var NotificationPreferences = map[string]bool{
	"trade_offers":  true,
	"trade_results": true,
	"cancellations": true,
}

type User struct {
	ID             uuid.UUID
	Email          string
	FullName       string
	Handicap       *int
	HashedPassword string
	NotifyPrefs    []string
	CreatedAt      time.Time
}

func NewUser(email, fullName, hashedPassword string, handicap *int) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, errors.Wrap(ErrValidation, "email is malformed")
	}
	if strings.TrimSpace(fullName) == "" {
		return User{}, errors.Wrap(ErrValidation, "full_name is required")
	}
	if err := ValidateHandicap(handicap); err != nil {
		return User{}, err
	}
	return User{
		ID:             uuid.New(),
		Email:          email,
		FullName:       strings.TrimSpace(fullName),
		Handicap:       handicap,
		HashedPassword: hashedPassword,
		NotifyPrefs:    []string{"trade_offers", "trade_results", "cancellations"},
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func ValidateHandicap(h *int) error {
	if h == nil {
		return nil
	}
	if *h < MinHandicap || *h > MaxHandicap {
		return errors.Wrapf(ErrValidation, "handicap must be between %d and %d", MinHandicap, MaxHandicap)
	}
	return nil
}

func ValidateNotifyPrefs(prefs []string) error {
	for _, p := range prefs {
		if !NotificationPreferences[p] {
			return errors.Wrapf(ErrValidation, "unknown notification preference %q", p)
		}
	}
	return nil
}

// WantsNotification reports whether the user opted into the given event class.
func (u User) WantsNotification(pref string) bool {
	for _, p := range u.NotifyPrefs {
		if p == pref {
			return true
		}
	}
	return false
}
