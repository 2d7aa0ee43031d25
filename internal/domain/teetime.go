package domain

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type TeeTimeStatus string

const (
	TeeTimeAvailable TeeTimeStatus = "available"
	TeeTimeBooked    TeeTimeStatus = "booked"
	TeeTimeTraded    TeeTimeStatus = "traded"
	TeeTimeCancelled TeeTimeStatus = "cancelled"
)

const (
	MinPlayers = 1
	MaxPlayers = 4
)

// TimeOfDayLayout is the wire format for a slot's starting time.
const TimeOfDayLayout = "15:04"

// TeeTime is a reservable starting slot at a course. While status is booked
// or traded it has exactly one holder; available and cancelled slots have none.
type TeeTime struct {
	ID        uuid.UUID
	CourseID  uuid.UUID
	Date      time.Time // day component only, UTC midnight
	TimeOfDay string
	Players   int
	Status    TeeTimeStatus
	HolderID  *uuid.UUID
	CreatedAt time.Time
}

func validateSlot(date time.Time, timeOfDay string, players int, now time.Time) (time.Time, string, error) {
	if players < MinPlayers || players > MaxPlayers {
		return time.Time{}, "", errors.Wrapf(ErrValidation, "number_of_players must be between %d and %d", MinPlayers, MaxPlayers)
	}
	tod, err := time.Parse(TimeOfDayLayout, timeOfDay)
	if err != nil {
		return time.Time{}, "", errors.Wrapf(ErrValidation, "time must be in %s format", TimeOfDayLayout)
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	starts := day.Add(time.Duration(tod.Hour())*time.Hour + time.Duration(tod.Minute())*time.Minute)
	if !starts.After(now.UTC()) {
		return time.Time{}, "", errors.Wrap(ErrValidation, "tee time must be in the future")
	}
	return day, tod.Format(TimeOfDayLayout), nil
}

// NewTeeTime validates the booking request and returns a booked slot held by
// holderID. The date/time pair must be in the future relative to now.
func NewTeeTime(holderID, courseID uuid.UUID, date time.Time, timeOfDay string, players int, now time.Time) (TeeTime, error) {
	day, tod, err := validateSlot(date, timeOfDay, players, now)
	if err != nil {
		return TeeTime{}, err
	}
	holder := holderID
	return TeeTime{
		ID:        uuid.New(),
		CourseID:  courseID,
		Date:      day,
		TimeOfDay: tod,
		Players:   players,
		Status:    TeeTimeBooked,
		HolderID:  &holder,
		CreatedAt: now.UTC(),
	}, nil
}

// Reschedule returns a copy of the slot with new details, re-validated the
// same way as booking. Identity, status and holder are untouched.
func (t TeeTime) Reschedule(courseID uuid.UUID, date time.Time, timeOfDay string, players int, now time.Time) (TeeTime, error) {
	day, tod, err := validateSlot(date, timeOfDay, players, now)
	if err != nil {
		return TeeTime{}, err
	}
	t.CourseID = courseID
	t.Date = day
	t.TimeOfDay = tod
	t.Players = players
	return t, nil
}

// Held reports whether the slot currently has a holder-bearing status.
func (t TeeTime) Held() bool {
	return t.Status == TeeTimeBooked || t.Status == TeeTimeTraded
}

// HeldBy reports whether userID is the current holder.
func (t TeeTime) HeldBy(userID uuid.UUID) bool {
	return t.Held() && t.HolderID != nil && *t.HolderID == userID
}

// CheckInvariant verifies the holder/status coupling: a holder exists exactly
// while the slot is booked or traded.
func (t TeeTime) CheckInvariant() error {
	if t.Held() != (t.HolderID != nil) {
		return errors.Wrapf(ErrInvalidState, "tee time %s status %s with holder set=%v", t.ID, t.Status, t.HolderID != nil)
	}
	return nil
}
