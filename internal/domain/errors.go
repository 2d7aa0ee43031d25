package domain

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotAuthorized        = errors.New("not authorized")
	ErrInvalidState         = errors.New("invalid state")
	ErrConflict             = errors.New("conflict")
	ErrNotFound             = errors.New("not found")
	ErrSerializationFailure = errors.New("serialization failure")
)

// Kind returns the stable machine-readable name for a domain error, or ""
// when err carries none of the domain sentinels.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict), errors.Is(err, ErrSerializationFailure):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return ""
}
