package session

import (
	"errors"

	"shot-clock/internal/clock"
	"shot-clock/internal/store"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrUnauthorized   = errors.New("unauthorized")

	ErrNotFound        = store.ErrNotFound
	ErrAlreadyExists   = store.ErrAlreadyExists
	ErrAlreadyClaimed  = store.ErrAlreadyClaimed
	ErrSeatUnavailable = clock.ErrSeatUnavailable

	errClientTickIgnored = errors.New("client_tick_ignored")
)

// ErrorCode maps err to the machine-readable reason sent to clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrSeatUnavailable):
		return "seat_unavailable"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, clock.ErrInvalidSettings):
		return "invalid_request"
	default:
		return "internal_error"
	}
}
