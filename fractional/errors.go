package fractional

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAlreadyExists      = errors.New("already fractionalized")
	ErrNotFractionalized  = errors.New("not fractionalized")
	ErrNotFound           = errors.New("not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidShares      = errors.New("invalid shares")
	ErrSerialization      = errors.New("serialization error")
	ErrProtocolViolation  = errors.New("protocol violation")
	ErrAlreadyInitialized = errors.New("already initialized")
)

func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrNotFractionalized):
		return "not_fractionalized"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInvalidShares):
		return "invalid_shares"
	case errors.Is(err, ErrSerialization):
		return "serialization"
	case errors.Is(err, ErrProtocolViolation):
		return "protocol_violation"
	}
	return "error"
}
