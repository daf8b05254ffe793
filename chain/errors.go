package chain

import "errors"

var (
	ErrInvalidMessage     = errors.New("invalid message")
	ErrCodeNotFound       = errors.New("code not found")
	ErrContractNotFound   = errors.New("contract not found")
	ErrContractPanic      = errors.New("contract panicked")
	ErrReplyNotSupported  = errors.New("contract does not handle replies")
	ErrInvalidAcknowledge = errors.New("invalid instantiate acknowledgement")
)
