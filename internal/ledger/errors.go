package ledger

import "errors"

var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrPositionNotFound      = errors.New("position not found")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrLimitOrderCapExceeded = errors.New("limit orders limited to 5")
	ErrInvalidCloseState     = errors.New("only pending limit positions can be closed in spot trading")

	// ErrInvalidRequest wraps request validation failures so handlers
	// can map them to a client error without listing every message.
	ErrInvalidRequest = errors.New("invalid request")
)
