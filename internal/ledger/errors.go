package ledger

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidKind  = errors.New("kind must be pledge or outgoing")
	ErrNotConfirmed = errors.New("duplicate removal must be confirmed")
	ErrNoIDs        = errors.New("ids must not be empty")
	ErrValidation   = errors.New("validation failed")
)
