package registry

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnregistered = errors.New("type not registered")
	ErrDuplicate    = errors.New("type already registered")
	ErrEmptyTag     = errors.New("type tag must not be empty")
	ErrNilFactory   = errors.New("factory must not be nil")
)
