package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("stopwatch not found")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrEmptyID       = errors.New("stopwatch id is empty")
	ErrCorruptRecord = errors.New("stored stopwatch is unreadable")
)
