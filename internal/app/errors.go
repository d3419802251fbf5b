package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrStopwatchNotFound = errors.New("stopwatch not found")
	ErrEventNotFound     = errors.New("event not found")
	ErrTransitionEvent   = errors.New("start, stop and resume must use their transition")
	ErrInvalidLimit      = errors.New("invalid leaderboard limit")
	ErrNotOpen           = errors.New("service not open")
)
