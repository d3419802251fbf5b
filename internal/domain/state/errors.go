package state

import "errors"

// ErrInvalidTransition is matched by every rejected start/stop/resume.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrUnknownEventType is returned when AddEvent receives an unknown tag.
var ErrUnknownEventType = errors.New("unknown event type")

// Reason names the precondition a transition violated.
type Reason string

// Transition failure reasons.
const (
	ReasonStartWhileRunning       Reason = "StartWhileRunning"
	ReasonStopWhileNotRunning     Reason = "StopWhileNotRunning"
	ReasonResumeWhileRunning      Reason = "ResumeWhileRunning"
	ReasonResumeNeverStarted      Reason = "ResumeNeverStarted"
	ReasonResumeAfterNonStopEvent Reason = "ResumeAfterNonStopEvent"
)

// TransitionError reports a rejected transition. It unwraps to
// ErrInvalidTransition.
type TransitionError struct {
	Reason Reason
}

func (e *TransitionError) Error() string {
	return "invalid transition: " + string(e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Sentinels for each reason, usable with errors.Is.
var (
	ErrStartWhileRunning       = &TransitionError{Reason: ReasonStartWhileRunning}
	ErrStopWhileNotRunning     = &TransitionError{Reason: ReasonStopWhileNotRunning}
	ErrResumeWhileRunning      = &TransitionError{Reason: ReasonResumeWhileRunning}
	ErrResumeNeverStarted      = &TransitionError{Reason: ReasonResumeNeverStarted}
	ErrResumeAfterNonStopEvent = &TransitionError{Reason: ReasonResumeAfterNonStopEvent}
)
