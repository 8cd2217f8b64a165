package poller

import (
	"errors"
	"fmt"
)

// Status is the state of a polling session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPolling Status = "polling"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// IsTerminal reports whether the session has produced its one outcome.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusTimeout
}

var (
	// ErrIllegalTransition is returned when a state change is not in the
	// transition table.
	ErrIllegalTransition = errors.New("poller: illegal state transition")
	// ErrEmptyTaskID is returned by Start for an empty task identifier.
	ErrEmptyTaskID = errors.New("poller: task id is required")
	// ErrTimeout is wrapped by the error of a session that ran out of attempts.
	ErrTimeout = errors.New("poller: attempt budget exhausted")
)

// transitions lists the allowed moves. Leaving a terminal state is only
// possible through a reset back to idle.
var transitions = map[Status][]Status{
	StatusIdle:    {StatusPolling, StatusIdle},
	StatusPolling: {StatusSuccess, StatusError, StatusTimeout, StatusIdle},
	StatusSuccess: {StatusIdle},
	StatusError:   {StatusIdle},
	StatusTimeout: {StatusIdle},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}
