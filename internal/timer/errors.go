package timer

import (
	"errors"
	"fmt"

	"github.com/pdxmph/tasks-tui/internal/db"
)

var (
	// ErrInvalidTransition is matched by every *TransitionError
	ErrInvalidTransition = errors.New("invalid timer transition")
	// ErrInvalidEstimate is returned for a negative estimate
	ErrInvalidEstimate = errors.New("estimated minutes must not be negative")
	// ErrMissingStart reports a running timer without a start time
	ErrMissingStart = errors.New("running timer has no start time")
)

// TransitionError is returned when an action is not allowed in the current state
type TransitionError struct {
	TaskID int64
	Action string
	From   db.TimerStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %d: cannot %s a %s timer", e.TaskID, e.Action, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
