package domain

import "fmt"

// TaskStatus represents a task's position in its lifecycle.
type TaskStatus string

// Possible task status values. Waiting is the initial status; Completed,
// Failed and Skipped are terminal.
const (
	TaskStatusWaiting    TaskStatus = "Waiting"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
	TaskStatusFailed     TaskStatus = "Failed"
	TaskStatusSkipped    TaskStatus = "Skipped"
)

// TaskEvent is a lifecycle event applied to a task.
type TaskEvent string

// The full event set. Each status accepts only a subset of these; every
// other (status, event) pair is an invalid transition.
const (
	TaskEventStart    TaskEvent = "start"
	TaskEventComplete TaskEvent = "complete"
	TaskEventFail     TaskEvent = "fail"
	TaskEventSkip     TaskEvent = "skip"
)

// InvalidTransitionError reports an event that is not legal from the task's
// current status. It is recoverable: callers should surface it as a
// diagnostic rather than crash.
type InvalidTransitionError struct {
	From  TaskStatus
	Event TaskEvent
}

// Error implements the error interface for InvalidTransitionError.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s task from %q", e.Event, e.From)
}

// Transition applies event to the given status and returns the resulting
// status. It is a pure function over the lifecycle table:
//
//	Waiting     --start--->    In Progress
//	Waiting     --skip----->   Skipped
//	In Progress --complete->   Completed
//	In Progress --fail----->   Failed
//	In Progress --skip----->   Skipped
//
// Any other pair returns an *InvalidTransitionError. Recording the
// transition in a TaskLog is the caller's responsibility, which keeps the
// one-log-entry-per-transition invariant in a single place.
func Transition(from TaskStatus, event TaskEvent) (TaskStatus, error) {
	switch from {
	case TaskStatusWaiting:
		switch event {
		case TaskEventStart:
			return TaskStatusInProgress, nil
		case TaskEventSkip:
			return TaskStatusSkipped, nil
		}
	case TaskStatusInProgress:
		switch event {
		case TaskEventComplete:
			return TaskStatusCompleted, nil
		case TaskEventFail:
			return TaskStatusFailed, nil
		case TaskEventSkip:
			return TaskStatusSkipped, nil
		}
	}
	return from, &InvalidTransitionError{From: from, Event: event}
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusWaiting, TaskStatusInProgress, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusSkipped:
		return true
	default:
		return false
	}
}
