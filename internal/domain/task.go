package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain/schedule"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskGoalIDEmpty is returned when a task's goal ID is empty or nil.
	ErrTaskGoalIDEmpty = errors.New("task goal ID cannot be empty")

	// ErrTaskDueDateEmpty is returned when a task has no due date.
	ErrTaskDueDateEmpty = errors.New("task due date cannot be empty")

	// ErrInvalidTaskStatus is returned when a task status is not a known value.
	ErrInvalidTaskStatus = errors.New("invalid task status")
)

// Task represents one concrete due occurrence of a goal. AccountID is nil
// for platform-level tasks. Tasks are created only by the generation engine
// and mutated only through lifecycle transitions.
type Task struct {
	ID        uuid.UUID  `json:"id"`
	GoalID    uuid.UUID  `json:"goal_id"`
	AccountID *uuid.UUID `json:"account_id,omitempty"`
	DueDate   time.Time  `json:"due_date"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewTask creates a new Task in the Waiting status for the given goal,
// account line and due date. accountID is nil for platform-level tasks.
// Returns an error if validation fails.
func NewTask(goalID uuid.UUID, accountID *uuid.UUID, dueDate time.Time) (*Task, error) {
	task := &Task{
		ID:        uuid.New(),
		GoalID:    goalID,
		AccountID: accountID,
		DueDate:   schedule.DateOnly(dueDate),
		Status:    TaskStatusWaiting,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.GoalID == uuid.Nil {
		return ErrTaskGoalIDEmpty
	}

	if t.DueDate.IsZero() {
		return ErrTaskDueDateEmpty
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	return nil
}

// Apply transitions the task with the given lifecycle event and updates the
// UpdatedAt timestamp. The previous status is returned so the caller can
// record the transition in a TaskLog.
// Returns an *InvalidTransitionError if the event is not legal from the
// task's current status; the task is left unchanged in that case.
func (t *Task) Apply(event TaskEvent) (TaskStatus, error) {
	from := t.Status

	next, err := Transition(from, event)
	if err != nil {
		return from, err
	}

	t.Status = next
	t.UpdatedAt = time.Now().UTC()
	return from, nil
}
