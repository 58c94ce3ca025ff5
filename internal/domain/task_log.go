package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskLog-specific validation errors
var (
	// ErrTaskLogIDEmpty is returned when a task log ID is empty or nil.
	ErrTaskLogIDEmpty = errors.New("task log ID cannot be empty")

	// ErrTaskLogTaskIDEmpty is returned when a task log's task ID is empty or nil.
	ErrTaskLogTaskIDEmpty = errors.New("task log task ID cannot be empty")

	// ErrTaskLogStatusEmpty is returned when a task log is missing either
	// side of the transition it records.
	ErrTaskLogStatusEmpty = errors.New("task log must record both from and to statuses")
)

// TaskLog is an immutable, append-only record of one successful lifecycle
// transition. Exactly one log entry exists per transition; entries are never
// updated or deleted.
type TaskLog struct {
	ID         uuid.UUID  `json:"id"`
	TaskID     uuid.UUID  `json:"task_id"`
	Timestamp  time.Time  `json:"timestamp"`
	FromStatus TaskStatus `json:"from_status"`
	ToStatus   TaskStatus `json:"to_status"`
	Notes      string     `json:"notes,omitempty"`
}

// NewTaskLog creates a log entry for a transition from fromStatus to
// toStatus on the given task. Notes carry free text such as captured script
// output. Returns an error if validation fails.
func NewTaskLog(taskID uuid.UUID, fromStatus, toStatus TaskStatus, notes string) (*TaskLog, error) {
	entry := &TaskLog{
		ID:         uuid.New(),
		TaskID:     taskID,
		Timestamp:  time.Now().UTC(),
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Notes:      notes,
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks if the TaskLog has valid data.
func (l *TaskLog) Validate() error {
	if l.ID == uuid.Nil {
		return ErrTaskLogIDEmpty
	}

	if l.TaskID == uuid.Nil {
		return ErrTaskLogTaskIDEmpty
	}

	if l.FromStatus == "" || l.ToStatus == "" {
		return ErrTaskLogStatusEmpty
	}

	return nil
}
