package domain

import (
	"errors"
	"testing"
)

func TestTransition(t *testing.T) {
	t.Parallel()

	allStatuses := []TaskStatus{
		TaskStatusWaiting,
		TaskStatusInProgress,
		TaskStatusCompleted,
		TaskStatusFailed,
		TaskStatusSkipped,
	}
	allEvents := []TaskEvent{
		TaskEventStart,
		TaskEventComplete,
		TaskEventFail,
		TaskEventSkip,
	}

	// The complete set of legal transitions. Every (status, event) pair not
	// listed here must return an InvalidTransitionError.
	legal := map[TaskStatus]map[TaskEvent]TaskStatus{
		TaskStatusWaiting: {
			TaskEventStart: TaskStatusInProgress,
			TaskEventSkip:  TaskStatusSkipped,
		},
		TaskStatusInProgress: {
			TaskEventComplete: TaskStatusCompleted,
			TaskEventFail:     TaskStatusFailed,
			TaskEventSkip:     TaskStatusSkipped,
		},
	}

	for _, from := range allStatuses {
		for _, event := range allEvents {
			got, err := Transition(from, event)

			want, ok := legal[from][event]
			if ok {
				if err != nil {
					t.Errorf("Transition(%q, %q): expected no error, got %v", from, event, err)
				}
				if got != want {
					t.Errorf("Transition(%q, %q): expected %q, got %q", from, event, want, got)
				}
				continue
			}

			var invalidErr *InvalidTransitionError
			if !errors.As(err, &invalidErr) {
				t.Errorf("Transition(%q, %q): expected InvalidTransitionError, got %v", from, event, err)
				continue
			}
			if invalidErr.From != from || invalidErr.Event != event {
				t.Errorf("Transition(%q, %q): error carries (%q, %q)",
					from, event, invalidErr.From, invalidErr.Event)
			}
			if got != from {
				t.Errorf("Transition(%q, %q): status changed to %q on invalid transition", from, event, got)
			}
		}
	}
}

func TestTaskApply(t *testing.T) {
	t.Parallel()

	task, err := NewTask(mustUUID(t), nil, mustDate(2025, 1, 1))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.Status != TaskStatusWaiting {
		t.Fatalf("Expected new task to be Waiting, got %q", task.Status)
	}

	from, err := task.Apply(TaskEventStart)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if from != TaskStatusWaiting {
		t.Errorf("Expected returned from-status Waiting, got %q", from)
	}
	if task.Status != TaskStatusInProgress {
		t.Errorf("Expected In Progress after start, got %q", task.Status)
	}

	// An illegal event must leave the task untouched.
	before := task.Status
	from, err = task.Apply(TaskEventStart)
	var invalidErr *InvalidTransitionError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("Expected InvalidTransitionError, got %v", err)
	}
	if from != before || task.Status != before {
		t.Errorf("Expected task unchanged after invalid event, got status %q", task.Status)
	}
}
