// Package generation computes which tasks a goal is due to materialize. It
// turns a goal's scheduling policy, catch-up strategy and per-line history
// into a concrete list of due dates, and decides which account each new task
// lands on. All functions are pure; persistence and clock reads stay with
// the caller.
package generation

import (
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/domain/schedule"
)

// LineSeed captures the stored history of one task line (one account, or the
// single virtual platform-level line) at planning time.
type LineSeed struct {
	// LastDueDate is the due date of the line's most recent task, or nil if
	// the line has no tasks yet. Seeding from the stored latest task is what
	// makes planning idempotent: re-running on unchanged data yields no new
	// dates.
	LastDueDate *time.Time

	// NumCompleted is the number of Completed tasks counted for the line.
	// Only deadline distribution consumes it.
	NumCompleted int
}

// PlanLine returns the ordered due dates (oldest first) for which the goal
// needs new tasks on one line, as of today. today must be a calendar date
// (see schedule.DateOnly).
//
// The planner works in two stages, mirroring the goal's configuration:
//
//  1. Collect every due date from the line's seed up to today, advancing the
//     policy with an incrementally updated completed count so a deadline
//     budget drains within a single batch. Collection stops at the goal's
//     end date, and halts entirely for frozen deadline goals while a prior
//     due date lies in the past.
//  2. Apply the catch-up strategy: "latest" collapses the backlog to its
//     most recent date (fixed-interval only), "all" keeps one date per
//     missed occurrence.
func PlanLine(goal *domain.Goal, seed LineSeed, today time.Time) []time.Time {
	collected := make([]time.Time, 0, 4)

	// The first due date is computed from the last task's due date, or from
	// the goal's start date when the line has no tasks yet. Starting from
	// the start date matters for deadline distribution: its first interval
	// must span the full remaining window.
	currentLast := goal.StartDate
	if seed.LastDueDate != nil {
		currentLast = *seed.LastDueDate
	}
	next := goal.Policy.NextDue(currentLast, seed.NumCompleted)

	for !next.After(today) {
		if goal.EndDate != nil && next.After(*goal.EndDate) {
			break
		}

		// Freeze semantics: while the line's previous due date is in the
		// past, a frozen deadline goal stops advancing its schedule rather
		// than compressing the remaining intervals. The check looks only at
		// the due date, not at whether that task was completed.
		if goal.Policy.Type == schedule.PolicyDeadlineDistribution && goal.Policy.Freeze {
			if seed.LastDueDate != nil && seed.LastDueDate.Before(today) {
				break
			}
		}

		collected = append(collected, next)

		currentLast = next
		next = goal.Policy.NextDue(currentLast, seed.NumCompleted+len(collected))
	}

	if len(collected) == 0 {
		return nil
	}

	// Catch-up filtering. "latest" is intentionally limited to fixed
	// interval: deadline distribution already catches up by shortening its
	// intervals, and state-based goals need every check occurrence.
	if goal.Catchup == domain.CatchupLatest && goal.Policy.Type == schedule.PolicyFixedInterval {
		return collected[len(collected)-1:]
	}

	return collected
}

// NextRoundRobinAccount picks the account for the next task of a
// round-robin goal: the account following (cyclically) the one that received
// the goal's most recent task. With no prior task, or a prior task assigned
// to an account no longer on the goal, the first account wins.
func NextRoundRobinAccount(accountIDs []uuid.UUID, lastAssigned *uuid.UUID) uuid.UUID {
	if len(accountIDs) == 0 {
		return uuid.Nil
	}

	if lastAssigned == nil {
		return accountIDs[0]
	}

	for i, id := range accountIDs {
		if id == *lastAssigned {
			return accountIDs[(i+1)%len(accountIDs)]
		}
	}

	return accountIDs[0]
}
