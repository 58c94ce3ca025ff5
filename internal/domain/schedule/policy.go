// Package schedule implements the scheduling policies that decide when a
// goal's next task is due. A policy is a pure function from (last due date,
// completed count) to the next due date; it never touches storage or the
// system clock.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPolicyConfig is returned when a policy is constructed with
// parameters that can never produce a valid schedule. All construction
// failures wrap this error so callers can detect them with errors.Is.
var ErrInvalidPolicyConfig = errors.New("invalid policy configuration")

// Never is the sentinel due date meaning "no further tasks". It is returned
// by NextDue when a deadline-distribution policy has exhausted its budget or
// its deadline has passed.
var Never = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// PolicyType identifies a scheduling policy variant.
type PolicyType string

// Supported policy variants. The set is closed; every dispatch site switches
// over exactly these values.
const (
	// PolicyFixedInterval schedules a task every N days.
	PolicyFixedInterval PolicyType = "fixed_interval"

	// PolicyDeadlineDistribution distributes a fixed number of tasks over
	// the days remaining until a deadline, shortening intervals as
	// completions lag.
	PolicyDeadlineDistribution PolicyType = "deadline_distribution"

	// PolicyStateBased schedules periodic check tasks until an external
	// check reports the goal as met.
	PolicyStateBased PolicyType = "state_based"
)

// Policy is a tagged union over the three scheduling variants. Only the
// fields relevant to Type are meaningful; the rest stay at their zero value.
// A Policy is immutable once attached to a goal.
type Policy struct {
	Type PolicyType `json:"type"`

	// Days is the fixed interval in days (PolicyFixedInterval).
	Days int `json:"days,omitempty"`

	// Deadline and Total configure PolicyDeadlineDistribution: Total tasks
	// must be distributed over the days remaining until Deadline.
	Deadline time.Time `json:"deadline"`
	Total    int       `json:"total,omitempty"`

	// Freeze stops schedule advancement while an earlier due date is in the
	// past, instead of compressing the remaining intervals
	// (PolicyDeadlineDistribution only).
	Freeze bool `json:"freeze,omitempty"`

	// CheckIntervalDays is the spacing of check tasks (PolicyStateBased).
	CheckIntervalDays int `json:"check_interval_days,omitempty"`
}

// NewFixedInterval creates a fixed-interval policy.
// Returns an error wrapping ErrInvalidPolicyConfig if days is not positive.
func NewFixedInterval(days int) (Policy, error) {
	if days <= 0 {
		return Policy{}, fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidPolicyConfig, days)
	}
	return Policy{Type: PolicyFixedInterval, Days: days}, nil
}

// NewDeadlineDistribution creates a deadline-distribution policy. The
// deadline is validated against the caller-supplied today so the constructor
// stays deterministic.
// Returns an error wrapping ErrInvalidPolicyConfig if the deadline is not in
// the future or total is not positive.
func NewDeadlineDistribution(deadline time.Time, total int, freeze bool, today time.Time) (Policy, error) {
	if !deadline.After(today) {
		return Policy{}, fmt.Errorf("%w: deadline must be in the future", ErrInvalidPolicyConfig)
	}
	if total <= 0 {
		return Policy{}, fmt.Errorf("%w: total must be positive, got %d", ErrInvalidPolicyConfig, total)
	}
	return Policy{
		Type:     PolicyDeadlineDistribution,
		Deadline: deadline,
		Total:    total,
		Freeze:   freeze,
	}, nil
}

// NewStateBased creates a state-based policy that schedules check tasks
// every checkIntervalDays. Goal completion is decided by an external check,
// not by this policy.
// Returns an error wrapping ErrInvalidPolicyConfig if the interval is not
// positive.
func NewStateBased(checkIntervalDays int) (Policy, error) {
	if checkIntervalDays <= 0 {
		return Policy{}, fmt.Errorf("%w: check interval must be positive, got %d", ErrInvalidPolicyConfig, checkIntervalDays)
	}
	return Policy{Type: PolicyStateBased, CheckIntervalDays: checkIntervalDays}, nil
}

// NextDue computes the next due date after last. numCompleted is the number
// of tasks already completed and only matters for deadline distribution,
// where it shrinks the remaining budget.
//
// For deadline distribution the interval is
// max(1, remainingDays / remainingTasks) using integer division, so for
// non-divisible day counts the cadence is a minimum-spacing guarantee rather
// than an exact one. Once the budget is exhausted or the deadline has passed,
// NextDue returns Never.
func (p Policy) NextDue(last time.Time, numCompleted int) time.Time {
	switch p.Type {
	case PolicyFixedInterval:
		return last.AddDate(0, 0, p.Days)

	case PolicyDeadlineDistribution:
		remaining := p.Total - numCompleted
		if remaining <= 0 || !last.Before(p.Deadline) {
			return Never
		}
		daysToDeadline := int(p.Deadline.Sub(last).Hours() / 24)
		interval := daysToDeadline / remaining
		if interval < 1 {
			interval = 1
		}
		return last.AddDate(0, 0, interval)

	case PolicyStateBased:
		return last.AddDate(0, 0, p.CheckIntervalDays)

	default:
		return Never
	}
}

// Validate checks the structural invariants of a policy loaded from storage.
// Unlike the constructors it does not compare the deadline against the
// current date: a stored goal may legitimately outlive its deadline.
func (p Policy) Validate() error {
	switch p.Type {
	case PolicyFixedInterval:
		if p.Days <= 0 {
			return fmt.Errorf("%w: interval must be positive, got %d", ErrInvalidPolicyConfig, p.Days)
		}
	case PolicyDeadlineDistribution:
		if p.Deadline.IsZero() {
			return fmt.Errorf("%w: deadline is required", ErrInvalidPolicyConfig)
		}
		if p.Total <= 0 {
			return fmt.Errorf("%w: total must be positive, got %d", ErrInvalidPolicyConfig, p.Total)
		}
	case PolicyStateBased:
		if p.CheckIntervalDays <= 0 {
			return fmt.Errorf("%w: check interval must be positive, got %d", ErrInvalidPolicyConfig, p.CheckIntervalDays)
		}
	default:
		return fmt.Errorf("%w: unknown policy type %q", ErrInvalidPolicyConfig, p.Type)
	}
	return nil
}

// Describe returns a short human-readable summary of the policy, used to give
// task listings context about the goal they belong to.
func (p Policy) Describe() string {
	switch p.Type {
	case PolicyFixedInterval:
		return fmt.Sprintf("This is a recurring goal that repeats every %d day(s).", p.Days)
	case PolicyDeadlineDistribution:
		return fmt.Sprintf("Part of a goal to complete %d tasks by %s.", p.Total, p.Deadline.Format("January 2, 2006"))
	case PolicyStateBased:
		return fmt.Sprintf("A goal to achieve a specific state, checked every %d day(s).", p.CheckIntervalDays)
	default:
		return "A standalone goal."
	}
}
