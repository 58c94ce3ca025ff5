package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain/schedule"
)

// Goal-specific validation errors
var (
	// ErrGoalIDEmpty is returned when a goal ID is empty or nil.
	ErrGoalIDEmpty = errors.New("goal ID cannot be empty")

	// ErrGoalPlatformIDEmpty is returned when a goal's platform ID is empty or nil.
	ErrGoalPlatformIDEmpty = errors.New("goal platform ID cannot be empty")

	// ErrGoalDescriptionEmpty is returned when a goal's description is empty.
	ErrGoalDescriptionEmpty = errors.New("goal description cannot be empty")

	// ErrGoalStartDateEmpty is returned when a goal has no start date.
	ErrGoalStartDateEmpty = errors.New("goal start date cannot be empty")

	// ErrGoalEndBeforeStart is returned when a goal's end date precedes its start date.
	ErrGoalEndBeforeStart = errors.New("goal end date cannot be before its start date")

	// ErrInvalidGoalStatus is returned when a goal status is not a known value.
	ErrInvalidGoalStatus = errors.New("invalid goal status")

	// ErrInvalidDistribution is returned when a goal's task distribution
	// strategy is not a known value.
	ErrInvalidDistribution = errors.New("invalid task distribution strategy")

	// ErrInvalidCatchup is returned when a goal's catch-up strategy is not a
	// known value or is incompatible with its scheduling policy.
	ErrInvalidCatchup = errors.New("invalid catch-up strategy")
)

// GoalStatus represents whether a goal still generates tasks.
type GoalStatus string

// Possible goal status values.
const (
	GoalStatusActive    GoalStatus = "Active"
	GoalStatusCompleted GoalStatus = "Completed"
)

// DistributionStrategy decides how due occurrences fan out across a goal's
// accounts.
type DistributionStrategy string

const (
	// DistributionAll generates an independent task line per account (or a
	// single platform-level line when the goal has no accounts).
	DistributionAll DistributionStrategy = "all"

	// DistributionRoundRobin generates one shared line and rotates the
	// assigned account for each new task.
	DistributionRoundRobin DistributionStrategy = "round_robin"
)

// CatchupStrategy decides how missed due dates turn into tasks.
type CatchupStrategy string

const (
	// CatchupAll materializes one task per missed occurrence.
	CatchupAll CatchupStrategy = "all"

	// CatchupLatest collapses the backlog to the single most recent
	// occurrence. Only valid for fixed-interval policies; deadline
	// distribution has its own built-in catch-up (shortening intervals).
	CatchupLatest CatchupStrategy = "latest"
)

// Goal represents a recurring objective that spawns tasks on a schedule.
// An empty AccountIDs list means the goal is platform-level and generates a
// single virtual task line.
type Goal struct {
	ID           uuid.UUID            `json:"id"`
	PlatformID   uuid.UUID            `json:"platform_id"`
	Description  string               `json:"description"`
	Policy       schedule.Policy      `json:"policy"`
	StartDate    time.Time            `json:"start_date"`
	EndDate      *time.Time           `json:"end_date,omitempty"`
	AccountIDs   []uuid.UUID          `json:"account_ids"`
	Distribution DistributionStrategy `json:"task_distribution_strategy"`
	Catchup      CatchupStrategy      `json:"catchup_strategy"`
	Execution    Strategy             `json:"execution_strategy"`
	Check        Strategy             `json:"check_strategy"`
	Status       GoalStatus           `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// NewGoalParams carries the caller-supplied fields for NewGoal. Zero-value
// strategies default to "all" distribution, "all" catch-up and manual
// execution/check.
type NewGoalParams struct {
	PlatformID   uuid.UUID
	Description  string
	Policy       schedule.Policy
	StartDate    time.Time
	EndDate      *time.Time
	AccountIDs   []uuid.UUID
	Distribution DistributionStrategy
	Catchup      CatchupStrategy
	Execution    Strategy
	Check        Strategy
}

// NewGoal creates a new Active Goal from params. It generates a new UUID for
// the goal ID, normalizes the dates to midnight UTC, applies defaults for
// omitted strategies and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewGoal(params NewGoalParams) (*Goal, error) {
	goal := &Goal{
		ID:           uuid.New(),
		PlatformID:   params.PlatformID,
		Description:  params.Description,
		Policy:       params.Policy,
		StartDate:    schedule.DateOnly(params.StartDate),
		AccountIDs:   params.AccountIDs,
		Distribution: params.Distribution,
		Catchup:      params.Catchup,
		Execution:    params.Execution,
		Check:        params.Check,
		Status:       GoalStatusActive,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if params.EndDate != nil {
		end := schedule.DateOnly(*params.EndDate)
		goal.EndDate = &end
	}
	if goal.AccountIDs == nil {
		goal.AccountIDs = []uuid.UUID{}
	}
	if goal.Distribution == "" {
		goal.Distribution = DistributionAll
	}
	if goal.Catchup == "" {
		goal.Catchup = CatchupAll
	}
	if goal.Execution.Type == "" {
		goal.Execution = ManualStrategy()
	}
	if goal.Check.Type == "" {
		goal.Check = ManualStrategy()
	}

	if err := goal.Validate(); err != nil {
		return nil, err
	}

	return goal, nil
}

// Validate checks if the Goal has valid data, including its policy and
// strategies.
func (g *Goal) Validate() error {
	if g.ID == uuid.Nil {
		return ErrGoalIDEmpty
	}

	if g.PlatformID == uuid.Nil {
		return ErrGoalPlatformIDEmpty
	}

	if g.Description == "" {
		return ErrGoalDescriptionEmpty
	}

	if g.StartDate.IsZero() {
		return ErrGoalStartDateEmpty
	}

	if g.EndDate != nil && g.EndDate.Before(g.StartDate) {
		return ErrGoalEndBeforeStart
	}

	if err := g.Policy.Validate(); err != nil {
		return err
	}

	switch g.Distribution {
	case DistributionAll, DistributionRoundRobin:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDistribution, g.Distribution)
	}

	switch g.Catchup {
	case CatchupAll:
	case CatchupLatest:
		if g.Policy.Type != schedule.PolicyFixedInterval {
			return fmt.Errorf("%w: %q requires a fixed-interval policy", ErrInvalidCatchup, g.Catchup)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCatchup, g.Catchup)
	}

	if err := g.Execution.Validate(); err != nil {
		return fmt.Errorf("execution strategy: %w", err)
	}
	if err := g.Check.Validate(); err != nil {
		return fmt.Errorf("check strategy: %w", err)
	}

	switch g.Status {
	case GoalStatusActive, GoalStatusCompleted:
	default:
		return ErrInvalidGoalStatus
	}

	return nil
}

// MarkCompleted transitions the goal to Completed and updates the UpdatedAt
// timestamp. Used by the completion cascade when a state-based goal's check
// reports the goal as met.
func (g *Goal) MarkCompleted() {
	g.Status = GoalStatusCompleted
	g.UpdatedAt = time.Now().UTC()
}

// ContextString returns a human-readable summary of the goal's schedule,
// attached to task listings and script context snapshots.
func (g *Goal) ContextString() string {
	return g.Policy.Describe()
}
