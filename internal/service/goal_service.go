package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/domain/schedule"
	"github.com/cadencehq/cadence-api/internal/store"
)

// GoalInput carries the caller-supplied fields for creating or updating a
// goal. Policy fields are interpreted according to PolicyType; strategy
// fields according to the strategy type values.
type GoalInput struct {
	PlatformID  uuid.UUID
	Description string

	PolicyType        schedule.PolicyType
	IntervalDays      int
	Deadline          *time.Time
	TotalOccurrences  int
	FreezeOnMiss      bool
	CheckIntervalDays int

	StartDate  time.Time
	EndDate    *time.Time
	AccountIDs []uuid.UUID

	Distribution domain.DistributionStrategy
	Catchup      domain.CatchupStrategy

	ExecutionType    domain.StrategyType
	ExecutionScript  string
	ExecutionEnvVars map[string]string

	CheckType    domain.StrategyType
	CheckScript  string
	CheckEnvVars map[string]string
}

// GoalService provides goal-related operations.
type GoalService interface {
	// CreateGoal creates a new Active goal from the given input.
	CreateGoal(ctx context.Context, input GoalInput) (*domain.Goal, error)

	// GetGoal retrieves a goal by its ID.
	GetGoal(ctx context.Context, id uuid.UUID) (*domain.Goal, error)

	// ListGoals retrieves all goals.
	ListGoals(ctx context.Context) ([]*domain.Goal, error)

	// UpdateGoal replaces the definition of an existing goal. The goal's
	// status and creation timestamp are preserved.
	UpdateGoal(ctx context.Context, id uuid.UUID, input GoalInput) (*domain.Goal, error)

	// DeleteGoal removes a goal and, through database cascades, its tasks
	// and their logs.
	DeleteGoal(ctx context.Context, id uuid.UUID) error
}

type goalServiceImpl struct {
	db        *sql.DB
	goalStore store.GoalStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewGoalService creates a new GoalService.
// It returns an error if any of the required dependencies are nil.
func NewGoalService(
	db *sql.DB,
	goalStore store.GoalStore,
	logger *slog.Logger,
) (GoalService, error) {
	if db == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if goalStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "goalStore cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &goalServiceImpl{
		db:        db,
		goalStore: goalStore,
		logger:    logger.With("component", "goal_service"),
		now:       time.Now,
	}, nil
}

// buildPolicy constructs the schedule policy described by the input.
func (s *goalServiceImpl) buildPolicy(input GoalInput) (schedule.Policy, error) {
	switch input.PolicyType {
	case schedule.PolicyFixedInterval:
		return schedule.NewFixedInterval(input.IntervalDays)
	case schedule.PolicyDeadlineDistribution:
		if input.Deadline == nil {
			return schedule.Policy{}, fmt.Errorf(
				"%w: deadline is required", schedule.ErrInvalidPolicyConfig)
		}
		today := schedule.DateOnly(s.now().UTC())
		return schedule.NewDeadlineDistribution(
			schedule.DateOnly(*input.Deadline),
			input.TotalOccurrences,
			input.FreezeOnMiss,
			today,
		)
	case schedule.PolicyStateBased:
		return schedule.NewStateBased(input.CheckIntervalDays)
	default:
		return schedule.Policy{}, fmt.Errorf(
			"%w: unknown policy type %q", schedule.ErrInvalidPolicyConfig, input.PolicyType)
	}
}

// buildParams turns a GoalInput into NewGoalParams. For deadline
// distribution the goal's end date defaults to the deadline itself, so the
// generation loop never schedules past it.
func (s *goalServiceImpl) buildParams(input GoalInput) (domain.NewGoalParams, error) {
	policy, err := s.buildPolicy(input)
	if err != nil {
		return domain.NewGoalParams{}, err
	}

	endDate := input.EndDate
	if endDate == nil && policy.Type == schedule.PolicyDeadlineDistribution {
		deadline := policy.Deadline
		endDate = &deadline
	}

	execution := domain.ManualStrategy()
	if input.ExecutionType == domain.StrategyScript {
		execution = domain.ScriptStrategy(input.ExecutionScript, input.ExecutionEnvVars)
	}

	check := domain.ManualStrategy()
	if input.CheckType == domain.StrategyScript {
		check = domain.ScriptStrategy(input.CheckScript, input.CheckEnvVars)
	}

	return domain.NewGoalParams{
		PlatformID:   input.PlatformID,
		Description:  input.Description,
		Policy:       policy,
		StartDate:    input.StartDate,
		EndDate:      endDate,
		AccountIDs:   input.AccountIDs,
		Distribution: input.Distribution,
		Catchup:      input.Catchup,
		Execution:    execution,
		Check:        check,
	}, nil
}

func (s *goalServiceImpl) CreateGoal(
	ctx context.Context,
	input GoalInput,
) (*domain.Goal, error) {
	params, err := s.buildParams(input)
	if err != nil {
		return nil, &ServiceError{
			Operation: "create_goal",
			Message:   "invalid goal definition",
			Err:       err,
		}
	}

	goal, err := domain.NewGoal(params)
	if err != nil {
		return nil, &ServiceError{
			Operation: "create_goal",
			Message:   "invalid goal definition",
			Err:       err,
		}
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.goalStore.WithTx(tx).Create(ctx, goal)
	})
	if err != nil {
		s.logger.Error("failed to create goal",
			"error", err,
			"platform_id", input.PlatformID)
		return nil, &ServiceError{
			Operation: "create_goal",
			Message:   "failed to save goal",
			Err:       err,
		}
	}

	s.logger.Info("goal created",
		"goal_id", goal.ID,
		"platform_id", goal.PlatformID,
		"policy_type", goal.Policy.Type)
	return goal, nil
}

func (s *goalServiceImpl) GetGoal(ctx context.Context, id uuid.UUID) (*domain.Goal, error) {
	goal, err := s.goalStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrGoalNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, &ServiceError{
			Operation: "get_goal",
			Message:   "failed to retrieve goal",
			Err:       err,
		}
	}
	return goal, nil
}

func (s *goalServiceImpl) ListGoals(ctx context.Context) ([]*domain.Goal, error) {
	goals, err := s.goalStore.List(ctx)
	if err != nil {
		return nil, &ServiceError{
			Operation: "list_goals",
			Message:   "failed to list goals",
			Err:       err,
		}
	}
	return goals, nil
}

func (s *goalServiceImpl) UpdateGoal(
	ctx context.Context,
	id uuid.UUID,
	input GoalInput,
) (*domain.Goal, error) {
	params, err := s.buildParams(input)
	if err != nil {
		return nil, &ServiceError{
			Operation: "update_goal",
			Message:   "invalid goal definition",
			Err:       err,
		}
	}

	var goal *domain.Goal

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.goalStore.WithTx(tx)

		existing, err := txStore.GetByID(ctx, id)
		if err != nil {
			return err
		}

		// Rebuild the goal from the new definition while keeping its
		// identity, status and creation time.
		updated, err := domain.NewGoal(params)
		if err != nil {
			return err
		}
		updated.ID = existing.ID
		updated.Status = existing.Status
		updated.CreatedAt = existing.CreatedAt
		if err := updated.Validate(); err != nil {
			return err
		}

		if err := txStore.Update(ctx, updated); err != nil {
			return err
		}

		goal = updated
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrGoalNotFound) {
			return nil, ErrGoalNotFound
		}
		s.logger.Error("failed to update goal", "error", err, "goal_id", id)
		return nil, &ServiceError{
			Operation: "update_goal",
			Message:   fmt.Sprintf("failed to update goal %s", id),
			Err:       err,
		}
	}

	s.logger.Info("goal updated", "goal_id", id)
	return goal, nil
}

func (s *goalServiceImpl) DeleteGoal(ctx context.Context, id uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.goalStore.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, store.ErrGoalNotFound) {
			return ErrGoalNotFound
		}
		s.logger.Error("failed to delete goal", "error", err, "goal_id", id)
		return &ServiceError{
			Operation: "delete_goal",
			Message:   fmt.Sprintf("failed to delete goal %s", id),
			Err:       err,
		}
	}

	s.logger.Info("goal deleted", "goal_id", id)
	return nil
}
