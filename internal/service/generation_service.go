package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/domain/schedule"
	"github.com/cadencehq/cadence-api/internal/generation"
	"github.com/cadencehq/cadence-api/internal/store"
)

// GenerationService materializes due tasks for every active goal. It is
// invoked once per cycle by the periodic trigger and on demand through the
// API.
type GenerationService interface {
	// GenerateDueTasks runs one generation cycle over all active goals and
	// returns the number of tasks created. A failure on one goal is logged
	// and does not stop the cycle for the remaining goals.
	GenerateDueTasks(ctx context.Context) (int, error)
}

type generationServiceImpl struct {
	db        *sql.DB
	goalStore store.GoalStore
	taskStore store.TaskStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewGenerationService creates a new GenerationService.
// It returns an error if any of the required dependencies are nil.
func NewGenerationService(
	db *sql.DB,
	goalStore store.GoalStore,
	taskStore store.TaskStore,
	logger *slog.Logger,
) (GenerationService, error) {
	if db == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if goalStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "goalStore cannot be nil"}
	}
	if taskStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "taskStore cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &generationServiceImpl{
		db:        db,
		goalStore: goalStore,
		taskStore: taskStore,
		logger:    logger.With("component", "generation_service"),
		now:       time.Now,
	}, nil
}

func (s *generationServiceImpl) GenerateDueTasks(ctx context.Context) (int, error) {
	today := schedule.DateOnly(s.now().UTC())

	goals, err := s.goalStore.ListActive(ctx)
	if err != nil {
		return 0, &ServiceError{
			Operation: "generate_due_tasks",
			Message:   "failed to list active goals",
			Err:       err,
		}
	}

	s.logger.Info("generation cycle started",
		"today", today.Format(time.DateOnly),
		"active_goals", len(goals))

	total := 0
	for _, goal := range goals {
		if goal.EndDate != nil && goal.EndDate.Before(today) {
			continue
		}

		created, err := s.generateForGoal(ctx, goal, today)
		if err != nil {
			// One broken goal must not starve the rest of the cycle.
			s.logger.Error("generation failed for goal",
				"error", err,
				"goal_id", goal.ID)
			continue
		}
		total += created
	}

	s.logger.Info("generation cycle finished", "tasks_created", total)
	return total, nil
}

// generateForGoal plans and persists the due tasks of a single goal inside
// one transaction.
func (s *generationServiceImpl) generateForGoal(
	ctx context.Context,
	goal *domain.Goal,
	today time.Time,
) (int, error) {
	created := 0

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		taskStore := s.taskStore.WithTx(tx)

		if len(goal.AccountIDs) == 0 || goal.Distribution == domain.DistributionAll {
			n, err := s.generateIndependentLines(ctx, taskStore, goal, today)
			if err != nil {
				return err
			}
			created = n
			return nil
		}

		n, err := s.generateRoundRobin(ctx, taskStore, goal, today)
		if err != nil {
			return err
		}
		created = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	return created, nil
}

// generateIndependentLines handles the "all" distribution: every account
// (or the single platform-level line when the goal has no accounts) tracks
// its own last due date and generates its own sequence.
func (s *generationServiceImpl) generateIndependentLines(
	ctx context.Context,
	taskStore store.TaskStore,
	goal *domain.Goal,
	today time.Time,
) (int, error) {
	lines := []*uuid.UUID{nil}
	if len(goal.AccountIDs) > 0 {
		lines = make([]*uuid.UUID, len(goal.AccountIDs))
		for i := range goal.AccountIDs {
			lines[i] = &goal.AccountIDs[i]
		}
	}

	created := 0
	for _, accountID := range lines {
		seed, err := s.seedLine(ctx, taskStore, goal, accountID)
		if err != nil {
			return 0, err
		}

		for _, due := range generation.PlanLine(goal, seed, today) {
			ok, err := s.createTask(ctx, taskStore, goal, accountID, due)
			if err != nil {
				return 0, err
			}
			if ok {
				created++
			}
		}
	}

	return created, nil
}

// generateRoundRobin handles the round-robin distribution: one shared
// sequence seeded from the goal's most recent task across any account, with
// the batch assigned to the account following it cyclically.
func (s *generationServiceImpl) generateRoundRobin(
	ctx context.Context,
	taskStore store.TaskStore,
	goal *domain.Goal,
	today time.Time,
) (int, error) {
	latest, err := taskStore.FindLatestForGoalAnyAccount(ctx, goal.ID)
	if err != nil {
		return 0, err
	}

	seed := generation.LineSeed{}
	var lastAssigned *uuid.UUID
	if latest != nil {
		due := latest.DueDate
		seed.LastDueDate = &due
		lastAssigned = latest.AccountID
	}

	// For round-robin deadline goals the completed count spans the whole
	// account group.
	if goal.Policy.Type == schedule.PolicyDeadlineDistribution {
		count, err := taskStore.CountCompletedForGoal(ctx, goal.ID, goal.AccountIDs)
		if err != nil {
			return 0, err
		}
		seed.NumCompleted = count
	}

	nextAccount := generation.NextRoundRobinAccount(goal.AccountIDs, lastAssigned)

	created := 0
	for _, due := range generation.PlanLine(goal, seed, today) {
		ok, err := s.createTask(ctx, taskStore, goal, &nextAccount, due)
		if err != nil {
			return 0, err
		}
		if ok {
			created++
		}
	}

	return created, nil
}

// seedLine loads one line's planning seed: its latest task due date and,
// for deadline goals, its completed count.
func (s *generationServiceImpl) seedLine(
	ctx context.Context,
	taskStore store.TaskStore,
	goal *domain.Goal,
	accountID *uuid.UUID,
) (generation.LineSeed, error) {
	seed := generation.LineSeed{}

	latest, err := taskStore.FindLatestForGoal(ctx, goal.ID, accountID)
	if err != nil {
		return seed, err
	}
	if latest != nil {
		due := latest.DueDate
		seed.LastDueDate = &due
	}

	if goal.Policy.Type == schedule.PolicyDeadlineDistribution {
		var accountIDs []uuid.UUID
		if accountID != nil {
			accountIDs = []uuid.UUID{*accountID}
		}
		count, err := taskStore.CountCompletedForGoal(ctx, goal.ID, accountIDs)
		if err != nil {
			return seed, err
		}
		seed.NumCompleted = count
	}

	return seed, nil
}

// createTask materializes one Waiting task and reports whether a row was
// actually created. A duplicate for the same line and due date means another
// cycle got there first; it is skipped, not treated as a failure.
func (s *generationServiceImpl) createTask(
	ctx context.Context,
	taskStore store.TaskStore,
	goal *domain.Goal,
	accountID *uuid.UUID,
	due time.Time,
) (bool, error) {
	task, err := domain.NewTask(goal.ID, accountID, due)
	if err != nil {
		return false, err
	}

	if err := taskStore.Create(ctx, task); err != nil {
		if errors.Is(err, store.ErrDuplicateTask) {
			s.logger.Warn("skipping duplicate task",
				"goal_id", goal.ID,
				"due_date", due.Format(time.DateOnly))
			return false, nil
		}
		return false, err
	}

	s.logger.Debug("task created",
		"task_id", task.ID,
		"goal_id", goal.ID,
		"due_date", due.Format(time.DateOnly))
	return true, nil
}
