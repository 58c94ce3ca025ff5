package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/domain/schedule"
)

// generationFixture bundles a GenerationService with its mock stores and a
// controllable clock.
type generationFixture struct {
	service GenerationService
	impl    *generationServiceImpl
	goals   *mockGoalStore
	tasks   *mockTaskStore
}

func newGenerationFixture(t *testing.T, today time.Time) *generationFixture {
	t.Helper()

	goals := newMockGoalStore()
	tasks := newMockTaskStore()

	svc, err := NewGenerationService(newFakeDB(t), goals, tasks, discardLogger())
	require.NoError(t, err)

	impl, ok := svc.(*generationServiceImpl)
	require.True(t, ok)
	impl.now = func() time.Time { return today }

	return &generationFixture{service: svc, impl: impl, goals: goals, tasks: tasks}
}

// seedGoal builds, stores and returns an Active goal.
func (f *generationFixture) seedGoal(t *testing.T, params domain.NewGoalParams) *domain.Goal {
	t.Helper()

	if params.PlatformID == uuid.Nil {
		params.PlatformID = uuid.New()
	}
	if params.Description == "" {
		params.Description = "publish newsletter"
	}

	goal, err := domain.NewGoal(params)
	require.NoError(t, err)
	f.goals.put(goal)
	return goal
}

// dueDatesFor collects the created due dates for one line, oldest first.
func (f *generationFixture) dueDatesFor(goalID uuid.UUID, accountID *uuid.UUID) []string {
	dates := make([]string, 0)
	for _, task := range f.tasks.created {
		if task.GoalID == goalID && sameLine(task.AccountID, accountID) {
			dates = append(dates, task.DueDate.Format(time.DateOnly))
		}
	}
	return dates
}

func TestGenerateDueTasksIndependentLines(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
	f := newGenerationFixture(t, today)

	accountA := uuid.New()
	accountB := uuid.New()
	goal := f.seedGoal(t, domain.NewGoalParams{
		Policy:     mustFixedInterval(t, 7),
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		AccountIDs: []uuid.UUID{accountA, accountB},
	})

	created, err := f.service.GenerateDueTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, created, "two due dates per account line")

	assert.Equal(t, []string{"2025-01-08", "2025-01-15"}, f.dueDatesFor(goal.ID, &accountA))
	assert.Equal(t, []string{"2025-01-08", "2025-01-15"}, f.dueDatesFor(goal.ID, &accountB))

	for _, task := range f.tasks.created {
		assert.Equal(t, domain.TaskStatusWaiting, task.Status)
	}
}

func TestGenerateDueTasksPlatformLine(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
	f := newGenerationFixture(t, today)

	goal := f.seedGoal(t, domain.NewGoalParams{
		Policy:    mustFixedInterval(t, 7),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	created, err := f.service.GenerateDueTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, []string{"2025-01-08", "2025-01-15"}, f.dueDatesFor(goal.ID, nil),
		"a goal without accounts generates one platform-level line")
}

func TestGenerateDueTasksIsIdempotent(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
	f := newGenerationFixture(t, today)

	f.seedGoal(t, domain.NewGoalParams{
		Policy:    mustFixedInterval(t, 7),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	first, err := f.service.GenerateDueTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first)

	second, err := f.service.GenerateDueTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second, "re-running on unchanged data creates nothing")
}

func TestGenerateDueTasksRoundRobinGivesBatchToOneAccount(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
	f := newGenerationFixture(t, today)

	accountA := uuid.New()
	accountB := uuid.New()
	goal := f.seedGoal(t, domain.NewGoalParams{
		Policy:       mustFixedInterval(t, 7),
		StartDate:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		AccountIDs:   []uuid.UUID{accountA, accountB},
		Distribution: domain.DistributionRoundRobin,
	})

	created, err := f.service.GenerateDueTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, created, "round-robin shares one sequence across accounts")
	assert.Equal(t, []string{"2025-01-08", "2025-01-15"}, f.dueDatesFor(goal.ID, &accountA),
		"with no prior task the whole batch goes to the first account")
	assert.Empty(t, f.dueDatesFor(goal.ID, &accountB))

	// A week later the next occurrence rotates to the other account.
	f.impl.now = func() time.Time { return time.Date(2025, 1, 23, 0, 0, 0, 0, time.UTC) }

	created, err = f.service.GenerateDueTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, []string{"2025-01-22"}, f.dueDatesFor(goal.ID, &accountB))
}

func TestGenerateDueTasksDeadlineDistribution(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	f := newGenerationFixture(t, today)

	deadline := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	policy, err := schedule.NewDeadlineDistribution(
		deadline, 3, false, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	endDate := deadline
	goal := f.seedGoal(t, domain.NewGoalParams{
		Policy:    policy,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &endDate,
	})

	created, err := f.service.GenerateDueTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, created, "the full remaining budget materializes in one batch")
	assert.Equal(t, []string{"2025-01-11", "2025-01-21", "2025-01-31"},
		f.dueDatesFor(goal.ID, nil))
}

func TestGenerateDueTasksSkipsEndedGoals(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	f := newGenerationFixture(t, today)

	endDate := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	f.seedGoal(t, domain.NewGoalParams{
		Policy:    mustFixedInterval(t, 7),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &endDate,
	})

	created, err := f.service.GenerateDueTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created, "goals past their end date generate nothing")
}

func TestGenerateDueTasksSkipsCompletedGoals(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
	f := newGenerationFixture(t, today)

	goal := f.seedGoal(t, domain.NewGoalParams{
		Policy:    mustFixedInterval(t, 7),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	goal.MarkCompleted()
	f.goals.put(goal)

	created, err := f.service.GenerateDueTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestGenerateDueTasksContinuesPastBrokenGoal(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
	f := newGenerationFixture(t, today)

	broken := f.seedGoal(t, domain.NewGoalParams{
		Policy:    mustFixedInterval(t, 7),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	f.tasks.failCreateForGoal = &broken.ID

	healthy := f.seedGoal(t, domain.NewGoalParams{
		Policy:    mustFixedInterval(t, 7),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	created, err := f.service.GenerateDueTasks(context.Background())
	require.NoError(t, err, "one broken goal must not fail the whole cycle")
	assert.Equal(t, 2, created)
	assert.Empty(t, f.dueDatesFor(broken.ID, nil))
	assert.Equal(t, []string{"2025-01-08", "2025-01-15"}, f.dueDatesFor(healthy.ID, nil))
}

func TestGenerateDueTasksListFailure(t *testing.T) {
	t.Parallel()

	f := newGenerationFixture(t, time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC))
	f.goals.listActiveErr = assert.AnError

	_, err := f.service.GenerateDueTasks(context.Background())
	require.Error(t, err)
}

func TestCreateTaskSkipsDuplicates(t *testing.T) {
	t.Parallel()

	f := newGenerationFixture(t, time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC))

	goal := f.seedGoal(t, domain.NewGoalParams{
		Policy:    mustFixedInterval(t, 7),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	due := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	existing, err := domain.NewTask(goal.ID, nil, due)
	require.NoError(t, err)
	f.tasks.put(existing)

	ok, err := f.impl.createTask(context.Background(), f.tasks, goal, nil, due)
	require.NoError(t, err, "a duplicate due date is skipped, not an error")
	assert.False(t, ok, "skipped duplicates must not count as created")
}
