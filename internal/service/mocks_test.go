package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/events"
	"github.com/cadencehq/cadence-api/internal/store"
)

// The service layer wraps every use case in store.RunInTransaction, which
// needs a *sql.DB that can begin and commit transactions. The fake driver
// below provides exactly that and nothing more: the mock stores ignore the
// *sql.Tx they are handed, so no statement ever reaches the driver.

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{}, nil }

type fakeConn struct{}

func (*fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("fake driver does not support statements")
}
func (*fakeConn) Close() error              { return nil }
func (*fakeConn) Begin() (driver.Tx, error) { return fakeTx{}, nil }

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

var registerFakeDriver sync.Once

// newFakeDB returns a *sql.DB backed by the no-op transaction driver.
func newFakeDB(t *testing.T) *sql.DB {
	t.Helper()

	registerFakeDriver.Do(func() {
		sql.Register("cadence-fake", fakeDriver{})
	})

	db, err := sql.Open("cadence-fake", "")
	if err != nil {
		t.Fatalf("failed to open fake database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// lineKey identifies one task line occurrence for duplicate detection,
// mirroring the unique index on (goal_id, account_id, due_date).
func lineKey(goalID uuid.UUID, accountID *uuid.UUID, due time.Time) string {
	account := "platform"
	if accountID != nil {
		account = accountID.String()
	}
	return fmt.Sprintf("%s|%s|%s", goalID, account, due.Format(time.DateOnly))
}

// mockTaskStore is an in-memory TaskStore. It enforces the same per-line
// uniqueness as the real store so generation tests exercise the duplicate
// path realistically.
type mockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	createErr error
	getErr    error
	updateErr error
	findErr   error

	// failCreateForGoal makes Create fail for one goal's tasks only, so a
	// single broken goal can be simulated inside a multi-goal cycle.
	failCreateForGoal *uuid.UUID

	created []*domain.Task
	updated []*domain.Task
}

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (m *mockTaskStore) put(task *domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *task
	m.tasks[task.ID] = &copied
}

func (m *mockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if m.failCreateForGoal != nil && task.GoalID == *m.failCreateForGoal {
		return errors.New("create rejected for goal")
	}

	key := lineKey(task.GoalID, task.AccountID, task.DueDate)
	for _, existing := range m.tasks {
		if lineKey(existing.GoalID, existing.AccountID, existing.DueDate) == key {
			return store.ErrDuplicateTask
		}
	}

	copied := *task
	m.tasks[task.ID] = &copied
	m.created = append(m.created, &copied)
	return nil
}

func (m *mockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (m *mockTaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := make([]*domain.Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		copied := *task
		tasks = append(tasks, &copied)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].DueDate.After(tasks[j].DueDate) })
	return tasks, nil
}

func (m *mockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	m.tasks[task.ID] = &copied
	m.updated = append(m.updated, &copied)
	return nil
}

func (m *mockTaskStore) FindLatestForGoal(
	ctx context.Context,
	goalID uuid.UUID,
	accountID *uuid.UUID,
) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}

	var latest *domain.Task
	for _, task := range m.tasks {
		if task.GoalID != goalID {
			continue
		}
		if !sameLine(task.AccountID, accountID) {
			continue
		}
		if latest == nil || task.DueDate.After(latest.DueDate) {
			latest = task
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (m *mockTaskStore) FindLatestForGoalAnyAccount(
	ctx context.Context,
	goalID uuid.UUID,
) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}

	var latest *domain.Task
	for _, task := range m.tasks {
		if task.GoalID != goalID {
			continue
		}
		if latest == nil || task.DueDate.After(latest.DueDate) {
			latest = task
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (m *mockTaskStore) CountCompletedForGoal(
	ctx context.Context,
	goalID uuid.UUID,
	accountIDs []uuid.UUID,
) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := make(map[uuid.UUID]bool, len(accountIDs))
	for _, id := range accountIDs {
		allowed[id] = true
	}

	count := 0
	for _, task := range m.tasks {
		if task.GoalID != goalID || task.Status != domain.TaskStatusCompleted {
			continue
		}
		if len(accountIDs) == 0 {
			if task.AccountID == nil {
				count++
			}
			continue
		}
		if task.AccountID != nil && allowed[*task.AccountID] {
			count++
		}
	}
	return count, nil
}

func (m *mockTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return m }

func sameLine(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// mockTaskLogStore is an in-memory append-only TaskLogStore.
type mockTaskLogStore struct {
	mu      sync.Mutex
	entries []*domain.TaskLog

	createErr error
	listErr   error
}

func newMockTaskLogStore() *mockTaskLogStore {
	return &mockTaskLogStore{}
}

func (m *mockTaskLogStore) Create(ctx context.Context, entry *domain.TaskLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	copied := *entry
	m.entries = append(m.entries, &copied)
	return nil
}

func (m *mockTaskLogStore) ListByTask(
	ctx context.Context,
	taskID uuid.UUID,
) ([]*domain.TaskLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	logs := make([]*domain.TaskLog, 0)
	for _, entry := range m.entries {
		if entry.TaskID == taskID {
			copied := *entry
			logs = append(logs, &copied)
		}
	}
	return logs, nil
}

func (m *mockTaskLogStore) WithTx(tx *sql.Tx) store.TaskLogStore { return m }

// entriesForTask returns the recorded log entries for one task, in creation
// order.
func (m *mockTaskLogStore) entriesForTask(taskID uuid.UUID) []*domain.TaskLog {
	logs, _ := m.ListByTask(context.Background(), taskID)
	return logs
}

// mockGoalStore is an in-memory GoalStore.
type mockGoalStore struct {
	mu    sync.Mutex
	goals map[uuid.UUID]*domain.Goal

	createErr     error
	getErr        error
	updateErr     error
	listActiveErr error

	updated []*domain.Goal
}

func newMockGoalStore() *mockGoalStore {
	return &mockGoalStore{goals: make(map[uuid.UUID]*domain.Goal)}
}

func (m *mockGoalStore) put(goal *domain.Goal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *goal
	m.goals[goal.ID] = &copied
}

func (m *mockGoalStore) Create(ctx context.Context, goal *domain.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	copied := *goal
	m.goals[goal.ID] = &copied
	return nil
}

func (m *mockGoalStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	goal, ok := m.goals[id]
	if !ok {
		return nil, store.ErrGoalNotFound
	}
	copied := *goal
	return &copied, nil
}

func (m *mockGoalStore) List(ctx context.Context) ([]*domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	goals := make([]*domain.Goal, 0, len(m.goals))
	for _, goal := range m.goals {
		copied := *goal
		goals = append(goals, &copied)
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].CreatedAt.Before(goals[j].CreatedAt) })
	return goals, nil
}

func (m *mockGoalStore) ListActive(ctx context.Context) ([]*domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listActiveErr != nil {
		return nil, m.listActiveErr
	}
	goals := make([]*domain.Goal, 0)
	for _, goal := range m.goals {
		if goal.Status == domain.GoalStatusActive {
			copied := *goal
			goals = append(goals, &copied)
		}
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].CreatedAt.Before(goals[j].CreatedAt) })
	return goals, nil
}

func (m *mockGoalStore) Update(ctx context.Context, goal *domain.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.goals[goal.ID]; !ok {
		return store.ErrGoalNotFound
	}
	copied := *goal
	m.goals[goal.ID] = &copied
	m.updated = append(m.updated, &copied)
	return nil
}

func (m *mockGoalStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.goals[id]; !ok {
		return store.ErrGoalNotFound
	}
	delete(m.goals, id)
	return nil
}

func (m *mockGoalStore) WithTx(tx *sql.Tx) store.GoalStore { return m }

// mockAccountStore is an in-memory AccountStore.
type mockAccountStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account

	createErr error
	getErr    error

	summaries []*store.AccountSummary
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (m *mockAccountStore) put(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *account
	m.accounts[account.ID] = &copied
}

func (m *mockAccountStore) Create(ctx context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	copied := *account
	m.accounts[account.ID] = &copied
	return nil
}

func (m *mockAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	account, ok := m.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *mockAccountStore) ListByPlatform(
	ctx context.Context,
	platformID uuid.UUID,
) ([]*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make([]*domain.Account, 0)
	for _, account := range m.accounts {
		if account.PlatformID == platformID {
			copied := *account
			accounts = append(accounts, &copied)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Username < accounts[j].Username })
	return accounts, nil
}

func (m *mockAccountStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return store.ErrAccountNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *mockAccountStore) GetDashboardSummary(ctx context.Context) ([]*store.AccountSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaries, nil
}

func (m *mockAccountStore) WithTx(tx *sql.Tx) store.AccountStore { return m }

// mockPlatformStore is an in-memory PlatformStore.
type mockPlatformStore struct {
	mu        sync.Mutex
	platforms map[uuid.UUID]*domain.Platform

	getErr error
}

func newMockPlatformStore() *mockPlatformStore {
	return &mockPlatformStore{platforms: make(map[uuid.UUID]*domain.Platform)}
}

func (m *mockPlatformStore) put(platform *domain.Platform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *platform
	m.platforms[platform.ID] = &copied
}

func (m *mockPlatformStore) Create(ctx context.Context, platform *domain.Platform) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *platform
	m.platforms[platform.ID] = &copied
	return nil
}

func (m *mockPlatformStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Platform, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	platform, ok := m.platforms[id]
	if !ok {
		return nil, store.ErrPlatformNotFound
	}
	copied := *platform
	return &copied, nil
}

func (m *mockPlatformStore) List(ctx context.Context) ([]*domain.Platform, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	platforms := make([]*domain.Platform, 0, len(m.platforms))
	for _, platform := range m.platforms {
		copied := *platform
		platforms = append(platforms, &copied)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i].Name < platforms[j].Name })
	return platforms, nil
}

func (m *mockPlatformStore) Update(ctx context.Context, platform *domain.Platform) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.platforms[platform.ID]; !ok {
		return store.ErrPlatformNotFound
	}
	copied := *platform
	m.platforms[platform.ID] = &copied
	return nil
}

func (m *mockPlatformStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.platforms[id]; !ok {
		return store.ErrPlatformNotFound
	}
	delete(m.platforms, id)
	return nil
}

func (m *mockPlatformStore) WithTx(tx *sql.Tx) store.PlatformStore { return m }

// mockEmitter records emitted job request events.
type mockEmitter struct {
	mu      sync.Mutex
	events  []*events.JobRequestEvent
	emitErr error
}

func (m *mockEmitter) EmitEvent(ctx context.Context, event *events.JobRequestEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.emitErr != nil {
		return m.emitErr
	}
	m.events = append(m.events, event)
	return nil
}

// mockScriptRunner returns a scripted result and records what it was asked
// to run.
type mockScriptRunner struct {
	mu sync.Mutex

	success bool
	logs    string

	scripts []string
	envs    []map[string]string
}

func (m *mockScriptRunner) Run(
	ctx context.Context,
	script string,
	env map[string]string,
) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scripts = append(m.scripts, script)
	m.envs = append(m.envs, env)
	return m.success, m.logs
}
