package job

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mockJobStore is an in-memory JobStore for runner tests.
type mockJobStore struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]Job
	statuses map[uuid.UUID]JobStatus
	saveErr  error
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{
		jobs:     make(map[uuid.UUID]Job),
		statuses: make(map[uuid.UUID]JobStatus),
	}
}

func (s *mockJobStore) SaveJob(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.jobs[job.ID()] = job
	s.statuses[job.ID()] = job.Status()
	return nil
}

func (s *mockJobStore) UpdateJobStatus(_ context.Context, jobID uuid.UUID, status JobStatus, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return errors.New("job not found")
	}
	s.statuses[jobID] = status
	return nil
}

func (s *mockJobStore) GetPendingJobs(_ context.Context) ([]Job, error) {
	return s.jobsWithStatus(JobStatusPending), nil
}

func (s *mockJobStore) GetProcessingJobs(_ context.Context, _ time.Duration) ([]Job, error) {
	return s.jobsWithStatus(JobStatusProcessing), nil
}

func (s *mockJobStore) WithTx(_ *sql.Tx) JobStore {
	return s
}

func (s *mockJobStore) jobsWithStatus(status JobStatus) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Job
	for id, job := range s.jobs {
		if s.statuses[id] == status {
			out = append(out, job)
		}
	}
	return out
}

func (s *mockJobStore) statusOf(jobID uuid.UUID) JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[jobID]
}

// mockJob is a configurable Job for runner tests.
type mockJob struct {
	id      uuid.UUID
	status  JobStatus
	execErr error
	done    chan struct{}
}

func newMockJob() *mockJob {
	return &mockJob{
		id:     uuid.New(),
		status: JobStatusPending,
		done:   make(chan struct{}),
	}
}

func (j *mockJob) ID() uuid.UUID    { return j.id }
func (j *mockJob) Type() string     { return "mock" }
func (j *mockJob) Payload() []byte  { return []byte(`{}`) }
func (j *mockJob) Status() JobStatus { return j.status }

func (j *mockJob) Execute(_ context.Context) error {
	defer close(j.done)
	if j.execErr != nil {
		return j.execErr
	}
	return nil
}

// mockExecutor records script run calls and returns configured errors.
type mockExecutor struct {
	mu           sync.Mutex
	executionIDs []uuid.UUID
	checkIDs     []uuid.UUID
	executionErr error
	checkErr     error
}

func (e *mockExecutor) RunExecutionScript(_ context.Context, taskID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.executionIDs = append(e.executionIDs, taskID)
	return e.executionErr
}

func (e *mockExecutor) RunCheckScript(_ context.Context, taskID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkIDs = append(e.checkIDs, taskID)
	return e.checkErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
