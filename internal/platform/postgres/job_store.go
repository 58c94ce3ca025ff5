package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/job"
	"github.com/cadencehq/cadence-api/internal/platform/logger"
	"github.com/cadencehq/cadence-api/internal/store"
)

// JobStore implements the job.JobStore interface using PostgreSQL.
// Recovered rows are rehydrated into executable jobs through the
// configured rehydrator.
type JobStore struct {
	db         store.DBTX
	rehydrator job.Rehydrator
	logger     *slog.Logger
}

// NewJobStore creates a new PostgreSQL-backed JobStore. The rehydrator
// is used to reconstruct executable jobs from persisted rows; it may be
// nil, in which case recovered jobs fail with an explicit error when
// executed.
func NewJobStore(db store.DBTX, rehydrator job.Rehydrator, logger *slog.Logger) *JobStore {
	return &JobStore{
		db:         db,
		rehydrator: rehydrator,
		logger:     logger.With("component", "job_store"),
	}
}

// WithTx returns a new JobStore instance that uses the provided transaction.
func (s *JobStore) WithTx(tx *sql.Tx) job.JobStore {
	return &JobStore{
		db:         tx,
		rehydrator: s.rehydrator,
		logger:     s.logger,
	}
}

// SaveJob persists a job to the database
func (s *JobStore) SaveJob(ctx context.Context, j job.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO jobs (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, query,
		j.ID(),
		j.Type(),
		j.Payload(),
		j.Status(),
		now,
		now,
	)

	if err != nil {
		log.Error("failed to save job",
			"job_id", j.ID(),
			"job_type", j.Type(),
			"error", err)
		return fmt.Errorf("failed to save job to database: %w", MapError(err))
	}

	return nil
}

// UpdateJobStatus updates the status of a job in the database
func (s *JobStore) UpdateJobStatus(
	ctx context.Context,
	jobID uuid.UUID,
	status job.JobStatus,
	errorMsg string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, query,
		status,
		errorMsg,
		now,
		jobID,
	)

	if err != nil {
		log.Error("failed to update job status",
			"job_id", jobID,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update job status: %w", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			"job_id", jobID,
			"error", err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		log.Warn("no job found with ID to update status",
			"job_id", jobID)
		return nil // Job not found, treat as no-op
	}

	return nil
}

// GetPendingJobs retrieves all jobs with "pending" status
func (s *JobStore) GetPendingJobs(ctx context.Context) ([]job.Job, error) {
	return s.getJobsByStatus(ctx, job.JobStatusPending, 0)
}

// GetProcessingJobs retrieves jobs with "processing" status
func (s *JobStore) GetProcessingJobs(
	ctx context.Context,
	olderThan time.Duration,
) ([]job.Job, error) {
	return s.getJobsByStatus(ctx, job.JobStatusProcessing, olderThan)
}

// getJobsByStatus is a helper method to get jobs by status with optional age filter
func (s *JobStore) getJobsByStatus(
	ctx context.Context,
	status job.JobStatus,
	olderThan time.Duration,
) ([]job.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var query string
	var args []interface{}

	if olderThan > 0 {
		// Get jobs older than the specified duration
		query = `
			SELECT id, type, payload, status, error_message, created_at, updated_at
			FROM jobs
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = []interface{}{status, time.Now().UTC().Add(-olderThan)}
	} else {
		// Get all jobs with the given status
		query = `
			SELECT id, type, payload, status, error_message, created_at, updated_at
			FROM jobs
			WHERE status = $1
			ORDER BY created_at ASC
		`
		args = []interface{}{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query jobs by status",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("failed to query jobs by status: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var jobs []job.Job

	for rows.Next() {
		var id uuid.UUID
		var jobType string
		var payload []byte
		var jobStatus job.JobStatus
		var errorMessage sql.NullString
		var createdAt time.Time
		var updatedAt time.Time

		if err := rows.Scan(&id, &jobType, &payload, &jobStatus, &errorMessage, &createdAt, &updatedAt); err != nil {
			log.Error("failed to scan job row",
				"status", status,
				"error", err)
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}

		jobs = append(jobs, s.rehydrate(log, id, jobType, payload, jobStatus))
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating job rows",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}

	return jobs, nil
}

// rehydrate turns a persisted row into an executable job. When the
// rehydrator is missing or cannot rebuild the job, a placeholder is
// returned that fails with an explicit error on execution, so the
// runner records the failure instead of silently dropping the row.
func (s *JobStore) rehydrate(
	log *slog.Logger,
	id uuid.UUID,
	jobType string,
	payload []byte,
	status job.JobStatus,
) job.Job {
	if s.rehydrator != nil {
		j, err := s.rehydrator.RehydrateJob(id, jobType, payload, status)
		if err == nil {
			return j
		}
		log.Warn("failed to rehydrate job, returning placeholder",
			"job_id", id,
			"job_type", jobType,
			"error", err)
	}

	return &databaseJob{
		id:      id,
		jobType: jobType,
		payload: payload,
		status:  status,
	}
}

// databaseJob implements the job.Job interface for rows that could not be
// rehydrated into a concrete job.
type databaseJob struct {
	id      uuid.UUID
	jobType string
	payload []byte
	status  job.JobStatus
}

func (j *databaseJob) ID() uuid.UUID         { return j.id }
func (j *databaseJob) Type() string          { return j.jobType }
func (j *databaseJob) Payload() []byte       { return j.payload }
func (j *databaseJob) Status() job.JobStatus { return j.status }

// Execute always fails: a databaseJob has no execution logic attached.
func (j *databaseJob) Execute(ctx context.Context) error {
	return errors.New("no execution function defined for recovered job")
}

// Ensure JobStore implements job.JobStore
var _ job.JobStore = (*JobStore)(nil)
