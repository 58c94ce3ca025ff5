package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadencehq/cadence-api/internal/config"
	"github.com/cadencehq/cadence-api/internal/events"
	"github.com/cadencehq/cadence-api/internal/job"
	"github.com/cadencehq/cadence-api/internal/platform/postgres"
	"github.com/cadencehq/cadence-api/internal/platform/scriptrunner"
	"github.com/cadencehq/cadence-api/internal/service"
	"github.com/cadencehq/cadence-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	platformStore store.PlatformStore
	accountStore  store.AccountStore
	goalStore     store.GoalStore
	taskStore     store.TaskStore
	taskLogStore  store.TaskLogStore
	jobStore      job.JobStore

	// Service interfaces
	platformService   service.PlatformService
	accountService    service.AccountService
	goalService       service.GoalService
	taskService       service.TaskService
	generationService service.GenerationService
	scriptService     service.ScriptService

	// Event system
	eventEmitter events.EventEmitter

	// Background job handling
	jobRunner *job.JobRunner
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize stores
	app.platformStore = postgres.NewPlatformStore(db, logger)
	app.accountStore = postgres.NewAccountStore(db, logger)
	app.goalStore = postgres.NewGoalStore(db, logger)
	app.taskStore = postgres.NewTaskStore(db, logger)
	app.taskLogStore = postgres.NewTaskLogStore(db, logger)

	// Initialize event emitter
	emitter := events.NewInMemoryEventEmitter(logger)
	app.eventEmitter = emitter

	// Initialize services
	var err error
	app.platformService, err = service.NewPlatformService(db, app.platformStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create platform service: %w", err)
	}

	app.accountService, err = service.NewAccountService(db, app.accountStore, app.platformStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create account service: %w", err)
	}

	app.goalService, err = service.NewGoalService(db, app.goalStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal service: %w", err)
	}

	app.taskService, err = service.NewTaskService(
		db,
		app.taskStore,
		app.taskLogStore,
		app.goalStore,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.generationService, err = service.NewGenerationService(db, app.goalStore, app.taskStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}

	// Create the script runner used for execution and check scripts
	runner := scriptrunner.New(
		cfg.Script.Interpreter,
		time.Duration(cfg.Script.TimeoutSeconds)*time.Second,
		logger,
	)

	app.scriptService, err = service.NewScriptService(
		db,
		app.taskStore,
		app.taskLogStore,
		app.goalStore,
		app.accountStore,
		app.platformStore,
		app.taskService,
		app.eventEmitter,
		runner,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create script service: %w", err)
	}

	// The job factory both creates new script run jobs and rehydrates
	// persisted ones after a restart, so the job store takes it as its
	// rehydrator.
	jobFactory := job.NewScriptRunJobFactory(app.scriptService, logger)
	app.jobStore = postgres.NewJobStore(db, jobFactory, logger)

	// Initialize and start the background job runner
	app.jobRunner, err = setupJobRunner(app)
	if err != nil {
		return nil, fmt.Errorf("failed to setup job runner: %w", err)
	}

	// Register the job factory event handler so script run requests emitted
	// by services become queued jobs.
	handler := job.NewJobFactoryEventHandler(jobFactory, app.jobRunner, logger)
	emitter.RegisterHandler(handler)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// setupJobRunner initializes and starts the background job processor.
// Starting the runner also recovers unfinished jobs from previous runs.
func setupJobRunner(app *application) (*job.JobRunner, error) {
	jobRunner := job.NewJobRunner(app.jobStore, job.JobRunnerConfig{
		WorkerCount: app.config.Runner.WorkerCount,
		QueueSize:   app.config.Runner.QueueSize,
		StuckJobAge: time.Duration(app.config.Runner.StuckJobMinutes) * time.Minute,
	}, app.logger)

	if err := jobRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start job runner: %w", err)
	}

	return jobRunner, nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.jobRunner != nil {
		app.jobRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
