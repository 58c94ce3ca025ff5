package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cadencehq/cadence-api/internal/api"
	apiMiddleware "github.com/cadencehq/cadence-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. It accepts the application dependencies to create handlers
// and register routes. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware) // Add trace IDs for improved error handling

	// Create API handlers using the application's services
	platformHandler := api.NewPlatformHandler(app.platformService, app.logger)
	accountHandler := api.NewAccountHandler(app.accountService, app.logger)
	goalHandler := api.NewGoalHandler(app.goalService, app.generationService, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.scriptService, app.logger)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// Platform endpoints
		r.Post("/platforms", platformHandler.CreatePlatform)
		r.Get("/platforms", platformHandler.ListPlatforms)
		r.Get("/platforms/{id}", platformHandler.GetPlatform)
		r.Put("/platforms/{id}", platformHandler.UpdatePlatform)
		r.Delete("/platforms/{id}", platformHandler.DeletePlatform)
		r.Get("/platforms/{id}/accounts", accountHandler.ListAccountsByPlatform)

		// Account endpoints
		r.Post("/accounts", accountHandler.CreateAccount)
		r.Get("/accounts/{id}", accountHandler.GetAccount)
		r.Delete("/accounts/{id}", accountHandler.DeleteAccount)
		r.Get("/dashboard", accountHandler.GetDashboard)

		// Goal endpoints
		r.Post("/goals", goalHandler.CreateGoal)
		r.Get("/goals", goalHandler.ListGoals)
		r.Post("/goals/generate", goalHandler.GenerateDueTasks)
		r.Get("/goals/{id}", goalHandler.GetGoal)
		r.Put("/goals/{id}", goalHandler.UpdateGoal)
		r.Delete("/goals/{id}", goalHandler.DeleteGoal)

		// Task endpoints
		r.Get("/tasks", taskHandler.ListTasks)
		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Get("/tasks/{id}/logs", taskHandler.ListTaskLogs)
		r.Post("/tasks/{id}/start", taskHandler.StartTask)
		r.Post("/tasks/{id}/complete", taskHandler.CompleteTask)
		r.Post("/tasks/{id}/fail", taskHandler.FailTask)
		r.Post("/tasks/{id}/skip", taskHandler.SkipTask)
		r.Post("/tasks/{id}/execute", taskHandler.ExecuteTask)
		r.Post("/tasks/{id}/check", taskHandler.CheckTask)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
