// Package service provides application-level use cases for managing
// platforms, accounts, goals and tasks. Each use case runs as one
// transactional unit of work against the store layer.
package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent conditions that callers may want to check for with
// errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in ServiceError
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrPlatformNotFound indicates that the platform does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrPlatformNotFound = errors.New("platform not found")

	// ErrAccountNotFound indicates that the account does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrAccountNotFound = errors.New("account not found")

	// ErrGoalNotFound indicates that the goal does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrGoalNotFound = errors.New("goal not found")

	// ErrTaskNotFound indicates that the task does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNotScripted indicates that a script run was requested for a goal
	// whose strategy is manual. API layer should map this to HTTP 422.
	ErrNotScripted = errors.New("goal strategy is not script-based")
)

// ServiceError wraps errors from the service layer with operation context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "create_goal")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}
