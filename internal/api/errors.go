package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/domain/schedule"
	"github.com/cadencehq/cadence-api/internal/service"
	"github.com/cadencehq/cadence-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var invalidTransition *domain.InvalidTransitionError

	switch {
	// Not found errors
	case errors.Is(err, service.ErrPlatformNotFound),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrGoalNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors: illegal lifecycle events and duplicates
	case errors.As(err, &invalidTransition),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Unprocessable: the request is well-formed but the goal's strategy
	// does not support it
	case errors.Is(err, service.ErrNotScripted):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, schedule.ErrInvalidPolicyConfig),
		errors.Is(err, domain.ErrInvalidStrategy),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var invalidTransition *domain.InvalidTransitionError

	switch {
	case errors.Is(err, service.ErrPlatformNotFound):
		return "Platform not found"

	case errors.Is(err, service.ErrAccountNotFound):
		return "Account not found"

	case errors.Is(err, service.ErrGoalNotFound):
		return "Goal not found"

	case errors.Is(err, service.ErrTaskNotFound):
		return "Task not found"

	case errors.As(err, &invalidTransition):
		// Transition errors name only statuses and events, safe to expose.
		return invalidTransition.Error()

	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.Is(err, service.ErrNotScripted):
		return "Goal does not have a script for this operation"

	case errors.Is(err, schedule.ErrInvalidPolicyConfig):
		return "Invalid policy configuration"

	case errors.Is(err, domain.ErrInvalidStrategy):
		return "Invalid strategy configuration"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'CreateGoalRequest.Description' Error:Field
		// validation for 'Description' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gt":
		return "must be greater"
	default:
		return "validation failed"
	}
}
