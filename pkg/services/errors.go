// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/outflowhq/outflow/pkg/flow"
	"github.com/outflowhq/outflow/pkg/persistence"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrEmptyCampaignID  = errors.New("campaign ID cannot be empty")
	ErrUnknownNodeKind  = errors.New("unknown node kind")
	ErrCyclicFlow       = errors.New("flow contains a cycle")
	ErrNoFieldsToUpdate = errors.New("no fields to update")

	// Not-found errors (404 Not Found).
	ErrNodeNotFound = persistence.ErrNodeNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a ServiceError for a rejected request.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyCampaignID) ||
		errors.Is(err, ErrUnknownNodeKind) ||
		errors.Is(err, ErrCyclicFlow) ||
		errors.Is(err, ErrNoFieldsToUpdate) ||
		flow.IsValidation(err)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsNodeNotFound(err)
}
