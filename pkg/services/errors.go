// Package services implements the business operations behind the workflow
// builder API: workflow lifecycle (create, list, rename, delete) and graph
// synchronization (hydrate, commit).
package services

import (
	"errors"
	"fmt"

	"github.com/flowdeck/flowdeck/pkg/billing"
	"github.com/flowdeck/flowdeck/pkg/persistence"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest    = errors.New("invalid request")
	ErrEmptyOwner        = errors.New("owner cannot be empty")
	ErrEmptyName         = errors.New("workflow name cannot be empty")
	ErrInvalidNodeID     = errors.New("node id cannot be empty")
	ErrInvalidEdge       = errors.New("edge is missing an endpoint")
	ErrDuplicateNodeID   = errors.New("duplicate node id in payload")
	ErrInvalidNodeConfig = errors.New("invalid node configuration")

	// Lookup errors (404 Not Found).
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// Conflicts (409 Conflict).
	ErrDuplicateConnection = persistence.ErrDuplicateConnection
	ErrConnectionEndpoint  = persistence.ErrConnectionEndpoint
	ErrUnknownNodeType     = persistence.ErrUnknownNodeType
)

// ServiceError wraps service-level errors with operation context.
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

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyOwner) ||
		errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrInvalidNodeID) ||
		errors.Is(err, ErrInvalidEdge) ||
		errors.Is(err, ErrDuplicateNodeID) ||
		errors.Is(err, ErrInvalidNodeConfig) ||
		errors.Is(err, ErrUnknownNodeType) ||
		persistence.IsDuplicateNode(err)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsConflictError checks if an error is a graph consistency conflict that
// should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrDuplicateConnection) ||
		errors.Is(err, ErrConnectionEndpoint)
}

// IsEntitlementError checks if an error is a plan limit denial that should
// return HTTP 402.
func IsEntitlementError(err error) bool {
	return billing.IsEntitlementDenied(err)
}
