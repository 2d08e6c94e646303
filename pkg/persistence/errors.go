// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations use.
var (
	// ErrWorkflowNotFound indicates a workflow is absent or not owned by the
	// caller. The two cases are intentionally indistinguishable.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrUnknownNodeType indicates a node carried a type tag outside the
	// registered enumeration.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrDuplicateNode indicates two nodes in the same commit carried the
	// same identifier.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrDuplicateConnection indicates the (source, target, source handle,
	// target handle) uniqueness rule was violated inside a commit.
	ErrDuplicateConnection = errors.New("duplicate connection")

	// ErrConnectionEndpoint indicates a connection referenced a node that is
	// not part of the same workflow graph.
	ErrConnectionEndpoint = errors.New("connection references unknown node")
)

// WorkflowError wraps workflow-related errors with operation context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "Create", "ReplaceGraph")
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	if e.WorkflowID == "" {
		return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsUnknownNodeType checks if an error indicates an unregistered node type tag.
func IsUnknownNodeType(err error) bool {
	return errors.Is(err, ErrUnknownNodeType)
}

// IsDuplicateNode checks if an error indicates a repeated node identifier.
func IsDuplicateNode(err error) bool {
	return errors.Is(err, ErrDuplicateNode)
}

// IsDuplicateConnection checks if an error indicates a duplicate wire.
func IsDuplicateConnection(err error) bool {
	return errors.Is(err, ErrDuplicateConnection)
}

// IsConnectionEndpoint checks if an error indicates a connection pointing at
// a node outside its workflow.
func IsConnectionEndpoint(err error) bool {
	return errors.Is(err, ErrConnectionEndpoint)
}

// IsConstraintViolation groups the failures raised by graph integrity rules
// inside a commit transaction.
func IsConstraintViolation(err error) bool {
	return IsDuplicateConnection(err) || IsConnectionEndpoint(err)
}
