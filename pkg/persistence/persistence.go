// Package persistence provides the storage abstraction for workflow graphs.
package persistence

import (
	"context"

	"github.com/flowdeck/flowdeck/pkg/models"
)

// Persistence is the entry point to a storage backend.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListOptions filters and pages a workflow listing. Search is a
// case-insensitive substring match on the workflow name.
type ListOptions struct {
	Owner    string
	Page     int
	PageSize int
	Search   string
}

// ListResult carries one page of workflows plus the pagination metadata the
// editor's listing views consume.
type ListResult struct {
	Items           []*models.Workflow `json:"items"`
	Page            int                `json:"page"`
	PageSize        int                `json:"page_size"`
	TotalCount      int64              `json:"total_count"`
	TotalPages      int                `json:"total_pages"`
	HasNextPage     bool               `json:"has_next_page"`
	HasPreviousPage bool               `json:"has_previous_page"`
}

// WorkflowRepository owns durable workflow graph state. Every operation takes
// the caller's resolved owner identity as a mandatory filter; a workflow that
// exists but belongs to someone else behaves exactly like one that does not
// exist.
type WorkflowRepository interface {
	// Create inserts a workflow with a generated name and a single INITIAL
	// placeholder node at the origin, as one atomic unit.
	Create(ctx context.Context, owner string) (*models.Workflow, error)

	// GetByID loads a workflow with its nodes and connections. Returns
	// (nil, nil) when the workflow is absent or not owned by the caller.
	GetByID(ctx context.Context, id, owner string) (*models.Workflow, error)

	// List returns a page of the owner's workflows ordered by most recently
	// updated first.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Rename updates the workflow name and bumps the update timestamp.
	// Returns (nil, nil) when the workflow is absent or not owned.
	Rename(ctx context.Context, id, owner, name string) (*models.Workflow, error)

	// Delete removes the workflow, cascading to its nodes and connections.
	// Returns false when zero rows were affected.
	Delete(ctx context.Context, id, owner string) (bool, error)

	// ReplaceGraph deletes every node and connection of the workflow and
	// re-inserts the supplied sets, then bumps the update timestamp, all in
	// one transaction. Connection insertion is skipped entirely when the
	// list is empty. Any failure inside the transaction leaves the
	// previously persisted graph untouched.
	ReplaceGraph(ctx context.Context, id, owner string, nodes []*models.Node, connections []*models.Connection) error
}
