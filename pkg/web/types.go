// Package web provides the HTTP surface of the workflow builder API.
package web

import (
	"time"

	"github.com/flowdeck/flowdeck/pkg/models"
	"github.com/flowdeck/flowdeck/pkg/services"
)

// RenameWorkflowRequest represents the request body for renaming a workflow.
type RenameWorkflowRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// CommitGraphRequest represents the request body for replacing a workflow's
// graph. Nodes and edges are the complete editor state, not a delta.
type CommitGraphRequest struct {
	Nodes []services.GraphNode `json:"nodes" validate:"dive"`
	Edges []services.GraphEdge `json:"edges" validate:"dive"`
}

// WorkflowResponse represents a workflow without its graph, as shown in
// listings.
type WorkflowResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowDetailResponse is a workflow with its hydrated graph.
type WorkflowDetailResponse struct {
	WorkflowResponse

	Graph services.GraphSnapshot `json:"graph"`
}

// TransformWorkflowResponse strips the owner and graph for list payloads.
func TransformWorkflowResponse(workflow *models.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:        workflow.ID,
		Name:      workflow.Name,
		CreatedAt: workflow.CreatedAt,
		UpdatedAt: workflow.UpdatedAt,
	}
}
