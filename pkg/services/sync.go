package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowdeck/flowdeck/pkg/eventbus"
	"github.com/flowdeck/flowdeck/pkg/events"
	"github.com/flowdeck/flowdeck/pkg/models"
	"github.com/flowdeck/flowdeck/pkg/persistence"
)

// GraphNode is the editor wire shape for a node.
type GraphNode struct {
	ID       string          `json:"id"       validate:"required"`
	Type     models.NodeType `json:"type"     validate:"required"`
	Name     string          `json:"name"`
	Position models.Position `json:"position"`
	Data     map[string]any  `json:"data"`
}

// GraphEdge is the editor wire shape for a connection.
type GraphEdge struct {
	ID           string `json:"id"`
	Source       string `json:"source"        validate:"required"`
	Target       string `json:"target"        validate:"required"`
	SourceHandle string `json:"source_handle"`
	TargetHandle string `json:"target_handle"`
	Name         string `json:"name"`
}

// GraphSnapshot is the full editor-facing state of one workflow graph.
type GraphSnapshot struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Sync translates between the editor wire shapes and persisted graphs:
// Hydrate loads the saved graph, Commit replaces it wholesale.
type Sync struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	logger      *slog.Logger
}

// NewSync creates the graph synchronization service. The event bus is
// optional, as in NewWorkflow.
func NewSync(persistence persistence.Persistence, eventBus eventbus.EventBus, logger *slog.Logger) *Sync {
	return &Sync{
		persistence: persistence,
		eventBus:    eventBus,
		logger:      logger.With("module", "sync_service"),
	}
}

// Hydrate loads the persisted graph of an owned workflow in wire shape.
func (s *Sync) Hydrate(ctx context.Context, id, owner string) (*GraphSnapshot, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return SnapshotFromWorkflow(workflow), nil
}

// SnapshotFromWorkflow converts a persisted workflow graph to wire shape.
func SnapshotFromWorkflow(workflow *models.Workflow) *GraphSnapshot {
	snapshot := &GraphSnapshot{
		Nodes: make([]GraphNode, 0, len(workflow.Nodes)),
		Edges: make([]GraphEdge, 0, len(workflow.Connections)),
	}

	for _, node := range workflow.Nodes {
		snapshot.Nodes = append(snapshot.Nodes, GraphNode{
			ID:       node.ID,
			Type:     node.Type,
			Name:     node.Name,
			Position: node.Position,
			Data:     node.Data,
		})
	}

	for _, connection := range workflow.Connections {
		snapshot.Edges = append(snapshot.Edges, GraphEdge{
			ID:           connection.ID,
			Source:       connection.SourceNodeID,
			Target:       connection.TargetNodeID,
			SourceHandle: connection.SourceHandle,
			TargetHandle: connection.TargetHandle,
			Name:         connection.Name,
		})
	}

	return snapshot
}

// Commit replaces the workflow's persisted graph with the submitted one in a
// single transaction. Validation happens up front; storage is touched only
// when the whole payload is acceptable, and a storage-level rejection leaves
// the previously committed graph in place.
func (s *Sync) Commit(ctx context.Context, id, owner string, nodes []GraphNode, edges []GraphEdge) error {
	modelNodes, err := s.validateNodes(nodes)
	if err != nil {
		return err
	}

	modelConnections, err := s.validateEdges(edges)
	if err != nil {
		return err
	}

	err = s.persistence.WorkflowRepository().ReplaceGraph(ctx, id, owner, modelNodes, modelConnections)
	if err != nil {
		return err
	}

	s.publishCommitted(ctx, id, owner, len(nodes), len(edges))

	return nil
}

func (s *Sync) validateNodes(nodes []GraphNode) ([]*models.Node, error) {
	seen := make(map[string]struct{}, len(nodes))
	modelNodes := make([]*models.Node, 0, len(nodes))

	for _, node := range nodes {
		if node.ID == "" {
			return nil, NewValidationError("Commit", "EMPTY_NODE_ID", "node id cannot be empty", ErrInvalidNodeID)
		}

		if _, dup := seen[node.ID]; dup {
			return nil, NewValidationError("Commit", "DUPLICATE_NODE_ID",
				fmt.Sprintf("node id %q appears more than once", node.ID), ErrDuplicateNodeID)
		}

		seen[node.ID] = struct{}{}

		if !node.Type.Valid() {
			return nil, NewValidationError("Commit", "UNKNOWN_NODE_TYPE",
				fmt.Sprintf("unknown node type %q", node.Type), ErrUnknownNodeType)
		}

		if err := models.ValidateNodeConfig(node.Type, node.Data); err != nil {
			return nil, NewValidationError("Commit", "INVALID_NODE_CONFIG", err.Error(), ErrInvalidNodeConfig)
		}

		modelNodes = append(modelNodes, &models.Node{
			ID:       node.ID,
			Type:     node.Type,
			Name:     node.Name,
			Position: node.Position,
			Data:     node.Data,
		})
	}

	return modelNodes, nil
}

func (s *Sync) validateEdges(edges []GraphEdge) ([]*models.Connection, error) {
	modelConnections := make([]*models.Connection, 0, len(edges))

	for _, edge := range edges {
		if edge.Source == "" || edge.Target == "" {
			return nil, NewValidationError("Commit", "INVALID_EDGE", "edge is missing an endpoint", ErrInvalidEdge)
		}

		connection := &models.Connection{
			ID:           edge.ID,
			SourceNodeID: edge.Source,
			TargetNodeID: edge.Target,
			SourceHandle: edge.SourceHandle,
			TargetHandle: edge.TargetHandle,
			Name:         edge.Name,
		}
		connection.Normalize()

		modelConnections = append(modelConnections, connection)
	}

	return modelConnections, nil
}

func (s *Sync) publishCommitted(ctx context.Context, id, owner string, nodeCount, edgeCount int) {
	if s.eventBus == nil {
		return
	}

	event := events.WorkflowGraphCommitted{
		BaseEvent: events.BaseEvent{
			ID:         s.eventBus.GenerateID(),
			Type:       events.WorkflowGraphCommittedEvent,
			Timestamp:  time.Now().UTC(),
			WorkflowID: id,
			Owner:      owner,
		},
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}

	if err := s.eventBus.Publish(ctx, id, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish workflow event",
			"event_type", event.GetType(),
			"workflow_id", id,
			"error", err)
	}
}
