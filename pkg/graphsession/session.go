// Package graphsession holds the in-memory editing state of one workflow
// graph between hydration and commit. A session applies the same structural
// rules the storage layer enforces, so most mistakes surface immediately
// instead of at save time; the storage constraints stay authoritative.
package graphsession

import (
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"

	"github.com/flowdeck/flowdeck/pkg/models"
	"github.com/flowdeck/flowdeck/pkg/services"
)

var (
	// ErrTriggerExists rejects a second trigger node in the same graph.
	ErrTriggerExists = errors.New("graph already has a trigger node")

	// ErrNodeNotFound is returned when an operation references a node id
	// not present in the session.
	ErrNodeNotFound = errors.New("node not found in session")

	// ErrDuplicateEdge rejects an exact wire that already exists.
	ErrDuplicateEdge = errors.New("identical connection already exists")

	// ErrEdgeEndpoint is returned when a connection references a node id
	// not present in the session.
	ErrEdgeEndpoint = errors.New("connection endpoint not in session")

	// ErrUnknownNodeType rejects a node type outside the registered set.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrCommitInFlight rejects overlapping commits of the same session.
	ErrCommitInFlight = errors.New("commit already in flight")
)

// Session is the editable state of a single workflow graph. It is not safe
// for concurrent use; an editor owns exactly one goroutine per session.
type Session struct {
	nodes          []services.GraphNode
	edges          []services.GraphEdge
	commitInFlight bool
}

// New builds a session from a hydrated snapshot. The snapshot is copied;
// later edits never write through to it.
func New(snapshot *services.GraphSnapshot) *Session {
	session := &Session{}
	if snapshot != nil {
		session.nodes = append(session.nodes, snapshot.Nodes...)
		for i, node := range session.nodes {
			session.nodes[i].Data = maps.Clone(node.Data)
		}

		session.edges = append(session.edges, snapshot.Edges...)
	}

	return session
}

// NewBlank builds an empty session.
func NewBlank() *Session {
	return &Session{}
}

// Nodes returns the current nodes. The slice is shared; callers must not
// mutate it.
func (s *Session) Nodes() []services.GraphNode {
	return s.nodes
}

// Edges returns the current edges. The slice is shared; callers must not
// mutate it.
func (s *Session) Edges() []services.GraphEdge {
	return s.edges
}

// AddNode inserts a node of the given type at the given position. At most
// one trigger node may exist. While the graph still holds only the creation
// placeholder, adding any real node discards the placeholder instead of
// appending next to it. A failed insert leaves the session unchanged.
func (s *Session) AddNode(nodeType models.NodeType, position models.Position) (*services.GraphNode, error) {
	if !nodeType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, nodeType)
	}

	if nodeType.IsTrigger() {
		for _, node := range s.nodes {
			if node.Type.IsTrigger() {
				return nil, ErrTriggerExists
			}
		}
	}

	if len(s.nodes) == 1 && s.nodes[0].Type == models.NodeTypeInitial && nodeType != models.NodeTypeInitial {
		s.removeNode(s.nodes[0].ID)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate node ID: %w", err)
	}

	node := services.GraphNode{
		ID:       id.String(),
		Type:     nodeType,
		Position: position,
		Data:     map[string]any{},
	}
	s.nodes = append(s.nodes, node)

	return &node, nil
}

// DeleteNode removes the node and every edge touching it in one step, so no
// intermediate state with dangling edges is ever observable.
func (s *Session) DeleteNode(id string) error {
	if s.find(id) == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	s.removeNode(id)

	return nil
}

// Connect wires a source node to a target node. Empty handles default to the
// canonical label. Both endpoints must exist and the exact wire must not
// already be present; fan-out from the same handle to other targets is fine.
func (s *Session) Connect(sourceID, targetID, sourceHandle, targetHandle string) (*services.GraphEdge, error) {
	if sourceHandle == "" {
		sourceHandle = models.DefaultHandle
	}

	if targetHandle == "" {
		targetHandle = models.DefaultHandle
	}

	if s.find(sourceID) == nil {
		return nil, fmt.Errorf("%w: source %s", ErrEdgeEndpoint, sourceID)
	}

	if s.find(targetID) == nil {
		return nil, fmt.Errorf("%w: target %s", ErrEdgeEndpoint, targetID)
	}

	for _, edge := range s.edges {
		if edge.Source == sourceID && edge.Target == targetID &&
			edge.SourceHandle == sourceHandle && edge.TargetHandle == targetHandle {
			return nil, ErrDuplicateEdge
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate connection ID: %w", err)
	}

	edge := services.GraphEdge{
		ID:           id.String(),
		Source:       sourceID,
		Target:       targetID,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
	}
	s.edges = append(s.edges, edge)

	return &edge, nil
}

// UpdateNodeData shallow-merges the patch into the node's configuration.
// Keys present in the patch overwrite existing keys; others are untouched.
func (s *Session) UpdateNodeData(id string, patch map[string]any) error {
	node := s.find(id)
	if node == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	if node.Data == nil {
		node.Data = make(map[string]any, len(patch))
	}

	maps.Copy(node.Data, patch)

	return nil
}

// RepositionNode moves a single node.
func (s *Session) RepositionNode(id string, position models.Position) error {
	node := s.find(id)
	if node == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	node.Position = position

	return nil
}

// ApplyPositions moves many nodes at once, as produced by a drag gesture.
// Unknown ids are skipped rather than failing the whole batch.
func (s *Session) ApplyPositions(positions map[string]models.Position) {
	for i := range s.nodes {
		if position, ok := positions[s.nodes[i].ID]; ok {
			s.nodes[i].Position = position
		}
	}
}

// Snapshot deep-copies the session state in wire shape, so in-flight edits
// cannot mutate a payload already being committed.
func (s *Session) Snapshot() *services.GraphSnapshot {
	snapshot := &services.GraphSnapshot{
		Nodes: make([]services.GraphNode, len(s.nodes)),
		Edges: make([]services.GraphEdge, len(s.edges)),
	}

	copy(snapshot.Edges, s.edges)

	for i, node := range s.nodes {
		snapshot.Nodes[i] = node
		snapshot.Nodes[i].Data = maps.Clone(node.Data)
	}

	return snapshot
}

// BeginCommit marks a commit as in flight. A second BeginCommit before
// EndCommit fails, serializing saves of the same session.
func (s *Session) BeginCommit() error {
	if s.commitInFlight {
		return ErrCommitInFlight
	}

	s.commitInFlight = true

	return nil
}

// EndCommit clears the in-flight mark, whatever the commit outcome. After a
// failed commit the local state is intact and the caller may retry.
func (s *Session) EndCommit() {
	s.commitInFlight = false
}

func (s *Session) find(id string) *services.GraphNode {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return &s.nodes[i]
		}
	}

	return nil
}

func (s *Session) removeNode(id string) {
	nodes := s.nodes[:0]

	for _, node := range s.nodes {
		if node.ID != id {
			nodes = append(nodes, node)
		}
	}

	s.nodes = nodes

	edges := s.edges[:0]

	for _, edge := range s.edges {
		if edge.Source != id && edge.Target != id {
			edges = append(edges, edge)
		}
	}

	s.edges = edges
}
