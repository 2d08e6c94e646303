package models

// NodeType tags a node with its behavior. The set is closed: unknown tags are
// rejected at the storage boundary rather than silently stored.
type NodeType string

const (
	// NodeTypeInitial is the placeholder seeded at workflow creation. It is
	// replaced by the first real node the user adds and carries no behavior.
	NodeTypeInitial NodeType = "INITIAL"

	// NodeTypeManualTrigger starts a workflow run on explicit user action.
	NodeTypeManualTrigger NodeType = "MANUAL_TRIGGER"

	// NodeTypeHTTPRequest performs an HTTP call with the configured
	// url/method/body.
	NodeTypeHTTPRequest NodeType = "HTTP_REQUEST"
)

// NodeTypes lists every registered node type.
func NodeTypes() []NodeType {
	return []NodeType{NodeTypeInitial, NodeTypeManualTrigger, NodeTypeHTTPRequest}
}

// Valid reports whether t is a registered node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeInitial, NodeTypeManualTrigger, NodeTypeHTTPRequest:
		return true
	default:
		return false
	}
}

// IsTrigger reports whether t belongs to the trigger category. A workflow may
// hold at most one trigger node, enforced at insertion time in the editor.
// INITIAL is a placeholder, not a trigger.
func (t NodeType) IsTrigger() bool {
	return t == NodeTypeManualTrigger
}

// Position is a node's 2D location on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a typed unit of the graph. The ID is generated client-side so the
// editor can wire nodes together before anything is persisted; it stays
// stable across save cycles.
type Node struct {
	ID       string         `json:"id"   validate:"required"`
	Type     NodeType       `json:"type" validate:"required"`
	Name     string         `json:"name,omitempty"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data"`
}

// DefaultHandle is the canonical socket label used when a connection does not
// name an explicit output or input handle.
const DefaultHandle = "main"

// Connection is a directed wire from a source node's output handle to a
// target node's input handle. The (source, target, source handle, target
// handle) tuple is unique per workflow: an output may fan out to many
// targets, but the exact same wire cannot exist twice.
type Connection struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	SourceHandle string `json:"source_handle"`
	TargetHandle string `json:"target_handle"`
	Name         string `json:"name,omitempty"`
}

// Normalize fills in the canonical handle labels when unset.
func (c *Connection) Normalize() {
	if c.SourceHandle == "" {
		c.SourceHandle = DefaultHandle
	}

	if c.TargetHandle == "" {
		c.TargetHandle = DefaultHandle
	}
}

// Touches reports whether the connection references the node as either
// endpoint.
func (c *Connection) Touches(nodeID string) bool {
	return c.SourceNodeID == nodeID || c.TargetNodeID == nodeID
}
