// Package models defines the core domain models for node-based workflow graphs.
package models

import "time"

// Workflow represents a named, user-owned automation graph. The workflow is
// the sole owner of its nodes and connections: deleting a workflow cascades
// to both, and deleting a node cascades to every connection touching it.
type Workflow struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"  validate:"required,min=1"`
	Owner       string        `json:"owner" validate:"required"`
	Nodes       []*Node       `json:"nodes"`
	Connections []*Connection `json:"connections"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TriggerNode returns the first trigger-category node in the workflow, or nil.
func (w *Workflow) TriggerNode() *Node {
	for _, node := range w.Nodes {
		if node.Type.IsTrigger() {
			return node
		}
	}

	return nil
}

// FindNode returns the node with the given ID, or nil when absent.
func (w *Workflow) FindNode(id string) *Node {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}
