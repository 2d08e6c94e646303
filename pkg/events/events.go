// Package events defines the workflow lifecycle notifications published by
// the API. Consumers (audit trails, cache invalidation, a future execution
// dispatcher) subscribe through the event bus; nothing in the save path
// depends on them.
package events

import "time"

type EventType string

// Topic is the event bus topic carrying every workflow lifecycle event.
const Topic = "flowdeck.workflows"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowCreatedEvent        EventType = "workflow.created"
	WorkflowRenamedEvent        EventType = "workflow.renamed"
	WorkflowDeletedEvent        EventType = "workflow.deleted"
	WorkflowGraphCommittedEvent EventType = "workflow.graph.committed"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
	Owner      string    `json:"owner"`
}

type WorkflowCreated struct {
	BaseEvent

	Name string `json:"name"`
}

func (e WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

type WorkflowRenamed struct {
	BaseEvent

	Name string `json:"name"`
}

func (e WorkflowRenamed) GetType() EventType {
	return WorkflowRenamedEvent
}

type WorkflowDeleted struct {
	BaseEvent
}

func (e WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

// WorkflowGraphCommitted is published after a full-replace commit succeeds.
type WorkflowGraphCommitted struct {
	BaseEvent

	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

func (e WorkflowGraphCommitted) GetType() EventType {
	return WorkflowGraphCommittedEvent
}
