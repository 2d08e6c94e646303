package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flowdeck/flowdeck/pkg/billing"
	"github.com/flowdeck/flowdeck/pkg/eventbus"
	"github.com/flowdeck/flowdeck/pkg/events"
	"github.com/flowdeck/flowdeck/pkg/models"
	"github.com/flowdeck/flowdeck/pkg/persistence"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Workflow implements workflow lifecycle operations. Every operation is
// scoped to the calling owner; an id that exists under another owner behaves
// exactly like an id that does not exist.
type Workflow struct {
	persistence  persistence.Persistence
	entitlements billing.Entitlements
	eventBus     eventbus.EventBus
	logger       *slog.Logger
}

// NewWorkflow creates a new workflow service. The event bus is optional:
// passing nil disables lifecycle notifications without affecting any write.
func NewWorkflow(
	persistence persistence.Persistence,
	entitlements billing.Entitlements,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Workflow {
	if entitlements == nil {
		entitlements = billing.Unlimited{}
	}

	return &Workflow{
		persistence:  persistence,
		entitlements: entitlements,
		eventBus:     eventBus,
		logger:       logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create provisions a workflow for the owner: generated name, a single
// placeholder node at the origin, both persisted atomically.
func (w *Workflow) Create(ctx context.Context, owner string) (*models.Workflow, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, ErrEmptyOwner
	}

	if err := w.entitlements.AuthorizeWorkflowCreate(ctx, owner); err != nil {
		return nil, fmt.Errorf("authorizing workflow create: %w", err)
	}

	workflow, err := w.persistence.WorkflowRepository().Create(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.publish(ctx, workflow.ID, events.WorkflowCreated{
		BaseEvent: w.baseEvent(events.WorkflowCreatedEvent, workflow.ID, owner),
		Name:      workflow.Name,
	})

	return workflow, nil
}

// FetchByID retrieves a workflow owned by the caller, graph included.
func (w *Workflow) FetchByID(ctx context.Context, id, owner string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// ListWorkflowsRequest contains options for listing workflows.
type ListWorkflowsRequest struct {
	Owner    string
	Page     int `validate:"min=1"`
	PageSize int `validate:"min=1,max=100"`
	Search   string
}

// List retrieves the owner's workflows, newest update first, optionally
// filtered by a case-insensitive name search.
func (w *Workflow) List(ctx context.Context, req ListWorkflowsRequest) (*persistence.ListResult, error) {
	req.Owner = strings.TrimSpace(req.Owner)
	if req.Owner == "" {
		return nil, ErrEmptyOwner
	}

	if req.Page < 1 {
		req.Page = 1
	}

	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}

	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	result, err := w.persistence.WorkflowRepository().List(ctx, persistence.ListOptions{
		Owner:    req.Owner,
		Page:     req.Page,
		PageSize: req.PageSize,
		Search:   strings.TrimSpace(req.Search),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return result, nil
}

// Rename updates the workflow's display name.
func (w *Workflow) Rename(ctx context.Context, id, owner, name string) (*models.Workflow, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("Rename", "EMPTY_NAME", "workflow name cannot be empty", ErrEmptyName)
	}

	workflow, err := w.persistence.WorkflowRepository().Rename(ctx, id, owner, name)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	w.publish(ctx, id, events.WorkflowRenamed{
		BaseEvent: w.baseEvent(events.WorkflowRenamedEvent, id, owner),
		Name:      name,
	})

	return workflow, nil
}

// Delete removes the workflow and its graph. Deleting an id the owner does
// not hold reports not found and touches nothing.
func (w *Workflow) Delete(ctx context.Context, id, owner string) error {
	deleted, err := w.persistence.WorkflowRepository().Delete(ctx, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	if !deleted {
		return ErrWorkflowNotFound
	}

	w.publish(ctx, id, events.WorkflowDeleted{
		BaseEvent: w.baseEvent(events.WorkflowDeletedEvent, id, owner),
	})

	return nil
}

func (w *Workflow) baseEvent(eventType events.EventType, workflowID, owner string) events.BaseEvent {
	base := events.BaseEvent{
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Owner:      owner,
	}

	if w.eventBus != nil {
		base.ID = w.eventBus.GenerateID()
	}

	return base
}

// publish is best effort. A failed publish is logged and swallowed so the
// already-committed write still succeeds from the caller's point of view.
func (w *Workflow) publish(ctx context.Context, key string, event eventbus.Event) {
	if w.eventBus == nil {
		return
	}

	if err := w.eventBus.Publish(ctx, key, event); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish workflow event",
			"event_type", event.GetType(),
			"workflow_id", key,
			"error", err)
	}
}
