package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowdeck/flowdeck/pkg/models"
	"github.com/flowdeck/flowdeck/pkg/persistence"
)

// WorkflowRepository stores each workflow as <root>/workflows/<id>.json.
// The same graph rules the SQL schema expresses through constraints are
// enforced in code here, so callers see one error taxonomy regardless of
// backend.
type WorkflowRepository struct {
	root string
	mu   sync.Mutex
}

// NewWorkflowRepository creates a new file-backed workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (r *WorkflowRepository) dir() string {
	return filepath.Join(r.root, "workflows")
}

func (r *WorkflowRepository) path(id string) string {
	return filepath.Join(r.dir(), id+".json")
}

// Create inserts a workflow seeded with its INITIAL placeholder node.
func (r *WorkflowRepository) Create(ctx context.Context, owner string) (*models.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflowID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate workflow ID: %w", err)
	}

	nodeID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate node ID: %w", err)
	}

	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:    workflowID.String(),
		Name:  models.GenerateName(),
		Owner: owner,
		Nodes: []*models.Node{
			{
				ID:       nodeID.String(),
				Type:     models.NodeTypeInitial,
				Position: models.Position{X: 0, Y: 0},
				Data:     map[string]any{},
			},
		},
		Connections: []*models.Connection{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = r.write(workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	return workflow, nil
}

// GetByID loads a workflow. Returns (nil, nil) when absent or not owned.
func (r *WorkflowRepository) GetByID(_ context.Context, id, owner string) (*models.Workflow, error) {
	workflow, err := r.read(id)
	if err != nil {
		return nil, err
	}

	if workflow == nil || workflow.Owner != owner {
		return nil, nil
	}

	return workflow, nil
}

// List returns a page of the owner's workflows, most recently updated first.
func (r *WorkflowRepository) List(_ context.Context, opts persistence.ListOptions) (*persistence.ListResult, error) {
	all, err := r.readAll()
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(opts.Search)
	matched := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if workflow.Owner != opts.Owner {
			continue
		}

		if search != "" && !strings.Contains(strings.ToLower(workflow.Name), search) {
			continue
		}

		matched = append(matched, workflow)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	totalCount := int64(len(matched))

	start := (opts.Page - 1) * opts.PageSize
	if start > len(matched) {
		start = len(matched)
	}

	end := start + opts.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	return persistence.PageResult(matched[start:end], opts, totalCount), nil
}

// Rename updates the workflow name and bumps the update timestamp.
func (r *WorkflowRepository) Rename(ctx context.Context, id, owner, name string) (*models.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflow, err := r.read(id)
	if err != nil {
		return nil, err
	}

	if workflow == nil || workflow.Owner != owner {
		return nil, nil
	}

	workflow.Name = name
	workflow.UpdatedAt = time.Now().UTC()

	err = r.write(workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("Rename", id, err)
	}

	return workflow, nil
}

// Delete removes the workflow document; nodes and connections live inside it,
// so the cascade is implicit. Returns false when nothing was deleted.
func (r *WorkflowRepository) Delete(_ context.Context, id, owner string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflow, err := r.read(id)
	if err != nil {
		return false, err
	}

	if workflow == nil || workflow.Owner != owner {
		return false, nil
	}

	err = os.Remove(r.path(id))
	if err != nil {
		return false, fmt.Errorf("failed to delete workflow file: %w", err)
	}

	return true, nil
}

// ReplaceGraph swaps the workflow's node and connection set. The document is
// only rewritten after every rule has passed, so a failed commit leaves the
// stored graph untouched.
func (r *WorkflowRepository) ReplaceGraph(ctx context.Context, id, owner string, nodes []*models.Node, connections []*models.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflow, err := r.read(id)
	if err != nil {
		return err
	}

	if workflow == nil || workflow.Owner != owner {
		return persistence.ErrWorkflowNotFound
	}

	nodeIDs := make(map[string]bool, len(nodes))

	for _, node := range nodes {
		if !node.Type.Valid() {
			return persistence.NewWorkflowError("ReplaceGraph", id,
				fmt.Errorf("%w: %q", persistence.ErrUnknownNodeType, node.Type))
		}

		nodeIDs[node.ID] = true
	}

	seen := make(map[string]bool, len(connections))

	for _, connection := range connections {
		connection.Normalize()

		if !nodeIDs[connection.SourceNodeID] || !nodeIDs[connection.TargetNodeID] {
			return persistence.NewWorkflowError("ReplaceGraph", id,
				fmt.Errorf("%w: %s -> %s", persistence.ErrConnectionEndpoint,
					connection.SourceNodeID, connection.TargetNodeID))
		}

		key := connection.SourceNodeID + "\x00" + connection.SourceHandle +
			"\x00" + connection.TargetNodeID + "\x00" + connection.TargetHandle
		if seen[key] {
			return persistence.NewWorkflowError("ReplaceGraph", id,
				fmt.Errorf("%w: %s(%s) -> %s(%s)", persistence.ErrDuplicateConnection,
					connection.SourceNodeID, connection.SourceHandle,
					connection.TargetNodeID, connection.TargetHandle))
		}

		seen[key] = true

		if connection.ID == "" {
			connectionID, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("failed to generate connection ID: %w", err)
			}

			connection.ID = connectionID.String()
		}
	}

	workflow.Nodes = nodes
	workflow.Connections = connections
	workflow.UpdatedAt = time.Now().UTC()

	err = r.write(workflow)
	if err != nil {
		return persistence.NewWorkflowError("ReplaceGraph", id, err)
	}

	return nil
}

func (r *WorkflowRepository) read(id string) (*models.Workflow, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	var workflow models.Workflow

	err = json.Unmarshal(data, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) readAll() ([]*models.Workflow, error) {
	entries, err := os.ReadDir(r.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read workflows directory: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		workflow, err := r.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		if workflow != nil {
			workflows = append(workflows, workflow)
		}
	}

	return workflows, nil
}

func (r *WorkflowRepository) write(workflow *models.Workflow) error {
	err := os.MkdirAll(r.dir(), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	err = os.WriteFile(r.path(workflow.ID), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write workflow file: %w", err)
	}

	return nil
}
