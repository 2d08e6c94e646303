package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/flowdeck/flowdeck/pkg/models"
	"github.com/flowdeck/flowdeck/pkg/persistence"
)

// WorkflowRepository handles workflow graph database operations. All queries
// filter on the owner column so an unowned workflow is indistinguishable from
// a missing one.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// Create inserts a workflow together with its INITIAL placeholder node at the
// origin, as one transaction.
func (r *WorkflowRepository) Create(ctx context.Context, owner string) (*models.Workflow, error) {
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

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, name, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, workflow.ID, workflow.Name, workflow.Owner, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return nil, persistence.NewWorkflowError("Create", workflow.ID, fmt.Errorf("failed to insert workflow: %w", err))
	}

	err = r.insertNodes(ctx, tx, workflow.ID, workflow.Nodes)
	if err != nil {
		return nil, persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return workflow, nil
}

// GetByID loads a workflow with its nodes and connections. Returns (nil, nil)
// when absent or not owned by the caller.
func (r *WorkflowRepository) GetByID(ctx context.Context, id, owner string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, owner, created_at, updated_at
		FROM workflows
		WHERE id = $1 AND owner = $2
	`, id, owner)

	workflow, err := scanWorkflowBase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	err = r.loadGraph(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow graph: %w", err)
	}

	return workflow, nil
}

// List returns a page of the owner's workflows, most recently updated first.
// The graph itself is not loaded for listings.
func (r *WorkflowRepository) List(ctx context.Context, opts persistence.ListOptions) (*persistence.ListResult, error) {
	var totalCount int64

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM workflows
		WHERE owner = $1 AND name ILIKE '%' || $2 || '%'
	`, opts.Owner, opts.Search).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count workflows: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, owner, created_at, updated_at
		FROM workflows
		WHERE owner = $1 AND name ILIKE '%' || $2 || '%'
		ORDER BY updated_at DESC
		LIMIT $3 OFFSET $4
	`, opts.Owner, opts.Search, opts.PageSize, (opts.Page-1)*opts.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	items := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflowBase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		items = append(items, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return persistence.PageResult(items, opts, totalCount), nil
}

// Rename updates the workflow name and its update timestamp. Returns
// (nil, nil) when absent or not owned.
func (r *WorkflowRepository) Rename(ctx context.Context, id, owner, name string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE workflows
		SET name = $3, updated_at = NOW()
		WHERE id = $1 AND owner = $2
		RETURNING id, name, owner, created_at, updated_at
	`, id, owner, name)

	workflow, err := scanWorkflowBase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to rename workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes the workflow together with its nodes and connections in one
// transaction. Returns false when zero rows were affected.
func (r *WorkflowRepository) Delete(ctx context.Context, id, owner string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Children are removed explicitly rather than through the FK cascade, so
	// deletion behaves identically across storage engines.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM workflow_connections WHERE workflow_id IN (
			SELECT id FROM workflows WHERE id = $1 AND owner = $2
		)
	`, id, owner)
	if err != nil {
		return false, fmt.Errorf("failed to delete connections: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM workflow_nodes WHERE workflow_id IN (
			SELECT id FROM workflows WHERE id = $1 AND owner = $2
		)
	`, id, owner)
	if err != nil {
		return false, fmt.Errorf("failed to delete nodes: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM workflows WHERE id = $1 AND owner = $2
	`, id, owner)
	if err != nil {
		return false, fmt.Errorf("failed to delete workflow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return rowsAffected > 0, nil
}

// ReplaceGraph swaps the workflow's entire node and connection set in one
// transaction. The new sets are inserted verbatim with client-chosen
// identifiers.
func (r *WorkflowRepository) ReplaceGraph(ctx context.Context, id, owner string, nodes []*models.Node, connections []*models.Connection) error {
	for _, node := range nodes {
		if !node.Type.Valid() {
			return persistence.NewWorkflowError("ReplaceGraph", id,
				fmt.Errorf("%w: %q", persistence.ErrUnknownNodeType, node.Type))
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var workflowID string

	err = tx.QueryRowContext(ctx, `
		SELECT id FROM workflows WHERE id = $1 AND owner = $2
	`, id, owner).Scan(&workflowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrWorkflowNotFound

			return err
		}

		return fmt.Errorf("failed to check workflow ownership: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_connections WHERE workflow_id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete existing connections: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_nodes WHERE workflow_id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete existing nodes: %w", err)
	}

	err = r.insertNodes(ctx, tx, id, nodes)
	if err != nil {
		return persistence.NewWorkflowError("ReplaceGraph", id, err)
	}

	if len(connections) > 0 {
		err = r.insertConnections(ctx, tx, id, connections)
		if err != nil {
			return persistence.NewWorkflowError("ReplaceGraph", id, err)
		}
	}

	_, err = tx.ExecContext(ctx, "UPDATE workflows SET updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to stamp workflow update: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) insertNodes(ctx context.Context, tx *sql.Tx, workflowID string, nodes []*models.Node) error {
	for _, node := range nodes {
		dataJSON, err := json.Marshal(node.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal node data: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_nodes (workflow_id, id, node_type, name, position_x, position_y, data)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, workflowID, node.ID, node.Type, node.Name, node.Position.X, node.Position.Y, dataJSON)
		if err != nil {
			return mapConstraintError(fmt.Errorf("failed to insert node %s: %w", node.ID, err))
		}
	}

	return nil
}

func (r *WorkflowRepository) insertConnections(ctx context.Context, tx *sql.Tx, workflowID string, connections []*models.Connection) error {
	for _, connection := range connections {
		connection.Normalize()

		if connection.ID == "" {
			connectionID, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("failed to generate connection ID: %w", err)
			}

			connection.ID = connectionID.String()
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO workflow_connections (workflow_id, id, source_node_id, target_node_id, source_handle, target_handle, name)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, workflowID, connection.ID, connection.SourceNodeID, connection.TargetNodeID,
			connection.SourceHandle, connection.TargetHandle, connection.Name)
		if err != nil {
			return mapConstraintError(fmt.Errorf("failed to insert connection %s: %w", connection.ID, err))
		}
	}

	return nil
}

func (r *WorkflowRepository) loadGraph(ctx context.Context, workflow *models.Workflow) error {
	nodes, err := r.loadNodes(ctx, workflow.ID)
	if err != nil {
		return err
	}

	workflow.Nodes = nodes

	connections, err := r.loadConnections(ctx, workflow.ID)
	if err != nil {
		return err
	}

	workflow.Connections = connections

	return nil
}

func (r *WorkflowRepository) loadNodes(ctx context.Context, workflowID string) ([]*models.Node, error) {
	// Rows from one ReplaceGraph share a created_at; the id tiebreak keeps
	// hydrate order stable.
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, node_type, name, position_x, position_y, data
		FROM workflow_nodes
		WHERE workflow_id = $1
		ORDER BY created_at, id
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow nodes: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	nodes := make([]*models.Node, 0)

	for rows.Next() {
		var (
			node     models.Node
			dataJSON []byte
		)

		err := rows.Scan(&node.ID, &node.Type, &node.Name, &node.Position.X, &node.Position.Y, &dataJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}

		if dataJSON != nil {
			err := json.Unmarshal(dataJSON, &node.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal node data: %w", err)
			}
		}

		nodes = append(nodes, &node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	return nodes, nil
}

func (r *WorkflowRepository) loadConnections(ctx context.Context, workflowID string) ([]*models.Connection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_node_id, target_node_id, source_handle, target_handle, name
		FROM workflow_connections
		WHERE workflow_id = $1
		ORDER BY created_at, id
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow connections: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	connections := make([]*models.Connection, 0)

	for rows.Next() {
		var connection models.Connection

		err := rows.Scan(
			&connection.ID,
			&connection.SourceNodeID,
			&connection.TargetNodeID,
			&connection.SourceHandle,
			&connection.TargetHandle,
			&connection.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}

		connections = append(connections, &connection)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}

	return connections, nil
}

func scanWorkflowBase(scanner interface {
	Scan(dest ...any) error
}) (*models.Workflow, error) {
	var workflow models.Workflow

	err := scanner.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Owner,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

// mapConstraintError translates PostgreSQL constraint failures into the
// persistence error taxonomy so callers see the same errors across storage
// engines.
func mapConstraintError(err error) error {
	var pqErr *pq.Error

	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case "23505": // unique_violation
		if pqErr.Constraint == "workflow_nodes_pkey" {
			return fmt.Errorf("%w: %v", persistence.ErrDuplicateNode, err)
		}

		return fmt.Errorf("%w: %v", persistence.ErrDuplicateConnection, err)
	case "23503": // foreign_key_violation
		return fmt.Errorf("%w: %v", persistence.ErrConnectionEndpoint, err)
	case "23514": // check_violation
		return fmt.Errorf("%w: %v", persistence.ErrUnknownNodeType, err)
	default:
		return err
	}
}
