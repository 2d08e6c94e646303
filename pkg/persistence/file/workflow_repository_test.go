package file_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/pkg/models"
	"github.com/flowdeck/flowdeck/pkg/persistence"
	"github.com/flowdeck/flowdeck/pkg/persistence/file"
)

func setupRepo(t *testing.T) persistence.WorkflowRepository {
	t.Helper()

	return file.NewPersistence(t.TempDir()).WorkflowRepository()
}

func TestWorkflowRepository_Create(t *testing.T) {
	repo := setupRepo(t)

	workflow, err := repo.Create(t.Context(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, workflow)

	assert.NotEmpty(t, workflow.ID)
	assert.NotEmpty(t, workflow.Name)
	assert.Equal(t, "user-1", workflow.Owner)
	assert.False(t, workflow.CreatedAt.IsZero())

	require.Len(t, workflow.Nodes, 1)
	assert.Equal(t, models.NodeTypeInitial, workflow.Nodes[0].Type)
	assert.Equal(t, models.Position{X: 0, Y: 0}, workflow.Nodes[0].Position)
	assert.Empty(t, workflow.Connections)
}

func TestWorkflowRepository_GetByID_OwnerScoped(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(t.Context(), "user-1")
	require.NoError(t, err)

	found, err := repo.GetByID(t.Context(), created.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	// Someone else's lookup behaves exactly like a miss.
	missing, err := repo.GetByID(t.Context(), created.ID, "user-2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = repo.GetByID(t.Context(), "nope", "user-1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWorkflowRepository_List(t *testing.T) {
	repo := setupRepo(t)

	for range 3 {
		_, err := repo.Create(t.Context(), "user-1")
		require.NoError(t, err)
	}

	other, err := repo.Create(t.Context(), "user-2")
	require.NoError(t, err)

	result, err := repo.List(t.Context(), persistence.ListOptions{
		Owner:    "user-1",
		Page:     1,
		PageSize: 2,
	})
	require.NoError(t, err)

	assert.Len(t, result.Items, 2)
	assert.Equal(t, int64(3), result.TotalCount)
	assert.Equal(t, 2, result.TotalPages)
	assert.True(t, result.HasNextPage)
	assert.False(t, result.HasPreviousPage)

	for _, item := range result.Items {
		assert.Equal(t, "user-1", item.Owner)
		assert.NotEqual(t, other.ID, item.ID)
	}

	result, err = repo.List(t.Context(), persistence.ListOptions{
		Owner:    "user-1",
		Page:     2,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.False(t, result.HasNextPage)
	assert.True(t, result.HasPreviousPage)
}

func TestWorkflowRepository_List_SearchAndOrder(t *testing.T) {
	repo := setupRepo(t)

	first, err := repo.Create(t.Context(), "user-1")
	require.NoError(t, err)
	second, err := repo.Create(t.Context(), "user-1")
	require.NoError(t, err)

	_, err = repo.Rename(t.Context(), first.ID, "user-1", "Invoice Sync")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = repo.Rename(t.Context(), second.ID, "user-1", "invoice backfill")
	require.NoError(t, err)

	result, err := repo.List(t.Context(), persistence.ListOptions{
		Owner:    "user-1",
		Page:     1,
		PageSize: 10,
		Search:   "INVOICE",
	})
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	// Most recently updated first.
	assert.Equal(t, second.ID, result.Items[0].ID)
	assert.Equal(t, first.ID, result.Items[1].ID)

	result, err = repo.List(t.Context(), persistence.ListOptions{
		Owner:    "user-1",
		Page:     1,
		PageSize: 10,
		Search:   "backfill",
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, second.ID, result.Items[0].ID)
}

func TestWorkflowRepository_Rename(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(t.Context(), "user-1")
	require.NoError(t, err)

	renamed, err := repo.Rename(t.Context(), created.ID, "user-1", "My Flow")
	require.NoError(t, err)
	require.NotNil(t, renamed)
	assert.Equal(t, "My Flow", renamed.Name)
	assert.True(t, renamed.UpdatedAt.After(created.UpdatedAt) || renamed.UpdatedAt.Equal(created.UpdatedAt))

	// Unowned rename is a miss.
	missing, err := repo.Rename(t.Context(), created.ID, "user-2", "stolen")
	require.NoError(t, err)
	assert.Nil(t, missing)

	found, err := repo.GetByID(t.Context(), created.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "My Flow", found.Name)
}

func TestWorkflowRepository_Delete(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(t.Context(), "user-1")
	require.NoError(t, err)

	// Deleting someone else's workflow affects zero rows and leaves the
	// owner's data alone.
	deleted, err := repo.Delete(t.Context(), created.ID, "user-2")
	require.NoError(t, err)
	assert.False(t, deleted)

	found, err := repo.GetByID(t.Context(), created.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, found)

	deleted, err = repo.Delete(t.Context(), created.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	found, err = repo.GetByID(t.Context(), created.ID, "user-1")
	require.NoError(t, err)
	assert.Nil(t, found)

	deleted, err = repo.Delete(t.Context(), created.ID, "user-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func graphFixture() ([]*models.Node, []*models.Connection) {
	nodes := []*models.Node{
		{
			ID:       "a",
			Type:     models.NodeTypeManualTrigger,
			Position: models.Position{X: 10, Y: 20},
			Data:     map[string]any{},
		},
		{
			ID:       "b",
			Type:     models.NodeTypeHTTPRequest,
			Position: models.Position{X: 300, Y: 20},
			Data:     map[string]any{"url": "https://example.com"},
		},
	}

	connections := []*models.Connection{
		{SourceNodeID: "a", TargetNodeID: "b"},
	}

	return nodes, connections
}

func TestWorkflowRepository_ReplaceGraph(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(t.Context(), "user-1")
	require.NoError(t, err)

	nodes, connections := graphFixture()

	err = repo.ReplaceGraph(t.Context(), created.ID, "user-1", nodes, connections)
	require.NoError(t, err)

	found, err := repo.GetByID(t.Context(), created.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, found)

	require.Len(t, found.Nodes, 2)
	assert.Equal(t, models.NodeTypeManualTrigger, found.Nodes[0].Type)
	assert.Equal(t, models.Position{X: 300, Y: 20}, found.Nodes[1].Position)
	assert.Equal(t, "https://example.com", found.Nodes[1].Data["url"])

	require.Len(t, found.Connections, 1)
	assert.Equal(t, "a", found.Connections[0].SourceNodeID)
	assert.Equal(t, "b", found.Connections[0].TargetNodeID)
	assert.Equal(t, models.DefaultHandle, found.Connections[0].SourceHandle)
	assert.Equal(t, models.DefaultHandle, found.Connections[0].TargetHandle)
	assert.NotEmpty(t, found.Connections[0].ID)
}

func TestWorkflowRepository_ReplaceGraph_NotOwned(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(t.Context(), "user-1")
	require.NoError(t, err)

	nodes, connections := graphFixture()

	err = repo.ReplaceGraph(t.Context(), created.ID, "user-2", nodes, connections)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	// The owner's graph still holds the seeded placeholder.
	found, err := repo.GetByID(t.Context(), created.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, found.Nodes, 1)
	assert.Equal(t, models.NodeTypeInitial, found.Nodes[0].Type)
}

func TestWorkflowRepository_ReplaceGraph_DuplicateConnection(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(t.Context(), "user-1")
	require.NoError(t, err)

	nodes, connections := graphFixture()
	err = repo.ReplaceGraph(t.Context(), created.ID, "user-1", nodes, connections)
	require.NoError(t, err)

	// The exact same wire twice violates the uniqueness rule and the whole
	// commit aborts.
	dupNodes, _ := graphFixture()
	dupConnections := []*models.Connection{
		{SourceNodeID: "a", TargetNodeID: "b"},
		{SourceNodeID: "a", TargetNodeID: "b", SourceHandle: "main", TargetHandle: "main"},
	}

	err = repo.ReplaceGraph(t.Context(), created.ID, "user-1", dupNodes, dupConnections)
	assert.True(t, persistence.IsDuplicateConnection(err))

	found, err := repo.GetByID(t.Context(), created.ID, "user-1")
	require.NoError(t, err)
	assert.Len(t, found.Nodes, 2)
	assert.Len(t, found.Connections, 1)
}

func TestWorkflowRepository_ReplaceGraph_FanOutAllowed(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(t.Context(), "user-1")
	require.NoError(t, err)

	nodes := []*models.Node{
		{ID: "a", Type: models.NodeTypeManualTrigger, Data: map[string]any{}},
		{ID: "b", Type: models.NodeTypeHTTPRequest, Data: map[string]any{}},
		{ID: "c", Type: models.NodeTypeHTTPRequest, Data: map[string]any{}},
	}
	connections := []*models.Connection{
		{SourceNodeID: "a", TargetNodeID: "b"},
		{SourceNodeID: "a", TargetNodeID: "c"},
	}

	err = repo.ReplaceGraph(t.Context(), created.ID, "user-1", nodes, connections)
	require.NoError(t, err)

	found, err := repo.GetByID(t.Context(), created.ID, "user-1")
	require.NoError(t, err)
	assert.Len(t, found.Connections, 2)
}

func TestWorkflowRepository_ReplaceGraph_UnknownEndpoint(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(t.Context(), "user-1")
	require.NoError(t, err)

	nodes, _ := graphFixture()
	connections := []*models.Connection{
		{SourceNodeID: "a", TargetNodeID: "ghost"},
	}

	err = repo.ReplaceGraph(t.Context(), created.ID, "user-1", nodes, connections)
	assert.True(t, persistence.IsConnectionEndpoint(err))
}

func TestWorkflowRepository_ReplaceGraph_UnknownNodeType(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(t.Context(), "user-1")
	require.NoError(t, err)

	nodes := []*models.Node{
		{ID: "a", Type: models.NodeType("WEBHOOK"), Data: map[string]any{}},
	}

	err = repo.ReplaceGraph(t.Context(), created.ID, "user-1", nodes, nil)
	assert.True(t, persistence.IsUnknownNodeType(err))
}

func TestWorkflowRepository_ReplaceGraph_EmptyEdges(t *testing.T) {
	repo := setupRepo(t)

	created, err := repo.Create(t.Context(), "user-1")
	require.NoError(t, err)

	nodes := []*models.Node{
		{ID: "only", Type: models.NodeTypeManualTrigger, Data: map[string]any{}},
	}

	err = repo.ReplaceGraph(t.Context(), created.ID, "user-1", nodes, nil)
	require.NoError(t, err)

	found, err := repo.GetByID(t.Context(), created.ID, "user-1")
	require.NoError(t, err)
	assert.Len(t, found.Nodes, 1)
	assert.Empty(t, found.Connections)
}
