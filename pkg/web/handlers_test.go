package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/pkg/auth"
	"github.com/flowdeck/flowdeck/pkg/billing"
	"github.com/flowdeck/flowdeck/pkg/log"
	"github.com/flowdeck/flowdeck/pkg/models"
	"github.com/flowdeck/flowdeck/pkg/persistence/file"
	"github.com/flowdeck/flowdeck/pkg/services"
	"github.com/flowdeck/flowdeck/pkg/web"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	logger := log.WithModule("test")
	workflowService := services.NewWorkflow(persistence, billing.Unlimited{}, nil, logger)
	syncService := services.NewSync(persistence, nil, logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	handlers := web.NewAPIHandlers(workflowService, syncService, validate)
	app := fiber.New()
	handlers.RegisterRoutes(app, auth.NewHeaderAuthenticator())

	return app
}

func doRequest(t *testing.T, app *fiber.App, method, target, user string, body any) (*http.Response, []byte) {
	t.Helper()

	var payload []byte

	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	if user != "" {
		req.Header.Set("X-User-ID", user)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func createWorkflow(t *testing.T, app *fiber.App, user string) web.WorkflowDetailResponse {
	t.Helper()

	resp, raw := doRequest(t, app, http.MethodPost, "/workflows", user, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created web.WorkflowDetailResponse
	require.NoError(t, json.Unmarshal(raw, &created))

	return created
}

func TestCreateWorkflow(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflow(t, app, "user-1")

	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.Name)
	require.Len(t, created.Graph.Nodes, 1)
	assert.Equal(t, models.NodeTypeInitial, created.Graph.Nodes[0].Type)
	assert.Empty(t, created.Graph.Edges)
}

func TestCreateWorkflowUnauthenticated(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, _ := doRequest(t, app, http.MethodPost, "/workflows", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetWorkflow(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflow(t, app, "user-1")

	resp, raw := doRequest(t, app, http.MethodGet, "/workflows/"+created.ID, "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail web.WorkflowDetailResponse
	require.NoError(t, json.Unmarshal(raw, &detail))
	assert.Equal(t, created.ID, detail.ID)
	assert.Len(t, detail.Graph.Nodes, 1)

	// Another caller's id space does not include this workflow.
	resp, _ = doRequest(t, app, http.MethodGet, "/workflows/"+created.ID, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListWorkflows(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	createWorkflow(t, app, "user-1")
	createWorkflow(t, app, "user-1")
	createWorkflow(t, app, "user-2")

	resp, raw := doRequest(t, app, http.MethodGet, "/workflows/?page=1&page_size=1", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Workflows   []web.WorkflowResponse `json:"workflows"`
		TotalCount  int64                  `json:"total_count"`
		TotalPages  int                    `json:"total_pages"`
		HasNextPage bool                   `json:"has_next_page"`
	}
	require.NoError(t, json.Unmarshal(raw, &listing))

	assert.Len(t, listing.Workflows, 1)
	assert.Equal(t, int64(2), listing.TotalCount)
	assert.Equal(t, 2, listing.TotalPages)
	assert.True(t, listing.HasNextPage)
}

func TestListWorkflowsSearch(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflow(t, app, "user-1")
	createWorkflow(t, app, "user-1")

	resp, _ := doRequest(t, app, http.MethodPatch, "/workflows/"+created.ID, "user-1",
		web.RenameWorkflowRequest{Name: "Billing Export"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := doRequest(t, app, http.MethodGet, "/workflows/?search=billing", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Workflows []web.WorkflowResponse `json:"workflows"`
	}
	require.NoError(t, json.Unmarshal(raw, &listing))
	require.Len(t, listing.Workflows, 1)
	assert.Equal(t, "Billing Export", listing.Workflows[0].Name)
}

func TestRenameWorkflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		user           string
		requestBody    any
		expectedStatus int
	}{
		{
			name:           "successful rename",
			user:           "user-1",
			requestBody:    web.RenameWorkflowRequest{Name: "Daily Sync"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "empty name",
			user:           "user-1",
			requestBody:    web.RenameWorkflowRequest{Name: ""},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			user:           "user-1",
			requestBody:    "not-json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "not owner",
			user:           "user-2",
			requestBody:    web.RenameWorkflowRequest{Name: "Hijacked"},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := setupTestApp(t)
			created := createWorkflow(t, app, "user-1")

			resp, raw := doRequest(t, app, http.MethodPatch, "/workflows/"+created.ID, tt.user, tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var renamed web.WorkflowResponse
				require.NoError(t, json.Unmarshal(raw, &renamed))
				assert.Equal(t, "Daily Sync", renamed.Name)
			}
		})
	}
}

func TestCommitGraph(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflow(t, app, "user-1")

	commit := web.CommitGraphRequest{
		Nodes: []services.GraphNode{
			{ID: "trigger", Type: models.NodeTypeManualTrigger, Position: models.Position{X: 0, Y: 0}},
			{ID: "request", Type: models.NodeTypeHTTPRequest, Position: models.Position{X: 250, Y: 0},
				Data: map[string]any{"url": "https://example.com", "method": "GET"}},
		},
		Edges: []services.GraphEdge{
			{Source: "trigger", Target: "request"},
		},
	}

	resp, raw := doRequest(t, app, http.MethodPut, "/workflows/"+created.ID+"/graph", "user-1", commit)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot services.GraphSnapshot
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	assert.Len(t, snapshot.Nodes, 2)
	require.Len(t, snapshot.Edges, 1)
	assert.Equal(t, models.DefaultHandle, snapshot.Edges[0].SourceHandle)
}

func TestCommitGraphErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		user           string
		requestBody    any
		expectedStatus int
	}{
		{
			name: "duplicate wire",
			user: "user-1",
			requestBody: web.CommitGraphRequest{
				Nodes: []services.GraphNode{
					{ID: "a", Type: models.NodeTypeManualTrigger},
					{ID: "b", Type: models.NodeTypeHTTPRequest},
				},
				Edges: []services.GraphEdge{
					{Source: "a", Target: "b"},
					{Source: "a", Target: "b"},
				},
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "edge to unknown node",
			user: "user-1",
			requestBody: web.CommitGraphRequest{
				Nodes: []services.GraphNode{{ID: "a", Type: models.NodeTypeManualTrigger}},
				Edges: []services.GraphEdge{{Source: "a", Target: "ghost"}},
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "unknown node type",
			user: "user-1",
			requestBody: web.CommitGraphRequest{
				Nodes: []services.GraphNode{{ID: "a", Type: "WEBHOOK"}},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			user:           "user-1",
			requestBody:    "not-json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not owner",
			user: "user-2",
			requestBody: web.CommitGraphRequest{
				Nodes: []services.GraphNode{{ID: "a", Type: models.NodeTypeManualTrigger}},
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := setupTestApp(t)
			created := createWorkflow(t, app, "user-1")

			resp, _ := doRequest(t, app, http.MethodPut, "/workflows/"+created.ID+"/graph", tt.user, tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestDeleteWorkflow(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflow(t, app, "user-1")

	resp, _ := doRequest(t, app, http.MethodDelete, "/workflows/"+created.ID, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodDelete, "/workflows/"+created.ID, "user-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodGet, "/workflows/"+created.ID, "user-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, raw := doRequest(t, app, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(raw, &health))
	assert.Equal(t, "healthy", health.Status)
}
