package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/flowdeck/flowdeck/pkg/auth"
	"github.com/flowdeck/flowdeck/pkg/services"
)

type APIHandlers struct {
	workflowService *services.Workflow
	syncService     *services.Sync
	validator       *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	syncService *services.Sync,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		syncService:     syncService,
		validator:       validator,
	}
}

// RegisterRoutes mounts every workflow endpoint behind the authenticator.
func (h *APIHandlers) RegisterRoutes(app *fiber.App, authenticator auth.Authenticator) {
	app.Get("/health", h.HealthCheck)

	workflows := app.Group("/workflows", auth.Middleware(authenticator))
	workflows.Get("/", h.GetWorkflows)
	workflows.Post("/", h.CreateWorkflow)
	workflows.Get("/:id", h.GetWorkflow)
	workflows.Patch("/:id", h.RenameWorkflow)
	workflows.Put("/:id/graph", h.CommitGraph)
	workflows.Delete("/:id", h.DeleteWorkflow)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return badRequest(c, "Missing identity")
	}

	req, err := h.parseListWorkflowsRequest(c, identity.UserID)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.workflowService.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	workflows := make([]WorkflowResponse, 0, len(result.Items))
	for _, workflow := range result.Items {
		workflows = append(workflows, TransformWorkflowResponse(workflow))
	}

	return c.JSON(fiber.Map{
		"workflows":         workflows,
		"page":              result.Page,
		"page_size":         result.PageSize,
		"total_count":       result.TotalCount,
		"total_pages":       result.TotalPages,
		"has_next_page":     result.HasNextPage,
		"has_previous_page": result.HasPreviousPage,
	})
}

func (h *APIHandlers) parseListWorkflowsRequest(c fiber.Ctx, owner string) (*services.ListWorkflowsRequest, error) {
	req := &services.ListWorkflowsRequest{Owner: owner}

	if pageStr := c.Query("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return nil, err
		}

		req.Page = page
	}

	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		pageSize, err := strconv.Atoi(pageSizeStr)
		if err != nil {
			return nil, err
		}

		req.PageSize = pageSize
	}

	req.Search = c.Query("search")

	return req, nil
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return badRequest(c, "Missing identity")
	}

	created, err := h.workflowService.Create(c.Context(), identity.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(WorkflowDetailResponse{
		WorkflowResponse: TransformWorkflowResponse(created),
		Graph:            *services.SnapshotFromWorkflow(created),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return badRequest(c, "Missing identity")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.workflowService.FetchByID(c.Context(), id, identity.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(WorkflowDetailResponse{
		WorkflowResponse: TransformWorkflowResponse(workflow),
		Graph:            *services.SnapshotFromWorkflow(workflow),
	})
}

func (h *APIHandlers) RenameWorkflow(c fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return badRequest(c, "Missing identity")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req RenameWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	renamed, err := h.workflowService.Rename(c.Context(), id, identity.UserID, req.Name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformWorkflowResponse(renamed))
}

func (h *APIHandlers) CommitGraph(c fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return badRequest(c, "Missing identity")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req CommitGraphRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.syncService.Commit(c.Context(), id, identity.UserID, req.Nodes, req.Edges)
	if err != nil {
		return handleServiceError(c, err)
	}

	snapshot, err := h.syncService.Hydrate(c.Context(), id, identity.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(snapshot)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return badRequest(c, "Missing identity")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	err := h.workflowService.Delete(c.Context(), id, identity.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowdeck API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Flowdeck API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
