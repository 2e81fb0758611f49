package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/agencydesk/internal/models"
	"github.com/charlesng35/agencydesk/internal/services"
	"github.com/charlesng35/agencydesk/pkg/response"
)

const defaultWorkItemPageSize = 50

// WorkItemHandler exposes review and bug intake plus the admin work queues.
type WorkItemHandler struct {
	workItems   *services.WorkItemService
	assignments *services.AssignmentService
}

// NewWorkItemHandler constructs a WorkItemHandler.
func NewWorkItemHandler(workItems *services.WorkItemService, assignments *services.AssignmentService) *WorkItemHandler {
	return &WorkItemHandler{workItems: workItems, assignments: assignments}
}

// CreateReview accepts a public client inquiry.
func (h *WorkItemHandler) CreateReview(c *gin.Context) {
	var payload services.CreateReviewInput
	if !bindAndValidate(c, &payload) {
		return
	}

	item, err := h.workItems.CreateReview(requestContext(c), payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, item)
}

// CreateBug accepts a public bug report.
func (h *WorkItemHandler) CreateBug(c *gin.Context) {
	var payload services.CreateBugInput
	if !bindAndValidate(c, &payload) {
		return
	}

	item, err := h.workItems.CreateBug(requestContext(c), payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, item)
}

// List returns the work queue of kind, filtered by the assignedTo and status query parameters.
func (h *WorkItemHandler) List(kind models.WorkItemKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, ok := actingAdmin(c)
		if !ok {
			return
		}

		items, err := h.assignments.ListWorkItems(requestContext(c), adminID, kind, services.ListWorkItemsInput{
			AssignedTo: strings.TrimSpace(c.Query("assignedTo")),
			Status:     strings.TrimSpace(c.Query("status")),
			Limit:      parseIntQuery(c, "limit", defaultWorkItemPageSize),
			Offset:     parseIntQuery(c, "offset", 0),
		})
		if err != nil {
			response.Error(c, err)
			return
		}

		response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{Total: len(items)})
	}
}

// Get returns one work item of kind.
func (h *WorkItemHandler) Get(kind models.WorkItemKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := h.workItems.Get(requestContext(c), kind, strings.TrimSpace(c.Param("id")))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, item)
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus moves a work item of kind to a new status.
func (h *WorkItemHandler) UpdateStatus(kind models.WorkItemKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, ok := actingAdmin(c)
		if !ok {
			return
		}

		var payload updateStatusRequest
		if !bindAndValidate(c, &payload) {
			return
		}

		item, err := h.workItems.UpdateStatus(requestContext(c), services.UpdateStatusInput{
			Kind:    kind,
			ID:      strings.TrimSpace(c.Param("id")),
			ActorID: adminID,
			Status:  payload.Status,
		})
		if err != nil {
			response.Error(c, err)
			return
		}

		response.Success(c, http.StatusOK, item)
	}
}
