package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/agencydesk/internal/models"
	"github.com/charlesng35/agencydesk/internal/services"
	"github.com/charlesng35/agencydesk/pkg/response"
)

// AssignmentHandler exposes the assignment workflow.
type AssignmentHandler struct {
	assignments *services.AssignmentService
}

// NewAssignmentHandler constructs an AssignmentHandler.
func NewAssignmentHandler(assignments *services.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

type assignRequest struct {
	AssigneeID   string `json:"assigneeId"`
	AssigneeName string `json:"assigneeName" validate:"max=255"`
}

// Assign sets the assignee of a work item of kind. An empty assigneeId clears the assignment.
func (h *AssignmentHandler) Assign(kind models.WorkItemKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, ok := actingAdmin(c)
		if !ok {
			return
		}

		var payload assignRequest
		if !bindAndValidate(c, &payload) {
			return
		}

		item, err := h.assignments.Assign(requestContext(c), services.AssignInput{
			Kind:         kind,
			WorkItemID:   strings.TrimSpace(c.Param("id")),
			ActorID:      adminID,
			AssigneeID:   payload.AssigneeID,
			AssigneeName: payload.AssigneeName,
		})
		if err != nil {
			response.Error(c, err)
			return
		}

		response.Success(c, http.StatusOK, item)
	}
}

// Assignable lists the admins the current admin may assign work to.
func (h *AssignmentHandler) Assignable(c *gin.Context) {
	adminID, ok := actingAdmin(c)
	if !ok {
		return
	}

	admins, err := h.assignments.AssignableAdmins(requestContext(c), adminID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, admins, &response.Meta{Total: len(admins)})
}
