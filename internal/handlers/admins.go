package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/agencydesk/internal/services"
	"github.com/charlesng35/agencydesk/pkg/response"
)

// AdminHandler exposes the admin directory.
type AdminHandler struct {
	admins *services.AdminService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(admins *services.AdminService) *AdminHandler {
	return &AdminHandler{admins: admins}
}

// Me returns the admin behind the current token.
func (h *AdminHandler) Me(c *gin.Context) {
	adminID, ok := actingAdmin(c)
	if !ok {
		return
	}

	admin, err := h.admins.Get(requestContext(c), adminID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, admin)
}

// Create adds an admin account.
func (h *AdminHandler) Create(c *gin.Context) {
	adminID, ok := actingAdmin(c)
	if !ok {
		return
	}

	var payload services.CreateAdminInput
	if !bindAndValidate(c, &payload) {
		return
	}

	admin, err := h.admins.Create(requestContext(c), adminID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, admin)
}
