package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/agencydesk/internal/realtime"
	"github.com/charlesng35/agencydesk/internal/services"
	"github.com/charlesng35/agencydesk/pkg/errors"
	"github.com/charlesng35/agencydesk/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for notifications.
type NotificationHandler struct {
	service *services.NotificationService
	hub     *realtime.Hub
}

// NewNotificationHandler constructs a notification handler. hub may be nil, which disables streaming.
func NewNotificationHandler(service *services.NotificationService, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{service: service, hub: hub}
}

// List returns notifications for the current admin, newest first, with the unread count in meta.
func (h *NotificationHandler) List(c *gin.Context) {
	adminID, ok := actingAdmin(c)
	if !ok {
		return
	}

	items, err := h.service.GetNotifications(requestContext(c), adminID)
	if err != nil {
		response.Error(c, err)
		return
	}

	unread := 0
	for _, item := range items {
		if !item.IsRead {
			unread++
		}
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{Total: len(items), Unread: unread})
}

// UnreadCount returns the number of unread notifications for the current admin.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	adminID, ok := actingAdmin(c)
	if !ok {
		return
	}

	count, err := h.service.GetUnreadNotificationCount(requestContext(c), adminID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"count": count})
}

// MarkRead marks a notification read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	adminID, ok := actingAdmin(c)
	if !ok {
		return
	}

	dto, err := h.service.MarkRead(requestContext(c), adminID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// MarkAllRead marks all notifications of the current admin read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	adminID, ok := actingAdmin(c)
	if !ok {
		return
	}

	updated, err := h.service.MarkAllRead(requestContext(c), adminID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}

// Delete removes a notification. Deleting one that no longer exists succeeds.
func (h *NotificationHandler) Delete(c *gin.Context) {
	adminID, ok := actingAdmin(c)
	if !ok {
		return
	}

	if !h.service.DeleteNotificationFor(requestContext(c), adminID, strings.TrimSpace(c.Param("id"))) {
		response.Error(c, errors.ErrInternalServer.WithMessage("Failed to delete notification"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// DeleteAll removes every notification of the current admin.
func (h *NotificationHandler) DeleteAll(c *gin.Context) {
	adminID, ok := actingAdmin(c)
	if !ok {
		return
	}

	if !h.service.DeleteAllNotifications(requestContext(c), adminID) {
		response.Error(c, errors.ErrInternalServer.WithMessage("Failed to delete notifications"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Stream upgrades the connection to a WebSocket for notification streaming.
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	adminID, ok := actingAdmin(c)
	if !ok {
		return
	}

	h.hub.Serve(adminID, c.Writer, c.Request)
}
