package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/agencydesk/internal/services"
	"github.com/charlesng35/agencydesk/pkg/logger"
	"github.com/charlesng35/agencydesk/pkg/response"
	appValidator "github.com/charlesng35/agencydesk/pkg/validator"
)

// AssignmentMailer sends assignment emails.
type AssignmentMailer interface {
	CheckConfigured() error
	SendAssignmentEmail(ctx context.Context, req services.AssignmentEmail) (string, error)
}

// EmailHandler exposes assignment email delivery to the admin site.
type EmailHandler struct {
	email AssignmentMailer
}

// NewEmailHandler constructs an EmailHandler.
func NewEmailHandler(email AssignmentMailer) *EmailHandler {
	return &EmailHandler{email: email}
}

// SendAssignment emails the assignee of a review.
func (h *EmailHandler) SendAssignment(c *gin.Context) {
	if err := h.email.CheckConfigured(); err != nil {
		response.Failure(c, http.StatusInternalServerError, "Server configuration error", nil)
		return
	}

	var payload services.AssignmentEmail
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Failure(c, http.StatusBadRequest, "Missing required fields", nil)
		return
	}
	if err := appValidator.ValidateStruct(payload); err != nil {
		response.Failure(c, http.StatusBadRequest, "Missing required fields", nil)
		return
	}

	messageID, err := h.email.SendAssignmentEmail(requestContext(c), payload)
	switch {
	case errors.Is(err, services.ErrEmailDisabled):
		response.Message(c, http.StatusOK, false, "Email notifications are disabled")
	case errors.Is(err, services.ErrEmailNotConfigured):
		response.Failure(c, http.StatusInternalServerError, "Server configuration error", nil)
	case err != nil:
		logger.WithModule("email").Warn("assignment email failed", zap.String("recipient", payload.RecipientEmail), zap.Error(err))
		response.Failure(c, http.StatusInternalServerError, "Failed to send email", err)
	default:
		response.Sent(c, "Email sent successfully", messageID)
	}
}
