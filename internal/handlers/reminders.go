package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/agencydesk/internal/services"
	"github.com/charlesng35/agencydesk/pkg/logger"
	"github.com/charlesng35/agencydesk/pkg/response"
)

// ReminderRunner runs one reminder sweep.
type ReminderRunner interface {
	RunSweep(ctx context.Context) (services.SweepReport, error)
}

// ReminderHandler exposes the reminder sweep to the recurring trigger.
type ReminderHandler struct {
	reminders ReminderRunner
}

// NewReminderHandler constructs a ReminderHandler.
func NewReminderHandler(reminders ReminderRunner) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

// CheckInProgress creates reminder notifications for stale reviews and bugs, then emails the assignees.
func (h *ReminderHandler) CheckInProgress(c *gin.Context) {
	report, err := h.reminders.RunSweep(requestContext(c))
	if err != nil {
		if errors.Is(err, services.ErrEmailNotConfigured) {
			response.Failure(c, http.StatusInternalServerError, "Server configuration error", nil)
			return
		}
		logger.WithModule("reminders").Error("reminder sweep failed", zap.Error(err))
		response.Failure(c, http.StatusInternalServerError, "Failed to check in-progress items", err)
		return
	}

	response.Message(c, http.StatusOK, true, describeSweep(report))
}

func describeSweep(report services.SweepReport) string {
	summary := fmt.Sprintf("Created %d review and %d bug reminder notifications", report.ReviewReminders, report.BugReminders)
	emails := report.Emails
	if emails.Disabled {
		return summary + "; reminder emails are disabled"
	}
	return fmt.Sprintf("%s; sent %d of %d reminder emails (%d skipped, %d failed)",
		summary, emails.Sent, emails.Stale, emails.Skipped, emails.Failed)
}
