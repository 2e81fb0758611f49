package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/agencydesk/internal/app/maintenance"
	"github.com/charlesng35/agencydesk/pkg/logger"
	"github.com/charlesng35/agencydesk/pkg/response"
)

// CronStarter registers the recurring reminder jobs.
type CronStarter interface {
	Start(ctx context.Context) (maintenance.StartStatus, error)
}

// CronHandler lets a deployment hook ensure the recurring reminder jobs are registered.
type CronHandler struct {
	scheduler CronStarter
}

// NewCronHandler constructs a CronHandler.
func NewCronHandler(scheduler CronStarter) *CronHandler {
	return &CronHandler{scheduler: scheduler}
}

var startMessages = map[maintenance.StartStatus]string{
	maintenance.StatusStarted:        "Cron job started successfully",
	maintenance.StatusAlreadyRunning: "Cron job is already running",
	maintenance.StatusHeldElsewhere:  "Cron job is already running on another instance",
	maintenance.StatusProjectGated:   "Cron job not started: not the production project",
	maintenance.StatusDisabled:       "Cron job is disabled",
}

// Start registers the jobs. It always answers 200; success reports whether reminders are scheduled.
func (h *CronHandler) Start(c *gin.Context) {
	status, err := h.scheduler.Start(requestContext(c))
	if err != nil {
		logger.WithModule("scheduler").Error("start cron failed", zap.Error(err))
		response.Message(c, http.StatusOK, false, "Failed to start cron job")
		return
	}

	message, ok := startMessages[status]
	if !ok {
		message = string(status)
	}
	response.Message(c, http.StatusOK, status.Active(), message)
}
