package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/agencydesk/internal/handlers"
	"github.com/charlesng35/agencydesk/internal/middleware"
)

func registerSiteRoutes(api *gin.RouterGroup, reminders *handlers.ReminderHandler, cron *handlers.CronHandler, email *handlers.EmailHandler) {
	api.GET("/check-in-progress", reminders.CheckInProgress)
	api.POST("/check-in-progress", reminders.CheckInProgress)

	api.GET("/start-cron", cron.Start)
	api.POST("/start-cron", cron.Start)

	api.POST("/send-assignment-email", middleware.RateLimit(30, time.Minute), email.SendAssignment)
}
