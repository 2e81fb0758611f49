package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/agencydesk/internal/app"
	iauth "github.com/charlesng35/agencydesk/internal/auth"
	"github.com/charlesng35/agencydesk/internal/handlers"
	"github.com/charlesng35/agencydesk/internal/middleware"
	"github.com/charlesng35/agencydesk/internal/monitoring"
	"github.com/charlesng35/agencydesk/internal/realtime"
	"github.com/charlesng35/agencydesk/internal/services"
)

// Dependencies bundles everything the router wires into handlers.
type Dependencies struct {
	Config    *app.Config
	DB        *gorm.DB
	JWT       *iauth.JWTService
	Services  *services.Container
	Hub       *realtime.Hub
	Scheduler handlers.CronStarter
	Health    *monitoring.HealthManager
}

func (d Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return fmt.Errorf("config must be provided")
	case d.DB == nil:
		return fmt.Errorf("database handle must be provided")
	case d.JWT == nil:
		return fmt.Errorf("jwt service must be provided")
	case d.Services == nil:
		return fmt.Errorf("service container must be provided")
	case d.Scheduler == nil:
		return fmt.Errorf("scheduler must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins...))

	registerHealthRoutes(r, cfg, deps.Health)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	svc := deps.Services

	// Site-facing trigger and email endpoints
	registerSiteRoutes(r.Group("/api"),
		handlers.NewReminderHandler(svc.Reminders),
		handlers.NewCronHandler(deps.Scheduler),
		handlers.NewEmailHandler(svc.Email),
	)

	// Public intake, throttled per client
	workItemHandler := handlers.NewWorkItemHandler(svc.WorkItems, svc.Assignments)
	intake := r.Group("/api")
	intake.Use(middleware.RateLimit(10, time.Minute))
	intake.POST("/reviews", workItemHandler.CreateReview)
	intake.POST("/bugs", workItemHandler.CreateBug)

	// Admin console
	admin := r.Group("/api/admin")
	admin.Use(middleware.Auth(deps.JWT))

	assignmentHandler := handlers.NewAssignmentHandler(svc.Assignments)
	registerAdminRoutes(admin, handlers.NewAdminHandler(svc.Admins), assignmentHandler, svc.Admins)
	if err := registerWorkItemRoutes(admin, workItemHandler, assignmentHandler); err != nil {
		return nil, err
	}
	registerNotificationRoutes(admin, handlers.NewNotificationHandler(svc.Notifications, deps.Hub))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
