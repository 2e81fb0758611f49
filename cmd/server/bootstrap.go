package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/agencydesk/internal/api"
	"github.com/charlesng35/agencydesk/internal/app"
	"github.com/charlesng35/agencydesk/internal/app/maintenance"
	iauth "github.com/charlesng35/agencydesk/internal/auth"
	"github.com/charlesng35/agencydesk/internal/database"
	"github.com/charlesng35/agencydesk/internal/monitoring"
	"github.com/charlesng35/agencydesk/internal/monitoring/checks"
	"github.com/charlesng35/agencydesk/internal/realtime"
	"github.com/charlesng35/agencydesk/internal/services"
	"github.com/charlesng35/agencydesk/pkg/logger"
	"github.com/charlesng35/agencydesk/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Services  *services.Container
	Hub       *realtime.Hub
	Scheduler *maintenance.Scheduler
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, services, scheduler, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	emailSettings, err := cfg.Email.ServiceSettings()
	if err != nil {
		return nil, fmt.Errorf("email settings: %w", err)
	}
	if emailSettings.Enabled && !emailSettings.Configured() {
		log.Warn("email is enabled but SMTP is not configured; email endpoints will answer with a configuration error")
	}

	stack.Hub = realtime.NewHub(cfg.Server.AllowedOrigins...)

	stack.Services, err = services.NewContainer(stack.DB, stack.Hub, mailer, services.ContainerOptions{
		NotificationTTL:   cfg.Notifications.TTL,
		ReminderThreshold: cfg.Notifications.ReminderThreshold,
		EmailConcurrency:  cfg.Notifications.EmailConcurrency,
		Email:             emailSettings,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	stack.Scheduler, err = maintenance.NewScheduler(stack.DB, stack.Services.Reminders, stack.Services.Notifications, maintenance.Config{
		Enabled:          cfg.Scheduler.Enabled,
		ProjectID:        cfg.Scheduler.ProjectID,
		AllowedProjectID: cfg.Scheduler.AllowedProjectID,
		BaseURL:          cfg.Scheduler.BaseURL,
		ReminderSpec:     cfg.Scheduler.ReminderSpec,
		ExpirySpec:       cfg.Scheduler.ExpirySpec,
		LeaseTTL:         cfg.Scheduler.LeaseTTL,
		RequestTimeout:   cfg.Scheduler.RequestTimeout,
		Holder:           app.InstanceID(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("initialise scheduler: %w", err)
	}

	status, err := stack.Scheduler.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("start scheduler: %w", err)
	}
	log.Info("reminder scheduler", zap.String("status", string(status)))

	health := monitoring.NewHealthManager(
		checks.Database(stack.DB, 0),
		checks.SchedulerLease(stack.DB, nil),
	)

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:    cfg,
		DB:        stack.DB,
		JWT:       jwtSvc,
		Services:  stack.Services,
		Hub:       stack.Hub,
		Scheduler: stack.Scheduler,
		Health:    health,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Scheduler != nil {
		if stopCtx := s.Scheduler.Stop(); stopCtx != nil {
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
				log.Warn("scheduler shutdown interrupted", zap.Error(ctx.Err()))
			}
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	seed := database.SeedOptions{
		AdminEmail: strings.TrimSpace(cfg.Auth.Bootstrap.Email),
		AdminName:  strings.TrimSpace(cfg.Auth.Bootstrap.Name),
	}
	if err := database.AutoMigrateAndSeed(db, seed); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
		Pool: database.PoolConfig{
			MaxOpenConns:    cfg.Database.Pool.MaxOpenConns,
			MaxIdleConns:    cfg.Database.Pool.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.Pool.ConnMaxLifetime,
		},
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
