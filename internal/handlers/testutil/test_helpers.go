package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/agencydesk/internal/api"
	"github.com/charlesng35/agencydesk/internal/app"
	"github.com/charlesng35/agencydesk/internal/app/maintenance"
	iauth "github.com/charlesng35/agencydesk/internal/auth"
	sharedtestutil "github.com/charlesng35/agencydesk/internal/database/testutil"
	"github.com/charlesng35/agencydesk/internal/models"
	"github.com/charlesng35/agencydesk/internal/monitoring"
	"github.com/charlesng35/agencydesk/internal/monitoring/checks"
	"github.com/charlesng35/agencydesk/internal/realtime"
	"github.com/charlesng35/agencydesk/internal/services"
	"github.com/charlesng35/agencydesk/pkg/mail"
	"github.com/charlesng35/agencydesk/pkg/response"
)

// ConfiguredEmail returns email settings with every SMTP credential present.
func ConfiguredEmail(enabled bool) services.EmailSettings {
	return services.EmailSettings{
		Enabled:  enabled,
		Host:     "smtp.agency.example",
		Username: "mailer",
		Password: "secret",
		From:     "desk@agency.example",
		SiteName: "Agency Admin",
		AdminURL: "https://admin.agency.example",
		Location: time.UTC,
	}
}

// EnvOption customises NewEnv.
type EnvOption func(*envConfig)

type envConfig struct {
	email     services.EmailSettings
	scheduler maintenance.Config
}

// WithEmail sets the email settings used by the service container.
func WithEmail(settings services.EmailSettings) EnvOption {
	return func(cfg *envConfig) { cfg.email = settings }
}

// WithScheduler sets the scheduler configuration. Holder defaults to a random id.
func WithScheduler(sc maintenance.Config) EnvOption {
	return func(cfg *envConfig) { cfg.scheduler = sc }
}

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T         *testing.T
	DB        *gorm.DB
	Router    *gin.Engine
	JWT       *iauth.JWTService
	Services  *services.Container
	Scheduler *maintenance.Scheduler
	Hub       *realtime.Hub
	Mailer    *FakeMailer
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := envConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         jwtSecret,
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	mailer := &FakeMailer{}
	hub := realtime.NewHub()

	container, err := services.NewContainer(db, hub, mailer, services.ContainerOptions{Email: cfg.email})
	require.NoError(t, err)

	schedulerCfg := cfg.scheduler
	if schedulerCfg.Holder == "" {
		schedulerCfg.Holder = "test-" + uuid.NewString()
	}
	scheduler, err := maintenance.NewScheduler(db, container.Reminders, container.Notifications, schedulerCfg)
	require.NoError(t, err)
	t.Cleanup(func() { scheduler.Stop() })

	appCfg := &app.Config{}
	appCfg.Monitoring.Health.Enabled = true
	appCfg.Monitoring.Prometheus.Enabled = true
	appCfg.Monitoring.Prometheus.Endpoint = "/metrics"

	router, err := api.NewRouter(api.Dependencies{
		Config:    appCfg,
		DB:        db,
		JWT:       jwtSvc,
		Services:  container,
		Hub:       hub,
		Scheduler: scheduler,
		Health:    monitoring.NewHealthManager(checks.Database(db, 0)),
	})
	require.NoError(t, err)

	return &Env{
		T:         t,
		DB:        db,
		Router:    router,
		JWT:       jwtSvc,
		Services:  container,
		Scheduler: scheduler,
		Hub:       hub,
		Mailer:    mailer,
	}
}

// CreateAdmin inserts an admin with a random email and the given role.
func (e *Env) CreateAdmin(role, fullName string) *models.Admin {
	e.T.Helper()

	id := uuid.NewString()
	admin := &models.Admin{
		BaseModel: models.BaseModel{ID: id},
		Email:     "admin-" + id[:8] + "@agency.example",
		FullName:  fullName,
		Role:      role,
	}
	require.NoError(e.T, e.DB.Create(admin).Error)
	return admin
}

// Token issues an access token for admin.
func (e *Env) Token(admin *models.Admin) string {
	e.T.Helper()

	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{
		AdminID: admin.ID,
		Email:   admin.Email,
		Role:    admin.Role,
	})
	require.NoError(e.T, err)
	return token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// FakeMailer records messages instead of delivering them.
type FakeMailer struct {
	mu      sync.Mutex
	sent    []mail.Message
	SendErr error
}

// Verify always succeeds.
func (m *FakeMailer) Verify(context.Context) error { return nil }

// Send records msg, or fails with SendErr when set.
func (m *FakeMailer) Send(_ context.Context, msg mail.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return "", m.SendErr
	}
	if len(msg.To) == 0 {
		return "", errors.New("smtp: at least one recipient is required")
	}
	m.sent = append(m.sent, msg)
	return "<" + uuid.NewString() + "@agency.example>", nil
}

// Sent returns the recorded messages.
func (m *FakeMailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}
