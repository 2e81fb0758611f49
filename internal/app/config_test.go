package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/agencydesk/internal/auth"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, []string{"https://admin.example.com"}, cfg.Server.AllowedOrigins)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, "agencydesk", cfg.Auth.JWT.Issuer)
	require.Equal(t, "Owner@Example.com", cfg.Auth.Bootstrap.Email)

	require.True(t, cfg.Email.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, "smtp-user", cfg.Email.SMTP.Username)
	require.Equal(t, "smtp-pass", cfg.Email.SMTP.Password)
	require.Equal(t, "no-reply@example.com", cfg.Email.SMTP.From)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.Equal(t, "prj_live", cfg.Scheduler.AllowedProjectID)
	require.Equal(t, "https://example.vercel.app", cfg.Scheduler.BaseURL)
	require.Equal(t, "0 8 * * 1", cfg.Scheduler.ReminderSpec)
	require.Equal(t, "@daily", cfg.Scheduler.ExpirySpec)
	require.Equal(t, 30*time.Hour, cfg.Scheduler.LeaseTTL)

	require.Equal(t, 24*time.Hour, cfg.Notifications.TTL)
	require.Equal(t, 240*time.Hour, cfg.Notifications.ReminderThreshold)
	require.Equal(t, 2, cfg.Notifications.EmailConcurrency)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 10, cfg.Database.Pool.MaxOpenConns)
	require.Equal(t, 30*time.Minute, cfg.Database.Pool.ConnMaxLifetime)
	require.False(t, cfg.Email.Enabled)
	require.Equal(t, 587, cfg.Email.SMTP.Port)
	require.True(t, cfg.Scheduler.Enabled)
	require.Equal(t, "0 9 * * 1", cfg.Scheduler.ReminderSpec)
	require.Equal(t, 48*time.Hour, cfg.Notifications.TTL)
	require.Equal(t, 7*24*time.Hour, cfg.Notifications.ReminderThreshold)
	require.Equal(t, 12*time.Hour, cfg.Auth.JWT.TTL)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Empty(t, cfg.Scheduler.BaseURL)
}

func TestLoadConfigPlatformEnvironment(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.override.test")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("SMTP_USER", "mailer")
	t.Setenv("SMTP_PASSWORD", "hunter2")
	t.Setenv("SMTP_FROM_EMAIL", "office@override.test")
	t.Setenv("NEXT_PUBLIC_EMAIL_FLAG", "false")
	t.Setenv("VERCEL_PROJECT_ID", "prj_preview")
	t.Setenv("VERCEL_URL", "preview-123.vercel.app")

	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, "smtp.override.test", cfg.Email.SMTP.Host)
	require.Equal(t, 465, cfg.Email.SMTP.Port)
	require.Equal(t, "mailer", cfg.Email.SMTP.Username)
	require.Equal(t, "hunter2", cfg.Email.SMTP.Password)
	require.Equal(t, "office@override.test", cfg.Email.SMTP.From)
	require.False(t, cfg.Email.Enabled)
	require.Equal(t, "prj_preview", cfg.Scheduler.ProjectID)
	require.Equal(t, "https://preview-123.vercel.app", cfg.Scheduler.BaseURL)
}

func TestLoadConfigPrefixedEnvironment(t *testing.T) {
	t.Setenv("AGENCYDESK_SERVER_PORT", "7070")
	t.Setenv("AGENCYDESK_EMAIL_SMTP_HOST", "smtp.prefixed.test")
	t.Setenv("AGENCYDESK_NOTIFICATIONS_TTL", "12h")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "smtp.prefixed.test", cfg.Email.SMTP.Host)
	require.Equal(t, 12*time.Hour, cfg.Notifications.TTL)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: "secret", Issuer: "agencydesk"}}

	jwtCfg := cfg.JWTServiceConfig()
	require.Equal(t, "secret", jwtCfg.Secret)
	require.Equal(t, "agencydesk", jwtCfg.Issuer)
	require.Equal(t, auth.DefaultAccessTokenTTL, jwtCfg.AccessTokenTTL)

	cfg.JWT.TTL = time.Hour
	require.Equal(t, time.Hour, cfg.JWTServiceConfig().AccessTokenTTL)
}

func TestEmailConfigAdapters(t *testing.T) {
	cfg := EmailConfig{
		Enabled:  true,
		SiteName: "Example Agency",
		AdminURL: "https://example.com/admin/",
		Timezone: "America/New_York",
		SMTP: SMTPConfig{
			Host:     " smtp.example.com ",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
		},
	}

	smtp := cfg.SMTPSettings()
	require.True(t, smtp.Enabled)
	require.Equal(t, "smtp.example.com", smtp.Host)
	require.Equal(t, 2525, smtp.Port)

	settings, err := cfg.ServiceSettings()
	require.NoError(t, err)
	require.True(t, settings.Enabled)
	require.True(t, settings.Configured())
	require.Equal(t, "https://example.com/admin", settings.AdminURL)
	require.Equal(t, "America/New_York", settings.Location.String())

	cfg.SMTP.Host = ""
	require.False(t, cfg.SMTPSettings().Enabled)

	cfg.Timezone = "Mars/Olympus"
	_, err = cfg.ServiceSettings()
	require.Error(t, err)
}
