package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the agencydesk backend.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Email         EmailConfig         `mapstructure:"email"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	LogLevel       string   `mapstructure:"log_level"`
	LogFormat      string   `mapstructure:"log_format"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
	Pool     DBPoolConfig `mapstructure:"pool"`
}

// DBPoolConfig limits the shared connection pool.
type DBPoolConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures authentication-related settings.
type AuthConfig struct {
	JWT       JWTSettings    `mapstructure:"jwt"`
	Bootstrap BootstrapAdmin `mapstructure:"bootstrap"`
}

// JWTSettings configures admin access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// BootstrapAdmin names the superAdmin seeded on first start.
type BootstrapAdmin struct {
	Email string `mapstructure:"email"`
	Name  string `mapstructure:"name"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	Enabled  bool       `mapstructure:"enabled"`
	SiteName string     `mapstructure:"site_name"`
	AdminURL string     `mapstructure:"admin_url"`
	Timezone string     `mapstructure:"timezone"`
	SMTP     SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig controls the recurring reminder trigger.
type SchedulerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	ProjectID        string        `mapstructure:"project_id"`
	AllowedProjectID string        `mapstructure:"allowed_project_id"`
	BaseURL          string        `mapstructure:"base_url"`
	ReminderSpec     string        `mapstructure:"reminder_spec"`
	ExpirySpec       string        `mapstructure:"expiry_spec"`
	LeaseTTL         time.Duration `mapstructure:"lease_ttl"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

// NotificationsConfig tunes notification lifetime and reminder thresholds.
type NotificationsConfig struct {
	TTL               time.Duration `mapstructure:"ttl"`
	ReminderThreshold time.Duration `mapstructure:"reminder_threshold"`
	EmailConcurrency  int           `mapstructure:"email_concurrency"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// envBindings maps configuration keys to the plain environment variables used by the
// hosting platform, in addition to the AGENCYDESK_ prefixed forms.
var envBindings = map[string]string{
	"email.enabled":        "NEXT_PUBLIC_EMAIL_FLAG",
	"email.smtp.host":      "SMTP_HOST",
	"email.smtp.port":      "SMTP_PORT",
	"email.smtp.username":  "SMTP_USER",
	"email.smtp.password":  "SMTP_PASSWORD",
	"email.smtp.from":      "SMTP_FROM_EMAIL",
	"scheduler.project_id": "VERCEL_PROJECT_ID",
	"scheduler.base_url":   "VERCEL_URL",
}

const envPrefix = "AGENCYDESK"

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envBindings {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("config: bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	config.Scheduler.BaseURL = normaliseBaseURL(config.Scheduler.BaseURL)
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/agencydesk.sqlite")
	v.SetDefault("database.pool.max_open_conns", 10)
	v.SetDefault("database.pool.max_idle_conns", 5)
	v.SetDefault("database.pool.conn_max_lifetime", "30m")

	v.SetDefault("auth.jwt.issuer", "agencydesk")
	v.SetDefault("auth.jwt.access_token_ttl", "12h")

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.site_name", "Agency Admin")
	v.SetDefault("email.timezone", "UTC")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", false)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.reminder_spec", "0 9 * * 1")
	v.SetDefault("scheduler.expiry_spec", "@daily")
	v.SetDefault("scheduler.lease_ttl", "26h")
	v.SetDefault("scheduler.request_timeout", "2m")

	v.SetDefault("notifications.ttl", "48h")
	v.SetDefault("notifications.reminder_threshold", "168h")
	v.SetDefault("notifications.email_concurrency", 4)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// normaliseBaseURL turns a bare deployment host (as exported by the hosting platform)
// into an https URL without a trailing slash.
func normaliseBaseURL(raw string) string {
	value := strings.TrimRight(strings.TrimSpace(raw), "/")
	if value == "" {
		return ""
	}
	if !strings.Contains(value, "://") {
		value = "https://" + value
	}
	return value
}
