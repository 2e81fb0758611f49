package maintenance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/agencydesk/internal/database"
	"github.com/charlesng35/agencydesk/internal/services"
	"github.com/charlesng35/agencydesk/pkg/logger"
)

const (
	defaultReminderSpec   = "0 9 * * 1"
	defaultExpirySpec     = "@daily"
	defaultLeaseTTL       = 26 * time.Hour
	defaultRequestTimeout = 2 * time.Minute

	// ReminderPath is the HTTP entry point of the reminder sweep.
	ReminderPath = "/api/check-in-progress"
)

// StartStatus describes the outcome of a Start call.
type StartStatus string

const (
	StatusStarted        StartStatus = "started"
	StatusAlreadyRunning StartStatus = "already-running"
	StatusHeldElsewhere  StartStatus = "held-elsewhere"
	StatusProjectGated   StartStatus = "project-gated"
	StatusDisabled       StartStatus = "disabled"
)

// Active reports whether reminders are being scheduled by some instance after the call.
func (s StartStatus) Active() bool {
	switch s {
	case StatusStarted, StatusAlreadyRunning, StatusHeldElsewhere:
		return true
	default:
		return false
	}
}

// ReminderSweeper runs the reminder sweep in-process.
type ReminderSweeper interface {
	RunSweep(ctx context.Context) (services.SweepReport, error)
}

// NotificationPurger removes expired notifications.
type NotificationPurger interface {
	DeleteExpiredNotifications(ctx context.Context) (int64, error)
}

// Config controls scheduler registration.
type Config struct {
	Enabled          bool
	ProjectID        string
	AllowedProjectID string
	// BaseURL, when set, makes the reminder job call the deployed HTTP entry point
	// instead of sweeping in-process.
	BaseURL        string
	ReminderSpec   string
	ExpirySpec     string
	LeaseTTL       time.Duration
	RequestTimeout time.Duration
	Holder         string
}

// Scheduler registers the recurring reminder and expiry jobs. Registration happens at most
// once per process and only on the instance holding the durable scheduler lease.
type Scheduler struct {
	db            *gorm.DB
	reminders     ReminderSweeper
	notifications NotificationPurger
	cfg           Config
	cron          *cron.Cron
	client        *http.Client
	now           func() time.Time
	log           *zap.Logger

	mu      sync.Mutex
	started bool
	entries []cron.EntryID
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for lease expiry.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithHTTPClient overrides the client used to call the reminder entry point.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scheduler) {
		if client != nil {
			s.client = client
		}
	}
}

// NewScheduler constructs a Scheduler. reminders is required; notifications may be nil, in
// which case the expiry job is not registered.
func NewScheduler(db *gorm.DB, reminders ReminderSweeper, notifications NotificationPurger, cfg Config, opts ...Option) (*Scheduler, error) {
	if db == nil {
		return nil, errors.New("scheduler: db is required")
	}
	if reminders == nil {
		return nil, errors.New("scheduler: reminder sweeper is required")
	}
	if strings.TrimSpace(cfg.Holder) == "" {
		return nil, errors.New("scheduler: lease holder is required")
	}

	if strings.TrimSpace(cfg.ReminderSpec) == "" {
		cfg.ReminderSpec = defaultReminderSpec
	}
	if strings.TrimSpace(cfg.ExpirySpec) == "" {
		cfg.ExpirySpec = defaultExpirySpec
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = defaultLeaseTTL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	s := &Scheduler{
		db:            db,
		reminders:     reminders,
		notifications: notifications,
		cfg:           cfg,
		now:           time.Now,
		log:           logger.WithModule("scheduler"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return s, nil
}

// Start registers the recurring jobs when this instance is allowed to run them.
func (s *Scheduler) Start(ctx context.Context) (StartStatus, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return StatusAlreadyRunning, nil
	}
	if !s.cfg.Enabled {
		return StatusDisabled, nil
	}
	if allowed := strings.TrimSpace(s.cfg.AllowedProjectID); allowed != "" && strings.TrimSpace(s.cfg.ProjectID) != allowed {
		s.log.Info("scheduler not started outside the allowed project",
			zap.String("project_id", s.cfg.ProjectID),
			zap.String("allowed_project_id", allowed),
		)
		return StatusProjectGated, nil
	}

	acquired, err := s.renewLease(ctx)
	if err != nil {
		return "", err
	}
	if !acquired {
		s.log.Info("scheduler lease held by another instance")
		return StatusHeldElsewhere, nil
	}

	reminderID, err := s.cron.AddFunc(s.cfg.ReminderSpec, s.job("reminder", s.triggerReminders))
	if err != nil {
		return "", fmt.Errorf("scheduler: add reminder job: %w", err)
	}
	s.entries = append(s.entries[:0], reminderID)
	if s.notifications != nil {
		expiryID, err := s.cron.AddFunc(s.cfg.ExpirySpec, s.job("expiry", s.purgeExpired))
		if err != nil {
			s.removeEntries()
			return "", fmt.Errorf("scheduler: add expiry job: %w", err)
		}
		s.entries = append(s.entries, expiryID)
	}

	s.cron.Start()
	s.started = true
	s.log.Info("scheduler started",
		zap.String("reminder_spec", s.cfg.ReminderSpec),
		zap.String("holder", s.cfg.Holder),
	)
	return StatusStarted, nil
}

// Started reports whether this process registered the jobs.
func (s *Scheduler) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Entries returns the number of jobs currently registered with cron.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete, and
// releases the lease so another instance can take over. The returned context is always
// done once Stop returns.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	started := s.started
	s.started = false
	if started {
		s.removeEntries()
	}
	s.mu.Unlock()

	if !started {
		done, cancel := context.WithCancel(context.Background())
		cancel()
		return done
	}

	done := s.cron.Stop()
	<-done.Done()

	if err := database.ReleaseLease(context.Background(), s.db, database.SchedulerLeaseSetting, s.cfg.Holder); err != nil {
		s.log.Warn("release scheduler lease failed", zap.Error(err))
	}
	return done
}

func (s *Scheduler) removeEntries() {
	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = s.entries[:0]
}

// RunOnce executes the reminder and expiry jobs sequentially. Primarily used in tests and
// for manual triggers.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if err := s.triggerReminders(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if s.notifications != nil {
		if err := s.purgeExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// job wraps fn so each run first renews the lease and skips when it was lost.
func (s *Scheduler) job(name string, fn func(context.Context) error) func() {
	return func() {
		ctx := context.Background()
		held, err := s.renewLease(ctx)
		if err != nil {
			s.log.Warn("scheduler lease renewal failed", zap.String("job", name), zap.Error(err))
			return
		}
		if !held {
			s.log.Warn("scheduler lease lost; skipping job", zap.String("job", name))
			return
		}
		if err := fn(ctx); err != nil {
			s.log.Warn("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	}
}

func (s *Scheduler) renewLease(ctx context.Context) (bool, error) {
	acquired, err := database.AcquireLease(ctx, s.db, database.SchedulerLeaseSetting, s.cfg.Holder, s.cfg.LeaseTTL, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("scheduler: acquire lease: %w", err)
	}
	return acquired, nil
}

func (s *Scheduler) triggerReminders(ctx context.Context) error {
	if s.cfg.BaseURL == "" {
		report, err := s.reminders.RunSweep(ctx)
		if err != nil {
			return fmt.Errorf("scheduler: reminder sweep: %w", err)
		}
		s.log.Info("reminder sweep completed",
			zap.Int("review_reminders", report.ReviewReminders),
			zap.Int("bug_reminders", report.BugReminders),
			zap.Int("emails_sent", report.Emails.Sent),
		)
		return nil
	}

	endpoint := s.cfg.BaseURL + ReminderPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("scheduler: build reminder request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("scheduler: call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("scheduler: %s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	s.log.Info("reminder endpoint triggered", zap.String("url", endpoint), zap.Int("status", resp.StatusCode))
	return nil
}

func (s *Scheduler) purgeExpired(ctx context.Context) error {
	removed, err := s.notifications.DeleteExpiredNotifications(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: purge expired notifications: %w", err)
	}
	if removed > 0 {
		s.log.Info("expired notifications purged", zap.Int64("count", removed))
	}
	return nil
}
