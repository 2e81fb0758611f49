package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/charlesng35/agencydesk/internal/models"
	"github.com/charlesng35/agencydesk/internal/store"
	"github.com/charlesng35/agencydesk/pkg/logger"
	"github.com/charlesng35/agencydesk/pkg/metrics"
	"github.com/charlesng35/agencydesk/pkg/validator"
)

const (
	// DefaultReminderThreshold is how long an item may sit in a monitored state before it is due.
	DefaultReminderThreshold = 7 * 24 * time.Hour
	defaultEmailConcurrency  = 4
	day                      = 24 * time.Hour
)

// ReminderEmailReport summarises one reminder email dispatch.
type ReminderEmailReport struct {
	Stale    int  `json:"stale"`
	Sent     int  `json:"sent"`
	Skipped  int  `json:"skipped"`
	Failed   int  `json:"failed"`
	Disabled bool `json:"disabled"`
}

// SweepReport summarises a full reminder sweep.
type SweepReport struct {
	ReviewReminders int                 `json:"review_reminders"`
	BugReminders    int                 `json:"bug_reminders"`
	Emails          ReminderEmailReport `json:"emails"`
}

// ReminderOption customises a ReminderService.
type ReminderOption func(*ReminderService)

// WithReminderClock overrides the time source.
func WithReminderClock(clock Clock) ReminderOption {
	return func(s *ReminderService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithReminderThreshold overrides the staleness threshold.
func WithReminderThreshold(threshold time.Duration) ReminderOption {
	return func(s *ReminderService) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// WithEmailConcurrency bounds parallel reminder email sends.
func WithEmailConcurrency(limit int) ReminderOption {
	return func(s *ReminderService) {
		if limit > 0 {
			s.concurrency = limit
		}
	}
}

// ReminderService finds stale in-progress reviews and unresolved bugs and reminds their assignees.
type ReminderService struct {
	store         *store.Store
	admins        *AdminService
	notifications *NotificationService
	email         *EmailService
	now           Clock
	threshold     time.Duration
	concurrency   int
	log           *zap.Logger
}

// NewReminderService constructs a ReminderService. email may be nil.
func NewReminderService(st *store.Store, admins *AdminService, notifications *NotificationService, email *EmailService, opts ...ReminderOption) (*ReminderService, error) {
	if st == nil || admins == nil || notifications == nil {
		return nil, errors.New("reminder service: store, admins and notifications are required")
	}
	svc := &ReminderService{
		store:         st,
		admins:        admins,
		notifications: notifications,
		email:         email,
		threshold:     DefaultReminderThreshold,
		concurrency:   defaultEmailConcurrency,
		log:           logger.WithModule("reminders"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckInProgressReminders creates a reminder notification for every assigned review that has been
// In Progress for at least the threshold. It returns the number of notifications created.
func (s *ReminderService) CheckInProgressReminders(ctx context.Context) (int, error) {
	now := nowFrom(s.now)
	return s.remind(ensureContext(ctx), models.KindReview, now)
}

// CheckUnresolvedBugReminders creates a bug-reminder notification for every assigned bug that has been
// unresolved for at least the threshold.
func (s *ReminderService) CheckUnresolvedBugReminders(ctx context.Context) (int, error) {
	now := nowFrom(s.now)
	return s.remind(ensureContext(ctx), models.KindBug, now)
}

func (s *ReminderService) remind(ctx context.Context, kind models.WorkItemKind, now time.Time) (int, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	items, err := s.staleItems(ctx, kind, now)
	if err != nil {
		s.log.Error("reminder query failed", zap.String("kind", string(kind)), zap.Error(err))
		return 0, err
	}

	created := 0
	for _, item := range items {
		if _, ok := s.notifications.CreateReminderNotification(ctx, item.AssignedTo, item, daysSince(item.MonitoredSince, now)); ok {
			created++
		}
	}

	s.log.Info("reminder sweep finished",
		zap.String("kind", string(kind)),
		zap.Int("stale", len(items)),
		zap.Int("created", created),
	)
	return created, nil
}

// SendReminderEmails emails the assignee of every stale review and bug. The SMTP connection is verified
// once; sends run concurrently and a failed send never aborts the others.
func (s *ReminderService) SendReminderEmails(ctx context.Context) (ReminderEmailReport, error) {
	ctx = ensureContext(ctx)
	now := nowFrom(s.now)
	return s.sendReminderEmails(ctx, now)
}

type reminderDelivery struct {
	admin models.Admin
	item  WorkItem
}

func (s *ReminderService) sendReminderEmails(ctx context.Context, now time.Time) (ReminderEmailReport, error) {
	var report ReminderEmailReport
	if err := s.email.CheckConfigured(); err != nil {
		return report, err
	}
	if !s.email.Enabled() {
		report.Disabled = true
		return report, nil
	}

	var items []WorkItem
	for _, kind := range []models.WorkItemKind{models.KindReview, models.KindBug} {
		stale, err := s.staleItems(ctx, kind, now)
		if err != nil {
			return report, err
		}
		items = append(items, stale...)
	}
	report.Stale = len(items)
	if len(items) == 0 {
		return report, nil
	}

	directory, err := s.admins.Directory(ctx)
	if err != nil {
		return report, fmt.Errorf("reminder service: load admins: %w", err)
	}

	deliveries := make([]reminderDelivery, 0, len(items))
	for _, item := range items {
		admin, ok := directory[item.AssignedTo]
		if !ok {
			s.log.Warn("reminder skipped: assignee not found",
				zap.String("item_id", item.ID),
				zap.String("assignee_id", item.AssignedTo),
			)
			report.Skipped++
			metrics.ReminderEmails.WithLabelValues("skipped").Inc()
			continue
		}
		if !validator.IsEmail(admin.Email) {
			s.log.Warn("reminder skipped: assignee has no valid email",
				zap.String("item_id", item.ID),
				zap.String("assignee_id", admin.ID),
			)
			report.Skipped++
			metrics.ReminderEmails.WithLabelValues("skipped").Inc()
			continue
		}
		deliveries = append(deliveries, reminderDelivery{admin: admin, item: item})
	}
	if len(deliveries) == 0 {
		return report, nil
	}

	if err := s.email.Verify(ctx); err != nil {
		s.log.Error("smtp verification failed", zap.Error(err))
		return report, err
	}

	var (
		mu      sync.Mutex
		sendErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, d := range deliveries {
		g.Go(func() error {
			_, err := s.email.SendReminderEmail(gctx, ReminderEmail{
				RecipientEmail: d.admin.Email,
				RecipientName:  d.admin.DisplayName(),
				Item:           d.item,
				Days:           daysSince(d.item.MonitoredSince, now),
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				sendErr = multierr.Append(sendErr, fmt.Errorf("%s %s: %w", d.item.Kind, d.item.ID, err))
				metrics.ReminderEmails.WithLabelValues("failed").Inc()
				return nil
			}
			report.Sent++
			metrics.ReminderEmails.WithLabelValues("sent").Inc()
			return nil
		})
	}
	_ = g.Wait()

	if sendErr != nil {
		s.log.Warn("some reminder emails failed", zap.Int("failed", report.Failed), zap.Error(sendErr))
	}
	s.log.Info("reminder emails dispatched",
		zap.Int("stale", report.Stale),
		zap.Int("sent", report.Sent),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// RunSweep creates reminder notifications for reviews and bugs and then emails the assignees.
// Email configuration is checked before anything is written.
func (s *ReminderService) RunSweep(ctx context.Context) (SweepReport, error) {
	ctx = ensureContext(ctx)
	var report SweepReport
	if err := s.email.CheckConfigured(); err != nil {
		return report, err
	}

	now := nowFrom(s.now)
	reviews, err := s.remind(ctx, models.KindReview, now)
	if err != nil {
		return report, err
	}
	report.ReviewReminders = reviews

	bugs, err := s.remind(ctx, models.KindBug, now)
	if err != nil {
		return report, err
	}
	report.BugReminders = bugs

	emails, err := s.sendReminderEmails(ctx, now)
	report.Emails = emails
	if err != nil {
		return report, err
	}
	return report, nil
}

func (s *ReminderService) staleItems(ctx context.Context, kind models.WorkItemKind, now time.Time) ([]WorkItem, error) {
	cutoff := now.Add(-s.threshold)

	switch kind {
	case models.KindReview:
		var rows []models.Review
		if err := s.store.Find(ctx, &rows, store.Where(
			store.Eq("client_status", models.ReviewStatusInProgress),
			store.Lte("in_progress_started_at", cutoff),
			store.NotNull("assigned_to"),
		)); err != nil {
			return nil, fmt.Errorf("reminder service: query stale reviews: %w", err)
		}
		items := make([]WorkItem, 0, len(rows))
		for _, row := range rows {
			if row.IsAssigned() {
				items = append(items, reviewItem(row))
			}
		}
		return items, nil
	case models.KindBug:
		var rows []models.Bug
		if err := s.store.Find(ctx, &rows, store.Where(
			store.Eq("status", models.BugStatusUnresolved),
			store.Lte("timestamp", cutoff),
			store.NotNull("assigned_to"),
		)); err != nil {
			return nil, fmt.Errorf("reminder service: query stale bugs: %w", err)
		}
		items := make([]WorkItem, 0, len(rows))
		for _, row := range rows {
			if row.IsAssigned() {
				items = append(items, bugItem(row))
			}
		}
		return items, nil
	default:
		return nil, ErrInvalidWorkItemKind
	}
}

func daysSince(since *time.Time, now time.Time) int {
	if since == nil {
		return 0
	}
	return int(now.Sub(*since) / day)
}
