package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsCreated counts stored notifications by type.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agencydesk_notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"type"},
	)

	// NotificationsExpired counts notifications removed by the lazy expiry sweep.
	NotificationsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agencydesk_notifications_expired_total",
			Help: "Total number of expired notifications deleted",
		},
	)

	// ReminderEmails counts reminder email outcomes (sent|skipped|failed).
	ReminderEmails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agencydesk_reminder_emails_total",
			Help: "Total number of reminder email dispatch outcomes",
		},
		[]string{"result"},
	)

	// SweepDuration measures reminder sweep latency by work item kind.
	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agencydesk_reminder_sweep_seconds",
			Help:    "Reminder sweep duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// RoleChecks counts role evaluations and their outcome (allowed|denied|error).
	RoleChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agencydesk_role_checks_total",
			Help: "Total number of admin role checks",
		},
		[]string{"role", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agencydesk_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
