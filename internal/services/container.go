package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/agencydesk/internal/realtime"
	"github.com/charlesng35/agencydesk/internal/store"
	"github.com/charlesng35/agencydesk/pkg/mail"
)

// ContainerOptions tunes the service graph.
type ContainerOptions struct {
	Clock             Clock
	NotificationTTL   time.Duration
	ReminderThreshold time.Duration
	EmailConcurrency  int
	Email             EmailSettings
}

// Container wires every domain service around one store.
type Container struct {
	Store         *store.Store
	Notifications *NotificationService
	Admins        *AdminService
	WorkItems     *WorkItemService
	Assignments   *AssignmentService
	Email         *EmailService
	Reminders     *ReminderService
}

// NewContainer builds the service graph. publisher and mailer may be nil.
func NewContainer(db *gorm.DB, publisher realtime.Publisher, mailer mail.Mailer, opts ContainerOptions) (*Container, error) {
	if db == nil {
		return nil, errors.New("services: db is required")
	}

	st, err := store.New(db)
	if err != nil {
		return nil, err
	}

	notifications, err := NewNotificationService(st, publisher,
		WithNotificationClock(opts.Clock),
		WithNotificationTTL(opts.NotificationTTL),
	)
	if err != nil {
		return nil, err
	}

	admins, err := NewAdminService(st)
	if err != nil {
		return nil, err
	}

	workItems, err := NewWorkItemService(st, admins, notifications, opts.Clock)
	if err != nil {
		return nil, err
	}

	email := NewEmailService(mailer, opts.Email, WithEmailClock(opts.Clock))

	assignments, err := NewAssignmentService(st, admins, workItems, notifications, email, opts.Clock)
	if err != nil {
		return nil, err
	}

	reminders, err := NewReminderService(st, admins, notifications, email,
		WithReminderClock(opts.Clock),
		WithReminderThreshold(opts.ReminderThreshold),
		WithEmailConcurrency(opts.EmailConcurrency),
	)
	if err != nil {
		return nil, err
	}

	return &Container{
		Store:         st,
		Notifications: notifications,
		Admins:        admins,
		WorkItems:     workItems,
		Assignments:   assignments,
		Email:         email,
		Reminders:     reminders,
	}, nil
}
