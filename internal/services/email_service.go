package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/agencydesk/pkg/logger"
	"github.com/charlesng35/agencydesk/pkg/mail"
	"github.com/charlesng35/agencydesk/pkg/validator"
)

// ErrEmailDisabled is returned when email sending is switched off by configuration.
var ErrEmailDisabled = errors.New("email service: delivery disabled")

// EmailSettings captures what the email collaborator needs beyond the mailer itself.
type EmailSettings struct {
	Enabled  bool
	Host     string
	Username string
	Password string
	From     string
	SiteName string
	AdminURL string
	Location *time.Location
}

// Configured reports whether every required SMTP credential is present.
func (s EmailSettings) Configured() bool {
	for _, value := range []string{s.Host, s.Username, s.Password, s.From} {
		if strings.TrimSpace(value) == "" {
			return false
		}
	}
	return true
}

// ReviewDetails is the work item summary rendered into assignment emails.
type ReviewDetails struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Company      string `json:"company"`
	Phone        string `json:"phone"`
	Message      string `json:"message"`
	Title        string `json:"title"`
	Priority     string `json:"priority"`
	ClientStatus string `json:"clientStatus"`
}

// AssignmentEmail is a request to tell an admin about a new assignment.
type AssignmentEmail struct {
	RecipientEmail string         `json:"recipientEmail" validate:"required,email"`
	RecipientName  string         `json:"recipientName"`
	AssignerName   string         `json:"assignerName"`
	ReviewDetails  *ReviewDetails `json:"reviewDetails" validate:"required"`
}

// ReminderEmail is one overdue-item reminder.
type ReminderEmail struct {
	RecipientEmail string
	RecipientName  string
	Item           WorkItem
	Days           int
}

// EmailOption customises an EmailService.
type EmailOption func(*EmailService)

// WithEmailClock overrides the time source used for greetings.
func WithEmailClock(clock Clock) EmailOption {
	return func(s *EmailService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// EmailService renders and sends assignment and reminder emails.
type EmailService struct {
	mailer mail.Mailer
	cfg    EmailSettings
	now    Clock
	log    *zap.Logger
}

// NewEmailService constructs an EmailService. A nil mailer behaves as disabled.
func NewEmailService(mailer mail.Mailer, cfg EmailSettings, opts ...EmailOption) *EmailService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cfg.SiteName = defaultIfEmpty(cfg.SiteName, "Agency Desk")
	svc := &EmailService{
		mailer: mailer,
		cfg:    cfg,
		log:    logger.WithModule("email"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Enabled reports whether emails should be sent at all.
func (s *EmailService) Enabled() bool {
	return s != nil && s.cfg.Enabled && s.mailer != nil
}

// CheckConfigured returns ErrEmailNotConfigured when sending is enabled but SMTP credentials are missing.
func (s *EmailService) CheckConfigured() error {
	if s == nil || !s.cfg.Enabled {
		return nil
	}
	if s.mailer == nil || !s.cfg.Configured() {
		return ErrEmailNotConfigured
	}
	return nil
}

// Verify checks the SMTP connection and credentials without sending.
func (s *EmailService) Verify(ctx context.Context) error {
	if err := s.CheckConfigured(); err != nil {
		return err
	}
	if !s.Enabled() {
		return ErrEmailDisabled
	}
	if err := s.mailer.Verify(ensureContext(ctx)); err != nil {
		return fmt.Errorf("email service: verify smtp: %w", err)
	}
	return nil
}

// SendAssignmentEmail delivers an assignment email and returns its message id.
func (s *EmailService) SendAssignmentEmail(ctx context.Context, req AssignmentEmail) (string, error) {
	if err := s.CheckConfigured(); err != nil {
		return "", err
	}
	if !s.Enabled() {
		return "", ErrEmailDisabled
	}
	req.RecipientEmail = strings.TrimSpace(req.RecipientEmail)
	if req.ReviewDetails == nil || !validator.IsEmail(req.RecipientEmail) {
		return "", fmt.Errorf("email service: recipient email and review details are required")
	}

	view := assignmentView{
		Greeting:      greeting(nowFrom(s.now).In(s.cfg.Location)),
		RecipientName: defaultIfEmpty(req.RecipientName, "there"),
		AssignerName:  defaultIfEmpty(req.AssignerName, "An admin"),
		Details:       *req.ReviewDetails,
		Priority:      priorityBadgeFor(req.ReviewDetails.Priority),
		SiteName:      s.cfg.SiteName,
		AdminURL:      s.cfg.AdminURL,
	}
	subject := fmt.Sprintf("New assignment: %s", view.subjectLabel())

	return s.deliver(ctx, req.RecipientEmail, subject, assignmentText, assignmentHTML, view)
}

// SendReminderEmail delivers one overdue-item reminder and returns its message id.
func (s *EmailService) SendReminderEmail(ctx context.Context, req ReminderEmail) (string, error) {
	if !s.Enabled() {
		return "", ErrEmailDisabled
	}

	view := reminderView{
		Greeting:      greeting(nowFrom(s.now).In(s.cfg.Location)),
		RecipientName: defaultIfEmpty(req.RecipientName, "there"),
		Item:          req.Item,
		Label:         req.Item.Label(),
		Days:          req.Days,
		Priority:      priorityBadgeFor(req.Item.Priority),
		SiteName:      s.cfg.SiteName,
		AdminURL:      s.cfg.AdminURL,
	}
	subject := fmt.Sprintf("Reminder: %s has been waiting %d days", view.Label, req.Days)

	return s.deliver(ctx, req.RecipientEmail, subject, reminderText, reminderHTML, view)
}

func (s *EmailService) deliver(ctx context.Context, to, subject string, text textRenderer, html htmlRenderer, view any) (string, error) {
	plain, err := renderText(text, view)
	if err != nil {
		return "", fmt.Errorf("email service: render text: %w", err)
	}
	rich, err := renderHTML(html, view)
	if err != nil {
		return "", fmt.Errorf("email service: render html: %w", err)
	}

	id, err := s.mailer.Send(ensureContext(ctx), mail.Message{
		To:       []string{to},
		Subject:  subject,
		Body:     plain,
		HTMLBody: rich,
	})
	if err != nil {
		if errors.Is(err, mail.ErrSMTPDisabled) {
			return "", ErrEmailDisabled
		}
		return "", fmt.Errorf("email service: send to %s: %w", to, err)
	}

	s.log.Debug("email sent", zap.String("to", to), zap.String("message_id", id))
	return id, nil
}

// greeting picks the salutation for t's hour of day.
func greeting(t time.Time) string {
	switch hour := t.Hour(); {
	case hour < 12:
		return "Good morning"
	case hour < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
