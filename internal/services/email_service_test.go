package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGreetingByHour(t *testing.T) {
	at := func(hour, minute int) time.Time { return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC) }

	require.Equal(t, "Good morning", greeting(at(0, 0)))
	require.Equal(t, "Good morning", greeting(at(11, 59)))
	require.Equal(t, "Good afternoon", greeting(at(12, 0)))
	require.Equal(t, "Good afternoon", greeting(at(16, 59)))
	require.Equal(t, "Good evening", greeting(at(17, 0)))
	require.Equal(t, "Good evening", greeting(at(23, 30)))
}

func TestEmailServiceCheckConfigured(t *testing.T) {
	mailer := &fakeMailer{}

	disabled := NewEmailService(mailer, EmailSettings{Enabled: false})
	require.NoError(t, disabled.CheckConfigured())
	require.False(t, disabled.Enabled())

	missing := NewEmailService(mailer, EmailSettings{Enabled: true, Host: "smtp.agency.example", From: "desk@agency.example"})
	require.ErrorIs(t, missing.CheckConfigured(), ErrEmailNotConfigured)

	_, err := missing.SendAssignmentEmail(context.Background(), AssignmentEmail{RecipientEmail: "a@agency.example", ReviewDetails: &ReviewDetails{}})
	require.ErrorIs(t, err, ErrEmailNotConfigured)
	require.Empty(t, mailer.Sent())

	var nilService *EmailService
	require.NoError(t, nilService.CheckConfigured())
	require.False(t, nilService.Enabled())
}

func TestSendAssignmentEmailRendersDetails(t *testing.T) {
	mailer := &fakeMailer{}
	clock := func() time.Time { return time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC) }
	svc := NewEmailService(mailer, EmailSettings{
		Enabled:  true,
		Host:     "smtp.agency.example",
		Username: "mailer",
		Password: "secret",
		From:     "desk@agency.example",
		AdminURL: "https://agency.example/admin",
	}, WithEmailClock(clock))

	id, err := svc.SendAssignmentEmail(context.Background(), AssignmentEmail{
		RecipientEmail: "a1@agency.example",
		RecipientName:  "Sam",
		AssignerName:   "Alex",
		ReviewDetails: &ReviewDetails{
			FirstName: "Grace",
			LastName:  "Hopper",
			Company:   "Navy <Ops>",
			Priority:  "highest",
			Message:   "Launch plan",
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	require.Equal(t, "New assignment: Grace Hopper", msg.Subject)
	require.Contains(t, msg.Body, "Good evening Sam")
	require.Contains(t, msg.Body, "Alex assigned you")
	require.Contains(t, msg.Body, "Priority: Highest")
	require.Contains(t, msg.Body, "https://agency.example/admin")
	require.Contains(t, msg.HTMLBody, "Navy &lt;Ops&gt;")
	require.Contains(t, msg.HTMLBody, "#b91c1c")
}

func TestSendAssignmentEmailRequiresRecipient(t *testing.T) {
	svc := NewEmailService(&fakeMailer{}, EmailSettings{
		Enabled: true, Host: "h", Username: "u", Password: "p", From: "desk@agency.example",
	})

	_, err := svc.SendAssignmentEmail(context.Background(), AssignmentEmail{RecipientEmail: "nope", ReviewDetails: &ReviewDetails{}})
	require.Error(t, err)
}
