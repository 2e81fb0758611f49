package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/agencydesk/internal/database/testutil"
	"github.com/charlesng35/agencydesk/internal/models"
	"github.com/charlesng35/agencydesk/internal/realtime"
	"github.com/charlesng35/agencydesk/pkg/mail"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: testNow} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeMailer struct {
	mu        sync.Mutex
	sent      []mail.Message
	verified  int
	verifyErr error
	failFor   map[string]bool
}

func (m *fakeMailer) Verify(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verified++
	return m.verifyErr
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, to := range msg.To {
		if m.failFor[to] {
			return "", errors.New("smtp: mailbox unavailable")
		}
	}
	m.sent = append(m.sent, msg)
	return "<msg-" + time.Now().Format("150405.000000") + "@agency.example>", nil
}

func (m *fakeMailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages map[string][]realtime.Message
}

func (p *recordingPublisher) Publish(adminID string, message realtime.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = make(map[string][]realtime.Message)
	}
	p.messages[adminID] = append(p.messages[adminID], message)
}

func (p *recordingPublisher) For(adminID string) []realtime.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Message(nil), p.messages[adminID]...)
}

type testEnv struct {
	*Container
	clock     *testClock
	mailer    *fakeMailer
	publisher *recordingPublisher
}

type envOption func(*ContainerOptions)

func withEmail(enabled bool) envOption {
	return func(o *ContainerOptions) {
		o.Email = EmailSettings{
			Enabled:  enabled,
			Host:     "smtp.agency.example",
			Username: "mailer",
			Password: "secret",
			From:     "desk@agency.example",
		}
	}
}

func withEmailSettings(settings EmailSettings) envOption {
	return func(o *ContainerOptions) { o.Email = settings }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newTestClock()
	mailer := &fakeMailer{failFor: map[string]bool{}}
	publisher := &recordingPublisher{}

	options := ContainerOptions{Clock: clock.Now}
	for _, opt := range opts {
		opt(&options)
	}

	container, err := NewContainer(db, publisher, mailer, options)
	require.NoError(t, err)

	return &testEnv{Container: container, clock: clock, mailer: mailer, publisher: publisher}
}

func (e *testEnv) admin(t *testing.T, id, email, role string) models.Admin {
	t.Helper()
	admin := models.Admin{
		BaseModel: models.BaseModel{ID: id},
		Email:     email,
		FullName:  id + " name",
		Role:      role,
	}
	require.NoError(t, e.Store.Insert(context.Background(), &admin))
	return admin
}

func (e *testEnv) review(t *testing.T, mutate func(*models.Review)) models.Review {
	t.Helper()
	review := models.Review{
		FirstName:    "Grace",
		LastName:     "Hopper",
		Email:        "grace@client.example",
		Company:      "Navy",
		ClientStatus: models.ReviewStatusPending,
		Priority:     models.PriorityMedium,
	}
	if mutate != nil {
		mutate(&review)
	}
	require.NoError(t, e.Store.Insert(context.Background(), &review))
	return review
}

func (e *testEnv) bug(t *testing.T, mutate func(*models.Bug)) models.Bug {
	t.Helper()
	bug := models.Bug{
		Title:     "Checkout button misaligned",
		Status:    models.BugStatusUnresolved,
		Priority:  models.PriorityMedium,
		Timestamp: e.clock.Now(),
	}
	if mutate != nil {
		mutate(&bug)
	}
	require.NoError(t, e.Store.Insert(context.Background(), &bug))
	return bug
}

func (e *testEnv) notificationsFor(t *testing.T, adminID string) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, e.Store.DB().Where("admin_id = ?", adminID).Order("created_at").Find(&rows).Error)
	return rows
}

func ptr[T any](v T) *T { return &v }
