package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/agencydesk/internal/models"
	"github.com/charlesng35/agencydesk/internal/realtime"
)

func TestCreateNotificationRequiresFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []CreateNotificationInput{
		{Title: "t", Message: "m"},
		{AdminID: "a1", Message: "m"},
		{AdminID: "a1", Title: "t", Message: "   "},
	}
	for _, input := range cases {
		id, ok := env.Notifications.CreateNotification(ctx, input)
		require.False(t, ok)
		require.Empty(t, id)
	}

	var count int64
	require.NoError(t, env.Store.DB().Model(&models.Notification{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateNotificationSetsExpiry(t *testing.T) {
	env := newTestEnv(t)

	id, ok := env.Notifications.CreateNotification(context.Background(), CreateNotificationInput{
		AdminID: "a1",
		Type:    models.NotificationReminder,
		Title:   "Reminder",
		Message: "Follow up",
	})
	require.True(t, ok)
	require.NotEmpty(t, id)

	rows := env.notificationsFor(t, "a1")
	require.Len(t, rows, 1)
	require.True(t, rows[0].CreatedAt.Equal(testNow))
	require.True(t, rows[0].ExpiresAt.Equal(testNow.Add(48*time.Hour)))
	require.Nil(t, rows[0].ReadAt)

	events := env.publisher.For("a1")
	require.Len(t, events, 1)
	require.Equal(t, realtime.EventNotificationCreated, events[0].Event)
}

func TestAssignmentNotificationSuppressesSelfAssignment(t *testing.T) {
	env := newTestEnv(t)
	item := reviewItem(env.review(t, nil))

	id, ok := env.Notifications.CreateAssignmentNotification(context.Background(), "a1", item, "a1", "Self")
	require.False(t, ok)
	require.Empty(t, id)
	require.Empty(t, env.notificationsFor(t, "a1"))

	_, ok = env.Notifications.CreateAssignmentNotification(context.Background(), "a1", item, "a2", "Alex")
	require.True(t, ok)

	rows := env.notificationsFor(t, "a1")
	require.Len(t, rows, 1)
	require.Equal(t, models.NotificationAssignment, rows[0].Type)
	require.Contains(t, rows[0].Message, "Alex")
	require.Equal(t, item.ID, *rows[0].ReviewID)
	require.Nil(t, rows[0].BugID)

	snapshot := rows[0].Snapshot.Data()
	require.Equal(t, models.SnapshotVersion, snapshot.Version)
	require.Equal(t, models.KindReview, snapshot.Kind)
	require.Equal(t, "Grace Hopper", snapshot.ContactName)
	require.Equal(t, "Navy", snapshot.Company)
	require.Equal(t, models.PriorityMedium, snapshot.Priority)
	require.Equal(t, models.ReviewStatusPending, snapshot.Status)
}

func TestBugNotificationsUseBugNamespace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := bugItem(env.bug(t, nil))

	_, ok := env.Notifications.CreateAssignmentNotification(ctx, "a1", item, "a2", "Alex")
	require.True(t, ok)
	_, ok = env.Notifications.CreateStatusChangeNotification(ctx, "a1", item, models.BugStatusUnresolved, models.BugStatusInProgress, "a2", "Alex")
	require.True(t, ok)
	_, ok = env.Notifications.CreateHighPriorityNotification(ctx, "a1", item)
	require.True(t, ok)
	_, ok = env.Notifications.CreateReminderNotification(ctx, "a1", item, 9)
	require.True(t, ok)

	var types []string
	for _, row := range env.notificationsFor(t, "a1") {
		types = append(types, row.Type)
		require.Equal(t, item.ID, *row.BugID)
	}
	require.ElementsMatch(t, []string{
		models.NotificationBugAssignment,
		models.NotificationBugStatusChange,
		models.NotificationBugHighPriority,
		models.NotificationBugReminder,
	}, types)
}

func TestStatusChangeNotification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := reviewItem(env.review(t, nil))

	_, ok := env.Notifications.CreateStatusChangeNotification(ctx, "a1", item, "Pending", "In Progress", "a1", "Self")
	require.False(t, ok)

	_, ok = env.Notifications.CreateStatusChangeNotification(ctx, "a1", item, "Pending", "In Progress", "a2", "Alex")
	require.True(t, ok)

	rows := env.notificationsFor(t, "a1")
	require.Len(t, rows, 1)
	require.Equal(t, models.NotificationStatusChange, rows[0].Type)
	require.Contains(t, rows[0].Message, "from Pending to In Progress")
}

func TestHighPriorityNotificationAlwaysNotifies(t *testing.T) {
	env := newTestEnv(t)
	item := reviewItem(env.review(t, func(r *models.Review) { r.Priority = models.PriorityHighest }))

	_, ok := env.Notifications.CreateHighPriorityNotification(context.Background(), "a1", item)
	require.True(t, ok)
	rows := env.notificationsFor(t, "a1")
	require.Len(t, rows, 1)
	require.Equal(t, models.NotificationHighPriority, rows[0].Type)
	require.Contains(t, rows[0].Message, "highest")
}

func TestDeleteExpiredNotificationsRemovesOnlyExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	create := func(adminID string) string {
		id, ok := env.Notifications.CreateNotification(ctx, CreateNotificationInput{AdminID: adminID, Type: "reminder", Title: "t", Message: "m"})
		require.True(t, ok)
		return id
	}

	old := create("a1")
	env.clock.Advance(24 * time.Hour)
	fresh := create("a1")
	other := create("a2")

	// The first notification expires at testNow+48h; at exactly that instant it is not yet expired.
	env.clock.Advance(24 * time.Hour)
	deleted, err := env.Notifications.DeleteExpiredNotifications(ctx)
	require.NoError(t, err)
	require.Zero(t, deleted)

	env.clock.Advance(time.Millisecond)
	deleted, err = env.Notifications.DeleteExpiredNotifications(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	var remaining []string
	require.NoError(t, env.Store.DB().Model(&models.Notification{}).Pluck("id", &remaining).Error)
	require.ElementsMatch(t, []string{fresh, other}, remaining)
	require.NotContains(t, remaining, old)
}

func TestGetNotificationsSweepsAndOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expired, ok := env.Notifications.CreateNotification(ctx, CreateNotificationInput{AdminID: "a1", Title: "old", Message: "m"})
	require.True(t, ok)
	env.clock.Advance(47 * time.Hour)
	second, _ := env.Notifications.CreateNotification(ctx, CreateNotificationInput{AdminID: "a1", Title: "second", Message: "m"})
	env.clock.Advance(time.Hour)
	third, _ := env.Notifications.CreateNotification(ctx, CreateNotificationInput{AdminID: "a1", Title: "third", Message: "m"})
	env.clock.Advance(time.Minute)

	items, err := env.Notifications.GetNotifications(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, third, items[0].ID)
	require.Equal(t, second, items[1].ID)

	var count int64
	require.NoError(t, env.Store.DB().Model(&models.Notification{}).Where("id = ?", expired).Count(&count).Error)
	require.Zero(t, count, "lazy sweep removes expired rows")
}

func TestGetNotificationsReturnsEveryLiveNotification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const total = 230
	for i := 0; i < total; i++ {
		_, ok := env.Notifications.CreateNotification(ctx, CreateNotificationInput{AdminID: "a1", Title: "bulk", Message: "m"})
		require.True(t, ok)
	}

	items, err := env.Notifications.GetNotifications(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, items, total)

	unread, err := env.Notifications.GetUnreadNotificationCount(ctx, "a1")
	require.NoError(t, err)
	require.EqualValues(t, total, unread)
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, _ := env.Notifications.CreateNotification(ctx, CreateNotificationInput{AdminID: "a1", Title: "one", Message: "m"})
	env.Notifications.CreateNotification(ctx, CreateNotificationInput{AdminID: "a1", Title: "two", Message: "m"})
	env.Notifications.CreateNotification(ctx, CreateNotificationInput{AdminID: "a2", Title: "other", Message: "m"})

	count, err := env.Notifications.GetUnreadNotificationCount(ctx, "a1")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	dto, err := env.Notifications.MarkRead(ctx, "a1", first)
	require.NoError(t, err)
	require.True(t, dto.IsRead)
	require.NotNil(t, dto.ReadAt)

	_, err = env.Notifications.MarkRead(ctx, "a2", first)
	require.ErrorIs(t, err, ErrNotificationMissing)

	count, err = env.Notifications.GetUnreadNotificationCount(ctx, "a1")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	updated, err := env.Notifications.MarkAllRead(ctx, "a1")
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	count, err = env.Notifications.GetUnreadNotificationCount(ctx, "a1")
	require.NoError(t, err)
	require.Zero(t, count)

	count, err = env.Notifications.GetUnreadNotificationCount(ctx, "a2")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	items, err := env.Notifications.GetNotifications(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, items, 2, "reading does not delete")
}

func TestDeleteAllNotificationsIsScopedToAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, adminID := range []string{"a1", "a1", "a2", "a2"} {
		_, ok := env.Notifications.CreateNotification(ctx, CreateNotificationInput{AdminID: adminID, Title: "t", Message: "m"})
		require.True(t, ok)
	}

	require.True(t, env.Notifications.DeleteAllNotifications(ctx, "a1"))
	require.Empty(t, env.notificationsFor(t, "a1"))
	require.Len(t, env.notificationsFor(t, "a2"), 2)

	require.True(t, env.Notifications.DeleteAllNotifications(ctx, "a1"), "empty batch is a success")
	require.False(t, env.Notifications.DeleteAllNotifications(ctx, ""))
}

func TestDeleteNotificationIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, _ := env.Notifications.CreateNotification(ctx, CreateNotificationInput{AdminID: "a1", Title: "t", Message: "m"})

	require.False(t, env.Notifications.DeleteNotificationFor(ctx, "", id))
	require.True(t, env.Notifications.DeleteNotificationFor(ctx, "a2", id))
	require.Len(t, env.notificationsFor(t, "a1"), 1, "other admins cannot delete")

	require.True(t, env.Notifications.DeleteNotification(ctx, id))
	require.True(t, env.Notifications.DeleteNotification(ctx, id))
	require.Empty(t, env.notificationsFor(t, "a1"))

	events := env.publisher.For("a1")
	require.Equal(t, realtime.EventNotificationDeleted, events[len(events)-1].Event)
}
