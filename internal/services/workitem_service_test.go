package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/agencydesk/internal/models"
	apperrors "github.com/charlesng35/agencydesk/pkg/errors"
)

func TestCreateReviewValidatesAndDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.WorkItems.CreateReview(ctx, CreateReviewInput{FirstName: "Ada", Email: "bad", Message: "hi"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = env.WorkItems.CreateReview(ctx, CreateReviewInput{FirstName: "Ada", Email: "ada@client.example", Message: "hi", Priority: "urgent"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	item, err := env.WorkItems.CreateReview(ctx, CreateReviewInput{FirstName: "Ada", LastName: "Lovelace", Email: "Ada@Client.example", Message: "Need a campaign"})
	require.NoError(t, err)
	require.Equal(t, models.ReviewStatusPending, item.Status)
	require.Equal(t, models.PriorityMedium, item.Priority)
	require.Equal(t, "ada@client.example", item.Email)
	require.Equal(t, "Ada Lovelace", item.ContactName)
}

func TestHighPriorityIntakeNotifiesSuperAdmins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.admin(t, "super1", "super1@agency.example", models.RoleSuperAdmin)
	env.admin(t, "super2", "super2@agency.example", models.RoleSuperAdmin)
	env.admin(t, "admin1", "admin1@agency.example", models.RoleAdmin)

	_, err := env.WorkItems.CreateBug(ctx, CreateBugInput{Title: "Site down", Priority: "highest"})
	require.NoError(t, err)
	_, err = env.WorkItems.CreateReview(ctx, CreateReviewInput{FirstName: "Ada", Email: "ada@client.example", Message: "hi", Priority: "low"})
	require.NoError(t, err)

	for _, id := range []string{"super1", "super2"} {
		rows := env.notificationsFor(t, id)
		require.Len(t, rows, 1)
		require.Equal(t, models.NotificationBugHighPriority, rows[0].Type)
	}
	require.Empty(t, env.notificationsFor(t, "admin1"))
}

func TestUpdateReviewStatusStampsInProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.admin(t, "A1", "a1@agency.example", models.RoleAdmin)
	env.admin(t, "A2", "a2@agency.example", models.RoleAdmin)
	review := env.review(t, func(r *models.Review) { r.AssignedTo = ptr("A1") })

	item, err := env.WorkItems.UpdateStatus(ctx, UpdateStatusInput{Kind: models.KindReview, ID: review.ID, ActorID: "A2", Status: models.ReviewStatusInProgress})
	require.NoError(t, err)
	require.Equal(t, models.ReviewStatusInProgress, item.Status)

	var stored models.Review
	require.NoError(t, env.Store.Get(ctx, &stored, review.ID))
	require.NotNil(t, stored.InProgressStartedAt)
	require.True(t, stored.InProgressStartedAt.Equal(testNow))

	rows := env.notificationsFor(t, "A1")
	require.Len(t, rows, 1)
	require.Equal(t, models.NotificationStatusChange, rows[0].Type)

	env.clock.Advance(time.Hour)
	_, err = env.WorkItems.UpdateStatus(ctx, UpdateStatusInput{Kind: models.KindReview, ID: review.ID, ActorID: "A1", Status: models.ReviewStatusCompleted})
	require.NoError(t, err)
	var reread models.Review
	require.NoError(t, env.Store.Get(ctx, &reread, review.ID))
	require.Equal(t, models.ReviewStatusCompleted, reread.ClientStatus)
	require.Nil(t, reread.InProgressStartedAt)
	require.Len(t, env.notificationsFor(t, "A1"), 1, "own change is not notified")
}

func TestUpdateBugStatusStampsResolved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.admin(t, "A1", "a1@agency.example", models.RoleAdmin)
	bug := env.bug(t, nil)

	_, err := env.WorkItems.UpdateStatus(ctx, UpdateStatusInput{Kind: models.KindBug, ID: bug.ID, ActorID: "A1", Status: "Done"})
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = env.WorkItems.UpdateStatus(ctx, UpdateStatusInput{Kind: models.KindBug, ID: bug.ID, ActorID: "A1", Status: models.BugStatusResolved})
	require.NoError(t, err)

	var stored models.Bug
	require.NoError(t, env.Store.Get(ctx, &stored, bug.ID))
	require.Equal(t, models.BugStatusResolved, stored.Status)
	require.NotNil(t, stored.ResolvedAt)
}

func TestCreateAdminRequiresSuperAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.admin(t, "super", "super@agency.example", models.RoleSuperAdmin)
	env.admin(t, "admin", "admin@agency.example", models.RoleAdmin)

	_, err := env.Admins.Create(ctx, "admin", CreateAdminInput{Email: "new@agency.example"})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	created, err := env.Admins.Create(ctx, "super", CreateAdminInput{Email: " New@Agency.example ", FullName: "New Person"})
	require.NoError(t, err)
	require.Equal(t, "new@agency.example", created.Email)
	require.Equal(t, models.RoleAdmin, created.Role)

	_, err = env.Admins.Create(ctx, "super", CreateAdminInput{Email: "new@agency.example"})
	require.ErrorIs(t, err, ErrAdminExists)

	_, err = env.Admins.Create(ctx, "super", CreateAdminInput{Email: "x@agency.example", Role: "owner"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}
