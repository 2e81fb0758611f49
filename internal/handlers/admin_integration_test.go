package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/agencydesk/internal/handlers/testutil"
	"github.com/charlesng35/agencydesk/internal/models"
	"github.com/charlesng35/agencydesk/internal/services"
)

func createReview(t *testing.T, env *testutil.Env, priority string) services.WorkItem {
	t.Helper()
	w := env.Request(http.MethodPost, "/api/reviews", map[string]any{
		"firstName": "Jo",
		"lastName":  "Client",
		"email":     "Jo@Client.example",
		"company":   "Client Co",
		"message":   "We need a rebrand",
		"priority":  priority,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var item services.WorkItem
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &item)
	return item
}

func TestIntake_CreateReviewAndBug(t *testing.T) {
	env := testutil.NewEnv(t)

	review := createReview(t, env, "")
	require.Equal(t, models.KindReview, review.Kind)
	require.Equal(t, models.ReviewStatusPending, review.Status)
	require.Equal(t, models.PriorityMedium, review.Priority)
	require.Equal(t, "jo@client.example", review.Email)

	w := env.Request(http.MethodPost, "/api/bugs", map[string]any{
		"title":         "Checkout button broken",
		"pageUrl":       "https://client.example/checkout",
		"reporterEmail": "qa@client.example",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var bug services.WorkItem
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &bug)
	require.Equal(t, models.KindBug, bug.Kind)
	require.Equal(t, models.BugStatusUnresolved, bug.Status)
}

func TestIntake_ValidationErrors(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/reviews", map[string]any{"firstName": "Jo", "priority": "urgent"}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := testutil.DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.Equal(t, "BAD_REQUEST", resp.Error.Code)
	require.Contains(t, resp.Error.Message, "email is required")
	require.Contains(t, resp.Error.Message, "priority must be one of")
}

func TestIntake_HighPriorityAlertsSuperAdmins(t *testing.T) {
	env := testutil.NewEnv(t)
	super := env.CreateAdmin(models.RoleSuperAdmin, "Sam Super")
	regular := env.CreateAdmin(models.RoleAdmin, "Dana Admin")

	item := createReview(t, env, "highest")

	w := env.Request(http.MethodGet, "/api/admin/notifications", nil, env.Token(super))
	require.Equal(t, http.StatusOK, w.Code)
	var items []services.NotificationDTO
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &items)
	require.Len(t, items, 1)
	require.Equal(t, models.NotificationHighPriority, items[0].Type)
	require.Equal(t, item.ID, items[0].ReviewID)

	w = env.Request(http.MethodGet, "/api/admin/notifications", nil, env.Token(regular))
	require.Equal(t, http.StatusOK, w.Code)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &items)
	require.Empty(t, items)
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, path := range []string{"/api/admin/me", "/api/admin/notifications", "/api/admin/reviews", "/api/admin/admins/assignable"} {
		w := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestAssignment_NotifiesAndEmailsAssignee(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithEmail(testutil.ConfiguredEmail(true)))
	super := env.CreateAdmin(models.RoleSuperAdmin, "Sam Super")
	dana := env.CreateAdmin(models.RoleAdmin, "Dana Admin")

	item := createReview(t, env, "low")

	w := env.Request(http.MethodPost, "/api/admin/reviews/"+item.ID+"/assign", map[string]any{"assigneeId": dana.ID}, env.Token(super))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var assigned services.WorkItem
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &assigned)
	require.Equal(t, dana.ID, assigned.AssignedTo)
	require.Equal(t, "Dana Admin", assigned.AssignedToName)
	require.Equal(t, super.ID, assigned.AssignedBy)
	require.NotNil(t, assigned.AssignedAt)

	w = env.Request(http.MethodGet, "/api/admin/notifications", nil, env.Token(dana))
	require.Equal(t, http.StatusOK, w.Code)
	resp := testutil.DecodeResponse(t, w)
	var items []services.NotificationDTO
	testutil.DecodeInto(t, resp.Data, &items)
	require.Len(t, items, 1)
	require.Equal(t, models.NotificationAssignment, items[0].Type)
	require.Equal(t, 1, resp.Meta.Unread)

	sent := env.Mailer.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, []string{dana.Email}, sent[0].To)

	w = env.Request(http.MethodGet, "/api/admin/reviews?assignedTo="+dana.ID, nil, env.Token(super))
	require.Equal(t, http.StatusOK, w.Code)
	var listed []services.WorkItem
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &listed)
	require.Len(t, listed, 1)
	require.Equal(t, item.ID, listed[0].ID)
}

func TestAssignment_RegularAdminCannotAssignSuperAdmin(t *testing.T) {
	env := testutil.NewEnv(t)
	super := env.CreateAdmin(models.RoleSuperAdmin, "Sam Super")
	dana := env.CreateAdmin(models.RoleAdmin, "Dana Admin")
	item := createReview(t, env, "")

	w := env.Request(http.MethodPost, "/api/admin/reviews/"+item.ID+"/assign", map[string]any{"assigneeId": super.ID}, env.Token(dana))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "ASSIGNEE_FORBIDDEN", testutil.DecodeResponse(t, w).Error.Code)

	w = env.Request(http.MethodGet, "/api/admin/reviews?assignedTo="+super.ID, nil, env.Token(dana))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAssignment_UnassignClearsFields(t *testing.T) {
	env := testutil.NewEnv(t)
	super := env.CreateAdmin(models.RoleSuperAdmin, "Sam Super")
	dana := env.CreateAdmin(models.RoleAdmin, "Dana Admin")
	item := createReview(t, env, "")

	w := env.Request(http.MethodPost, "/api/admin/reviews/"+item.ID+"/assign", map[string]any{"assigneeId": dana.ID}, env.Token(super))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodPost, "/api/admin/reviews/"+item.ID+"/assign", map[string]any{"assigneeId": ""}, env.Token(super))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cleared services.WorkItem
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &cleared)
	require.Empty(t, cleared.AssignedTo)
	require.Nil(t, cleared.AssignedAt)
}

func TestAssignment_UnknownWorkItem(t *testing.T) {
	env := testutil.NewEnv(t)
	super := env.CreateAdmin(models.RoleSuperAdmin, "Sam Super")

	w := env.Request(http.MethodPost, "/api/admin/bugs/missing/assign", map[string]any{"assigneeId": super.ID}, env.Token(super))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssignableAdmins_HidesSuperAdminsFromRegularAdmins(t *testing.T) {
	env := testutil.NewEnv(t)
	super := env.CreateAdmin(models.RoleSuperAdmin, "Sam Super")
	dana := env.CreateAdmin(models.RoleAdmin, "Dana Admin")
	env.CreateAdmin(models.RoleAdmin, "Lee Admin")

	w := env.Request(http.MethodGet, "/api/admin/admins/assignable", nil, env.Token(dana))
	require.Equal(t, http.StatusOK, w.Code)
	var visible []models.Admin
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &visible)
	require.Len(t, visible, 2)
	for _, admin := range visible {
		require.NotEqual(t, models.RoleSuperAdmin, admin.Role)
	}

	w = env.Request(http.MethodGet, "/api/admin/admins/assignable", nil, env.Token(super))
	require.Equal(t, http.StatusOK, w.Code)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &visible)
	require.Len(t, visible, 3)
}

func TestStatusUpdate_NotifiesAssignee(t *testing.T) {
	env := testutil.NewEnv(t)
	super := env.CreateAdmin(models.RoleSuperAdmin, "Sam Super")
	dana := env.CreateAdmin(models.RoleAdmin, "Dana Admin")
	item := createReview(t, env, "")

	require.Equal(t, http.StatusOK, env.Request(http.MethodPost, "/api/admin/reviews/"+item.ID+"/assign",
		map[string]any{"assigneeId": dana.ID}, env.Token(super)).Code)

	w := env.Request(http.MethodPatch, "/api/admin/reviews/"+item.ID+"/status", map[string]any{"status": models.ReviewStatusInProgress}, env.Token(super))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated services.WorkItem
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &updated)
	require.Equal(t, models.ReviewStatusInProgress, updated.Status)
	require.NotNil(t, updated.MonitoredSince)

	w = env.Request(http.MethodGet, "/api/admin/notifications/unread-count", nil, env.Token(dana))
	require.Equal(t, http.StatusOK, w.Code)
	var count struct {
		Count int64 `json:"count"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &count)
	require.EqualValues(t, 2, count.Count)

	w = env.Request(http.MethodPatch, "/api/admin/reviews/"+item.ID+"/status", map[string]any{"status": "Archived"}, env.Token(super))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_STATUS", testutil.DecodeResponse(t, w).Error.Code)
}

func TestAdminCreate_SuperAdminOnly(t *testing.T) {
	env := testutil.NewEnv(t)
	super := env.CreateAdmin(models.RoleSuperAdmin, "Sam Super")
	dana := env.CreateAdmin(models.RoleAdmin, "Dana Admin")

	body := map[string]any{"email": "New.Admin@agency.example", "full_name": "New Admin"}

	w := env.Request(http.MethodPost, "/api/admin/admins", body, env.Token(dana))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.Request(http.MethodPost, "/api/admin/admins", body, env.Token(super))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Admin
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &created)
	require.Equal(t, "new.admin@agency.example", created.Email)
	require.Equal(t, models.RoleAdmin, created.Role)

	w = env.Request(http.MethodPost, "/api/admin/admins", body, env.Token(super))
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.Request(http.MethodGet, "/api/admin/me", nil, env.Token(dana))
	require.Equal(t, http.StatusOK, w.Code)
	var me models.Admin
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &me)
	require.Equal(t, dana.ID, me.ID)
}
