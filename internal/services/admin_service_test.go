package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/agencydesk/internal/models"
)

func TestListByRoleFiltersOnAnyGivenRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.admin(t, "owner", "owner@agency.example", models.RoleSuperAdmin)
	env.admin(t, "ops", "ops@agency.example", models.RoleAdmin)

	supers, err := env.Admins.ListByRole(ctx, models.RoleSuperAdmin)
	require.NoError(t, err)
	require.Len(t, supers, 1)
	require.Equal(t, "owner", supers[0].ID)

	both, err := env.Admins.ListByRole(ctx, models.RoleSuperAdmin, models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, both, 2)

	none, err := env.Admins.ListByRole(ctx)
	require.NoError(t, err)
	require.Nil(t, none)
}
