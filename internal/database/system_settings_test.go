package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/agencydesk/internal/models"
)

func TestGetSystemSetting(t *testing.T) {
	db := openSystemSettingTestDB(t)

	value, err := GetSystemSetting(context.Background(), db, "missing")
	require.NoError(t, err)
	require.Equal(t, "", value)

	require.NoError(t, db.Create(&models.SystemSetting{Key: SchedulerLeaseSetting, Value: `{"holder":"a"}`}).Error)

	retrieved, err := GetSystemSetting(context.Background(), db, SchedulerLeaseSetting)
	require.NoError(t, err)
	require.Equal(t, `{"holder":"a"}`, retrieved)

	_, err = GetSystemSetting(context.Background(), nil, SchedulerLeaseSetting)
	require.Error(t, err)
}

func TestAcquireLeaseExcludesOtherHolders(t *testing.T) {
	db := openSystemSettingTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	ok, err := AcquireLease(ctx, db, SchedulerLeaseSetting, "node-a", time.Minute, now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = AcquireLease(ctx, db, SchedulerLeaseSetting, "node-b", time.Minute, now.Add(30*time.Second))
	require.NoError(t, err)
	require.False(t, ok, "live lease must not be stolen")

	ok, err = AcquireLease(ctx, db, SchedulerLeaseSetting, "node-a", time.Minute, now.Add(30*time.Second))
	require.NoError(t, err)
	require.True(t, ok, "holder renews its own lease")

	raw, err := GetSystemSetting(ctx, db, SchedulerLeaseSetting)
	require.NoError(t, err)
	var lease Lease
	require.NoError(t, json.Unmarshal([]byte(raw), &lease))
	require.Equal(t, "node-a", lease.Holder)
	require.True(t, lease.ExpiresAt.Equal(now.Add(90*time.Second)))
}

func TestAcquireLeaseTakesOverExpiredLease(t *testing.T) {
	db := openSystemSettingTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	ok, err := AcquireLease(ctx, db, SchedulerLeaseSetting, "node-a", time.Minute, now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = AcquireLease(ctx, db, SchedulerLeaseSetting, "node-b", time.Minute, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestReleaseLeaseOnlyDropsOwnLease(t *testing.T) {
	db := openSystemSettingTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := AcquireLease(ctx, db, SchedulerLeaseSetting, "node-a", time.Hour, now)
	require.NoError(t, err)

	require.NoError(t, ReleaseLease(ctx, db, SchedulerLeaseSetting, "node-b"))
	raw, err := GetSystemSetting(ctx, db, SchedulerLeaseSetting)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	require.NoError(t, ReleaseLease(ctx, db, SchedulerLeaseSetting, "node-a"))
	raw, err = GetSystemSetting(ctx, db, SchedulerLeaseSetting)
	require.NoError(t, err)
	require.Empty(t, raw)

	ok, err := AcquireLease(ctx, db, SchedulerLeaseSetting, "node-b", time.Hour, now)
	require.NoError(t, err)
	require.True(t, ok)
}

func openSystemSettingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.SystemSetting{}))
	return db
}
