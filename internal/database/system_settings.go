package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/agencydesk/internal/models"
)

// SchedulerLeaseSetting holds the durable lease that keeps a single scheduler active per deployment.
const SchedulerLeaseSetting = "scheduler.lease"

// GetSystemSetting retrieves a system setting by key. Returns an empty string when not found.
func GetSystemSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("system settings: db is nil")
	}

	var setting models.SystemSetting
	err := db.WithContext(ctx).Where(keyEquals(key)).Take(&setting).Error
	if err == nil {
		return setting.Value, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return "", nil
	}
	return "", fmt.Errorf("system settings: get %q: %w", key, err)
}

// Lease is the JSON value stored under SchedulerLeaseSetting.
type Lease struct {
	Holder    string    `json:"holder"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AcquireLease claims key for holder until now+ttl. It succeeds when the lease is free,
// expired, or already held by holder. The swap is conditional on the previously read
// value so two processes racing for the same lease cannot both win.
func AcquireLease(ctx context.Context, db *gorm.DB, key, holder string, ttl time.Duration, now time.Time) (bool, error) {
	if db == nil {
		return false, fmt.Errorf("system settings: db is nil")
	}
	if strings.TrimSpace(holder) == "" {
		return false, fmt.Errorf("system settings: lease holder is required")
	}

	next, err := json.Marshal(Lease{Holder: holder, ExpiresAt: now.Add(ttl).UTC()})
	if err != nil {
		return false, fmt.Errorf("system settings: encode lease: %w", err)
	}

	var current models.SystemSetting
	err = db.WithContext(ctx).Where(keyEquals(key)).Take(&current).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		createErr := db.WithContext(ctx).Create(&models.SystemSetting{Key: key, Value: string(next)}).Error
		if createErr == nil {
			return true, nil
		}
		if errors.Is(createErr, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(createErr.Error()), "unique") {
			return false, nil
		}
		return false, fmt.Errorf("system settings: create lease %q: %w", key, createErr)
	case err != nil:
		return false, fmt.Errorf("system settings: read lease %q: %w", key, err)
	}

	var lease Lease
	if err := json.Unmarshal([]byte(current.Value), &lease); err == nil {
		if lease.Holder != holder && now.Before(lease.ExpiresAt) {
			return false, nil
		}
	}

	result := db.WithContext(ctx).
		Model(&models.SystemSetting{}).
		Where(keyEquals(key)).
		Where("value = ?", current.Value).
		Update("value", string(next))
	if result.Error != nil {
		return false, fmt.Errorf("system settings: swap lease %q: %w", key, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ReleaseLease drops the lease if holder still owns it.
func ReleaseLease(ctx context.Context, db *gorm.DB, key, holder string) error {
	if db == nil {
		return fmt.Errorf("system settings: db is nil")
	}

	var current models.SystemSetting
	err := db.WithContext(ctx).Where(keyEquals(key)).Take(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("system settings: read lease %q: %w", key, err)
	}

	var lease Lease
	if err := json.Unmarshal([]byte(current.Value), &lease); err != nil || lease.Holder != holder {
		return nil
	}

	if err := db.WithContext(ctx).
		Where(keyEquals(key)).
		Where("value = ?", current.Value).
		Delete(&models.SystemSetting{}).Error; err != nil {
		return fmt.Errorf("system settings: release lease %q: %w", key, err)
	}
	return nil
}

// keyEquals quotes the key column, which is reserved in MySQL.
func keyEquals(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}
