package checks

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/agencydesk/internal/database"
	"github.com/charlesng35/agencydesk/internal/monitoring"
)

// SchedulerLease reports which instance holds the reminder scheduler lease. A missing or
// expired lease means no instance is scheduling reminders and is reported as degraded.
func SchedulerLease(db *gorm.DB, now func() time.Time) monitoring.Check {
	if now == nil {
		now = time.Now
	}

	return monitoring.NewCheck("scheduler", func(ctx context.Context) monitoring.CheckResult {
		start := time.Now()
		value, err := database.GetSystemSetting(ctx, db, database.SchedulerLeaseSetting)
		if err != nil {
			return monitoring.ResultFromError("scheduler", err, time.Since(start))
		}
		if value == "" {
			return monitoring.CheckResult{Status: monitoring.StatusDegraded, Details: "no scheduler lease registered"}
		}

		var lease database.Lease
		if err := json.Unmarshal([]byte(value), &lease); err != nil {
			return monitoring.CheckResult{Status: monitoring.StatusDegraded, Details: "scheduler lease unreadable"}
		}
		if !now().Before(lease.ExpiresAt) {
			return monitoring.CheckResult{
				Status:  monitoring.StatusDegraded,
				Details: "scheduler lease expired at " + lease.ExpiresAt.UTC().Format(time.RFC3339),
			}
		}
		return monitoring.CheckResult{
			Status:  monitoring.StatusUp,
			Details: "held by " + lease.Holder + " until " + lease.ExpiresAt.UTC().Format(time.RFC3339),
		}
	})
}
