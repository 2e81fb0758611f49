package checks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/agencydesk/internal/models"
	"github.com/charlesng35/agencydesk/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

// Database reports whether the document store is reachable and migrated.
// A saturated connection pool or a missing notifications collection is degraded.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.CheckResult {
		start := time.Now()
		if db == nil {
			return monitoring.CheckResult{
				Status:   monitoring.StatusDown,
				Details:  "database not configured",
				Duration: time.Since(start),
			}
		}

		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		checkCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultDatabaseTimeout))
		defer cancel()

		if err := sqlDB.PingContext(checkCtx); err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		stats := sqlDB.Stats()
		result := monitoring.CheckResult{
			Status:  monitoring.StatusUp,
			Details: fmt.Sprintf("%s open=%d in_use=%d", db.Dialector.Name(), stats.OpenConnections, stats.InUse),
		}

		switch {
		case !db.WithContext(checkCtx).Migrator().HasTable(&models.Notification{}):
			result.Status = monitoring.StatusDegraded
			result.Details += " schema not migrated"
		case stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections:
			result.Status = monitoring.StatusDegraded
			result.Details += " pool saturated"
		}
		result.Duration = time.Since(start)
		return result
	})
}

func chooseTimeout(provided, fallback time.Duration) time.Duration {
	if provided <= 0 {
		return fallback
	}
	return provided
}
