package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/wedding-invite/internal/models"
	"gorm.io/gorm"
)

// StartCleanup deletes system_logs older than retention every interval until
// ctx is cancelled. A non-positive retention or interval disables it.
func StartCleanup(ctx context.Context, db *gorm.DB, retention, interval time.Duration) {
	if retention <= 0 || interval <= 0 {
		slog.Info("system log cleanup disabled")
		return
	}
	go runCleanup(ctx, db, retention, interval)
}

func runCleanup(ctx context.Context, db *gorm.DB, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deleted, err := PurgeBefore(ctx, db, time.Now().Add(-retention))
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("log cleanup failed", "error", err)
				}
			} else if deleted > 0 {
				slog.Info("log cleanup completed", "deleted", deleted, "retention", retention.String())
			}
		case <-ctx.Done():
			return
		}
	}
}

// PurgeBefore removes every system log written before cutoff.
func PurgeBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}
