package app

import (
	"context"
	"time"

	"github.com/heliosensium/site/internal/config"
	"github.com/heliosensium/site/internal/modules/content/blog"
	pkgcron "github.com/heliosensium/site/internal/pkg/cron"
	sessionpkg "github.com/heliosensium/site/internal/pkg/session"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, blogs *blog.Service, cfg *config.AppConfig, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "purge_sessions",
		Description: "Delete expired and revoked admin sessions",
		Interval:    6 * time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := sessionpkg.PurgeExpired(db.WithContext(ctx), time.Now())
			if err != nil {
				return err
			}
			cronLogger.Info("purged sessions", zap.Int64("count", n))
			return nil
		},
	})

	days := cfg.Moderation.RejectedRetentionDays
	if days <= 0 {
		return
	}
	sched.Register(pkgcron.Job{
		Name:        "purge_rejected",
		Description: "Delete rejected blogs past the retention period",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := blogs.PurgeRejected(ctx, time.Now().AddDate(0, 0, -days))
			if err != nil {
				return err
			}
			cronLogger.Info("purged rejected blogs", zap.Int64("count", n), zap.Int("retentionDays", days))
			return nil
		},
	})
}
