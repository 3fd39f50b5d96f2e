package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	applog "resinbay/internal/log"
	"resinbay/models"
)

// Sweeper runs periodic housekeeping over the database. The only scheduled
// job today prunes view-state settings left behind by deleted accounts.
type Sweeper struct {
	cron *cron.Cron
	db   *gorm.DB
}

// NewSweeper builds an idle sweeper bound to the database.
func NewSweeper(db *gorm.DB) *Sweeper {
	return &Sweeper{cron: cron.New(), db: db}
}

// Start schedules the jobs and begins running them.
func (s *Sweeper) Start() error {
	// Nightly at 03:00, when nobody is weighing bottles.
	if _, err := s.cron.AddFunc("0 3 * * *", s.pruneOrphanedSettings); err != nil {
		return err
	}
	s.cron.Start()
	applog.Debug(context.Background(), "maintenance sweeper started")
	return nil
}

// Stop halts the schedule; running jobs finish on their own.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	applog.Debug(context.Background(), "maintenance sweeper stopped")
}

func (s *Sweeper) pruneOrphanedSettings() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pruned, err := PruneOrphanedSettings(ctx, s.db)
	if err != nil {
		applog.Error(ctx, "failed to prune orphaned settings", "error", err)
		return
	}
	if pruned > 0 {
		applog.Info(ctx, "pruned orphaned settings", "count", pruned)
	}
}

// PruneOrphanedSettings deletes setting rows whose owning user no longer
// exists and returns how many were removed.
func PruneOrphanedSettings(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, gorm.ErrInvalidDB
	}
	result := db.WithContext(ctx).
		Where("user_id NOT IN (?)", db.Model(&models.User{}).Select("id")).
		Delete(&models.Setting{})
	return result.RowsAffected, result.Error
}
