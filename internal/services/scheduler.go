package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/siteflow/siteflow/internal/config"
	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	jobLogCleanup = "system_log_cleanup"
	jobShareSweep = "share_link_sweep"
)

// Scheduler runs housekeeping jobs on cron expressions. Each run takes a
// scheduler_locks row first so that only one replica executes it.
type Scheduler struct {
	db       *gorm.DB
	cfg      config.Config
	logs     *SystemLogService
	shares   *ShareLinkService
	cron     *cron.Cron
	instance string
}

func NewScheduler(db *gorm.DB, cfg config.Config, logs *SystemLogService, shares *ShareLinkService) *Scheduler {
	host, _ := os.Hostname()
	return &Scheduler{
		db:       db,
		cfg:      cfg,
		logs:     logs,
		shares:   shares,
		instance: fmt.Sprintf("%s-%d", host, os.Getpid()),
	}
}

func (s *Scheduler) Start() error {
	s.cron = cron.New()

	if _, err := s.cron.AddFunc(s.cfg.Scheduler.CleanupCron, func() {
		s.runLocked(jobLogCleanup, s.CleanupSystemLogs)
	}); err != nil {
		return fmt.Errorf("invalid cleanup_cron %q: %w", s.cfg.Scheduler.CleanupCron, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.Scheduler.ShareSweepCron, func() {
		s.runLocked(jobShareSweep, s.SweepShareLinks)
	}); err != nil {
		return fmt.Errorf("invalid share_sweep_cron %q: %w", s.cfg.Scheduler.ShareSweepCron, err)
	}

	s.cron.Start()
	logger.Infof("[Scheduler] started (cleanup: %s, share sweep: %s)", s.cfg.Scheduler.CleanupCron, s.cfg.Scheduler.ShareSweepCron)
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runLocked(name string, job func(context.Context) (int64, error)) {
	now := time.Now().UTC()
	acquired, err := s.TryLock(name, now.Format("2006-01-02T15:04"), now, time.Hour)
	if err != nil {
		logger.Error().Err(err).Str("job", name).Msg("[Scheduler] lock failed")
		return
	}
	if !acquired {
		logger.Debug().Str("job", name).Msg("[Scheduler] run owned by another instance")
		return
	}

	n, err := job(context.Background())
	if err != nil {
		logger.Error().Err(err).Str("job", name).Msg("[Scheduler] job failed")
		return
	}
	logger.Info().Str("job", name).Int64("affected", n).Msg("[Scheduler] job finished")
}

// TryLock claims (name, key). It returns false when another instance holds an
// unexpired claim on the same key.
func (s *Scheduler) TryLock(name, key string, now time.Time, ttl time.Duration) (bool, error) {
	lock := models.SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  s.instance,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	// Take over a stale claim left by a crashed instance
	result = s.db.Model(&models.SchedulerLock{}).
		Where("lock_name = ? AND lock_key = ? AND expires_at < ?", name, key, now).
		Updates(map[string]interface{}{
			"locked_by":  s.instance,
			"locked_at":  now,
			"expires_at": now.Add(ttl),
		})
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CleanupSystemLogs applies the configured retention and drops old lock rows.
func (s *Scheduler) CleanupSystemLogs(ctx context.Context) (int64, error) {
	n, err := s.logs.CleanupOldLogs(ctx, s.cfg.Scheduler.LogRetentionDays)
	if err != nil {
		return 0, err
	}
	s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now().AddDate(0, 0, -7)).
		Delete(&models.SchedulerLock{})
	return n, nil
}

func (s *Scheduler) SweepShareLinks(ctx context.Context) (int64, error) {
	return s.shares.SweepExpired(ctx, s.cfg.Share.PurgeAfterDays, time.Now().UTC())
}
