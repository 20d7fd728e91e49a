package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/astraljournal/lunarlog/internal/cache"
	"github.com/astraljournal/lunarlog/internal/models"
	"github.com/astraljournal/lunarlog/pkg/logger"
)

const (
	defaultMoonRetention = 7 * 24 * time.Hour
	defaultSchedule      = "@daily"
)

// Cleaner runs background maintenance: purging expired database cache entries
// and astronomical rows old enough that no freshness window can revive them.
type Cleaner struct {
	db        *gorm.DB
	store     *cache.DatabaseStore
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention time.Duration
	schedule  string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithMoonRetention adjusts how long stale astronomical rows are kept.
func WithMoonRetention(retention time.Duration) Option {
	return func(cleaner *Cleaner) {
		if retention > 0 {
			cleaner.retention = retention
		}
	}
}

// WithSchedule overrides the cron specification for the cleanup job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, store *cache.DatabaseStore, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:        db,
		store:     store,
		now:       time.Now,
		retention: defaultMoonRetention,
		schedule:  defaultSchedule,
		log:       logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the cleanup job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil && c.store == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunCleanup(context.Background()); err != nil {
			c.log.Warn("maintenance run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (c *Cleaner) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// RunCleanup performs a single maintenance pass. Individual task failures are
// collected rather than aborting the rest of the pass.
func (c *Cleaner) RunCleanup(ctx context.Context) error {
	var errs error

	if c.store != nil {
		purged, err := c.store.PurgeExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if purged > 0 {
			c.log.Info("purged expired cache entries", zap.Int64("count", purged))
		}
	}

	if c.db != nil {
		cutoff := c.now().Add(-c.retention)
		res := c.db.WithContext(ctx).
			Where("created_at < ?", cutoff).
			Delete(&models.MoonCache{})
		if res.Error != nil {
			errs = multierr.Append(errs, res.Error)
		} else if res.RowsAffected > 0 {
			c.log.Info("purged stale moon rows", zap.Int64("count", res.RowsAffected))
		}
	}

	return errs
}
