package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/astraljournal/lunarlog/internal/models"
)

// MoonStore is the durable, coordinate-keyed cache for astronomical data.
// Correctness under concurrent writers is delegated to the database: the
// composite unique index on (date, lat, lon) plus an ON CONFLICT upsert gives
// last-write-wins without any application-level locking.
type MoonStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewMoonStore constructs a MoonStore once a database handle is supplied.
func NewMoonStore(db *gorm.DB) (*MoonStore, error) {
	if db == nil {
		return nil, errors.New("moon store: db is required")
	}
	return &MoonStore{db: db, now: time.Now}, nil
}

// FindFresh returns the row for the given cache key when one exists and its
// age is within the freshness window. A stale or missing row reads as
// (nil, nil); database failures propagate unmodified.
func (s *MoonStore) FindFresh(ctx context.Context, date string, lat, lon float64, window time.Duration) (*models.MoonCache, error) {
	if s == nil {
		return nil, errors.New("moon store: store not initialised")
	}

	var row models.MoonCache
	err := s.db.WithContext(ctx).
		Take(&row, "date = ? AND lat = ? AND lon = ?", date, lat, lon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.now().Sub(row.CreatedAt) > window {
		return nil, nil
	}

	return &row, nil
}

// Upsert writes the row for its (date, lat, lon) key, overwriting any
// existing row in place and restarting its freshness clock. At most one row
// ever exists per key.
func (s *MoonStore) Upsert(ctx context.Context, row *models.MoonCache) error {
	if s == nil {
		return errors.New("moon store: store not initialised")
	}
	if row == nil {
		return errors.New("moon store: row is required")
	}

	now := s.now()
	row.CreatedAt = now
	row.UpdatedAt = now

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}, {Name: "lat"}, {Name: "lon"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"phase", "moonrise", "moonset", "created_at", "updated_at",
			}),
		}).Create(row).Error
}
