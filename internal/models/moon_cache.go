package models

import (
	"time"
)

// MoonCache is the durable cache row for astronomical data, keyed by the
// canonical date and coordinates rounded to two decimal places (~1.1 km).
// At most one row may exist per (date, lat, lon); stale rows are overwritten
// in place via upsert, never duplicated.
type MoonCache struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Date string  `gorm:"size:10;not null;uniqueIndex:idx_moon_cache_key,priority:1" json:"date"`
	Lat  float64 `gorm:"not null;uniqueIndex:idx_moon_cache_key,priority:2" json:"lat"`
	Lon  float64 `gorm:"not null;uniqueIndex:idx_moon_cache_key,priority:3" json:"lon"`

	Phase    *string    `json:"phase"`
	Moonrise *time.Time `json:"moonrise"`
	Moonset  *time.Time `json:"moonset"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
