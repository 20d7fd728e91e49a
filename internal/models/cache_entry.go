package models

import (
	"time"
)

// CacheEntry represents a byte-oriented cached value stored in the database.
// It backs the rate limiter's fixed-window counters.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
