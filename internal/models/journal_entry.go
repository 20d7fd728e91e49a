package models

import (
	"gorm.io/datatypes"
)

// JournalEntry is a dated journal record owned by a single user. Enrichment
// holds the moon/tarot payload captured at write time so the entry renders the
// same even after the upstream data for that day has rotated.
type JournalEntry struct {
	BaseModel

	UserID string `gorm:"type:uuid;index;not null" json:"user_id"`
	User   *User  `json:"-"`

	EntryDate string `gorm:"size:10;index;not null" json:"entry_date"` // YYYY-MM-DD
	Title     string `gorm:"not null" json:"title"`
	Body      string `gorm:"type:text" json:"body"`
	Mood      string `json:"mood,omitempty"`

	Tags       datatypes.JSON `json:"tags,omitempty"`
	Enrichment datatypes.JSON `json:"enrichment,omitempty"`
}
