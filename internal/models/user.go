package models

import (
	"time"
)

// User describes a journal owner authenticated with local credentials.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	DisplayName string `json:"display_name"`
	Timezone    string `json:"timezone"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at"`

	Entries []JournalEntry `gorm:"foreignKey:UserID" json:"-"`
}
