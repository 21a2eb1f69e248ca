package model

import "time"

// PresenceRecord is the single per-user online/last-seen value, kept apart
// from the user's profile row. Writes are always full-record overwrites.
type PresenceRecord struct {
	UserID   string    `gorm:"primaryKey;size:64" json:"userId"`
	Online   bool      `gorm:"not null" json:"online"`
	LastSeen time.Time `gorm:"not null" json:"lastSeen"`
}
