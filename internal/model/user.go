package model

import "time"

// User represents a chat account. Authentication happens in an external
// service; this table only mirrors the profile fields the app needs.
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:128;not null" json:"username"`
	Email     string    `gorm:"size:256;not null" json:"email"`
	PhotoURL  string    `gorm:"size:512" json:"photoURL"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`
}
