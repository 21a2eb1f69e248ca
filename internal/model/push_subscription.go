package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// One canonical record per user; saving a new subscription for the same user
// replaces the previous one (last write wins, serialized by the database).
type PushSubscription struct {
	UserID    string    `gorm:"primaryKey;size:64" json:"userId"`
	Endpoint  string    `gorm:"type:text;not null" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`
}
