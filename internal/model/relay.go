package model

import "time"

// RelayDevice is a device registered with the polling relay. The device ID is
// derived from the user ID and the registration timestamp and stays stable
// for the lifetime of the registration.
type RelayDevice struct {
	DeviceID  string    `gorm:"primaryKey;size:128" json:"deviceId"`
	UserID    string    `gorm:"size:64;not null;index" json:"userId"`
	Token     string    `gorm:"size:128;not null" json:"token"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

// RelayNotification is a queued notification awaiting retrieval by a device's
// poller. Rows live until the poller acknowledges them; a crash between fetch
// and acknowledge redelivers (at-least-once).
type RelayNotification struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	UserID    string    `gorm:"size:64;not null;index:idx_relay_target" json:"userId"`
	DeviceID  string    `gorm:"size:128;index:idx_relay_target" json:"deviceId"`
	Title     string    `gorm:"size:256;not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	Data      string    `gorm:"type:text" json:"data"` // JSON payload: chatId, senderId, ...
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}
