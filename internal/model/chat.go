package model

import "time"

// Chat is a one-to-one conversation between two users.
type Chat struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	ParticipantA  string    `gorm:"size:64;not null;index:idx_chat_participants" json:"participantA"`
	ParticipantB  string    `gorm:"size:64;not null;index:idx_chat_participants" json:"participantB"`
	LastMessageID string    `gorm:"size:64" json:"lastMessageId,omitempty"`
	CreatedAt     time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"not null" json:"updatedAt"`
}

// Message is a single chat message. Exactly one of Text, ImageURL and
// VideoURL is expected to be set; media blobs live in external storage and
// only their URLs are persisted here.
type Message struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	ChatID     string    `gorm:"size:64;not null;index" json:"chatId"`
	SenderID   string    `gorm:"size:64;not null" json:"senderId"`
	ReceiverID string    `gorm:"size:64;not null" json:"receiverId"`
	Text       string    `gorm:"type:text" json:"text,omitempty"`
	ImageURL   string    `gorm:"size:512" json:"imageUrl,omitempty"`
	VideoURL   string    `gorm:"size:512" json:"videoUrl,omitempty"`
	Read       bool      `gorm:"not null;default:false" json:"read"`
	Reactions  string    `gorm:"type:text" json:"reactions,omitempty"` // JSON map userId -> emoji
	CreatedAt  time.Time `gorm:"not null;index" json:"timestamp"`
}
