package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chat-pwa-backend/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	GetUser(ctx context.Context, userID string) (*model.User, error)

	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetPushSubscription(ctx context.Context, userID string) (*model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, userID string) error

	SetPresence(ctx context.Context, rec *model.PresenceRecord) error
	GetPresence(ctx context.Context, userID string) (*model.PresenceRecord, error)
	ListPresence(ctx context.Context) ([]model.PresenceRecord, error)

	RegisterRelayDevice(ctx context.Context, dev *model.RelayDevice) error
	GetRelayDevice(ctx context.Context, deviceID string) (*model.RelayDevice, error)
	ListRelayDevices(ctx context.Context, userID string) ([]model.RelayDevice, error)
	EnqueueRelayNotification(ctx context.Context, n *model.RelayNotification) error
	PendingRelayNotifications(ctx context.Context, userID, deviceID string) ([]model.RelayNotification, error)
	AcknowledgeRelayNotifications(ctx context.Context, userID, deviceID string, ids []string) error

	SaveMessage(ctx context.Context, msg *model.Message) error
	ChatMessages(ctx context.Context, chatID string, limit int) ([]model.Message, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}
	return &user, nil
}

// SavePushSubscription upserts the single canonical subscription for a user.
// Last write wins; the database serializes concurrent writers.
func (s *gormStore) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"endpoint", "p256dh", "auth", "updated_at"}),
	}).Create(sub).Error
}

func (s *gormStore) GetPushSubscription(ctx context.Context, userID string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch push subscription for %s: %w", userID, err)
	}
	return &sub, nil
}

// DeletePushSubscription removes the user's subscription record. Deleting a
// record that is already gone is not an error, which keeps retries of the
// two-step unsubscribe flow safe.
func (s *gormStore) DeletePushSubscription(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{}, "user_id = ?", userID).Error
}

// SetPresence overwrites the user's presence record in full. No
// read-modify-write, so concurrent heartbeats cannot lose updates.
func (s *gormStore) SetPresence(ctx context.Context, rec *model.PresenceRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"online", "last_seen"}),
	}).Create(rec).Error
}

func (s *gormStore) GetPresence(ctx context.Context, userID string) (*model.PresenceRecord, error) {
	var rec model.PresenceRecord
	if err := s.db.WithContext(ctx).First(&rec, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch presence for %s: %w", userID, err)
	}
	return &rec, nil
}

func (s *gormStore) ListPresence(ctx context.Context) ([]model.PresenceRecord, error) {
	var recs []model.PresenceRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list presence records: %w", err)
	}
	return recs, nil
}

func (s *gormStore) RegisterRelayDevice(ctx context.Context, dev *model.RelayDevice) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "token"}),
	}).Create(dev).Error
}

func (s *gormStore) GetRelayDevice(ctx context.Context, deviceID string) (*model.RelayDevice, error) {
	var dev model.RelayDevice
	if err := s.db.WithContext(ctx).First(&dev, "device_id = ?", deviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch relay device %s: %w", deviceID, err)
	}
	return &dev, nil
}

func (s *gormStore) ListRelayDevices(ctx context.Context, userID string) ([]model.RelayDevice, error) {
	var devs []model.RelayDevice
	if err := s.db.WithContext(ctx).Find(&devs, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to list relay devices for %s: %w", userID, err)
	}
	return devs, nil
}

func (s *gormStore) EnqueueRelayNotification(ctx context.Context, n *model.RelayNotification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

// PendingRelayNotifications returns queued notifications for a device in
// enqueue order. Notifications enqueued without a device ID fan out to every
// device of the user.
func (s *gormStore) PendingRelayNotifications(ctx context.Context, userID, deviceID string) ([]model.RelayNotification, error) {
	var rows []model.RelayNotification
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND (device_id = ? OR device_id = '')", userID, deviceID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending notifications for %s/%s: %w", userID, deviceID, err)
	}
	return rows, nil
}

// AcknowledgeRelayNotifications purges delivered notifications. IDs that were
// already purged are skipped silently (at-least-once delivery allows the
// poller to acknowledge the same batch twice after a crash).
func (s *gormStore) AcknowledgeRelayNotifications(ctx context.Context, userID, deviceID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&model.RelayNotification{}).Error
}

func (s *gormStore) SaveMessage(ctx context.Context, msg *model.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
		chat := model.Chat{
			ID:            msg.ChatID,
			ParticipantA:  msg.SenderID,
			ParticipantB:  msg.ReceiverID,
			LastMessageID: msg.ID,
			CreatedAt:     msg.CreatedAt,
			UpdatedAt:     msg.CreatedAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_message_id", "updated_at"}),
		}).Create(&chat).Error; err != nil {
			return fmt.Errorf("failed to update chat %s: %w", msg.ChatID, err)
		}
		return nil
	})
}

func (s *gormStore) ChatMessages(ctx context.Context, chatID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages for chat %s: %w", chatID, err)
	}
	// Return oldest first for display.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Migrate runs the schema migrations for every model owned by this store.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Chat{},
		&model.Message{},
		&model.PushSubscription{},
		&model.PresenceRecord{},
		&model.RelayDevice{},
		&model.RelayNotification{},
	)
}

// Touch is a helper for tests and callers that need a consistent timestamp
// granularity; sqlite stores sub-second precision differently than postgres.
func Touch() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
