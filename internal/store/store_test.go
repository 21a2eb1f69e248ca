package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chat-pwa-backend/internal/model"
)

var testDBSeq atomic.Int64

// newTestStore opens an in-memory sqlite database with the full schema. Each
// test gets its own named database, shared across the pool's connections.
func newTestStore(t *testing.T) Store {
	dsn := fmt.Sprintf("file:store_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return NewGormStore(db)
}

func TestPushSubscriptionUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &model.PushSubscription{
		UserID:   "alice",
		Endpoint: "https://push.example.com/v1/abc",
		P256DH:   "key1",
		Auth:     "auth1",
	}
	require.NoError(t, s.SavePushSubscription(ctx, first))

	// Saving again for the same user replaces the record instead of creating
	// a duplicate.
	second := &model.PushSubscription{
		UserID:   "alice",
		Endpoint: "https://push.example.com/v1/def",
		P256DH:   "key2",
		Auth:     "auth2",
	}
	require.NoError(t, s.SavePushSubscription(ctx, second))

	got, err := s.GetPushSubscription(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "https://push.example.com/v1/def", got.Endpoint)
	assert.Equal(t, "key2", got.P256DH)

	var count int64
	require.NoError(t, s.DB().Model(&model.PushSubscription{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeletePushSubscriptionIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePushSubscription(ctx, &model.PushSubscription{
		UserID: "bob", Endpoint: "https://push.example.com/v1/bob", P256DH: "k", Auth: "a",
	}))

	require.NoError(t, s.DeletePushSubscription(ctx, "bob"))
	_, err := s.GetPushSubscription(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	// A second delete of the same record must not fail; the two-step
	// unsubscribe flow retries it.
	assert.NoError(t, s.DeletePushSubscription(ctx, "bob"))
}

func TestSetPresenceOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t0 := Touch()
	require.NoError(t, s.SetPresence(ctx, &model.PresenceRecord{UserID: "alice", Online: true, LastSeen: t0}))

	t1 := t0.Add(5 * time.Minute)
	require.NoError(t, s.SetPresence(ctx, &model.PresenceRecord{UserID: "alice", Online: true, LastSeen: t1}))

	got, err := s.GetPresence(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.Online)
	assert.True(t, got.LastSeen.Equal(t1), "lastSeen must move forward with each write")

	require.NoError(t, s.SetPresence(ctx, &model.PresenceRecord{UserID: "alice", Online: false, LastSeen: t1.Add(time.Second)}))
	got, err = s.GetPresence(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, got.Online)

	recs, err := s.ListPresence(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1, "exactly one presence record per user")
}

func TestRelayQueueAcknowledgeThenGone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := Touch()
	for i, id := range []string{"n1", "n2", "n3"} {
		require.NoError(t, s.EnqueueRelayNotification(ctx, &model.RelayNotification{
			ID:        id,
			UserID:    "alice",
			DeviceID:  "alice-1000",
			Title:     "New message",
			Body:      "hello",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	pending, err := s.PendingRelayNotifications(ctx, "alice", "alice-1000")
	require.NoError(t, err)
	require.Len(t, pending, 3)
	// Enqueue order is preserved within a batch.
	assert.Equal(t, "n1", pending[0].ID)
	assert.Equal(t, "n3", pending[2].ID)

	require.NoError(t, s.AcknowledgeRelayNotifications(ctx, "alice", "alice-1000", []string{"n1", "n2"}))

	pending, err = s.PendingRelayNotifications(ctx, "alice", "alice-1000")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "n3", pending[0].ID)

	// Re-acknowledging already purged IDs is a no-op.
	assert.NoError(t, s.AcknowledgeRelayNotifications(ctx, "alice", "alice-1000", []string{"n1", "n2", "n3"}))
	pending, err = s.PendingRelayNotifications(ctx, "alice", "alice-1000")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelayQueueFansOutToDevicelessNotifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Sender-side enqueues do not know which devices the target has; an empty
	// device ID means any of the user's pollers may pick it up.
	require.NoError(t, s.EnqueueRelayNotification(ctx, &model.RelayNotification{
		ID: "broadcast", UserID: "bob", Title: "New message", CreatedAt: Touch(),
	}))
	require.NoError(t, s.EnqueueRelayNotification(ctx, &model.RelayNotification{
		ID: "other-device", UserID: "bob", DeviceID: "bob-2000", Title: "New message", CreatedAt: Touch(),
	}))

	pending, err := s.PendingRelayNotifications(ctx, "bob", "bob-1000")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "broadcast", pending[0].ID)
}

func TestRegisterRelayDeviceReplacesToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RegisterRelayDevice(ctx, &model.RelayDevice{
		DeviceID: "abc-1000", UserID: "abc", Token: "t1",
	}))
	require.NoError(t, s.RegisterRelayDevice(ctx, &model.RelayDevice{
		DeviceID: "abc-1000", UserID: "abc", Token: "t2",
	}))

	dev, err := s.GetRelayDevice(ctx, "abc-1000")
	require.NoError(t, err)
	assert.Equal(t, "t2", dev.Token)
}

func TestSaveMessageUpdatesChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m1 := &model.Message{
		ID: "m1", ChatID: "c1", SenderID: "alice", ReceiverID: "bob",
		Text: "hi", CreatedAt: Touch(),
	}
	require.NoError(t, s.SaveMessage(ctx, m1))

	m2 := &model.Message{
		ID: "m2", ChatID: "c1", SenderID: "bob", ReceiverID: "alice",
		Text: "hello", CreatedAt: Touch().Add(time.Second),
	}
	require.NoError(t, s.SaveMessage(ctx, m2))

	var chat model.Chat
	require.NoError(t, s.DB().First(&chat, "id = ?", "c1").Error)
	assert.Equal(t, "m2", chat.LastMessageID)

	msgs, err := s.ChatMessages(ctx, "c1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID, "messages come back oldest first")
}
