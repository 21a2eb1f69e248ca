package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chat-pwa-backend/internal/model"
	"chat-pwa-backend/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	mu    sync.Mutex
	calls int
	fn    func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fn(payload, sub, options)
}

func (m *mockSender) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func pushResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

var testDBSeq atomic.Int64

func newTestStore(t *testing.T) store.Store {
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	return store.NewGormStore(db)
}

func TestWorkerPool_SendsNotificationWithSenderName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DB().Create(&model.User{
		ID: "bob", Username: "bob", Email: "bob@example.com", PhotoURL: "/avatars/bob.png",
	}).Error)
	require.NoError(t, s.SavePushSubscription(ctx, &model.PushSubscription{
		UserID: "alice", Endpoint: "https://push.example.com/alice", P256DH: "p", Auth: "a",
	}))

	done := make(chan Payload, 1)
	sender := &mockSender{fn: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
		assert.Equal(t, "https://push.example.com/alice", sub.Endpoint)
		var p Payload
		require.NoError(t, json.Unmarshal(payload, &p))
		done <- p
		return pushResponse(http.StatusCreated), nil
	}}

	wp := NewWorkerPool(1, s, &webpush.Options{})
	wp.sender = sender

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	wp.Start(runCtx)

	wp.Dispatch(Job{RecipientID: "alice", SenderID: "bob", ChatID: "c1", Message: "hey"})

	select {
	case p := <-done:
		assert.Equal(t, "New message from bob", p.Title)
		assert.Equal(t, "hey", p.Body)
		assert.Equal(t, "/avatars/bob.png", p.Icon)
		assert.Equal(t, "c1", p.Tag)
		assert.Equal(t, "c1", p.Data.ChatID)
		assert.Equal(t, "bob", p.Data.SenderID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification to be sent")
	}
}

func TestWorkerPool_DeletesExpiredSubscription(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePushSubscription(ctx, &model.PushSubscription{
		UserID: "alice", Endpoint: "https://push.example.com/expired", P256DH: "p", Auth: "a",
	}))

	sender := &mockSender{fn: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
		return pushResponse(http.StatusGone), nil
	}}

	wp := NewWorkerPool(1, s, &webpush.Options{})
	wp.sender = sender

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	wp.Start(runCtx)

	wp.Dispatch(Job{RecipientID: "alice", SenderID: "bob", Message: "hey"})

	// The worker deletes the stale record after the 410.
	assert.Eventually(t, func() bool {
		_, err := s.GetPushSubscription(ctx, "alice")
		return err == store.ErrNotFound
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, sender.callCount())
}

func TestWorkerPool_NoSubscriptionMeansNoSend(t *testing.T) {
	s := newTestStore(t)

	sender := &mockSender{fn: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
		t.Fatal("send must not be called for users without a subscription")
		return nil, nil
	}}

	wp := NewWorkerPool(1, s, &webpush.Options{})
	wp.sender = sender

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(runCtx)

	wp.Dispatch(Job{RecipientID: "nobody", Message: "hey"})
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, sender.callCount())
}

func TestSendToSubscriptionClassification(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "created is success", status: http.StatusCreated, wantErr: nil},
		{name: "410 classifies as expired", status: http.StatusGone, wantErr: ErrSubscriptionExpired},
		{name: "404 classifies as not found", status: http.StatusNotFound, wantErr: ErrSubscriptionNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			wp := NewWorkerPool(1, newTestStore(t), &webpush.Options{})
			wp.sender = &mockSender{fn: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return pushResponse(tc.status), nil
			}}

			err := wp.SendToSubscription(context.Background(), &model.PushSubscription{
				UserID: "u", Endpoint: "https://push.example.com/u", P256DH: "p", Auth: "a",
			}, []byte("{}"))

			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}

	t.Run("other 4xx is a plain error", func(t *testing.T) {
		wp := NewWorkerPool(1, newTestStore(t), &webpush.Options{})
		wp.sender = &mockSender{fn: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			return pushResponse(http.StatusTooManyRequests), nil
		}}
		err := wp.SendToSubscription(context.Background(), &model.PushSubscription{
			UserID: "u", Endpoint: "https://push.example.com/u", P256DH: "p", Auth: "a",
		}, []byte("{}"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSubscriptionExpired)
		assert.NotErrorIs(t, err, ErrSubscriptionNotFound)
	})
}

// A database failure while looking up the subscription is swallowed; the
// worker must keep running.
func TestWorkerPool_SurvivesStoreErrors(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT .* FROM "push_subscriptions"`).
		WillReturnError(assert.AnError)

	sender := &mockSender{fn: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
		return pushResponse(http.StatusCreated), nil
	}}

	wp := NewWorkerPool(1, store.NewGormStore(gormDB), &webpush.Options{})
	wp.sender = sender

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(runCtx)

	wp.Dispatch(Job{RecipientID: "alice", Message: "hey"})
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 0, sender.callCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}
