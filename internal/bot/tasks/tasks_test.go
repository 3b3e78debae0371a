package tasks

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summaree/summareebot/internal/config"
	"github.com/summaree/summareebot/internal/database"
	"github.com/summaree/summareebot/internal/telegram/telegramtest"
)

const testAdminChatID int64 = -100

func newTestDeps(t *testing.T) (TaskDeps, *telegramtest.Server) {
	t.Helper()

	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := telegramtest.NewServer(t)

	return TaskDeps{
		Logger: logger,
		Store:  database.NewStore(db, logger),
		Bot:    srv.Bot(t),
		Config: &config.Config{
			Telegram: config.TelegramConfig{AdminChatID: testAdminChatID},
			Messages: config.MessagesConfig{SubscriptionEnded: "Your premium ended."},
		},
	}, srv
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()
	deps, _ := newTestDeps(t)

	tasks := RegisterAllTasks(deps)
	assert.Len(t, tasks, 3)
	for _, name := range []string{"message_queue", "subscription_check", "sql_maintenance"} {
		assert.Contains(t, tasks, name)
	}
}

func TestMessageQueueTaskDelivers(t *testing.T) {
	t.Parallel()
	deps, srv := newTestDeps(t)
	ctx := context.Background()

	require.NoError(t, deps.Store.EnqueueMessage(ctx, database.AdminChatID, "<b>admin</b>", "HTML"))
	require.NoError(t, deps.Store.EnqueueMessage(ctx, 42, "hello", ""))

	require.NoError(t, newMessageQueueTask(deps)(ctx))

	calls := srv.Calls("sendMessage")
	require.Len(t, calls, 2)
	assert.Equal(t, "-100", calls[0].Fields["chat_id"])
	assert.Equal(t, "HTML", calls[0].Fields["parse_mode"])
	assert.Equal(t, "42", calls[1].Fields["chat_id"])
	assert.Equal(t, "hello", calls[1].Fields["text"])

	pending, err := deps.Store.PendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Nothing left to send.
	require.NoError(t, newMessageQueueTask(deps)(ctx))
	assert.Len(t, srv.Calls("sendMessage"), 2)
}

func TestMessageQueueTaskGivesUp(t *testing.T) {
	t.Parallel()
	deps, srv := newTestDeps(t)
	ctx := context.Background()
	srv.SetError("sendMessage", "Bad Request: chat not found")

	require.NoError(t, deps.Store.EnqueueMessage(ctx, 42, "hello", ""))
	task := newMessageQueueTask(deps)

	for range maxSendAttempts - 1 {
		require.NoError(t, task(ctx))
		pending, err := deps.Store.PendingMessages(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Contains(t, pending[0].LastError, "chat not found")
	}

	require.NoError(t, task(ctx))
	pending, err := deps.Store.PendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Len(t, srv.Calls("sendMessage"), maxSendAttempts)
}

func TestMessageQueueTaskWithoutAdminChat(t *testing.T) {
	t.Parallel()
	deps, srv := newTestDeps(t)
	deps.Config.Telegram.AdminChatID = 0
	ctx := context.Background()

	require.NoError(t, deps.Store.EnqueueMessage(ctx, database.AdminChatID, "admin", ""))
	require.NoError(t, newMessageQueueTask(deps)(ctx))

	assert.Empty(t, srv.Calls("sendMessage"))
	pending, err := deps.Store.PendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
}

func TestSubscriptionCheckTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name        string
		adminChatID int64
		wantQueued  int
	}{
		{name: "with admin chat", adminChatID: testAdminChatID, wantQueued: 2},
		{name: "without admin chat", wantQueued: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			deps, _ := newTestDeps(t)
			deps.Config.Telegram.AdminChatID = tt.adminChatID
			now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			deps.Now = func() time.Time { return now }

			_, err := deps.Store.EnsureUserAndChat(ctx,
				database.User{ID: 7, FirstName: "Bob"}, database.Chat{ID: 7, Type: "private"})
			require.NoError(t, err)
			_, err = deps.Store.ExtendSubscription(ctx, 7, 30, now.AddDate(0, 0, -31))
			require.NoError(t, err)

			require.NoError(t, newSubscriptionCheckTask(deps)(ctx))

			sub, err := deps.Store.GetActiveSubscription(ctx, 7, now)
			require.NoError(t, err)
			assert.Nil(t, sub)

			pending, err := deps.Store.PendingMessages(ctx, 10)
			require.NoError(t, err)
			require.Len(t, pending, tt.wantQueued)
			assert.Equal(t, int64(7), pending[0].ChatID)
			assert.Equal(t, "Your premium ended.", pending[0].Text)

			// Expired subscriptions are picked up once.
			require.NoError(t, newSubscriptionCheckTask(deps)(ctx))
			pending, err = deps.Store.PendingMessages(ctx, 10)
			require.NoError(t, err)
			assert.Len(t, pending, tt.wantQueued)
		})
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()
	deps, _ := newTestDeps(t)

	require.NoError(t, newSQLMaintenanceTask(deps)(context.Background()))
}
