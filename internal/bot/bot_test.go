package bot

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summaree/summareebot/internal/config"
	"github.com/summaree/summareebot/internal/telegram/telegramtest"
)

func TestRunWebhookMode(t *testing.T) {
	t.Parallel()

	srv := telegramtest.NewServer(t)
	cfg := &config.Config{
		Telegram: config.TelegramConfig{
			WebhookURL:         "https://example.org/telegram/webhook",
			WebhookSecretToken: "s3cret",
			DropPendingUpdates: true,
		},
		HTTP: config.HTTPConfig{ListenAddr: "127.0.0.1:0", WebhookPath: "/telegram/webhook"},
	}
	sched, err := NewScheduler(discardLogger(), &config.SchedulerConfig{}, nil)
	require.NoError(t, err)

	app := NewBot(discardLogger(), cfg, srv.Bot(t), sched, http.NotFoundHandler())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := srv.Last("setWebhook")
		return ok
	}, 5*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	call, _ := srv.Last("setWebhook")
	assert.Equal(t, "https://example.org/telegram/webhook", call.Fields["url"])
	assert.Equal(t, "s3cret", call.Fields["secret_token"])
	assert.Equal(t, "true", call.Fields["drop_pending_updates"])
	assert.Empty(t, srv.Calls("deleteWebhook"))
}

func TestRunFailsWhenWebhookIsRejected(t *testing.T) {
	t.Parallel()

	srv := telegramtest.NewServer(t)
	srv.SetError("setWebhook", "Bad Request: bad webhook")
	cfg := &config.Config{
		Telegram: config.TelegramConfig{WebhookURL: "https://example.org/hook", WebhookSecretToken: "x"},
		HTTP:     config.HTTPConfig{ListenAddr: "127.0.0.1:0", WebhookPath: "/hook"},
	}
	sched, err := NewScheduler(discardLogger(), &config.SchedulerConfig{}, nil)
	require.NoError(t, err)

	err = NewBot(discardLogger(), cfg, srv.Bot(t), sched, http.NotFoundHandler()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set webhook")
}
