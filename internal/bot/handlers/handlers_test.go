package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	"github.com/summaree/summareebot/internal/config"
	"github.com/summaree/summareebot/internal/database"
	"github.com/summaree/summareebot/internal/pipeline"
	"github.com/summaree/summareebot/internal/telegram/telegramtest"
)

const (
	testUserID  int64 = 10
	testAdminID int64 = 1
	testAdminCh int64 = -100
)

type fakePipeline struct {
	mu         sync.Mutex
	requests   []pipeline.Request
	result     *pipeline.Result
	err        error
	transcript *pipeline.TranscriptText
	targets    []*database.Language
}

func (f *fakePipeline) Process(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func (f *fakePipeline) FullTranscript(_ context.Context, _ int64, target *database.Language) (*pipeline.TranscriptText, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
	return f.transcript, f.err
}

type fixture struct {
	srv   *telegramtest.Server
	bot   *bot.Bot
	store database.Store
	pipe  *fakePipeline
	deps  HandlerDeps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := database.NewStore(db, logger)
	srv := telegramtest.NewServer(t)
	pipe := &fakePipeline{}

	cfg := &config.Config{
		Telegram: config.TelegramConfig{
			AdminUserID: testAdminID,
			AdminChatID: testAdminCh,
			BotInfo:     config.BotInfo{Username: "summaree_bot"},
		},
		Premium: config.PremiumConfig{FreeLanguages: []string{"en", "de", "es", "ru"}},
		Messages: config.MessagesConfig{
			Welcome:              "Send me a voice message or forward one to @botname.",
			Help:                 "I transcribe and summarize voice messages.",
			ErrorGeneralMsg:      "Something went wrong.",
			ErrorUnauthorizedMsg: "Not authorized.",
			InvalidButtonMsg:     "This button is no longer available.",
			PremiumRequiredMsg:   "Premium required.",
			PaymentThanksMsg:     "Premium active until %s.",
			SubscriptionEnded:    "Your premium ended.",
		},
	}

	return &fixture{
		srv:   srv,
		bot:   srv.Bot(t),
		store: store,
		pipe:  pipe,
		deps: HandlerDeps{
			Logger:   logger,
			Config:   cfg,
			Store:    store,
			Pipeline: pipe,
		},
	}
}

func (f *fixture) language(t *testing.T, tag string) *database.Language {
	t.Helper()
	lang, err := f.store.GetLanguageByTag(context.Background(), tag)
	require.NoError(t, err)
	require.NotNil(t, lang, "language %s", tag)
	return lang
}

func (f *fixture) adminMessages(t *testing.T) []database.QueuedMessage {
	t.Helper()
	msgs, err := f.store.PendingMessages(context.Background(), 100)
	require.NoError(t, err)
	return msgs
}

func (f *fixture) lastText(t *testing.T) string {
	t.Helper()
	call, ok := f.srv.Last("sendMessage")
	require.True(t, ok, "no sendMessage call")
	return call.Fields["text"]
}

func textUpdate(userID int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   5,
			From: &models.User{ID: userID, FirstName: "Ada", Username: "ada", LanguageCode: "en"},
			Chat: models.Chat{ID: userID, Type: models.ChatTypePrivate, FirstName: "Ada"},
			Text: text,
		},
	}
}

func callbackUpdate(userID int64, data string) *models.Update {
	return &models.Update{
		ID: 2,
		CallbackQuery: &models.CallbackQuery{
			ID:   "cq-1",
			From: models.User{ID: userID, FirstName: "Ada", LanguageCode: "en"},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{ID: 7, Chat: models.Chat{ID: userID, Type: models.ChatTypePrivate}},
			},
		},
	}
}

func keyboardOf(t *testing.T, call telegramtest.Call) models.InlineKeyboardMarkup {
	t.Helper()
	var kb models.InlineKeyboardMarkup
	require.NoError(t, json.Unmarshal([]byte(call.Fields["reply_markup"]), &kb))
	return kb
}
