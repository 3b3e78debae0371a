package handlers

import (
	"context"
	"testing"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dispatcher returns a bot that routes updates through RegisterAllCommands
// synchronously.
func (f *fixture) dispatcher(t *testing.T) *tgbot.Bot {
	t.Helper()
	b := f.srv.Bot(t, tgbot.WithNotAsyncHandlers(), tgbot.WithDefaultHandler(NewDefaultHandler(f.deps)))
	for _, h := range RegisterAllCommands(f.deps) {
		handler := h.Handler
		for i := len(h.Middleware) - 1; i >= 0; i-- {
			handler = h.Middleware[i](handler)
		}
		if h.MatchFunc != nil {
			b.RegisterHandlerMatchFunc(h.MatchFunc, handler)
		} else {
			b.RegisterHandler(h.HandlerType, h.Pattern, h.MatchType, handler)
		}
	}
	return b
}

func commandUpdate(chat models.Chat, text string, length int) *models.Update {
	u := textUpdate(testUserID, text)
	u.Message.Chat = chat
	if length > 0 {
		u.Message.Entities = []models.MessageEntity{{Type: models.MessageEntityTypeBotCommand, Offset: 0, Length: length}}
	}
	return u
}

func TestGroupCommandRouting(t *testing.T) {
	t.Parallel()

	group := models.Chat{ID: -42, Type: models.ChatTypeSupergroup, Title: "Team"}
	tests := []struct {
		name    string
		text    string
		length  int
		wantTag string
	}{
		{name: "addressed to us", text: "/lang@summaree_bot de", length: 18, wantTag: "de"},
		{name: "mention case", text: "/LANG@Summaree_Bot de", length: 18, wantTag: "de"},
		{name: "plain command", text: "/lang de", length: 5, wantTag: "de"},
		{name: "other bot", text: "/lang@other_bot de", length: 15, wantTag: "en"},
		{name: "no entity", text: "/lang de", wantTag: "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			f.dispatcher(t).ProcessUpdate(context.Background(), commandUpdate(group, tt.text, tt.length))

			assert.Equal(t, tt.wantTag, f.chatLanguage(t, group.ID))
			if tt.wantTag == "de" {
				assert.Contains(t, f.lastText(t), "Language successfully set to: 🇩🇪 de [German]")
			} else {
				assert.Empty(t, f.srv.Calls("sendMessage"))
			}
		})
	}
}

func TestPrivateCommandRouting(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	private := models.Chat{ID: testUserID, Type: models.ChatTypePrivate, FirstName: "Ada"}
	f.dispatcher(t).ProcessUpdate(context.Background(), commandUpdate(private, "/help", 5))

	assert.Contains(t, f.lastText(t), "/lang - Set default language")
}

func TestMessageCommand(t *testing.T) {
	t.Parallel()

	entity := func(offset, length int) []models.MessageEntity {
		return []models.MessageEntity{{Type: models.MessageEntityTypeBotCommand, Offset: offset, Length: length}}
	}
	tests := []struct {
		name     string
		msg      *models.Message
		username string
		wantCmd  string
		wantOK   bool
	}{
		{name: "nil message", msg: nil, username: "summaree_bot"},
		{name: "plain", msg: &models.Message{Text: "/lang de", Entities: entity(0, 5)}, username: "summaree_bot", wantCmd: "lang", wantOK: true},
		{name: "mention", msg: &models.Message{Text: "/top@summaree_bot", Entities: entity(0, 17)}, username: "summaree_bot", wantCmd: "top", wantOK: true},
		{name: "upper case", msg: &models.Message{Text: "/Start@SUMMAREE_BOT", Entities: entity(0, 19)}, username: "summaree_bot", wantCmd: "start", wantOK: true},
		{name: "other bot", msg: &models.Message{Text: "/lang@other_bot", Entities: entity(0, 15)}, username: "summaree_bot"},
		{name: "unknown username", msg: &models.Message{Text: "/lang@summaree_bot", Entities: entity(0, 18)}, username: ""},
		{name: "not at start", msg: &models.Message{Text: "hi /lang", Entities: entity(3, 5)}, username: "summaree_bot"},
		{name: "no entity", msg: &models.Message{Text: "/lang"}, username: "summaree_bot"},
		{name: "bare slash", msg: &models.Message{Text: "/", Entities: entity(0, 1)}, username: "summaree_bot"},
		{name: "length beyond text", msg: &models.Message{Text: "/la", Entities: entity(0, 9)}, username: "summaree_bot"},
		{
			name:     "astral text after command",
			msg:      &models.Message{Text: "/lang 😀", Entities: entity(0, 5)},
			username: "summaree_bot",
			wantCmd:  "lang",
			wantOK:   true,
		},
		{
			name: "other entity first",
			msg: &models.Message{Text: "/help", Entities: []models.MessageEntity{
				{Type: models.MessageEntityTypeBold, Offset: 0, Length: 5},
				{Type: models.MessageEntityTypeBotCommand, Offset: 0, Length: 5},
			}},
			username: "summaree_bot",
			wantCmd:  "help",
			wantOK:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd, ok := messageCommand(tt.msg, tt.username)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCmd, cmd)
		})
	}
}
