package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSessionRepliesAfterCommit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		handlerErr  error
		replyErr    error
		wantReplied bool
		wantTag     string
		wantError   bool
	}{
		{name: "commit", wantReplied: true, wantTag: "de"},
		{name: "rollback drops replies", handlerErr: errors.New("boom"), wantTag: "en", wantError: true},
		{name: "failed reply keeps state", replyErr: errors.New("send failed"), wantReplied: true, wantTag: "de", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			de := f.language(t, "de")
			update := textUpdate(testUserID, "hi")
			user, chat, ok := updateParties(update)
			require.True(t, ok)
			_, err := f.store.EnsureUserAndChat(context.Background(), user, chat)
			require.NoError(t, err)

			var replies []string
			handler := WithSession(f.deps, func(ctx context.Context, _ *tgbot.Bot, _ *models.Update, s *Session) error {
				if err := s.Store.SetChatLanguage(ctx, s.Chat.ID, de.ID); err != nil {
					return err
				}
				s.Reply(func(ctx context.Context) error {
					// The store has one connection, so this read blocks while
					// the update transaction is open.
					readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
					defer cancel()
					chat, err := f.store.GetChat(readCtx, s.Chat.ID)
					if err != nil {
						return err
					}
					lang, err := f.store.GetLanguage(readCtx, chat.LanguageID)
					if err != nil {
						return err
					}
					replies = append(replies, lang.IETFTag)
					return tt.replyErr
				})
				return tt.handlerErr
			})

			handler(context.Background(), f.bot, update)

			if tt.wantReplied {
				assert.Equal(t, []string{"de"}, replies)
			} else {
				assert.Empty(t, replies)
			}
			assert.Equal(t, tt.wantTag, f.chatLanguage(t, testUserID))
			if tt.wantError {
				assert.Equal(t, f.deps.Config.Messages.ErrorGeneralMsg, f.lastText(t))
			} else {
				assert.Empty(t, f.srv.Calls("sendMessage"))
			}
		})
	}
}

func TestWithContactFlushesReplies(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var order []string
	handler := WithContact(f.deps, func(_ context.Context, _ *tgbot.Bot, _ *models.Update, s *Session) error {
		s.Reply(func(context.Context) error {
			order = append(order, "first")
			return nil
		})
		s.Reply(func(context.Context) error {
			order = append(order, "second")
			return nil
		})
		order = append(order, "handler")
		return nil
	})

	handler(context.Background(), f.bot, textUpdate(testUserID, "hi"))

	require.Equal(t, []string{"handler", "first", "second"}, order)
}
