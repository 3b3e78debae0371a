package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewDefaultHandler returns the handler for updates no other handler matched.
func NewDefaultHandler(deps HandlerDeps) bot.HandlerFunc {
	return WithSession(deps, defaultHandler{deps}.Handle)
}

// defaultHandler answers stale buttons and unrecognised private messages.
type defaultHandler struct {
	deps HandlerDeps
}

func (h defaultHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update, s *Session) error {
	log := h.deps.Logger.With("handler", "default")

	if cq := update.CallbackQuery; cq != nil {
		log.InfoContext(ctx, "Unhandled button", "data", cq.Data, "user_id", s.User.ID)
		s.invalidButton(b, h.deps, cq)
		return nil
	}

	if update.Message == nil || s.Chat.Type != string(models.ChatTypePrivate) {
		return nil
	}
	log.DebugContext(ctx, "Replying with usage hint", "chat_id", s.Chat.ID)
	s.Reply(func(ctx context.Context) error {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: s.Chat.ID, Text: h.deps.welcome()}); err != nil {
			return fmt.Errorf("failed to send usage hint: %w", err)
		}
		return nil
	})
	return nil
}

// invalidButton tells the user a button no longer works and removes the
// keyboard it belonged to.
func invalidButton(ctx context.Context, b *bot.Bot, deps HandlerDeps, cq *models.CallbackQuery) {
	answerCallback(ctx, b, cq.ID, deps.Config.Messages.InvalidButtonMsg)

	msg := cq.Message.Message
	if msg == nil {
		return
	}
	_, err := b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		ReplyMarkup: removeKeyboard(),
	})
	if err != nil {
		deps.Logger.DebugContext(ctx, "Failed to remove stale keyboard", "error", err, "chat_id", msg.Chat.ID)
	}
}
