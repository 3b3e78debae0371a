package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/summaree/summareebot/internal/telegram/callback"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return WithSession(deps, startHandler{deps}.Handle)
}

// startHandler greets the user or runs a deep-link payload.
type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update, s *Session) error {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil {
		log.WarnContext(ctx, "Start handler received update with nil message", "update_id", update.ID)
		return nil
	}

	log.InfoContext(ctx, "Handling /start command", "chat_id", s.Chat.ID, "user_id", s.User.ID)

	if args := commandArgs(update.Message.Text); len(args) > 0 {
		return h.handlePayload(ctx, b, s, args)
	}

	greeting := fmt.Sprintf("Hi %s! %s", mentionHTML(s.User.ID, s.User.FirstName), h.deps.welcome())
	s.Reply(func(ctx context.Context) error {
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    s.Chat.ID,
			Text:      greeting,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			return fmt.Errorf("failed to send welcome message: %w", err)
		}
		log.DebugContext(ctx, "Successfully sent welcome message", "chat_id", s.Chat.ID)
		return nil
	})
	return nil
}

// handlePayload dispatches t.me/<bot>?start=<payload> links.
func (h startHandler) handlePayload(ctx context.Context, b *bot.Bot, s *Session, args []string) error {
	var values []string
	var err error
	if len(args) == 1 {
		values, err = callback.DecodeStartPayload(args[0])
	}
	if len(args) != 1 || err != nil {
		h.deps.Logger.WarnContext(ctx, "Received invalid start payload", "args", args, "error", err)
		return h.reply(b, s, fmt.Sprintf(invalidStartArgsFmt, "<code>"+html.EscapeString(strings.Join(args, " "))+"</code>"))
	}

	switch fn, rest := values[0], values[1:]; {
	case fn == "lang" && len(rest) == 1:
		text, err := langHandler{h.deps}.setLanguage(ctx, s, rest[0])
		if err != nil {
			return err
		}
		return h.reply(b, s, text)
	case fn == "premium" && len(rest) == 0:
		return premiumHandler{h.deps}.showStatus(ctx, b, s)
	}

	h.deps.Logger.WarnContext(ctx, "Unknown start payload", "values", values)
	return h.reply(b, s, fmt.Sprintf(invalidStartArgsFmt, "<code>"+html.EscapeString(strings.Join(values, " "))+"</code>"))
}

func (h startHandler) reply(b *bot.Bot, s *Session, text string) error {
	s.Reply(func(ctx context.Context) error {
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: s.Chat.ID, Text: text, ParseMode: models.ParseModeHTML})
		if err != nil {
			return fmt.Errorf("failed to send start reply: %w", err)
		}
		return nil
	})
	return nil
}

func mentionHTML(userID int64, name string) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, html.EscapeString(name))
}
