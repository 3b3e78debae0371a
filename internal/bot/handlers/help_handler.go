package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewHelpHandler returns a handler for the /help command listing commands.
func NewHelpHandler(deps HandlerDeps, commands []models.BotCommand) bot.HandlerFunc {
	return helpHandler{deps: deps, commands: commands}.Handle
}

// helpHandler processes the /help command using injected dependencies.
type helpHandler struct {
	deps     HandlerDeps
	commands []models.BotCommand
}

func (h helpHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "help")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Help handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	log.InfoContext(ctx, "Handling /help command", "chat_id", update.Message.Chat.ID, "user_id", update.Message.From.ID)

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: update.Message.Chat.ID, Text: h.text()})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send help message", "error", err, "chat_id", update.Message.Chat.ID)
	} else {
		log.DebugContext(ctx, "Successfully sent help message", "chat_id", update.Message.Chat.ID)
	}
}

func (h helpHandler) text() string {
	var sb strings.Builder
	sb.WriteString(h.deps.withBotName(h.deps.Config.Messages.Help))
	if len(h.commands) > 0 {
		sb.WriteString("\n\nAvailable commands are:")
		for _, c := range h.commands {
			sb.WriteString("\n/" + c.Command + " - " + c.Description)
		}
	}
	return sb.String()
}
