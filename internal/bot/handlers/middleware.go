// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"
	"fmt"
	"runtime/debug"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly creates a middleware that checks if the sender is the configured admin user.
// If not, it sends a "Not Authorized" message and stops processing by returning early.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			user, chat, ok := updateParties(update)
			if !ok {
				next(ctx, bot, update)
				return
			}

			adminID := deps.Config.Telegram.AdminUserID
			if adminID != 0 && user.ID == adminID {
				next(ctx, bot, update)
				return
			}

			log := deps.Logger.With("middleware", "AdminOnly")
			log.WarnContext(ctx, "Unauthorized access attempt", "user_id", user.ID, "chat_id", chat.ID)

			if update.CallbackQuery != nil {
				answerCallback(ctx, bot, update.CallbackQuery.ID, deps.Config.Messages.ErrorUnauthorizedMsg)
				return
			}
			_, err := bot.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID: chat.ID,
				Text:   deps.Config.Messages.ErrorUnauthorizedMsg,
			})
			if err != nil {
				log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chat.ID)
			}
		}
	}
}

// Recover turns a panic in a handler into an error report.
func Recover(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			defer func() {
				if r := recover(); r != nil {
					deps.Logger.ErrorContext(ctx, "Handler panicked", "panic", r, "update_id", update.ID, "stack", string(debug.Stack()))
					reportError(ctx, deps, bot, update, fmt.Errorf("panic: %v", r))
				}
			}()
			next(ctx, bot, update)
		}
	}
}
