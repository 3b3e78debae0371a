// Package logger provides structured logging for the summaree bot.
// It uses Go's slog package with configurable levels and formats.
package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a slog Logger writing to stdout and installs it as the default.
// If jsonOutput is true, logs are formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(levelStr)}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// UpdateType names the kind of payload an update carries.
func UpdateType(update *models.Update) string {
	switch {
	case update.Message != nil:
		switch {
		case update.Message.SuccessfulPayment != nil:
			return "successful_payment"
		case update.Message.Voice != nil:
			return "voice"
		case update.Message.Audio != nil:
			return "audio"
		case update.Message.Video != nil:
			return "video"
		case update.Message.VideoNote != nil:
			return "video_note"
		case update.Message.Document != nil:
			return "document"
		}
		return "message"
	case update.CallbackQuery != nil:
		return "callback_query"
	case update.PreCheckoutQuery != nil:
		return "pre_checkout_query"
	case update.MyChatMember != nil:
		return "my_chat_member"
	}
	return "other"
}

// Middleware creates a logging middleware for the Telegram bot.
// It logs every incoming update together with its processing time.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()

			logEntry := log.With("update_id", update.ID, "update_type", UpdateType(update))

			switch {
			case update.Message != nil:
				logEntry = logEntry.With(
					"message_id", update.Message.ID,
					"chat_id", update.Message.Chat.ID,
					"text_preview", truncateString(update.Message.Text, 50),
				)
				if update.Message.From != nil {
					logEntry = logEntry.With("user_id", update.Message.From.ID)
				}
			case update.CallbackQuery != nil:
				logEntry = logEntry.With(
					"callback_query_id", update.CallbackQuery.ID,
					"user_id", update.CallbackQuery.From.ID,
					"data", update.CallbackQuery.Data,
				)
				if msg := update.CallbackQuery.Message.Message; msg != nil {
					logEntry = logEntry.With("chat_id", msg.Chat.ID, "message_accessible", true)
				} else if inaccessible := update.CallbackQuery.Message.InaccessibleMessage; inaccessible != nil {
					logEntry = logEntry.With("chat_id", inaccessible.Chat.ID, "message_accessible", false)
				}
			case update.PreCheckoutQuery != nil:
				logEntry = logEntry.With(
					"pre_checkout_query_id", update.PreCheckoutQuery.ID,
					"user_id", update.PreCheckoutQuery.From.ID,
					"total_amount", update.PreCheckoutQuery.TotalAmount,
				)
			}

			logEntry.InfoContext(ctx, "Processing update")

			next(ctx, b, update)

			logEntry.InfoContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
