package handlers

import (
	"context"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const defaultTypingInterval = 4 * time.Second

// keepTyping shows the typing indicator in chatID until the returned stop
// function is called. Telegram clears the indicator after five seconds.
func keepTyping(ctx context.Context, b *tgbot.Bot, chatID int64, interval time.Duration, log *slog.Logger) (stop func()) {
	if interval <= 0 {
		interval = defaultTypingInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		if err := sendTyping(ctx, b, chatID); err != nil {
			log.DebugContext(ctx, "Initial typing action failed", "error", err, "chat_id", chatID)
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := sendTyping(ctx, b, chatID); err != nil {
					if ctx.Err() != nil {
						return
					}
					log.DebugContext(ctx, "Typing action failed", "error", err, "chat_id", chatID)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func sendTyping(ctx context.Context, b *tgbot.Bot, chatID int64) error {
	_, err := b.SendChatAction(ctx, &tgbot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	return err
}
