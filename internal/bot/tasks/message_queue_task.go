package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/summaree/summareebot/internal/database"
	"github.com/summaree/summareebot/internal/metrics"
)

const (
	// maxSendAttempts is how often a queued message is tried before it is dropped.
	maxSendAttempts = 5
	queueBatchSize  = 30
)

// newMessageQueueTask creates the task delivering queued outbound messages.
func newMessageQueueTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "message_queue")

	return func(ctx context.Context) error {
		msgs, err := deps.Store.PendingMessages(ctx, queueBatchSize)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return nil
		}
		log.DebugContext(ctx, "Delivering queued messages", "count", len(msgs))

		var sent, failed int
		var errs []error
		for _, m := range msgs {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			sendErr := deliver(ctx, deps, m)
			if sendErr == nil {
				if err := deps.Store.MarkMessageSent(ctx, m.ID, deps.now()); err != nil {
					errs = append(errs, err)
				}
				metrics.QueueSendsTotal.WithLabelValues("sent").Inc()
				sent++
				continue
			}

			failed++
			gaveUp, err := deps.Store.MarkMessageFailed(ctx, m.ID, sendErr.Error(), maxSendAttempts)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if gaveUp {
				metrics.QueueSendsTotal.WithLabelValues("failed").Inc()
				log.ErrorContext(ctx, "Giving up on queued message", "message_id", m.ID, "chat_id", m.ChatID, "error", sendErr)
			} else {
				metrics.QueueSendsTotal.WithLabelValues("retry").Inc()
				log.WarnContext(ctx, "Queued message delivery failed", "message_id", m.ID, "chat_id", m.ChatID, "attempt", m.Attempts+1, "error", sendErr)
			}
		}

		log.InfoContext(ctx, "Queued messages processed", "sent", sent, "failed", failed)
		return errors.Join(errs...)
	}
}

// deliver sends one queued message. ChatID 0 goes to the admin chat.
func deliver(ctx context.Context, deps TaskDeps, m database.QueuedMessage) error {
	chatID := m.ChatID
	if chatID == database.AdminChatID {
		chatID = deps.Config.Telegram.AdminChatID
		if chatID == 0 {
			return fmt.Errorf("admin chat is not configured")
		}
	}

	_, err := deps.Bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      m.Text,
		ParseMode: models.ParseMode(m.ParseMode),
	})
	return err
}
