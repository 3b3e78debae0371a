package tasks

import (
	"context"
	"fmt"

	"github.com/summaree/summareebot/internal/database"
)

// newSubscriptionCheckTask creates the task that expires subscriptions past
// their end date and queues a notice to each affected user.
func newSubscriptionCheckTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "subscription_check")

	return func(ctx context.Context) error {
		var expired []database.Subscription
		err := deps.Store.WithTx(ctx, func(tx database.Store) error {
			var err error
			if expired, err = tx.ExpireSubscriptions(ctx, deps.now()); err != nil {
				return err
			}
			for _, sub := range expired {
				// Users are notified in their private chat, whose id is the user id.
				if err := tx.EnqueueMessage(ctx, sub.UserID, deps.Config.Messages.SubscriptionEnded, ""); err != nil {
					return err
				}
			}
			if len(expired) > 0 && deps.Config.Telegram.AdminChatID != 0 {
				text := fmt.Sprintf("⌛ %d subscription(s) expired", len(expired))
				return tx.EnqueueMessage(ctx, database.AdminChatID, text, "")
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("subscription check failed: %w", err)
		}

		if len(expired) > 0 {
			log.InfoContext(ctx, "Expired subscriptions", "count", len(expired))
		}
		return nil
	}
}
