package database

import (
	"context"
	"fmt"
	"time"
)

func (s *sqlxStore) EnqueueMessage(ctx context.Context, chatID int64, text, parseMode string) error {
	if text == "" {
		return fmt.Errorf("cannot enqueue an empty message for chat %d", chatID)
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO queued_messages (chat_id, text, parse_mode, created_at) VALUES (?, ?, ?, ?)`,
		chatID, text, parseMode, utcNow())
	if err != nil {
		return fmt.Errorf("failed to enqueue message for chat %d: %w", chatID, err)
	}
	return nil
}

func (s *sqlxStore) PendingMessages(ctx context.Context, limit int) ([]QueuedMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	var msgs []QueuedMessage
	if err := s.q.SelectContext(ctx, &msgs, `
		SELECT * FROM queued_messages
		WHERE sent_at IS NULL AND failed_at IS NULL
		ORDER BY id LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("failed to load pending messages: %w", err)
	}
	return msgs, nil
}

func (s *sqlxStore) MarkMessageSent(ctx context.Context, id int64, sentAt time.Time) error {
	if _, err := s.q.ExecContext(ctx, `UPDATE queued_messages SET sent_at = ? WHERE id = ?`, sentAt.UTC(), id); err != nil {
		return fmt.Errorf("failed to mark message %d sent: %w", id, err)
	}
	return nil
}

func (s *sqlxStore) MarkMessageFailed(ctx context.Context, id int64, reason string, maxAttempts int) (bool, error) {
	var attempts int
	err := s.WithTx(ctx, func(tx Store) error {
		ts := tx.(*sqlxStore)
		if err := ts.q.GetContext(ctx, &attempts, `SELECT attempts FROM queued_messages WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to read attempts of message %d: %w", id, err)
		}
		attempts++

		var failedAt any
		if attempts >= maxAttempts {
			failedAt = utcNow()
		}
		_, err := ts.q.ExecContext(ctx,
			`UPDATE queued_messages SET attempts = ?, last_error = ?, failed_at = ? WHERE id = ?`,
			attempts, reason, failedAt, id)
		if err != nil {
			return fmt.Errorf("failed to record failure of message %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return attempts >= maxAttempts, nil
}
