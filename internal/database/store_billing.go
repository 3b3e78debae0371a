package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func (s *sqlxStore) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := s.q.SelectContext(ctx, &products, `SELECT * FROM products WHERE active = 1 ORDER BY price`); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *sqlxStore) GetProduct(ctx context.Context, id int64) (*Product, error) {
	p, err := get[Product](ctx, s, `SELECT * FROM products WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return p, nil
}

func (s *sqlxStore) CreateInvoice(ctx context.Context, invoice *Invoice) error {
	if invoice == nil || invoice.Payload == "" {
		return fmt.Errorf("invoice must have a payload")
	}
	ts := utcNow()
	invoice.CreatedAt = ts
	invoice.UpdatedAt = ts
	if invoice.Status == "" {
		invoice.Status = InvoiceCreated
	}

	result, err := s.q.NamedExecContext(ctx, `
		INSERT INTO invoices (user_id, product_id, payload, total_amount, currency, status,
			telegram_payment_charge_id, paid_at, created_at, updated_at)
		VALUES (:user_id, :product_id, :payload, :total_amount, :currency, :status,
			:telegram_payment_charge_id, :paid_at, :created_at, :updated_at)`, invoice)
	if err != nil {
		return fmt.Errorf("failed to create invoice for user %d: %w", invoice.UserID, err)
	}
	if invoice.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read invoice id: %w", err)
	}
	return nil
}

func (s *sqlxStore) GetInvoiceByPayload(ctx context.Context, payload string) (*Invoice, error) {
	inv, err := get[Invoice](ctx, s, `SELECT * FROM invoices WHERE payload = ?`, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

func (s *sqlxStore) MarkInvoicePaid(ctx context.Context, id int64, chargeID string, paidAt time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE invoices SET status = ?, telegram_payment_charge_id = ?, paid_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`, InvoicePaid, chargeID, paidAt.UTC(), utcNow(), id, InvoiceCreated)
	if err != nil {
		return fmt.Errorf("failed to mark invoice %d paid: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("invoice %d is not open", id)
	}
	return nil
}

func (s *sqlxStore) GetActiveSubscription(ctx context.Context, userID int64, now time.Time) (*Subscription, error) {
	sub, err := get[Subscription](ctx, s, `
		SELECT * FROM subscriptions
		WHERE user_id = ? AND status IN (?, ?) AND start_date <= ? AND end_date > ?
		ORDER BY end_date DESC LIMIT 1`,
		userID, SubscriptionActive, SubscriptionExtended, now.UTC(), now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription of user %d: %w", userID, err)
	}
	return sub, nil
}

func (s *sqlxStore) ExtendSubscription(ctx context.Context, userID int64, days int, now time.Time) (*Subscription, error) {
	if days <= 0 {
		return nil, fmt.Errorf("subscription extension must be positive, got %d days", days)
	}
	period := time.Duration(days) * 24 * time.Hour
	now = now.UTC()

	var sub *Subscription
	err := s.WithTx(ctx, func(tx Store) error {
		ts := tx.(*sqlxStore)
		current, err := ts.GetActiveSubscription(ctx, userID, now)
		if err != nil {
			return err
		}

		if current == nil {
			sub = &Subscription{
				UserID:    userID,
				StartDate: now,
				EndDate:   now.Add(period),
				Status:    SubscriptionActive,
				CreatedAt: now,
				UpdatedAt: now,
			}
			result, err := ts.q.NamedExecContext(ctx, `
				INSERT INTO subscriptions (user_id, start_date, end_date, status, created_at, updated_at)
				VALUES (:user_id, :start_date, :end_date, :status, :created_at, :updated_at)`, sub)
			if err != nil {
				return fmt.Errorf("failed to create subscription for user %d: %w", userID, err)
			}
			sub.ID, err = result.LastInsertId()
			return err
		}

		current.EndDate = current.EndDate.UTC().Add(period)
		current.Status = SubscriptionExtended
		current.UpdatedAt = now
		if _, err := ts.q.NamedExecContext(ctx, `
			UPDATE subscriptions SET end_date = :end_date, status = :status, updated_at = :updated_at
			WHERE id = :id`, current); err != nil {
			return fmt.Errorf("failed to extend subscription %d: %w", current.ID, err)
		}
		sub = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Subscription updated", "user_id", userID, "status", sub.Status, "end_date", sub.EndDate)
	return sub, nil
}

func (s *sqlxStore) ExpireSubscriptions(ctx context.Context, now time.Time) ([]Subscription, error) {
	var expired []Subscription
	err := s.WithTx(ctx, func(tx Store) error {
		ts := tx.(*sqlxStore)
		if err := ts.q.SelectContext(ctx, &expired, `
			SELECT * FROM subscriptions WHERE status IN (?, ?) AND end_date <= ? ORDER BY id`,
			SubscriptionActive, SubscriptionExtended, now.UTC()); err != nil {
			return fmt.Errorf("failed to select expiring subscriptions: %w", err)
		}
		if len(expired) == 0 {
			return nil
		}

		ids := make([]int64, len(expired))
		for i := range expired {
			ids[i] = expired[i].ID
			expired[i].Status = SubscriptionExpired
		}
		query, args, err := sqlx.In(`UPDATE subscriptions SET status = ?, updated_at = ? WHERE id IN (?)`,
			SubscriptionExpired, utcNow(), ids)
		if err != nil {
			return fmt.Errorf("failed to build expiry query: %w", err)
		}
		if _, err := ts.q.ExecContext(ctx, ts.q.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to expire subscriptions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}
