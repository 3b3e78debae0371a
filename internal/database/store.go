package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the data access operations of the bot.
// Methods accept context.Context for cancellation and timeouts. Lookups
// return nil, nil when the row does not exist.
type Store interface {
	// WithTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back on error or panic. Calls nested inside fn
	// join the outer transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Ping checks the database connection.
	Ping(ctx context.Context) error
	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	EnsureUserAndChat(ctx context.Context, user User, chat Chat) (*Contact, error)
	GetChat(ctx context.Context, chatID int64) (*Chat, error)
	SetChatLanguage(ctx context.Context, chatID, languageID int64) error

	ListLanguages(ctx context.Context) ([]Language, error)
	GetLanguage(ctx context.Context, id int64) (*Language, error)
	GetLanguageByTag(ctx context.Context, tag string) (*Language, error)
	DefaultLanguage(ctx context.Context) (*Language, error)
	// EnsureLanguages inserts languages whose IETF tag is not stored yet and reports how many were added.
	EnsureLanguages(ctx context.Context, languages []Language) (int, error)

	GetTranscript(ctx context.Context, id int64) (*Transcript, error)
	GetTranscriptByFileUniqueID(ctx context.Context, fileUniqueID string) (*Transcript, error)
	GetTranscriptBySHA256(ctx context.Context, hash string) (*Transcript, error)
	CreateTranscript(ctx context.Context, transcript *Transcript) error
	UpdateTranscriptAnalysis(ctx context.Context, id int64, inputLanguageID sql.NullInt64, hashtags, reactionEmoji string) error

	// GetSummary returns the summary of a transcript in a language, topics included.
	GetSummary(ctx context.Context, transcriptID, languageID int64) (*Summary, error)
	// CreateSummary stores a summary and its topics in order.
	CreateSummary(ctx context.Context, summary *Summary) error
	CountUserSummaries(ctx context.Context, userID int64) (int, error)

	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	CreateInvoice(ctx context.Context, invoice *Invoice) error
	GetInvoiceByPayload(ctx context.Context, payload string) (*Invoice, error)
	MarkInvoicePaid(ctx context.Context, id int64, chargeID string, paidAt time.Time) error
	GetActiveSubscription(ctx context.Context, userID int64, now time.Time) (*Subscription, error)
	// ExtendSubscription starts a new subscription or prolongs the active one by days.
	ExtendSubscription(ctx context.Context, userID int64, days int, now time.Time) (*Subscription, error)
	// ExpireSubscriptions marks subscriptions past their end date as expired and returns them.
	ExpireSubscriptions(ctx context.Context, now time.Time) ([]Subscription, error)

	EnqueueMessage(ctx context.Context, chatID int64, text, parseMode string) error
	PendingMessages(ctx context.Context, limit int) ([]QueuedMessage, error)
	MarkMessageSent(ctx context.Context, id int64, sentAt time.Time) error
	// MarkMessageFailed records a delivery failure and reports whether the message was given up.
	MarkMessageFailed(ctx context.Context, id int64, reason string, maxAttempts int) (bool, error)

	UsageStats(ctx context.Context, since time.Time) (*UsageStats, error)
	TopUsers(ctx context.Context, limit int) ([]UserUsage, error)
	DatasetRows(ctx context.Context) ([]DatasetRow, error)
}

// queryer is implemented by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

// sqlxStore implements Store on top of sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	q      queryer
	inTx   bool
	logger *slog.Logger
}

// NewStore creates a Store backed by a connected sqlx.DB.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		q:      db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) WithTx(ctx context.Context, fn func(tx Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			s.rollback(ctx, tx)
			panic(p)
		}
		if err != nil {
			s.rollback(ctx, tx)
		}
	}()

	if err = fn(&sqlxStore{db: s.db, q: tx, inTx: true, logger: s.logger}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *sqlxStore) rollback(ctx context.Context, tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.WarnContext(ctx, "Error rolling back transaction", "error", err)
	}
}

// get wraps GetContext and maps sql.ErrNoRows to a nil result.
func get[T any](ctx context.Context, s *sqlxStore, query string, args ...any) (*T, error) {
	var dest T
	err := s.q.GetContext(ctx, &dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dest, nil
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RunSQLMaintenance executes VACUUM, which SQLite only allows outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if s.inTx {
		return errors.New("cannot run VACUUM inside a transaction")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)")
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	return nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
