package handlers

import (
	"context"
	"fmt"
	"html"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/summaree/summareebot/internal/database"
)

// Session is the per-update state passed to session handlers.
type Session struct {
	// Store is bound to the update transaction while a WithSession handler
	// runs and to the plain store while replies are sent.
	Store    database.Store
	User     *database.User
	Chat     *database.Chat
	Language *database.Language

	replies []func(ctx context.Context) error
}

// Reply queues a Telegram call. Queued calls run in order once the update
// transaction has committed and are dropped when it rolls back.
func (s *Session) Reply(fn func(ctx context.Context) error) {
	s.replies = append(s.replies, fn)
}

// invalidButton queues the stale button answer.
func (s *Session) invalidButton(b *tgbot.Bot, deps HandlerDeps, cq *models.CallbackQuery) {
	s.Reply(func(ctx context.Context) error {
		invalidButton(ctx, b, deps, cq)
		return nil
	})
}

func (s *Session) flush(ctx context.Context) error {
	replies := s.replies
	s.replies = nil
	for _, fn := range replies {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SessionHandlerFunc handles an update whose user and chat are stored.
// A returned error is reported to the user and the admin chat.
type SessionHandlerFunc func(ctx context.Context, b *tgbot.Bot, update *models.Update, s *Session) error

// WithSession runs fn inside one transaction after making sure the sender
// and chat exist. The transaction commits when fn returns nil and rolls back
// on errors and panics. Replies queued by fn are sent after the commit, so
// the single database connection is not held across Telegram calls.
func WithSession(deps HandlerDeps, fn SessionHandlerFunc) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		user, chat, ok := updateParties(update)
		if !ok {
			deps.Logger.WarnContext(ctx, "Update without sender or chat", "update_id", update.ID)
			return
		}

		var s *Session
		err := deps.Store.WithTx(ctx, func(tx database.Store) error {
			var err error
			s, err = ensureContact(ctx, deps, tx, user, chat)
			if err != nil {
				return err
			}
			return fn(ctx, b, update, s)
		})
		if err == nil {
			s.Store = deps.Store
			err = s.flush(ctx)
		}
		if err != nil {
			reportError(ctx, deps, b, update, err)
		}
	}
}

// WithContact stores the sender and chat in a short transaction and then runs
// fn with the plain store. It is meant for handlers that call slow providers.
func WithContact(deps HandlerDeps, fn SessionHandlerFunc) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		user, chat, ok := updateParties(update)
		if !ok {
			deps.Logger.WarnContext(ctx, "Update without sender or chat", "update_id", update.ID)
			return
		}

		var s *Session
		err := deps.Store.WithTx(ctx, func(tx database.Store) error {
			var err error
			s, err = ensureContact(ctx, deps, tx, user, chat)
			return err
		})
		if err == nil {
			s.Store = deps.Store
			err = fn(ctx, b, update, s)
		}
		if err == nil {
			err = s.flush(ctx)
		}
		if err != nil {
			reportError(ctx, deps, b, update, err)
		}
	}
}

func ensureContact(ctx context.Context, deps HandlerDeps, store database.Store, user database.User, chat database.Chat) (*Session, error) {
	contact, err := store.EnsureUserAndChat(ctx, user, chat)
	if err != nil {
		return nil, err
	}

	if contact.NewUser {
		text := fmt.Sprintf("👤 New user: %s (<code>%d</code>)", html.EscapeString(contact.User.DisplayName()), contact.User.ID)
		if err := notifyAdmin(ctx, deps, store, text); err != nil {
			return nil, err
		}
	}
	if contact.NewChat && contact.Chat.Type != string(models.ChatTypePrivate) {
		text := fmt.Sprintf("💬 New chat: %s (<code>%d</code>)", html.EscapeString(contact.Chat.Title), contact.Chat.ID)
		if err := notifyAdmin(ctx, deps, store, text); err != nil {
			return nil, err
		}
	}

	return &Session{
		Store:    store,
		User:     contact.User,
		Chat:     contact.Chat,
		Language: contact.Language,
	}, nil
}

// notifyAdmin queues an HTML message for the admin chat, if one is configured.
func notifyAdmin(ctx context.Context, deps HandlerDeps, store database.Store, text string) error {
	if deps.Config.Telegram.AdminChatID == 0 {
		return nil
	}
	if err := store.EnqueueMessage(ctx, database.AdminChatID, truncateHTML(text, maxMessageLen), string(models.ParseModeHTML)); err != nil {
		return fmt.Errorf("failed to queue admin message: %w", err)
	}
	return nil
}

// updateParties returns the sender and chat of an update.
func updateParties(update *models.Update) (database.User, database.Chat, bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return dbUser(*update.Message.From), dbChat(update.Message.Chat), true
	case update.CallbackQuery != nil:
		user := dbUser(update.CallbackQuery.From)
		if msg := update.CallbackQuery.Message.Message; msg != nil {
			return user, dbChat(msg.Chat), true
		}
		if msg := update.CallbackQuery.Message.InaccessibleMessage; msg != nil {
			return user, dbChat(msg.Chat), true
		}
		return user, privateChat(user), true
	case update.PreCheckoutQuery != nil:
		user := dbUser(*update.PreCheckoutQuery.From)
		return user, privateChat(user), true
	}
	return database.User{}, database.Chat{}, false
}

func dbUser(u models.User) database.User {
	return database.User{
		ID:           u.ID,
		IsBot:        u.IsBot,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
		IsPremium:    u.IsPremium,
	}
}

func dbChat(c models.Chat) database.Chat {
	title := c.Title
	if title == "" {
		title = c.FirstName
	}
	return database.Chat{
		ID:       c.ID,
		Type:     string(c.Type),
		Title:    title,
		Username: c.Username,
	}
}

func privateChat(u database.User) database.Chat {
	return database.Chat{ID: u.ID, Type: string(models.ChatTypePrivate), Title: u.FirstName, Username: u.Username}
}
