package database

import (
	"context"
	"fmt"
	"strings"
)

// Contact is the result of EnsureUserAndChat.
type Contact struct {
	User     *User
	Chat     *Chat
	Language *Language
	NewUser  bool
	NewChat  bool
}

// EnsureUserAndChat creates the user and chat on first contact, refreshes
// their profile fields afterwards and links the user to the chat. New chats
// get the default language.
func (s *sqlxStore) EnsureUserAndChat(ctx context.Context, user User, chat Chat) (*Contact, error) {
	if user.ID == 0 || chat.ID == 0 {
		return nil, fmt.Errorf("user and chat ids are required (user %d, chat %d)", user.ID, chat.ID)
	}

	var contact *Contact
	err := s.WithTx(ctx, func(tx Store) error {
		ts := tx.(*sqlxStore)
		var err error
		contact, err = ts.ensureUserAndChat(ctx, user, chat)
		return err
	})
	return contact, err
}

func (s *sqlxStore) ensureUserAndChat(ctx context.Context, user User, chat Chat) (*Contact, error) {
	contact := &Contact{}
	ts := utcNow()

	existingUser, err := get[User](ctx, s, `SELECT * FROM users WHERE id = ?`, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", user.ID, err)
	}
	user.UpdatedAt = ts
	if existingUser == nil {
		user.CreatedAt = ts
		_, err = s.q.NamedExecContext(ctx, `
			INSERT INTO users (id, is_bot, first_name, last_name, username, language_code, is_premium, created_at, updated_at)
			VALUES (:id, :is_bot, :first_name, :last_name, :username, :language_code, :is_premium, :created_at, :updated_at)`, user)
		if err != nil {
			return nil, fmt.Errorf("failed to create user %d: %w", user.ID, err)
		}
		contact.NewUser = true
		s.logger.InfoContext(ctx, "Created user", "user_id", user.ID)
	} else {
		user.CreatedAt = existingUser.CreatedAt
		_, err = s.q.NamedExecContext(ctx, `
			UPDATE users SET first_name = :first_name, last_name = :last_name, username = :username,
				language_code = :language_code, is_premium = :is_premium, updated_at = :updated_at
			WHERE id = :id`, user)
		if err != nil {
			return nil, fmt.Errorf("failed to update user %d: %w", user.ID, err)
		}
	}
	contact.User = &user

	existingChat, err := get[Chat](ctx, s, `SELECT * FROM chats WHERE id = ?`, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat %d: %w", chat.ID, err)
	}
	chat.UpdatedAt = ts
	if existingChat == nil {
		lang, err := s.DefaultLanguage(ctx)
		if err != nil {
			return nil, err
		}
		chat.LanguageID = lang.ID
		chat.CreatedAt = ts
		_, err = s.q.NamedExecContext(ctx, `
			INSERT INTO chats (id, type, title, username, language_id, created_at, updated_at)
			VALUES (:id, :type, :title, :username, :language_id, :created_at, :updated_at)`, chat)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat %d: %w", chat.ID, err)
		}
		contact.NewChat = true
		contact.Language = lang
		s.logger.InfoContext(ctx, "Created chat", "chat_id", chat.ID, "type", chat.Type)
	} else {
		chat.LanguageID = existingChat.LanguageID
		chat.CreatedAt = existingChat.CreatedAt
		_, err = s.q.NamedExecContext(ctx, `
			UPDATE chats SET type = :type, title = :title, username = :username, updated_at = :updated_at
			WHERE id = :id`, chat)
		if err != nil {
			return nil, fmt.Errorf("failed to update chat %d: %w", chat.ID, err)
		}
		if contact.Language, err = s.GetLanguage(ctx, chat.LanguageID); err != nil {
			return nil, err
		}
	}
	contact.Chat = &chat

	_, err = s.q.ExecContext(ctx, `INSERT OR IGNORE INTO chat_users (chat_id, user_id) VALUES (?, ?)`, chat.ID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to link user %d to chat %d: %w", user.ID, chat.ID, err)
	}
	return contact, nil
}

func (s *sqlxStore) GetChat(ctx context.Context, chatID int64) (*Chat, error) {
	chat, err := get[Chat](ctx, s, `SELECT * FROM chats WHERE id = ?`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat %d: %w", chatID, err)
	}
	return chat, nil
}

func (s *sqlxStore) SetChatLanguage(ctx context.Context, chatID, languageID int64) error {
	res, err := s.q.ExecContext(ctx, `UPDATE chats SET language_id = ?, updated_at = ? WHERE id = ?`, languageID, utcNow(), chatID)
	if err != nil {
		return fmt.Errorf("failed to set language of chat %d: %w", chatID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("chat %d does not exist", chatID)
	}
	return nil
}

func (s *sqlxStore) ListLanguages(ctx context.Context) ([]Language, error) {
	var langs []Language
	if err := s.q.SelectContext(ctx, &langs, `SELECT * FROM languages ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	return langs, nil
}

func (s *sqlxStore) GetLanguage(ctx context.Context, id int64) (*Language, error) {
	lang, err := get[Language](ctx, s, `SELECT * FROM languages WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get language %d: %w", id, err)
	}
	return lang, nil
}

func (s *sqlxStore) GetLanguageByTag(ctx context.Context, tag string) (*Language, error) {
	lang, err := get[Language](ctx, s, `SELECT * FROM languages WHERE ietf_tag = ?`, strings.ToLower(tag))
	if err != nil {
		return nil, fmt.Errorf("failed to get language %q: %w", tag, err)
	}
	return lang, nil
}

func (s *sqlxStore) DefaultLanguage(ctx context.Context) (*Language, error) {
	lang, err := s.GetLanguageByTag(ctx, DefaultLanguageTag)
	if err != nil {
		return nil, err
	}
	if lang == nil {
		return nil, fmt.Errorf("default language %q is missing", DefaultLanguageTag)
	}
	return lang, nil
}

func (s *sqlxStore) EnsureLanguages(ctx context.Context, languages []Language) (int, error) {
	added := 0
	err := s.WithTx(ctx, func(tx Store) error {
		ts := tx.(*sqlxStore)
		for _, lang := range languages {
			res, err := ts.q.ExecContext(ctx,
				`INSERT INTO languages (name, ietf_tag, code, created_at) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
				lang.Name, strings.ToLower(lang.IETFTag), lang.Code, utcNow())
			if err != nil {
				return fmt.Errorf("failed to insert language %q: %w", lang.IETFTag, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				added += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if added > 0 {
		s.logger.InfoContext(ctx, "Added languages", "count", added)
	}
	return added, nil
}
