package handlers

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/summaree/summareebot/internal/database"
	"github.com/summaree/summareebot/internal/telegram/callback"
)

// NewLangHandler returns a handler for the /lang command.
func NewLangHandler(deps HandlerDeps) bot.HandlerFunc {
	return WithSession(deps, langHandler{deps}.Handle)
}

// NewLangCallbackHandler returns a handler for the language keyboard buttons.
func NewLangCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return WithSession(deps, langHandler{deps}.HandleCallback)
}

// langHandler shows and changes the summary language of a chat.
type langHandler struct {
	deps HandlerDeps
}

func (h langHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update, s *Session) error {
	log := h.deps.Logger.With("handler", "lang")
	if update.Message == nil {
		return nil
	}
	log.InfoContext(ctx, "Handling /lang command", "chat_id", s.Chat.ID, "user_id", s.User.ID)

	var (
		text     string
		keyboard *models.InlineKeyboardMarkup
		err      error
	)
	if args := commandArgs(update.Message.Text); len(args) > 0 {
		text, err = h.setLanguage(ctx, s, args[0])
	} else {
		text, keyboard, err = h.currentLanguage(ctx, s)
	}
	if err != nil {
		return err
	}

	params := &bot.SendMessageParams{ChatID: s.Chat.ID, Text: text, ParseMode: models.ParseModeHTML}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	s.Reply(func(ctx context.Context) error {
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send language message: %w", err)
		}
		return nil
	})
	return nil
}

func (h langHandler) HandleCallback(ctx context.Context, b *bot.Bot, update *models.Update, s *Session) error {
	log := h.deps.Logger.With("handler", "lang_callback")
	cq := update.CallbackQuery
	if cq == nil {
		return nil
	}

	data, err := callback.Decode(cq.Data)
	if err != nil || data.Fn != langCallback {
		s.invalidButton(b, h.deps, cq)
		return nil
	}
	msg := cq.Message.Message

	switch data.Arg(0) {
	case "set":
		log.InfoContext(ctx, "Setting language from keyboard", "chat_id", s.Chat.ID, "tag", data.Arg(1))
		text, err := h.setLanguage(ctx, s, data.Arg(1))
		if err != nil {
			return err
		}
		s.Reply(func(ctx context.Context) error {
			answerCallback(ctx, b, cq.ID, "")
			var err error
			if msg == nil {
				_, err = b.SendMessage(ctx, &bot.SendMessageParams{ChatID: s.Chat.ID, Text: text, ParseMode: models.ParseModeHTML})
			} else {
				_, err = b.EditMessageText(ctx, &bot.EditMessageTextParams{
					ChatID:    msg.Chat.ID,
					MessageID: msg.ID,
					Text:      text,
					ParseMode: models.ParseModeHTML,
				})
			}
			if err != nil {
				return fmt.Errorf("failed to send language confirmation: %w", err)
			}
			return nil
		})
		return nil

	case "page":
		page, err := strconv.Atoi(data.Arg(1))
		if err != nil || msg == nil {
			s.invalidButton(b, h.deps, cq)
			return nil
		}
		langs, err := s.Store.ListLanguages(ctx)
		if err != nil {
			return err
		}
		keyboard := languageKeyboard(langs, s.Language, page)
		s.Reply(func(ctx context.Context) error {
			answerCallback(ctx, b, cq.ID, "")
			_, err := b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
				ChatID:      msg.Chat.ID,
				MessageID:   msg.ID,
				ReplyMarkup: keyboard,
			})
			if err != nil {
				return fmt.Errorf("failed to show language page %d: %w", page, err)
			}
			return nil
		})
		return nil
	}

	s.invalidButton(b, h.deps, cq)
	return nil
}

// setLanguage changes the chat language to tag and returns the reply.
func (h langHandler) setLanguage(ctx context.Context, s *Session, tag string) (string, error) {
	langs, err := s.Store.ListLanguages(ctx)
	if err != nil {
		return "", err
	}
	lang, err := s.Store.GetLanguageByTag(ctx, strings.TrimSpace(tag))
	if err != nil {
		return "", err
	}

	if lang == nil {
		return "Unknown language. Available languages are:\n\n" + languageList(langs, nil), nil
	}
	if s.Language != nil && lang.ID == s.Language.ID {
		return "This language is already configured as the target language: " + languageLabel(lang) +
			"\n\nOther available languages are:\n\n" + languageList(langs, lang), nil
	}

	if err := s.Store.SetChatLanguage(ctx, s.Chat.ID, lang.ID); err != nil {
		return "", err
	}
	s.Chat.LanguageID = lang.ID
	s.Language = lang
	h.deps.Logger.InfoContext(ctx, "Chat language changed", "chat_id", s.Chat.ID, "tag", lang.IETFTag)
	return "Language successfully set to: " + languageLabel(lang), nil
}

func (h langHandler) currentLanguage(ctx context.Context, s *Session) (string, *models.InlineKeyboardMarkup, error) {
	langs, err := s.Store.ListLanguages(ctx)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("Current language is: " + languageLabel(s.Language) + "\n\n")
	sb.WriteString("You can either choose one of the languages below or set your target language with " +
		"<code>/lang</code> followed by the language short code from the following list.\n\n")
	sb.WriteString(languageList(langs, s.Language))
	sb.WriteString("\n\nExample: <code>/lang de</code>")
	return sb.String(), languageKeyboard(langs, s.Language, 1), nil
}

// languageLabel renders a language as "flag tag [name]".
func languageLabel(lang *database.Language) string {
	if lang == nil {
		return "-"
	}
	return fmt.Sprintf("%s %s [%s]", lang.FlagEmoji(), html.EscapeString(lang.IETFTag), html.EscapeString(lang.Name))
}

// languageList renders one "flag tag: name" line per language except skip.
func languageList(langs []database.Language, skip *database.Language) string {
	lines := make([]string, 0, len(langs))
	for _, l := range langs {
		if skip != nil && l.ID == skip.ID {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s <code>%s</code>: %s", l.FlagEmoji(), html.EscapeString(l.IETFTag), html.EscapeString(l.Name)))
	}
	return strings.Join(lines, "\n")
}

// commandArgs returns the words after the command of a message text.
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	return fields[1:]
}
