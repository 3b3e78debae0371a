package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/summaree/summareebot/internal/audio"
	"github.com/summaree/summareebot/internal/database"
	"github.com/summaree/summareebot/internal/pipeline"
	"github.com/summaree/summareebot/internal/telegram/callback"
)

// NewAudioHandler returns a handler summarizing voice, audio and video messages.
func NewAudioHandler(deps HandlerDeps) bot.HandlerFunc {
	return WithContact(deps, audioHandler{deps}.Handle)
}

// IsAudioMessage reports whether the update carries a file we can transcribe.
func IsAudioMessage(update *models.Update) bool {
	if update.Message == nil {
		return false
	}
	_, ok := messageFile(update.Message)
	return ok
}

// messageFile returns the transcribable attachment of a message.
func messageFile(msg *models.Message) (audio.File, bool) {
	switch {
	case msg.Voice != nil:
		v := msg.Voice
		return audio.File{FileID: v.FileID, FileUniqueID: v.FileUniqueID, MimeType: v.MimeType, FileSize: int64(v.FileSize), Duration: int(v.Duration)}, true
	case msg.Audio != nil:
		a := msg.Audio
		return audio.File{FileID: a.FileID, FileUniqueID: a.FileUniqueID, FileName: a.FileName, MimeType: a.MimeType, FileSize: int64(a.FileSize), Duration: int(a.Duration)}, true
	case msg.Video != nil:
		v := msg.Video
		return audio.File{FileID: v.FileID, FileUniqueID: v.FileUniqueID, FileName: v.FileName, MimeType: v.MimeType, FileSize: int64(v.FileSize), Duration: int(v.Duration)}, true
	case msg.VideoNote != nil:
		v := msg.VideoNote
		return audio.File{FileID: v.FileID, FileUniqueID: v.FileUniqueID, MimeType: "video/mp4", FileSize: int64(v.FileSize), Duration: int(v.Duration)}, true
	case msg.Document != nil:
		d := msg.Document
		if !strings.HasPrefix(d.MimeType, "audio/") && !strings.HasPrefix(d.MimeType, "video/") {
			return audio.File{}, false
		}
		return audio.File{FileID: d.FileID, FileUniqueID: d.FileUniqueID, FileName: d.FileName, MimeType: d.MimeType, FileSize: int64(d.FileSize)}, true
	}
	return audio.File{}, false
}

// audioHandler runs the summary pipeline for an attachment.
type audioHandler struct {
	deps HandlerDeps
}

func (h audioHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update, s *Session) error {
	log := h.deps.Logger.With("handler", "audio")
	msg := update.Message
	file, ok := messageFile(msg)
	if !ok {
		return nil
	}

	if err := checkPremium(ctx, b, h.deps, s, msg.ID); err != nil {
		if errors.Is(err, errNoActivePremium) {
			log.InfoContext(ctx, "Premium required", "user_id", s.User.ID, "language", languageTag(s.Language))
			return nil
		}
		return err
	}

	log.InfoContext(ctx, "Transcribing and summarizing message", "chat_id", s.Chat.ID, "user_id", s.User.ID,
		"file_unique_id", file.FileUniqueID, "mime_type", file.MimeType, "file_size", file.FileSize)

	chatTag := languageTag(s.Language)
	notice, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          s.Chat.ID,
		Text:            localized(receivedMessages, chatTag),
		ReplyParameters: replyTo(msg),
	})
	if err != nil {
		log.WarnContext(ctx, "Failed to send received notice", "error", err, "chat_id", s.Chat.ID)
	}

	stopTyping := keepTyping(ctx, b, s.Chat.ID, h.deps.TypingInterval, log)
	res, err := h.deps.Pipeline.Process(ctx, pipeline.Request{
		File:   file,
		UserID: s.User.ID,
		ChatID: s.Chat.ID,
		Target: s.Language,
	})
	stopTyping()

	if notice != nil {
		if _, delErr := b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: s.Chat.ID, MessageID: notice.ID}); delErr != nil {
			log.DebugContext(ctx, "Failed to delete received notice", "error", delErr)
		}
	}

	switch {
	case errors.Is(err, pipeline.ErrEmptyTranscription):
		admin := fmt.Sprintf("⚠️ Empty transcript\nUser %s\n<code>%s</code>", html.EscapeString(s.User.DisplayName()), html.EscapeString(file.FileID))
		if qErr := notifyAdmin(ctx, h.deps, s.Store, admin); qErr != nil {
			log.ErrorContext(ctx, "Failed to queue admin notice", "error", qErr)
		}
		return h.reply(ctx, b, s, msg, localized(emptyTranscriptionMessages, chatTag))
	case errors.Is(err, pipeline.ErrFileTooLarge):
		log.InfoContext(ctx, "File too large", "file_size", file.FileSize)
		return h.reply(ctx, b, s, msg, localized(fileTooLargeMessages, chatTag))
	case err != nil:
		return fmt.Errorf("failed to summarize %s: %w", file.FileUniqueID, err)
	}

	if emoji := res.Transcript.ReactionEmoji; emoji != "" {
		_, rErr := b.SetMessageReaction(ctx, &bot.SetMessageReactionParams{
			ChatID:    s.Chat.ID,
			MessageID: msg.ID,
			Reaction: []models.ReactionType{{
				Type:              models.ReactionTypeTypeEmoji,
				ReactionTypeEmoji: &models.ReactionTypeEmoji{Type: models.ReactionTypeTypeEmoji, Emoji: emoji},
			}},
		})
		if rErr != nil {
			log.DebugContext(ctx, "Failed to set reaction", "error", rErr, "emoji", emoji)
		}
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          s.Chat.ID,
		Text:            pipeline.FormatSummary(res, s.Language),
		ParseMode:       models.ParseModeHTML,
		ReplyParameters: replyTo(msg),
		ReplyMarkup:     transcriptKeyboard(res, s.Language, s.User.LanguageCode),
	})
	if err != nil {
		return fmt.Errorf("failed to send summary: %w", err)
	}

	return h.notifySummary(ctx, s, res)
}

func (h audioHandler) reply(ctx context.Context, b *bot.Bot, s *Session, msg *models.Message, text string) error {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: s.Chat.ID, Text: text, ReplyParameters: replyTo(msg)})
	if err != nil {
		return fmt.Errorf("failed to reply: %w", err)
	}
	return nil
}

// notifySummary queues the usage notice for the admin chat.
func (h audioHandler) notifySummary(ctx context.Context, s *Session, res *pipeline.Result) error {
	n, err := s.Store.CountUserSummaries(ctx, s.User.ID)
	if err != nil {
		return err
	}

	user := html.EscapeString(s.User.DisplayName())
	var text string
	if s.Chat.Type == string(models.ChatTypePrivate) {
		text = fmt.Sprintf("📝 Summary #%d created by user %s (in private chat)", n, user)
	} else {
		text = fmt.Sprintf("📝 Summary #%d created in chat %s by user %s", n, html.EscapeString(s.Chat.Title), user)
	}
	if res.Cost > 0 {
		text += fmt.Sprintf("\n💰 Cost: $ %.6f", res.Cost)
	}
	return notifyAdmin(ctx, h.deps, s.Store, text)
}

// transcriptKeyboard offers the full transcript, and a translated one when
// the audio language differs from the chat language.
func transcriptKeyboard(res *pipeline.Result, chatLang *database.Language, userLangCode string) *models.InlineKeyboardMarkup {
	label := localized(transcriptButtonLabels, userLangCode)
	id := strconv.FormatInt(res.Transcript.ID, 10)

	emoji := "📝"
	if res.InputLanguage != nil {
		emoji = res.InputLanguage.FlagEmoji()
	}
	row := []models.InlineKeyboardButton{{
		Text:         emoji + " " + label,
		CallbackData: callback.MustEncode(transcriptCallback, id, "0"),
	}}
	if res.InputLanguage != nil && chatLang != nil && res.InputLanguage.ID != chatLang.ID {
		row = append(row, models.InlineKeyboardButton{
			Text:         chatLang.FlagEmoji() + " " + label,
			CallbackData: callback.MustEncode(transcriptCallback, id, "1"),
		})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
}

func replyTo(msg *models.Message) *models.ReplyParameters {
	return &models.ReplyParameters{MessageID: msg.ID, AllowSendingWithoutReply: true}
}
