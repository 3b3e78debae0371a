package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/summaree/summareebot/internal/database"
	"github.com/summaree/summareebot/internal/telegram/callback"
)

// NewTranscriptHandler returns a handler for the full transcript buttons.
func NewTranscriptHandler(deps HandlerDeps) bot.HandlerFunc {
	return WithContact(deps, transcriptHandler{deps}.Handle)
}

// transcriptHandler sends the full transcript of a summary, optionally
// translated into the chat language.
type transcriptHandler struct {
	deps HandlerDeps
}

func (h transcriptHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update, s *Session) error {
	log := h.deps.Logger.With("handler", "transcript")
	cq := update.CallbackQuery
	if cq == nil {
		return nil
	}

	data, err := callback.Decode(cq.Data)
	if err != nil || data.Fn != transcriptCallback {
		invalidButton(ctx, b, h.deps, cq)
		return nil
	}
	transcriptID, err := strconv.ParseInt(data.Arg(0), 10, 64)
	if err != nil || (data.Arg(1) != "0" && data.Arg(1) != "1") {
		invalidButton(ctx, b, h.deps, cq)
		return nil
	}
	t, err := s.Store.GetTranscript(ctx, transcriptID)
	if err != nil {
		return err
	}
	if t == nil {
		invalidButton(ctx, b, h.deps, cq)
		return nil
	}

	var target *database.Language
	if data.Arg(1) == "1" {
		target = s.Language
	}
	log.InfoContext(ctx, "Sending full transcript", "transcript_id", transcriptID, "translate", target != nil, "chat_id", s.Chat.ID)

	answerCallback(ctx, b, cq.ID, "")

	var reply *models.ReplyParameters
	if msg := cq.Message.Message; msg != nil {
		reply = replyTo(msg)
	}

	wait, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: s.Chat.ID, Text: transcriptWaitMessage, ReplyParameters: reply})
	if err != nil {
		log.WarnContext(ctx, "Failed to send wait message", "error", err)
	}
	stopTyping := keepTyping(ctx, b, s.Chat.ID, h.deps.TypingInterval, log)
	text, err := h.deps.Pipeline.FullTranscript(ctx, transcriptID, target)
	stopTyping()
	if wait != nil {
		if _, delErr := b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: s.Chat.ID, MessageID: wait.ID}); delErr != nil {
			log.DebugContext(ctx, "Failed to delete wait message", "error", delErr)
		}
	}
	if err != nil {
		return err
	}

	if utf16Len(text.Text) <= maxMessageLen {
		_, err = b.SendMessage(ctx, &bot.SendMessageParams{ChatID: s.Chat.ID, Text: text.Text, ReplyParameters: reply})
	} else {
		_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:          s.Chat.ID,
			Document:        &models.InputFileUpload{Filename: "transcript.txt", Data: strings.NewReader(text.Text)},
			ReplyParameters: reply,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to send transcript %d: %w", transcriptID, err)
	}
	return nil
}
