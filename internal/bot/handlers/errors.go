package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf16"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// maxMessageLen is the Telegram limit for message text in UTF-16 code units.
const maxMessageLen = 4096

// errNoActivePremium stops a handler after the user was told to buy premium.
var errNoActivePremium = errors.New("no active premium subscription")

// reportError logs err, sends the generic error message to the chat of the
// update and queues a report of the update for the admin chat.
func reportError(ctx context.Context, deps HandlerDeps, b *tgbot.Bot, update *models.Update, err error) {
	log := deps.Logger.With("component", "error_handler")
	log.ErrorContext(ctx, "Failed to handle update", "error", err, "update_id", update.ID)

	if b != nil {
		if update.CallbackQuery != nil {
			answerCallback(ctx, b, update.CallbackQuery.ID, "")
		}
		if _, chat, ok := updateParties(update); ok && update.PreCheckoutQuery == nil {
			_, sendErr := b.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID: chat.ID,
				Text:   deps.Config.Messages.ErrorGeneralMsg,
			})
			if sendErr != nil {
				log.ErrorContext(ctx, "Failed to send error message", "error", sendErr, "chat_id", chat.ID)
			}
		}
	}

	if qErr := notifyAdmin(ctx, deps, deps.Store, errorReport(update, err)); qErr != nil {
		log.ErrorContext(ctx, "Failed to queue error report", "error", qErr)
	}
}

// errorReport renders the error and the update as an HTML admin message
// within the message length limit.
func errorReport(update *models.Update, err error) string {
	raw, mErr := json.MarshalIndent(update, "", "  ")
	if mErr != nil {
		raw = []byte(mErr.Error())
	}

	header := fmt.Sprintf("⚠️ An error occurred while handling update %d\n", update.ID)
	const open, end = "<pre>", "</pre>"
	budget := maxMessageLen - utf16Len(header) - len(open) - len(end)
	body := truncateHTML(html.EscapeString(fmt.Sprintf("%v\n\n%s", err, raw)), budget)
	return header + open + body + end
}

// truncateHTML cuts escaped text to at most n UTF-16 code units without
// splitting a surrogate pair or an entity.
func truncateHTML(s string, n int) string {
	if n <= 0 {
		return ""
	}
	units := 0
	for i, r := range s {
		units += utf16.RuneLen(r)
		if units > n {
			out := s[:i]
			if amp := strings.LastIndexByte(out, '&'); amp > strings.LastIndexByte(out, ';') {
				out = out[:amp]
			}
			return out
		}
	}
	return s
}

// utf16Len is the length of s as Telegram counts it.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// answerCallback stops the loading indicator of a button. Failures are
// ignored since the query may have expired.
func answerCallback(ctx context.Context, b *tgbot.Bot, queryID, text string) {
	_, _ = b.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
	})
}
