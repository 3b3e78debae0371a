package handlers

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/summaree/summareebot/internal/database"
)

const topUsersLimit = 10

// NewStatsHandler returns a handler for the admin /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return adminHandler{deps}.HandleStats
}

// NewTopHandler returns a handler for the admin /top command.
func NewTopHandler(deps HandlerDeps) bot.HandlerFunc {
	return adminHandler{deps}.HandleTop
}

// NewDatasetHandler returns a handler for the admin /dataset command.
func NewDatasetHandler(deps HandlerDeps) bot.HandlerFunc {
	return adminHandler{deps}.HandleDataset
}

// adminHandler serves the usage reports of the admin commands.
type adminHandler struct {
	deps HandlerDeps
}

func (h adminHandler) HandleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")
	if update.Message == nil || update.Message.From == nil {
		log.ErrorContext(ctx, "Stats handler called with nil Message or From", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Admin requested usage stats", "chat_id", chatID)

	now := h.deps.now()
	windows := []struct {
		label string
		since time.Time
	}{
		{"24 hours", now.Add(-24 * time.Hour)},
		{"7 days", now.AddDate(0, 0, -7)},
		{"30 days", now.AddDate(0, 0, -30)},
		{"Total", time.Time{}},
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Period\tSummaries\tUsers\tCost ($)")
	for _, win := range windows {
		stats, err := h.deps.Store.UsageStats(ctx, win.since)
		if err != nil {
			reportError(ctx, h.deps, b, update, err)
			return
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.4f\n", win.label, stats.Summaries, stats.Users, stats.TotalCost)
	}
	_ = w.Flush()

	h.sendPre(ctx, b, update, "📊 Usage", buf.String())
}

func (h adminHandler) HandleTop(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "top")
	if update.Message == nil || update.Message.From == nil {
		log.ErrorContext(ctx, "Top handler called with nil Message or From", "update_id", update.ID)
		return
	}
	log.InfoContext(ctx, "Admin requested top users", "chat_id", update.Message.Chat.ID)

	users, err := h.deps.Store.TopUsers(ctx, topUsersLimit)
	if err != nil {
		reportError(ctx, h.deps, b, update, err)
		return
	}
	if len(users) == 0 {
		h.sendPre(ctx, b, update, "🏆 Top users", "No summaries yet.")
		return
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tUser\tSummaries\tCost ($)")
	for i, u := range users {
		name := u.FirstName
		if u.Username != "" {
			name = "@" + u.Username
		}
		fmt.Fprintf(w, "%d\t%s (%d)\t%d\t%.4f\n", i+1, name, u.UserID, u.Summaries, u.TotalCost)
	}
	_ = w.Flush()

	h.sendPre(ctx, b, update, "🏆 Top users", buf.String())
}

func (h adminHandler) HandleDataset(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "dataset")
	if update.Message == nil || update.Message.From == nil {
		log.ErrorContext(ctx, "Dataset handler called with nil Message or From", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Admin requested dataset export", "chat_id", chatID)

	rows, err := h.deps.Store.DatasetRows(ctx)
	if err != nil {
		reportError(ctx, h.deps, b, update, err)
		return
	}
	data, err := encodeDataset(rows)
	if err != nil {
		reportError(ctx, h.deps, b, update, err)
		return
	}

	_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: "dataset.jsonl.gz", Data: bytes.NewReader(data)},
		Caption:  fmt.Sprintf("%d transcripts", len(rows)),
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send dataset", "error", err, "chat_id", chatID)
		return
	}
	log.InfoContext(ctx, "Dataset sent", "rows", len(rows), "bytes", len(data))
}

// encodeDataset writes one JSON object per row and gzips the result.
func encodeDataset(rows []database.DatasetRow) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	enc := json.NewEncoder(zw)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return nil, fmt.Errorf("failed to encode dataset row %d: %w", row.TranscriptID, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress dataset: %w", err)
	}
	return buf.Bytes(), nil
}

func (h adminHandler) sendPre(ctx context.Context, b *bot.Bot, update *models.Update, title, body string) {
	text := "<b>" + html.EscapeString(title) + "</b>\n<pre>" + html.EscapeString(strings.TrimRight(body, "\n")) + "</pre>"
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send admin report", "error", err, "chat_id", update.Message.Chat.ID)
	}
}
