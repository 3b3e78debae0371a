package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/summaree/summareebot/internal/config"
	"github.com/summaree/summareebot/internal/database"
	"github.com/summaree/summareebot/internal/pipeline"
)

// Pipeline turns audio files into summaries and full transcripts.
type Pipeline interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	FullTranscript(ctx context.Context, transcriptID int64, target *database.Language) (*pipeline.TranscriptText, error)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Pipeline Pipeline

	// TypingInterval is how often the typing action is repeated while a
	// file is processed. Zero uses the default.
	TypingInterval time.Duration
	// Now returns the current time. Nil uses time.Now.
	Now func() time.Time
}

func (d HandlerDeps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// welcome returns the welcome text with the bot username filled in.
func (d HandlerDeps) welcome() string {
	return d.withBotName(d.Config.Messages.Welcome)
}

func (d HandlerDeps) withBotName(text string) string {
	if d.Config.Telegram.BotInfo.Username == "" {
		return text
	}
	return strings.ReplaceAll(text, "@botname", "@"+d.Config.Telegram.BotInfo.Username)
}
