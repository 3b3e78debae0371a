// Package main contains the entrypoint for the summaree Telegram bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/summaree/summareebot/internal/ai"
	"github.com/summaree/summareebot/internal/ai/deepl"
	"github.com/summaree/summareebot/internal/ai/gemini"
	"github.com/summaree/summareebot/internal/ai/openai"
	"github.com/summaree/summareebot/internal/audio"
	"github.com/summaree/summareebot/internal/bot"
	"github.com/summaree/summareebot/internal/bot/handlers"
	"github.com/summaree/summareebot/internal/bot/tasks"
	"github.com/summaree/summareebot/internal/config"
	"github.com/summaree/summareebot/internal/database"
	"github.com/summaree/summareebot/internal/logger"
	"github.com/summaree/summareebot/internal/pipeline"
	"github.com/summaree/summareebot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components, blocks until shutdown and returns the exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	openaiClient, err := openai.NewClient(cfg.OpenAI, log)
	if err != nil {
		log.Error("Failed to initialize OpenAI client", "error", err)
		return 1
	}
	summarizer, err := newSummarizer(ctx, cfg, openaiClient, log)
	if err != nil {
		log.Error("Failed to initialize summarizer", "provider", cfg.Summarizer.Provider, "error", err)
		return 1
	}
	translator, err := deepl.NewClient(cfg.DeepL, log)
	if err != nil {
		log.Error("Failed to initialize DeepL client", "error", err)
		return 1
	}
	syncLanguages(ctx, store, translator, log)

	hDeps := handlers.HandlerDeps{
		Logger: log,
		Config: cfg,
		Store:  store,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log), telegram.MetricsMiddleware(), handlers.Recover(hDeps)),
		tgbot.WithDefaultHandler(handlers.NewDefaultHandler(hDeps)),
		tgbot.WithAllowedUpdates(tgbot.AllowedUpdates{"message", "callback_query", "pre_checkout_query"}),
	}
	if cfg.Telegram.WebhookMode() {
		botOpts = append(botOpts, tgbot.WithWebhookSecretToken(cfg.Telegram.WebhookSecretToken))
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	cfg.Telegram.BotInfo = config.BotInfo{ID: me.ID, Username: me.Username, FirstName: me.FirstName}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	hDeps.Pipeline = pipeline.NewService(pipeline.Deps{
		Store:       store,
		Downloader:  telegram.NewDownloader(tg, 2*time.Minute, log),
		Transcoder:  audio.NewTranscoder(cfg.Audio.FFmpegPath, log),
		Transcriber: openaiClient,
		Summarizer:  summarizer,
		Translator:  translator,
		Logger:      log,
		MaxFileSize: cfg.Audio.MaxFileSize,
		TempDir:     cfg.Audio.TempDir,
	})

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	if err := telegram.SetCommands(ctx, tg, log, cmdHandlers); err != nil {
		// The bot works without a command menu.
		log.Warn("Failed to set bot commands", "error", err)
	}

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Bot:    tg,
		Config: cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	var webhook http.Handler
	if cfg.Telegram.WebhookMode() {
		webhook = tg.WebhookHandler()
	}
	router := bot.NewRouter(log, store, cfg.HTTP.WebhookPath, webhook)
	app := bot.NewBot(log, cfg, tg, sched, router)

	log.Info("Starting bot")
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Bot stopped gracefully")
	return 0
}

// newSummarizer returns the LLM configured in summarizer.provider.
func newSummarizer(ctx context.Context, cfg *config.Config, openaiClient *openai.Client, log *slog.Logger) (ai.Summarizer, error) {
	switch cfg.Summarizer.Provider {
	case "openai":
		return openaiClient, nil
	case "gemini":
		return gemini.NewClient(ctx, cfg.Gemini, log)
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Summarizer.Provider)
	}
}

// syncLanguages adds the target languages of the translator to the store.
// The seeded languages remain usable when the provider is unreachable.
func syncLanguages(ctx context.Context, store database.Store, translator ai.Translator, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	provided, err := translator.TargetLanguages(ctx)
	if err != nil {
		log.Warn("Failed to fetch translation languages", "error", err)
		return
	}

	languages := make([]database.Language, 0, len(provided))
	for _, l := range provided {
		languages = append(languages, database.Language{Name: l.Name, IETFTag: l.IETFTag, Code: l.Code})
	}
	added, err := store.EnsureLanguages(ctx, languages)
	if err != nil {
		log.Warn("Failed to store translation languages", "error", err)
		return
	}
	log.Info("Translation languages synchronized", "available", len(languages), "added", added)
}
