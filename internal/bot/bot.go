// Package bot wires the Telegram listener, the scheduler and the HTTP server
// of the summaree bot and manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/summaree/summareebot/internal/config"
)

const shutdownTimeout = 10 * time.Second

// Bot represents the running application.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	tgBot     *tgbot.Bot
	scheduler *Scheduler
	handler   http.Handler
}

// NewBot creates the orchestrator. handler is served on cfg.HTTP.ListenAddr.
func NewBot(logger *slog.Logger, cfg *config.Config, tgBot *tgbot.Bot, scheduler *Scheduler, handler http.Handler) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		tgBot:     tgBot,
		scheduler: scheduler,
		handler:   handler,
	}
}

// Run starts all components and blocks until ctx is cancelled or one of them fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.listen(gCtx)
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler")
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		return b.serveHTTP(gCtx)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}

// listen receives updates through the webhook when one is configured and
// through long polling otherwise.
func (b *Bot) listen(ctx context.Context) error {
	tg := b.cfg.Telegram

	if tg.WebhookMode() {
		if _, err := b.tgBot.SetWebhook(ctx, &tgbot.SetWebhookParams{
			URL:                tg.WebhookURL,
			SecretToken:        tg.WebhookSecretToken,
			DropPendingUpdates: tg.DropPendingUpdates,
		}); err != nil {
			return fmt.Errorf("failed to set webhook: %w", err)
		}
		b.logger.Info("Receiving updates through webhook", "url", tg.WebhookURL)
		b.tgBot.StartWebhook(ctx)
	} else {
		if _, err := b.tgBot.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{
			DropPendingUpdates: tg.DropPendingUpdates,
		}); err != nil {
			return fmt.Errorf("failed to delete webhook: %w", err)
		}
		b.logger.Info("Receiving updates through long polling")
		b.tgBot.Start(ctx)
	}

	if ctx.Err() == nil {
		return fmt.Errorf("telegram listener stopped unexpectedly")
	}
	b.logger.Info("Telegram listener stopped")
	return nil
}

func (b *Bot) serveHTTP(ctx context.Context) error {
	srv := &http.Server{
		Addr:              b.cfg.HTTP.ListenAddr,
		Handler:           b.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("HTTP server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	b.logger.Info("HTTP server stopped")
	return nil
}
