// Package tasks implements the scheduled jobs of the summaree bot: outbound
// message delivery, subscription expiry and database maintenance.
package tasks

import (
	"log/slog"
	"time"

	"github.com/go-telegram/bot"

	"github.com/summaree/summareebot/internal/config"
	"github.com/summaree/summareebot/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Bot    *bot.Bot
	Config *config.Config
	// Now returns the current time. Nil uses time.Now.
	Now func() time.Time
}

func (d TaskDeps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}
