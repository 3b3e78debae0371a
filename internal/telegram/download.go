package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-telegram/bot"

	"github.com/summaree/summareebot/internal/audio"
)

// Downloader saves Telegram files to disk through the Bot API.
type Downloader struct {
	bot  *bot.Bot
	http *http.Client
	log  *slog.Logger
}

// NewDownloader creates a Downloader with the given download timeout.
func NewDownloader(b *bot.Bot, timeout time.Duration, logger *slog.Logger) *Downloader {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Downloader{
		bot:  b,
		http: &http.Client{Timeout: timeout},
		log:  logger.With("component", "telegram_download"),
	}
}

// DownloadFile resolves fileID with getFile and writes the content to dst.
// Files above maxSize fail with audio.ErrFileTooLarge; zero disables the check.
func (d *Downloader) DownloadFile(ctx context.Context, fileID, dst string, maxSize int64) (int64, error) {
	f, err := d.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return 0, fmt.Errorf("getFile failed: %w", err)
	}
	if maxSize > 0 && int64(f.FileSize) > maxSize {
		return 0, fmt.Errorf("%w: %d bytes", audio.ErrFileTooLarge, f.FileSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.bot.FileDownloadLink(f), nil)
	if err != nil {
		return 0, err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("file download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("file download failed with status %d", resp.StatusCode)
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	var body io.Reader = resp.Body
	if maxSize > 0 {
		body = io.LimitReader(resp.Body, maxSize+1)
	}
	n, err := io.Copy(out, body)
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if maxSize > 0 && n > maxSize {
		return n, fmt.Errorf("%w: more than %d bytes", audio.ErrFileTooLarge, maxSize)
	}

	d.log.DebugContext(ctx, "Downloaded file", "file_id", fileID, "bytes", n)
	return n, out.Close()
}
