package config

import "time"

const (
	DefaultLogLevel    = "info"
	DefaultDBPath      = "./summaree.db"
	DefaultListenAddr  = ":8443"
	DefaultWebhookPath = "/telegram"

	DefaultTranscriptionModel = "whisper-1"
	DefaultSummaryModel       = "gpt-4o-mini"
	DefaultGeminiModel        = "gemini-2.0-flash"

	// Telegram bots may only download files up to 20 MB through getFile.
	DefaultMaxFileSize = 20 * 1024 * 1024
)

// defaultTasks are the periodic jobs enabled out of the box.
var defaultTasks = map[string]any{
	"message_queue":      map[string]any{"enabled": true, "schedule": "0 * * * * *"},
	"subscription_check": map[string]any{"enabled": true, "schedule": "0 */30 * * * *"},
	"sql_maintenance":    map[string]any{"enabled": true, "schedule": "0 0 4 * * *"},
}

var defaults = map[string]any{
	"logger.level": DefaultLogLevel,
	"logger.json":  false,

	"telegram.drop_pending_updates": false,

	"database.path": DefaultDBPath,

	"openai.base_url":                "",
	"openai.transcription_model":     DefaultTranscriptionModel,
	"openai.summary_model":           DefaultSummaryModel,
	"openai.temperature":             0.2,
	"openai.timeout":                 3 * time.Minute,
	"openai.prompt_price_per_1k":     0.00015,
	"openai.completion_price_per_1k": 0.0006,

	"gemini.model_name":          DefaultGeminiModel,
	"gemini.temperature":         0.2,
	"gemini.max_retries":         3,
	"gemini.retry_delay_seconds": 2,

	"deepl.timeout": 30 * time.Second,

	"summarizer.provider": "openai",

	"audio.ffmpeg_path":   "ffmpeg",
	"audio.max_file_size": DefaultMaxFileSize,
	"audio.temp_dir":      "",

	"premium.free_languages": []string{"en", "de", "es", "ru"},

	"http.listen_addr":  DefaultListenAddr,
	"http.webhook_path": DefaultWebhookPath,

	"scheduler.tasks": defaultTasks,

	"messages.welcome":            "👋 I'm @botname.\n\nSend or forward me a voice message, audio file or video note and I will transcribe and summarize it for you.",
	"messages.help":               "🎧 Send me a voice, audio or video message and I reply with a short summary.",
	"messages.error_general":      "😵 Something went wrong while processing your request. The developer has been notified.",
	"messages.error_unauthorized": "🚫 You are not authorized to use this command.",
	"messages.invalid_button":     "⚠️ This button is no longer available.",
	"messages.premium_required":   "💎 Summaries in this language are a premium feature. Use /premium to subscribe or /lang to pick a free language.",
	"messages.payment_thanks":     "🎉 Thank you! Your premium is active until %s.",
	"messages.subscription_ended": "⌛ Your premium subscription has ended. Use /premium to renew it.",
}
