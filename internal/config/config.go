// Package config defines the settings of the summaree bot and loads them
// from defaults, an optional YAML file and the environment.
package config

import (
	"slices"
	"strings"
	"time"
)

// Config is the root settings object built once at startup.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Database   DatabaseConfig   `mapstructure:"database"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	DeepL      DeepLConfig      `mapstructure:"deepl"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Premium    PremiumConfig    `mapstructure:"premium"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Messages   MessagesConfig   `mapstructure:"messages"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// BotInfo holds the identity of the running bot, filled from getMe.
type BotInfo struct {
	ID        int64
	Username  string
	FirstName string
}

// TelegramConfig holds bot credentials and delivery mode.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
	// AdminUserID may run admin commands.
	AdminUserID int64 `mapstructure:"admin_user_id" validate:"gte=0"`
	// AdminChatID receives error reports and usage notices. Zero disables them.
	AdminChatID        int64  `mapstructure:"admin_chat_id"`
	WebhookURL         string `mapstructure:"webhook_url" validate:"omitempty,url"`
	WebhookSecretToken string `mapstructure:"webhook_secret_token" validate:"required_with=WebhookURL"`
	DropPendingUpdates bool   `mapstructure:"drop_pending_updates"`

	BotInfo BotInfo `mapstructure:"-"`
}

// WebhookMode reports whether updates arrive through a webhook instead of long polling.
func (t TelegramConfig) WebhookMode() bool {
	return t.WebhookURL != ""
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// OpenAIConfig configures Whisper and, when selected, the chat summarizer.
type OpenAIConfig struct {
	APIKey             string        `mapstructure:"api_key" validate:"required"`
	BaseURL            string        `mapstructure:"base_url" validate:"omitempty,url"`
	TranscriptionModel string        `mapstructure:"transcription_model" validate:"required"`
	SummaryModel       string        `mapstructure:"summary_model" validate:"required"`
	Temperature        float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	Timeout            time.Duration `mapstructure:"timeout" validate:"min=1s"`
	// Prices in USD per 1000 tokens, used to compute summary cost.
	PromptPricePer1K     float64 `mapstructure:"prompt_price_per_1k" validate:"min=0"`
	CompletionPricePer1K float64 `mapstructure:"completion_price_per_1k" validate:"min=0"`
}

// GeminiConfig configures the Gemini summarizer.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	ModelName         string  `mapstructure:"model_name" validate:"required"`
	Temperature       float32 `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0"`
}

// DeepLConfig configures the translation provider.
type DeepLConfig struct {
	APIKey string `mapstructure:"api_key" validate:"required"`
	// BaseURL overrides the host picked from the key type.
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=1s"`
}

// SummarizerConfig selects the LLM used for summaries.
type SummarizerConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=openai gemini"`
}

// AudioConfig controls downloads and transcoding.
type AudioConfig struct {
	FFmpegPath string `mapstructure:"ffmpeg_path" validate:"required"`
	// MaxFileSize is the largest file the Bot API lets us download.
	MaxFileSize int64  `mapstructure:"max_file_size" validate:"gt=0"`
	TempDir     string `mapstructure:"temp_dir"`
}

// PremiumConfig controls which features need a subscription.
type PremiumConfig struct {
	FreeLanguages []string `mapstructure:"free_languages" validate:"min=1,dive,len=2"`
}

// IsFreeLanguage reports whether summaries in the given IETF tag are available without premium.
func (p PremiumConfig) IsFreeLanguage(tag string) bool {
	return slices.Contains(p.FreeLanguages, strings.ToLower(tag))
}

// HTTPConfig configures the webhook, health and metrics listener.
type HTTPConfig struct {
	ListenAddr  string `mapstructure:"listen_addr" validate:"required"`
	WebhookPath string `mapstructure:"webhook_path" validate:"required,startswith=/"`
}

// TaskConfig enables a scheduled task and sets its cron schedule (seconds field included).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their settings.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// MessagesConfig holds the user-facing texts that are not localized.
type MessagesConfig struct {
	Welcome              string `mapstructure:"welcome" validate:"required"`
	Help                 string `mapstructure:"help" validate:"required"`
	ErrorGeneralMsg      string `mapstructure:"error_general" validate:"required"`
	ErrorUnauthorizedMsg string `mapstructure:"error_unauthorized" validate:"required"`
	InvalidButtonMsg     string `mapstructure:"invalid_button" validate:"required"`
	PremiumRequiredMsg   string `mapstructure:"premium_required" validate:"required"`
	PaymentThanksMsg     string `mapstructure:"payment_thanks" validate:"required"`
	SubscriptionEnded    string `mapstructure:"subscription_ended" validate:"required"`
}
