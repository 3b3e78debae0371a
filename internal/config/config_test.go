package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:ABCDEF")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DEEPL_TOKEN", "deepl-test:fx")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults with legacy env names", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("ADMIN_CHAT_ID", "-100200300")

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)

		assert.Equal(t, "123456:ABCDEF", cfg.Telegram.Token)
		assert.Equal(t, int64(-100200300), cfg.Telegram.AdminChatID)
		assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
		assert.Equal(t, "deepl-test:fx", cfg.DeepL.APIKey)
		assert.Equal(t, DefaultLogLevel, cfg.Logger.Level)
		assert.Equal(t, DefaultDBPath, cfg.Database.Path)
		assert.Equal(t, "openai", cfg.Summarizer.Provider)
		assert.Equal(t, 3*time.Minute, cfg.OpenAI.Timeout)
		assert.Equal(t, []string{"en", "de", "es", "ru"}, cfg.Premium.FreeLanguages)
		assert.False(t, cfg.Telegram.WebhookMode())

		require.Contains(t, cfg.Scheduler.Tasks, "message_queue")
		assert.True(t, cfg.Scheduler.Tasks["message_queue"].Enabled)
		assert.Equal(t, "0 */30 * * * *", cfg.Scheduler.Tasks["subscription_check"].Schedule)
	})

	t.Run("yaml file overrides defaults and env overrides yaml", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SUMMAREE_LOGGER_LEVEL", "debug")

		path := filepath.Join(t.TempDir(), "config.yaml")
		content := []byte(`
logger:
  level: warn
  json: true
database:
  path: /data/bot.db
telegram:
  webhook_url: https://example.com/telegram
  webhook_secret_token: s3cret
scheduler:
  tasks:
    sql_maintenance:
      enabled: false
      schedule: "0 0 4 * * *"
`)
		require.NoError(t, os.WriteFile(path, content, 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Logger.Level)
		assert.True(t, cfg.Logger.JSON)
		assert.Equal(t, "/data/bot.db", cfg.Database.Path)
		assert.True(t, cfg.Telegram.WebhookMode())
		assert.Equal(t, "s3cret", cfg.Telegram.WebhookSecretToken)
		assert.False(t, cfg.Scheduler.Tasks["sql_maintenance"].Enabled)
	})

	t.Run("missing token fails validation", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "")
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("DEEPL_TOKEN", "deepl-test")

		_, err := LoadConfig("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Token")
	})
}

func validConfig() *Config {
	return &Config{
		Logger:     LoggerConfig{Level: "info"},
		Telegram:   TelegramConfig{Token: "token"},
		Database:   DatabaseConfig{Path: ":memory:"},
		OpenAI:     OpenAIConfig{APIKey: "key", TranscriptionModel: "whisper-1", SummaryModel: "gpt-4o-mini", Timeout: time.Minute},
		Gemini:     GeminiConfig{ModelName: DefaultGeminiModel},
		DeepL:      DeepLConfig{APIKey: "key", Timeout: time.Second},
		Summarizer: SummarizerConfig{Provider: "openai"},
		Audio:      AudioConfig{FFmpegPath: "ffmpeg", MaxFileSize: DefaultMaxFileSize},
		Premium:    PremiumConfig{FreeLanguages: []string{"en"}},
		HTTP:       HTTPConfig{ListenAddr: ":8443", WebhookPath: "/telegram"},
		Messages: MessagesConfig{
			Welcome: "w", Help: "h", ErrorGeneralMsg: "e", ErrorUnauthorizedMsg: "u",
			InvalidButtonMsg: "b", PremiumRequiredMsg: "p", PaymentThanksMsg: "t", SubscriptionEnded: "s",
		},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown log level", mutate: func(c *Config) { c.Logger.Level = "trace" }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.Summarizer.Provider = "llama" }, wantErr: true},
		{name: "gemini without key", mutate: func(c *Config) { c.Summarizer.Provider = "gemini" }, wantErr: true},
		{name: "gemini with key", mutate: func(c *Config) {
			c.Summarizer.Provider = "gemini"
			c.Gemini.APIKey = "g"
		}},
		{name: "webhook without secret", mutate: func(c *Config) { c.Telegram.WebhookURL = "https://example.com/hook" }, wantErr: true},
		{name: "webhook path without slash", mutate: func(c *Config) { c.HTTP.WebhookPath = "hook" }, wantErr: true},
		{name: "webhook matches path", mutate: func(c *Config) {
			c.Telegram.WebhookURL = "https://example.com/telegram"
			c.Telegram.WebhookSecretToken = "s"
		}},
		{name: "webhook path mismatch", mutate: func(c *Config) {
			c.Telegram.WebhookURL = "https://example.com/hook"
			c.Telegram.WebhookSecretToken = "s"
		}, wantErr: true},
		{name: "webhook without path", mutate: func(c *Config) {
			c.Telegram.WebhookURL = "https://example.com"
			c.Telegram.WebhookSecretToken = "s"
		}, wantErr: true},
		{name: "enabled task without schedule", mutate: func(c *Config) {
			c.Scheduler.Tasks = map[string]TaskConfig{"message_queue": {Enabled: true}}
		}, wantErr: true},
		{name: "free language must be a two letter tag", mutate: func(c *Config) { c.Premium.FreeLanguages = []string{"eng"} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsFreeLanguage(t *testing.T) {
	t.Parallel()
	p := PremiumConfig{FreeLanguages: []string{"en", "de"}}
	assert.True(t, p.IsFreeLanguage("en"))
	assert.True(t, p.IsFreeLanguage("DE"))
	assert.False(t, p.IsFreeLanguage("fr"))
}
