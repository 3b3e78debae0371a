package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "SUMMAREE"

// envAliases binds the variable names used by existing deployments.
var envAliases = map[string][]string{
	"telegram.token":                {"TELEGRAM_BOT_TOKEN"},
	"telegram.admin_chat_id":        {"ADMIN_CHAT_ID"},
	"telegram.admin_user_id":        {"ADMIN_USER_ID"},
	"telegram.webhook_url":          {"TELEGRAM_WEBHOOK_URL"},
	"telegram.webhook_secret_token": {"TELEGRAM_WEBHOOK_SECRET_TOKEN"},
	"database.path":                 {"DB_URL"},
	"openai.api_key":                {"OPENAI_API_KEY"},
	"gemini.api_key":                {"GEMINI_API_KEY"},
	"deepl.api_key":                 {"DEEPL_TOKEN"},
}

// LoadConfig builds the configuration from defaults, an optional .env file,
// the YAML file at path (a missing file is not an error) and environment
// variables, in increasing order of precedence. The result is validated.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			slog.Info("Config file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnv registers every known key so Unmarshal picks environment values up
// even when the key has no default.
func bindEnv(v *viper.Viper) error {
	keys := make(map[string]struct{}, len(defaults)+len(envAliases))
	for key, value := range defaults {
		// Map sections such as scheduler.tasks come from the config file only.
		if _, isMap := value.(map[string]any); isMap {
			continue
		}
		keys[key] = struct{}{}
	}
	for key := range envAliases {
		keys[key] = struct{}{}
	}

	for key := range keys {
		names := []string{envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		names = append(names, envAliases[key]...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks struct tags and the rules that span several sections.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Summarizer.Provider == "gemini" && cfg.Gemini.APIKey == "" {
		return errors.New("invalid config: gemini.api_key is required when summarizer.provider is gemini")
	}
	if cfg.Telegram.WebhookMode() {
		u, err := url.Parse(cfg.Telegram.WebhookURL)
		if err != nil {
			return fmt.Errorf("invalid config: telegram.webhook_url: %w", err)
		}
		if u.Path != cfg.HTTP.WebhookPath {
			return fmt.Errorf("invalid config: path %q of telegram.webhook_url does not match http.webhook_path %q", u.Path, cfg.HTTP.WebhookPath)
		}
	}
	for name, task := range cfg.Scheduler.Tasks {
		if task.Enabled && task.Schedule == "" {
			return fmt.Errorf("invalid config: scheduler task %q is enabled without a schedule", name)
		}
	}
	return nil
}
