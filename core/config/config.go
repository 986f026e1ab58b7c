package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token    string  `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminIDs []int64 `yaml:"admin_ids" envconfig:"TELEGRAM_ADMIN_IDS"`
	RunMode  string  `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// APIConfig points the bot at the bridge backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url" envconfig:"API_BASE_URL"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Stacks      string `yaml:"stacks"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// RateLimitConfig holds the per-user sliding-window limits.
// Messages and order creation are counted independently.
type RateLimitConfig struct {
	MaxMessagesPerMinute int `yaml:"max_messages_per_minute" envconfig:"MAX_MESSAGES_PER_MINUTE"`
	MaxOrdersPerHour     int `yaml:"max_orders_per_hour" envconfig:"MAX_ORDERS_PER_HOUR"`
}

// WatchConfig controls the background order status poller.
type WatchConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds" envconfig:"STATUS_POLL_INTERVAL"`
	MaxPolls            int `yaml:"max_polls" envconfig:"STATUS_MAX_POLLS"`
}

// Config aggregates the bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Watch     WatchConfig     `yaml:"watch"`
}

// Load reads configuration from a YAML file, a local .env file, and environment
// variables, in that order of precedence (environment wins).
func Load(path string) (*Config, error) {
	var cfg Config

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		// An explicit webhook URL implies webhook mode; otherwise long-poll.
		if strings.TrimSpace(cfg.Webhook.URL) != "" {
			rm = RunModeWebhook
		} else {
			rm = RunModeLongpoll
		}
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			cfg.Webhook.Listen = "0.0.0.0"
		}
		if cfg.Webhook.Port <= 0 {
			cfg.Webhook.Port = 8081
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.RateLimit.MaxMessagesPerMinute <= 0 {
		cfg.RateLimit.MaxMessagesPerMinute = 30
	}
	if cfg.RateLimit.MaxOrdersPerHour <= 0 {
		cfg.RateLimit.MaxOrdersPerHour = 3
	}
	if cfg.Watch.PollIntervalSeconds <= 0 {
		cfg.Watch.PollIntervalSeconds = 30
	}
	if cfg.Watch.MaxPolls <= 0 {
		cfg.Watch.MaxPolls = 360
	}

	return nil
}

// IsAdmin reports whether the given Telegram user ID is on the admin allow-list.
func (c *Config) IsAdmin(userID int64) bool {
	if c == nil || userID == 0 {
		return false
	}
	for _, id := range c.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
