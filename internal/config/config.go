package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

type Config struct {
	TelegramToken        string  `yaml:"telegram_bot_token"`
	TelegramAllowedUsers []int64 `yaml:"telegram_allowed_users"`

	PaperlessURL       string `yaml:"paperless_url"`
	PaperlessToken     string `yaml:"paperless_token"`
	PaperlessPublicURL string `yaml:"paperless_public_url"`
	InboxTag           string `yaml:"inbox_tag"`

	MaxSearchResults int `yaml:"max_search_results"`

	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	HealthPort string `yaml:"health_port"`

	TaskTimeoutSeconds int           `yaml:"task_timeout_seconds"`
	TaskPollInterval   time.Duration `yaml:"task_poll_interval"`
	BackendTimeout     time.Duration `yaml:"backend_timeout"`

	TelegramRateLimitRPS   float64 `yaml:"telegram_rate_limit_rps"`
	TelegramRateLimitBurst int     `yaml:"telegram_rate_limit_burst"`
	MaxConcurrentUpdates   int     `yaml:"max_concurrent_updates"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	BreakerEnabled bool `yaml:"breaker_enabled"`
}

func defaults() Config {
	return Config{
		MaxSearchResults:       10,
		LogLevel:               "info",
		LogFormat:              "json",
		HealthPort:             "8080",
		TaskTimeoutSeconds:     60,
		TaskPollInterval:       2 * time.Second,
		BackendTimeout:         30 * time.Second,
		TelegramRateLimitRPS:   25,
		TelegramRateLimitBurst: 5,
		MaxConcurrentUpdates:   16,
		NATSSubject:            "paperless.bot.events",
		BreakerEnabled:         true,
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE and the environment, in increasing priority.
func Load() (Config, error) {
	base := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := overlayFile(&base, path); err != nil {
			return Config{}, err
		}
	}

	allowed := base.TelegramAllowedUsers
	if raw := os.Getenv("TELEGRAM_ALLOWED_USERS"); raw != "" {
		parsed, err := parseAllowedUsers(raw)
		if err != nil {
			return Config{}, err
		}
		allowed = parsed
	}

	cfg := Config{
		TelegramToken:        mustEnv("TELEGRAM_BOT_TOKEN", base.TelegramToken),
		TelegramAllowedUsers: allowed,

		PaperlessURL:       strings.TrimRight(mustEnv("PAPERLESS_URL", base.PaperlessURL), "/"),
		PaperlessToken:     mustEnv("PAPERLESS_TOKEN", base.PaperlessToken),
		PaperlessPublicURL: strings.TrimRight(mustEnv("PAPERLESS_PUBLIC_URL", base.PaperlessPublicURL), "/"),
		InboxTag:           mustEnv("INBOX_TAG", base.InboxTag),

		MaxSearchResults: mustEnvInt("MAX_SEARCH_RESULTS", base.MaxSearchResults),

		LogLevel:   mustEnv("LOG_LEVEL", base.LogLevel),
		LogFormat:  mustEnv("LOG_FORMAT", base.LogFormat),
		HealthPort: mustEnv("HEALTH_PORT", base.HealthPort),

		TaskTimeoutSeconds: mustEnvInt("TASK_TIMEOUT_SECONDS", base.TaskTimeoutSeconds),
		TaskPollInterval:   mustEnvDuration("TASK_POLL_INTERVAL", base.TaskPollInterval),
		BackendTimeout:     mustEnvDuration("BACKEND_TIMEOUT", base.BackendTimeout),

		TelegramRateLimitRPS:   mustEnvFloat("TELEGRAM_RATE_LIMIT_RPS", base.TelegramRateLimitRPS),
		TelegramRateLimitBurst: mustEnvInt("TELEGRAM_RATE_LIMIT_BURST", base.TelegramRateLimitBurst),
		MaxConcurrentUpdates:   mustEnvInt("MAX_CONCURRENT_UPDATES", base.MaxConcurrentUpdates),

		NATSURL:     mustEnv("NATS_URL", base.NATSURL),
		NATSSubject: mustEnv("NATS_SUBJECT", base.NATSSubject),

		BreakerEnabled: mustEnvBool("BREAKER_ENABLED", base.BreakerEnabled),
	}
	if cfg.PaperlessPublicURL == "" {
		cfg.PaperlessPublicURL = cfg.PaperlessURL
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var problems []error
	if strings.TrimSpace(c.TelegramToken) == "" {
		problems = append(problems, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if strings.TrimSpace(c.PaperlessURL) == "" {
		problems = append(problems, errors.New("PAPERLESS_URL is required"))
	}
	if strings.TrimSpace(c.PaperlessToken) == "" {
		problems = append(problems, errors.New("PAPERLESS_TOKEN is required"))
	}
	if c.MaxSearchResults <= 0 {
		problems = append(problems, fmt.Errorf("MAX_SEARCH_RESULTS must be positive, got %d", c.MaxSearchResults))
	}
	if c.TaskTimeoutSeconds <= 0 {
		problems = append(problems, fmt.Errorf("TASK_TIMEOUT_SECONDS must be positive, got %d", c.TaskTimeoutSeconds))
	}
	if len(problems) == 0 {
		return nil
	}
	return domain.WrapError(domain.ErrValidation, "config", errors.Join(problems...))
}

// AuthEnabled reports whether an allow-list restricts who may use the bot.
func (c Config) AuthEnabled() bool {
	return len(c.TelegramAllowedUsers) > 0
}

func (c Config) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSeconds) * time.Second
}

func overlayFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.WrapError(domain.ErrValidation, "config file", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return domain.WrapError(domain.ErrValidation, "config file", err)
	}
	return nil
}

func parseAllowedUsers(raw string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, domain.WrapError(domain.ErrValidation, "TELEGRAM_ALLOWED_USERS", fmt.Errorf("invalid user id %q", part))
		}
		out = append(out, id)
	}
	return out, nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
