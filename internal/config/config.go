package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingBotToken    = errors.New("BOT_TOKEN is required")
	ErrMissingOwnerUserID = errors.New("OWNER_USER_ID is required and must be > 0")
	ErrMissingDatabaseDSN = errors.New("DB_DSN is required")
	ErrInvalidMaxResize   = errors.New("MAX_RESIZE_DIM must be > 0")
)

type Config struct {
	BotToken    string
	OwnerUserID int64

	DevPolling bool

	Webhook WebhookConfig
	Redis   RedisConfig
	DB      DBConfig
	Gen     GenConfig
	Resize  ResizeConfig
	Roast   RoastConfig
	Rate    RateConfig
	Log     LogConfig
}

type WebhookConfig struct {
	ListenAddr     string
	PublicURL      string
	SecretPath     string
	SecretToken    string
	HealthPath     string
	MetricsPath    string
	WebhookTimeout time.Duration
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	UpdateTTL time.Duration
}

type DBConfig struct {
	Driver      string
	DSN         string
	AutoMigrate bool
}

type GenConfig struct {
	TextBaseURL  string
	ImageBaseURL string
	APIKey       string
	TextTimeout  time.Duration
	ImageTimeout time.Duration
	RoastTimeout time.Duration
}

type ResizeConfig struct {
	MaxDim int
}

type RoastConfig struct {
	Enabled     bool
	MinLen      int
	MaxReplyLen int
	Cooldown    time.Duration
}

type RateConfig struct {
	PerHour int64
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		BotToken:    mustEnv("BOT_TOKEN", ""),
		OwnerUserID: mustInt64("OWNER_USER_ID", 0),
		DevPolling:  mustBool("DEV_POLLING", true),
		Webhook: WebhookConfig{
			ListenAddr:     mustEnv("WEBHOOK_LISTEN_ADDR", ":8080"),
			PublicURL:      mustEnv("WEBHOOK_URL", ""),
			SecretPath:     strings.Trim(mustEnv("WEBHOOK_SECRET_PATH", "telegram"), "/"),
			SecretToken:    mustEnv("WEBHOOK_SECRET_TOKEN", ""),
			HealthPath:     mustEnv("HEALTH_PATH", "/healthz"),
			MetricsPath:    mustEnv("METRICS_PATH", "/metrics"),
			WebhookTimeout: mustDuration("WEBHOOK_TIMEOUT", 8*time.Second),
		},
		Redis: RedisConfig{
			Addr:      mustEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  mustEnv("REDIS_PASSWORD", ""),
			DB:        mustInt("REDIS_DB", 0),
			UpdateTTL: mustDuration("UPDATE_DEDUPE_TTL", 6*time.Hour),
		},
		DB: DBConfig{
			Driver:      strings.ToLower(mustEnv("DB_DRIVER", "sqlite")),
			DSN:         mustEnv("DB_DSN", "file:genbot.db"),
			AutoMigrate: mustBool("AUTO_MIGRATE", true),
		},
		Gen: GenConfig{
			TextBaseURL:  mustEnv("TEXT_API_BASE", "https://text.pollinations.ai"),
			ImageBaseURL: mustEnv("IMAGE_API_BASE", "https://image.pollinations.ai/prompt"),
			APIKey:       mustEnv("GEN_API_KEY", ""),
			TextTimeout:  mustDuration("TEXT_TIMEOUT", 20*time.Second),
			ImageTimeout: mustDuration("IMAGE_TIMEOUT", 45*time.Second),
			RoastTimeout: mustDuration("ROAST_TIMEOUT", 15*time.Second),
		},
		Resize: ResizeConfig{
			MaxDim: mustInt("MAX_RESIZE_DIM", 2048),
		},
		Roast: RoastConfig{
			Enabled:     mustBool("ROAST_ENABLED", true),
			MinLen:      mustInt("ROAST_MIN_LEN", 5),
			MaxReplyLen: mustInt("ROAST_MAX_REPLY", 200),
			Cooldown:    mustDuration("ROAST_COOLDOWN", 90*time.Second),
		},
		Rate: RateConfig{
			PerHour: int64(mustInt("RATE_LIMIT_PER_HOUR", 30)),
		},
		Log: LogConfig{
			Level: strings.ToLower(mustEnv("LOG_LEVEL", "info")),
		},
	}

	if cfg.BotToken == "" {
		return nil, ErrMissingBotToken
	}
	if cfg.OwnerUserID <= 0 {
		return nil, ErrMissingOwnerUserID
	}
	if cfg.DB.DSN == "" {
		return nil, ErrMissingDatabaseDSN
	}
	if cfg.Resize.MaxDim <= 0 {
		return nil, ErrInvalidMaxResize
	}
	if cfg.DB.Driver != "sqlite" && cfg.DB.Driver != "sqlite3" && cfg.DB.Driver != "postgres" && cfg.DB.Driver != "pgx" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}

	return cfg, nil
}

func mustEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func mustInt(key string, def int) int {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustInt64(key string, def int64) int64 {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func mustBool(key string, def bool) bool {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func mustDuration(key string, def time.Duration) time.Duration {
	v := mustEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
