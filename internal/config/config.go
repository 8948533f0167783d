package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrNoProviderKeys = errors.New("at least one provider API key is required")

type Config struct {
	ListenAddr string

	Providers ProvidersConfig
	Credits   CreditsConfig
	Cache     CacheConfig
	Redis     RedisConfig
	DB        DBConfig
	Log       LogConfig
}

type ProvidersConfig struct {
	OpenAIKey        string
	AnthropicKey     string
	AnthropicBaseURL string
	XAIKey           string
	XAIBaseURL       string

	Timeout time.Duration
}

type CreditsConfig struct {
	FreeLimit    int
	PremiumLimit int

	AdminUsers   []string
	PremiumUsers []string

	LimitReachedMessage string
}

type CacheConfig struct {
	TTL time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DBConfig struct {
	Driver        string
	DSN           string
	AutoMigrate   bool
	MigrationsDir string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr: mustEnv("LISTEN_ADDR", ":3001"),
		Providers: ProvidersConfig{
			OpenAIKey:        mustEnv("OPENAI_API_KEY", ""),
			AnthropicKey:     mustEnv("ANTHROPIC_API_KEY", ""),
			AnthropicBaseURL: mustEnv("ANTHROPIC_BASE_URL", ""),
			XAIKey:           mustEnv("XAI_API_KEY", ""),
			XAIBaseURL:       mustEnv("XAI_BASE_URL", "https://api.x.ai/v1"),
			Timeout:          mustDuration("PROVIDER_TIMEOUT", 120*time.Second),
		},
		Credits: CreditsConfig{
			FreeLimit:           mustInt("FREE_CREDITS", 5),
			PremiumLimit:        mustInt("PREMIUM_CREDITS", 200),
			AdminUsers:          mustList("ADMIN_USERS"),
			PremiumUsers:        mustList("PREMIUM_USERS"),
			LimitReachedMessage: mustEnv("LIMIT_REACHED_MESSAGE", "You have used all your credits. Upgrade to keep going."),
		},
		Cache: CacheConfig{
			TTL: mustDuration("CONFIG_CACHE_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     mustEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: mustEnv("REDIS_PASSWORD", ""),
			DB:       mustInt("REDIS_DB", 0),
		},
		DB: DBConfig{
			Driver:        strings.ToLower(mustEnv("DB_DRIVER", "sqlite")),
			DSN:           mustEnv("DB_DSN", ""),
			AutoMigrate:   mustBool("AUTO_MIGRATE", true),
			MigrationsDir: mustEnv("MIGRATIONS_DIR", "migrations"),
		},
		Log: LogConfig{
			Level: strings.ToLower(mustEnv("LOG_LEVEL", "info")),
		},
	}

	if cfg.Providers.OpenAIKey == "" && cfg.Providers.AnthropicKey == "" && cfg.Providers.XAIKey == "" {
		return nil, ErrNoProviderKeys
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

func mustList(key string) []string {
	raw := mustEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
