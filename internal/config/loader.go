package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// FileEnv names the variable pointing at an optional YAML config file.
const FileEnv = "MOCKVIEW_CONFIG"

// envKeys maps the environment variables we read to koanf paths.
var envKeys = map[string]string{
	"PORT": "server.port",

	"AI_PROVIDER":        "ai.provider",
	"ARK_API_KEY":        "ai.api_key",
	"ARK_ACCESS_KEY":     "ai.access_key",
	"ARK_SECRET_KEY":     "ai.secret_key",
	"ARK_MODEL":          "ai.model",
	"Model":              "ai.model",
	"ARK_BASE_URL":       "ai.base_url",
	"ARK_REGION":         "ai.region",
	"ARK_TEMPERATURE":    "ai.temperature",
	"ARK_TOP_P":          "ai.top_p",
	"ARK_MAX_TOKENS":     "ai.max_tokens",
	"ARK_STREAM":         "ai.stream_response",
	"AI_SCORING_ENABLED": "ai.scoring_enabled",

	"GEMINI_API_KEY":     "gemini.api_key",
	"GEMINI_MODEL":       "gemini.model",
	"GEMINI_TEMPERATURE": "gemini.temperature",

	"INTERVIEW_TURN_THRESHOLD":     "interview.turn_threshold",
	"INTERVIEW_GENERATION_TIMEOUT": "interview.generation_timeout",
	"MAX_RESUME_BYTES":             "interview.max_resume_bytes",

	"DATABASE_URL": "database.dsn",

	"REDIS_ADDR":        "redis.addr",
	"REDIS_PASSWORD":    "redis.password",
	"REDIS_DB":          "redis.db",
	"REDIS_SESSION_TTL": "redis.session_ttl",

	"RATE_LIMIT_RPS":   "rate_limit.rps",
	"RATE_LIMIT_BURST": "rate_limit.burst",

	"LOG_LEVEL": "log.level",
}

// Load builds a Config by layering, lowest precedence first:
//  1. defaults (New())
//  2. YAML file if MOCKVIEW_CONFIG is set
//  3. environment variables listed in envKeys
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read %s: %w: %w", path, ErrLoadConfig, err)
		}
	}

	envProvider := env.Provider("", ".", func(s string) string {
		// unknown variables map to "" and are skipped
		return envKeys[s]
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("read environment: %w: %w", ErrLoadConfig, err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if _, err := c.Server.Addr(); err != nil {
		return err
	}

	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	switch c.AI.Provider {
	case ProviderArk, ProviderGemini:
	default:
		return fmt.Errorf("ai provider %q must be %s or %s: %w", c.AI.Provider, ProviderArk, ProviderGemini, ErrInvalidConfig)
	}

	if c.Interview.TurnThreshold <= 0 {
		return fmt.Errorf("interview turn threshold must be positive: %w", ErrInvalidConfig)
	}
	if c.Interview.GenerationTimeout < 0 {
		return fmt.Errorf("generation timeout must not be negative: %w", ErrInvalidConfig)
	}
	if c.Redis.SessionTTL < 0 {
		return fmt.Errorf("redis session ttl must not be negative: %w", ErrInvalidConfig)
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative: %w", ErrInvalidConfig)
	}
	return nil
}
