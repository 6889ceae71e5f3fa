// Package config defines service configuration and loading.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	AI        AIConfig        `koanf:"ai"`
	Gemini    GeminiConfig    `koanf:"gemini"`
	Interview InterviewConfig `koanf:"interview"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Log       LogConfig       `koanf:"log"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		AI: AIConfig{
			Provider:       ProviderArk,
			BaseURL:        "https://ark.cn-beijing.volces.com/api/v3",
			Region:         "cn-beijing",
			StreamResponse: true,
			ScoringEnabled: true,
		},
		Gemini: GeminiConfig{Model: "gemini-2.5-flash"},
		Interview: InterviewConfig{
			TurnThreshold:     5,
			GenerationTimeout: 60 * time.Second,
			MaxResumeBytes:    5 << 20,
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 5, Burst: 20, CleanupInterval: 5 * time.Minute},
		Log:       LogConfig{Level: "info"},
	}
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port string `koanf:"port"`
}

// Addr 解析服务器监听地址。
func (c ServerConfig) Addr() (string, error) {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value %q: %w", port, ErrInvalidConfig)
	}

	return ":" + port, nil
}

// Supported generation providers.
const (
	ProviderArk    = "ark"
	ProviderGemini = "gemini"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider       string   `koanf:"provider"`
	APIKey         string   `koanf:"api_key"`
	AccessKey      string   `koanf:"access_key"`
	SecretKey      string   `koanf:"secret_key"`
	Model          string   `koanf:"model"`
	BaseURL        string   `koanf:"base_url"`
	Region         string   `koanf:"region"`
	Temperature    *float64 `koanf:"temperature"`
	TopP           *float64 `koanf:"top_p"`
	MaxTokens      *int     `koanf:"max_tokens"`
	StreamResponse bool     `koanf:"stream_response"`
	// ScoringEnabled 为 false 时使用关键词启发式评分
	ScoringEnabled bool `koanf:"scoring_enabled"`
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing, need ARK_API_KEY + ARK_MODEL or an AK/SK pair: %w", ErrInvalidConfig)
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKey      string   `koanf:"api_key"`
	Model       string   `koanf:"model"`
	Temperature *float64 `koanf:"temperature"`
}

// Enabled reports whether an API key is present.
func (c GeminiConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// InterviewConfig tunes the session engine.
type InterviewConfig struct {
	TurnThreshold     int           `koanf:"turn_threshold"`
	GenerationTimeout time.Duration `koanf:"generation_timeout"`
	MaxResumeBytes    int64         `koanf:"max_resume_bytes"`
}

// DatabaseConfig selects rating persistence. An empty DSN keeps ratings in memory.
type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

// RedisConfig selects the session store. An empty Addr keeps sessions in memory.
type RedisConfig struct {
	Addr       string        `koanf:"addr"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	SessionTTL time.Duration `koanf:"session_ttl"`
}

// RateLimitConfig bounds requests per client IP. Zero RequestsPerSecond disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64       `koanf:"rps"`
	Burst             int           `koanf:"burst"`
	CleanupInterval   time.Duration `koanf:"cleanup_interval"`
}

// LogConfig controls verbosity: debug, info, warn, error.
type LogConfig struct {
	Level string `koanf:"level"`
}
