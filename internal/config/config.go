// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Role selects which sections LoadConfig validates.
type Role int

const (
	RoleServer Role = iota
	RoleClient
	RoleBot
	RoleTool
)

type RuntimeConfig struct {
	Dev  bool
	Role Role
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres | sqlite
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	Provider           string            `yaml:"provider"` // gemini | openai | echo
	GeminiKey          string            `yaml:"gemini_key"`
	GeminiURL          string            `yaml:"gemini_url"`
	OpenAIKey          string            `yaml:"openai_key"`
	OpenAIBaseURL      string            `yaml:"openai_base_url"`
	DefaultModel       string            `yaml:"default_model"`
	ModelProviders     map[string]string `yaml:"model_providers"` // model -> provider
	ConcurrentLimit    int               `yaml:"concurrent_limit"`
	MaxOutputTokens    int               `yaml:"max_output_tokens"`
	HistoryTokenBudget int               `yaml:"history_token_budget"`
	RateLimitPerMinute int               `yaml:"rate_limit_per_minute"`
	SingleFlight       bool              `yaml:"single_flight"`
	GenerationLockTTL  time.Duration     `yaml:"generation_lock_ttl"`
}

type StorageConfig struct {
	RetentionDays     int           `yaml:"retention_days"` // 0 disables cleanup
	RetentionInterval time.Duration `yaml:"retention_interval"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"` // empty disables encryption at rest
}

type ClientConfig struct {
	BaseURL     string `yaml:"base_url"`
	Token       string `yaml:"token"`
	Render      bool   `yaml:"render"`
	HistoryFile string `yaml:"history_file"`
	Lang        string `yaml:"lang"`
}

type BotConfig struct {
	Token        string        `yaml:"token"`
	Workers      int           `yaml:"workers"`
	EditInterval time.Duration `yaml:"edit_interval"`
	Lang         string        `yaml:"lang"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Storage  StorageConfig  `yaml:"storage"`
	Security SecurityConfig `yaml:"security"`
	Client   ClientConfig   `yaml:"client"`
	Bot      BotConfig      `yaml:"bot"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies environment overrides and
// defaults, and validates the sections the given role needs. A missing file is
// tolerated for client and bot roles, which can run from environment alone.
func LoadConfig(path string, role Role, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && role != RoleServer:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime = RuntimeConfig{Dev: dev, Role: role}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Client.Token, "CODECRAFT_TOKEN")
	set(&cfg.Client.BaseURL, "CODECRAFT_BASE_URL")
	set(&cfg.Auth.JWTSecret, "CODECRAFT_JWT_SECRET")
	set(&cfg.AI.GeminiKey, "GEMINI_API_KEY")
	set(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	set(&cfg.Bot.Token, "TELEGRAM_BOT_TOKEN")
	set(&cfg.Database.URL, "DATABASE_URL")
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "codecraft-ai"
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.AI.Provider == "" {
		switch {
		case cfg.AI.GeminiKey != "":
			cfg.AI.Provider = "gemini"
		case cfg.AI.OpenAIKey != "":
			cfg.AI.Provider = "openai"
		default:
			cfg.AI.Provider = "echo"
		}
	}
	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
	if cfg.AI.DefaultModel == "" {
		switch cfg.AI.Provider {
		case "openai":
			cfg.AI.DefaultModel = "gpt-4o-mini"
		default:
			cfg.AI.DefaultModel = "gemini-2.5-pro"
		}
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		cfg.AI.MaxOutputTokens = 8192
	}
	if cfg.AI.HistoryTokenBudget <= 0 {
		cfg.AI.HistoryTokenBudget = 16000
	}
	if cfg.AI.RateLimitPerMinute <= 0 {
		cfg.AI.RateLimitPerMinute = 20
	}
	if cfg.AI.GenerationLockTTL <= 0 {
		cfg.AI.GenerationLockTTL = 5 * time.Minute
	}
	if cfg.Storage.RetentionInterval <= 0 {
		cfg.Storage.RetentionInterval = time.Hour
	}

	if cfg.Client.BaseURL == "" {
		cfg.Client.BaseURL = "http://localhost:8000"
	}
	if cfg.Client.Lang == "" {
		cfg.Client.Lang = "en"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.EditInterval <= 0 {
		cfg.Bot.EditInterval = time.Second
	}
	if cfg.Bot.Lang == "" {
		cfg.Bot.Lang = cfg.Client.Lang
	}
}

func (c *Config) validate() error {
	switch c.Runtime.Role {
	case RoleServer:
		if c.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is required")
		}
		switch c.Database.Driver {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
		}
		if c.Database.URL == "" {
			return errors.New("database.url is required")
		}
		switch c.AI.Provider {
		case "gemini":
			if c.AI.GeminiKey == "" {
				return errors.New("ai.gemini_key is required for provider gemini")
			}
		case "openai":
			if c.AI.OpenAIKey == "" {
				return errors.New("ai.openai_key is required for provider openai")
			}
		case "echo":
			if !c.Runtime.Dev {
				return errors.New("ai.provider echo is only allowed with -dev")
			}
		default:
			return fmt.Errorf("ai.provider %q is not supported", c.AI.Provider)
		}
		if k := len(c.Security.EncryptionKey); k != 0 && k != 16 && k != 24 && k != 32 {
			return errors.New("security.encryption_key must be 16, 24 or 32 bytes")
		}
	case RoleBot:
		if c.Bot.Token == "" {
			return errors.New("bot.token is required")
		}
		if c.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is required")
		}
	case RoleTool:
		if c.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is required")
		}
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
