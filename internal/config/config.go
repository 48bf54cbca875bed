// Package config loads the conserje runtime configuration: a YAML file on top of
// built-in defaults, then a .env file, then environment variables. Command-line
// flags are applied last by the commands themselves.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/conserje/internal/logging"
)

// Config holds all runtime settings.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	OpenAI  OpenAIConfig  `yaml:"openai" mapstructure:"openai"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Redis   RedisConfig   `yaml:"redis" mapstructure:"redis"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	MCP     MCPConfig     `yaml:"mcp" mapstructure:"mcp"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `yaml:"host" mapstructure:"host"`
	Port              int           `yaml:"port" mapstructure:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	RequestValidation bool          `yaml:"request_validation" mapstructure:"request_validation"`
	Metrics           bool          `yaml:"metrics" mapstructure:"metrics"`
}

// CatalogConfig says where the hotel catalog lives.
type CatalogConfig struct {
	// Path is a YAML/JSON file or a Loam directory.
	Path  string `yaml:"path" mapstructure:"path"`
	Watch bool   `yaml:"watch" mapstructure:"watch"`
}

// OpenAIConfig selects the language-model backend. Without an API key the
// concierge answers from templates only.
type OpenAIConfig struct {
	APIKey        string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url"`
	ChatModel     string        `yaml:"chat_model" mapstructure:"chat_model"`
	ClassifyModel string        `yaml:"classify_model" mapstructure:"classify_model"`
	EmbedModel    string        `yaml:"embed_model" mapstructure:"embed_model"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Enabled reports whether a key is configured.
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

// CacheConfig configures the embedding and generated-text caches.
type CacheConfig struct {
	Driver string        `yaml:"driver" mapstructure:"driver"` // memory or redis
	TTL    time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Prefix string        `yaml:"prefix" mapstructure:"prefix"`
}

// RedisConfig is shared by the redis cache and the redis session store.
type RedisConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// SessionConfig configures where sessions live and how they are protected.
type SessionConfig struct {
	Store        string        `yaml:"store" mapstructure:"store"` // memory, file or redis
	Dir          string        `yaml:"dir" mapstructure:"dir"`
	TTL          time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Prefix       string        `yaml:"prefix" mapstructure:"prefix"`
	HistoryLimit int           `yaml:"history_limit" mapstructure:"history_limit"`
	LockTTL      time.Duration `yaml:"lock_ttl" mapstructure:"lock_ttl"`
	RedactPII    bool          `yaml:"redact_pii" mapstructure:"redact_pii"`
	// EncryptionKey is a base64 encoded 32-byte AES key. Empty disables encryption.
	EncryptionKey string `yaml:"encryption_key" mapstructure:"encryption_key"`
}

// MCPConfig configures the MCP server command.
type MCPConfig struct {
	Transport string `yaml:"transport" mapstructure:"transport"` // stdio or sse
	Port      int    `yaml:"port" mapstructure:"port"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// envBindings maps environment variables to dotted config keys.
var envBindings = map[string]string{
	"CONSERJE_HOST":               "server.host",
	"CONSERJE_PORT":               "server.port",
	"CONSERJE_REQUEST_VALIDATION": "server.request_validation",
	"CONSERJE_METRICS":            "server.metrics",
	"CONSERJE_CATALOG":            "catalog.path",
	"CONSERJE_CATALOG_WATCH":      "catalog.watch",
	"OPENAI_API_KEY":              "openai.api_key",
	"OPENAI_BASE_URL":             "openai.base_url",
	"CONSERJE_CHAT_MODEL":         "openai.chat_model",
	"CONSERJE_CLASSIFY_MODEL":     "openai.classify_model",
	"CONSERJE_EMBED_MODEL":        "openai.embed_model",
	"CONSERJE_OPENAI_TIMEOUT":     "openai.timeout",
	"CONSERJE_CACHE":              "cache.driver",
	"CONSERJE_CACHE_TTL":          "cache.ttl",
	"REDIS_URL":                   "redis.url",
	"CONSERJE_SESSION_STORE":      "session.store",
	"CONSERJE_SESSION_DIR":        "session.dir",
	"CONSERJE_HISTORY_LIMIT":      "session.history_limit",
	"CONSERJE_REDACT_PII":         "session.redact_pii",
	"CONSERJE_ENCRYPTION_KEY":     "session.encryption_key",
	"CONSERJE_MCP_TRANSPORT":      "mcp.transport",
	"CONSERJE_MCP_PORT":           "mcp.port",
	"CONSERJE_LOG_LEVEL":          "log.level",
	"CONSERJE_LOG_FORMAT":         "log.format",
}

// Load builds the configuration. path may be empty, in which case only the
// defaults and the environment apply. A .env file in the working directory is
// read when present; variables already set in the environment win over it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		if cfg.Catalog.Path != "" {
			cfg.Catalog.Path = ResolveRelativePath(path, cfg.Catalog.Path)
		}
		if cfg.Session.Dir != "" {
			cfg.Session.Dir = ResolveRelativePath(path, cfg.Session.Dir)
		}
	}

	LoadDotEnv()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv reads the given .env files (".env" when none is given) into the
// process environment. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			Metrics:         true,
		},
		OpenAI: OpenAIConfig{
			ChatModel:     "gpt-4o",
			ClassifyModel: "gpt-4o-mini",
			EmbedModel:    "text-embedding-3-small",
			Timeout:       20 * time.Second,
		},
		Cache: CacheConfig{
			Driver: "memory",
			TTL:    24 * time.Hour,
			Prefix: "conserje:cache:",
		},
		Session: SessionConfig{
			Store:        "memory",
			TTL:          24 * time.Hour,
			Prefix:       "conserje:session:",
			HistoryLimit: 20,
			LockTTL:      30 * time.Second,
		},
		MCP: MCPConfig{
			Transport: "stdio",
			Port:      8081,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.MCP.Port < 1 || c.MCP.Port > 65535 {
		return fmt.Errorf("invalid mcp port: %d", c.MCP.Port)
	}
	if c.MCP.Transport != "stdio" && c.MCP.Transport != "sse" {
		return fmt.Errorf("invalid mcp transport: %s", c.MCP.Transport)
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}
	if c.Cache.Driver == "redis" && c.Redis.URL == "" {
		return fmt.Errorf("cache driver redis requires redis.url")
	}

	switch c.Session.Store {
	case "memory", "file":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("session store redis requires redis.url")
		}
	default:
		return fmt.Errorf("invalid session store: %s", c.Session.Store)
	}
	if c.Session.HistoryLimit < 0 {
		return fmt.Errorf("history_limit cannot be negative")
	}
	if _, err := c.EncryptionKey(); err != nil {
		return err
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// EncryptionKey decodes the session encryption key. It returns nil when
// encryption is disabled.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.Session.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.Session.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption_key must be base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// applyEnvOverrides decodes the bound environment variables over cfg.
func applyEnvOverrides(cfg *Config) error {
	overrides := map[string]any{}
	for env, key := range envBindings {
		v, ok := os.LookupEnv(env)
		if !ok || v == "" {
			continue
		}
		section, field, _ := strings.Cut(key, ".")
		m, _ := overrides[section].(map[string]any)
		if m == nil {
			m = map[string]any{}
			overrides[section] = m
		}
		m[field] = v
	}
	if len(overrides) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(overrides)
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	return filepath.Join(filepath.Dir(configPath), targetPath)
}
