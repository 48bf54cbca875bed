package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 20, cfg.Session.HistoryLimit)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "conserje.yaml", `
server:
  port: 9000
  read_timeout: 3s
catalog:
  path: catalogo.yaml
session:
  store: file
  dir: sessions
  history_limit: 8
log:
  level: debug
`)
	t.Setenv("CONSERJE_PORT", "9100")
	t.Setenv("CONSERJE_REDACT_PII", "true")
	t.Setenv("CONSERJE_CACHE_TTL", "90m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout, "defaults survive partial files")
	assert.Equal(t, filepath.Join(dir, "catalogo.yaml"), cfg.Catalog.Path)
	assert.Equal(t, filepath.Join(dir, "sessions"), cfg.Session.Dir)
	assert.Equal(t, "file", cfg.Session.Store)
	assert.Equal(t, 8, cfg.Session.HistoryLimit)
	assert.True(t, cfg.Session.RedactPII)
	assert.Equal(t, 90*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("CONSERJE_CATALOG", "/srv/catalogo")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CONSERJE_CACHE", "redis")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/catalogo", cfg.Catalog.Path)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	_, err = Load(writeFile(t, dir, "bad.yaml", "server: [1, 2"))
	assert.ErrorContains(t, err, "parse config file")

	t.Setenv("CONSERJE_PORT", "not-a-port")
	_, err = Load("")
	assert.ErrorContains(t, err, "apply environment")
}

func TestLoadDotEnv(t *testing.T) {
	const key = "CONSERJE_DOTENV_PROBE"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := writeFile(t, t.TempDir(), ".env", key+"=from-dotenv\n")
	LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env"))
	assert.Equal(t, "from-dotenv", os.Getenv(key))
}

func TestValidate(t *testing.T) {
	key32 := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	key16 := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 16)))

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"mcp transport", func(c *Config) { c.MCP.Transport = "ws" }, "invalid mcp transport"},
		{"cache driver", func(c *Config) { c.Cache.Driver = "memcached" }, "invalid cache driver"},
		{"redis cache without url", func(c *Config) { c.Cache.Driver = "redis" }, "requires redis.url"},
		{"redis sessions without url", func(c *Config) { c.Session.Store = "redis" }, "requires redis.url"},
		{"session store", func(c *Config) { c.Session.Store = "sqlite" }, "invalid session store"},
		{"history limit", func(c *Config) { c.Session.HistoryLimit = -1 }, "history_limit"},
		{"key not base64", func(c *Config) { c.Session.EncryptionKey = "%%%" }, "base64"},
		{"short key", func(c *Config) { c.Session.EncryptionKey = key16 }, "32 bytes"},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }, "unknown log level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "invalid log format"},
		{"valid key", func(c *Config) { c.Session.EncryptionKey = key32 }, ""},
		{"redis with url", func(c *Config) {
			c.Session.Store = "redis"
			c.Redis.URL = "redis://localhost:6379"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestEncryptionKey(t *testing.T) {
	cfg := DefaultConfig()
	key, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Nil(t, key)

	raw := []byte(strings.Repeat("z", 32))
	cfg.Session.EncryptionKey = base64.StdEncoding.EncodeToString(raw)
	key, err = cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Equal(t, raw, key)
}

func TestOpenAIEnabled(t *testing.T) {
	assert.False(t, OpenAIConfig{}.Enabled())
	assert.True(t, OpenAIConfig{APIKey: "sk-test"}.Enabled())
}

func TestResolveRelativePath(t *testing.T) {
	assert.Equal(t, filepath.Join("etc", "conserje", "cat.yaml"), ResolveRelativePath(filepath.Join("etc", "conserje", "c.yaml"), "cat.yaml"))
	abs, _ := filepath.Abs("cat.yaml")
	assert.Equal(t, abs, ResolveRelativePath("/etc/c.yaml", abs))
}
