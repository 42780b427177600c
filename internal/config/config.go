// Package config loads the furrow configuration: built-in defaults, layered
// under an optional YAML file, layered under FURROW_* environment overrides.
// Credentials belong in the environment; the file covers everything else.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/furrow/pkg/agent"
)

// DefaultPath is the config file consulted when no path is given.
const DefaultPath = "furrow.yaml"

// Config is the top-level configuration structure.
type Config struct {
	DefaultWorkflow string         `yaml:"default_workflow"`
	Model           ModelConfig    `yaml:"model"`
	Search          SearchConfig   `yaml:"search"`
	Tools           ToolsConfig    `yaml:"tools"`
	Profiles        ProfilesConfig `yaml:"profiles"`
	Store           StoreConfig    `yaml:"store"`
	HTTP            HTTPConfig     `yaml:"http"`
	MCP             MCPConfig      `yaml:"mcp"`
	LogLevel        string         `yaml:"log_level"`
}

// ModelConfig selects the chat completions backend.
type ModelConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// SearchConfig carries the credential injected into the tool launcher's
// environment.
type SearchConfig struct {
	APIKey string `yaml:"api_key"`
}

// ToolsConfig describes the MCP tool server child process.
type ToolsConfig struct {
	Launcher string   `yaml:"launcher"`
	Args     []string `yaml:"args"`
}

// ProfilesConfig locates the agent profile library.
type ProfilesConfig struct {
	Path    string `yaml:"path"`
	Default string `yaml:"default"`
}

// StoreConfig selects the run archive backend and its at-rest protections.
type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
	File    FileConfig  `yaml:"file"`

	// EncryptionKey seals archived free text at rest. Base64, 32 bytes
	// decoded. Empty disables encryption.
	EncryptionKey string `yaml:"encryption_key"`
	// FallbackKeys are previous encryption keys, tried on reads so key
	// rotation never strands old records.
	FallbackKeys []string `yaml:"fallback_keys"`
	// ScrubPatterns are regular expressions masked out of archived text
	// before it is written.
	ScrubPatterns []string `yaml:"scrub_patterns"`
}

// RedisConfig configures the redis archive. TTL uses Go duration syntax;
// empty keeps records forever.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      string `yaml:"ttl"`
}

// FileConfig configures the filesystem archive.
type FileConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// MCPConfig configures the MCP server adapter.
type MCPConfig struct {
	Transport string `yaml:"transport"`
	SSEPort   int    `yaml:"sse_port"`
}

// Load reads the YAML file at path, layering it over built-in defaults and
// applying environment overrides. An empty path means DefaultPath, and a
// missing default file is not an error. An explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := mergeFile(cfg, path); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(dst *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, dst)
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	set(&cfg.Model.APIKey, "FURROW_MODEL_API_KEY")
	set(&cfg.Model.Model, "FURROW_MODEL")
	set(&cfg.Model.BaseURL, "FURROW_MODEL_BASE_URL")
	set(&cfg.Search.APIKey, "FURROW_SEARCH_API_KEY")
	set(&cfg.Tools.Launcher, "FURROW_TOOLS_LAUNCHER")
	set(&cfg.Profiles.Path, "FURROW_PROFILES_PATH")
	set(&cfg.Store.Backend, "FURROW_STORE_BACKEND")
	set(&cfg.Store.Redis.Addr, "FURROW_REDIS_ADDR")
	set(&cfg.Store.Redis.Password, "FURROW_REDIS_PASSWORD")
	set(&cfg.Store.File.Path, "FURROW_FILE_PATH")
	set(&cfg.Store.EncryptionKey, "FURROW_ENCRYPTION_KEY")
	set(&cfg.HTTP.Addr, "FURROW_HTTP_ADDR")
	set(&cfg.LogLevel, "FURROW_LOG_LEVEL")
}

func defaults() *Config {
	return &Config{
		DefaultWorkflow: "ask",
		Model: ModelConfig{
			APIKey: agent.PlaceholderAPIKey,
			Model:  "gpt-4o",
		},
		Profiles: ProfilesConfig{
			Path:    "profiles",
			Default: "researcher",
		},
		Store: StoreConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		MCP: MCPConfig{
			Transport: "stdio",
			SSEPort:   8081,
		},
		LogLevel: "info",
	}
}

// Validate checks the enumerated fields and the archive protections.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "", "memory", "redis", "file":
	default:
		return fmt.Errorf("store.backend must be memory, redis or file, got %q", c.Store.Backend)
	}
	switch c.MCP.Transport {
	case "", "stdio", "sse":
	default:
		return fmt.Errorf("mcp.transport must be stdio or sse, got %q", c.MCP.Transport)
	}
	if _, err := c.RedisTTL(); err != nil {
		return err
	}
	if _, _, err := c.EncryptionKeys(); err != nil {
		return err
	}
	for _, pattern := range c.Store.ScrubPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("store.scrub_patterns: %w", err)
		}
	}
	return nil
}

// ModelConfigured reports whether a usable model credential is present. The
// placeholder value counts as unconfigured, matching the generator.
func (c *Config) ModelConfigured() bool {
	return c.Model.APIKey != "" && c.Model.APIKey != agent.PlaceholderAPIKey
}

// ToolsConfigured reports whether an MCP tool launcher is set.
func (c *Config) ToolsConfigured() bool {
	return c.Tools.Launcher != ""
}

// RedisTTL parses the archive record TTL. Zero means keep forever.
func (c *Config) RedisTTL() (time.Duration, error) {
	if c.Store.Redis.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Store.Redis.TTL)
	if err != nil {
		return 0, fmt.Errorf("store.redis.ttl: %w", err)
	}
	return d, nil
}

// EncryptionKeys decodes the active and fallback archive keys. An empty
// active key returns nil keys: encryption stays off.
func (c *Config) EncryptionKeys() (active []byte, fallbacks [][]byte, err error) {
	if c.Store.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err = decodeKey(c.Store.EncryptionKey, "store.encryption_key")
	if err != nil {
		return nil, nil, err
	}
	for i, encoded := range c.Store.FallbackKeys {
		key, err := decodeKey(encoded, fmt.Sprintf("store.fallback_keys[%d]", i))
		if err != nil {
			return nil, nil, err
		}
		fallbacks = append(fallbacks, key)
	}
	return active, fallbacks, nil
}

func decodeKey(encoded, field string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s: key must be 32 bytes once decoded, got %d", field, len(key))
	}
	return key, nil
}
