package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	domlocate "github.com/kailas-cloud/arbitro/internal/domain/locate"
	"github.com/kailas-cloud/arbitro/internal/usecase/budget"
)

// Config holds the arbitro service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	Locator   LocatorConfig   `yaml:"locator"`
	Documents DocumentsConfig `yaml:"documents"`
	Cache     CacheConfig     `yaml:"cache"`
	Chat      ChatConfig      `yaml:"chat"`
	Sessions  SessionsConfig  `yaml:"sessions"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// LocatorConfig holds fragment matching settings.
type LocatorConfig struct {
	Mode            string `yaml:"mode"` // prefix (default), windowed
	PrefixLength    int    `yaml:"prefix_length"`
	WindowSize      int    `yaml:"window_size"`
	WindowStride    int    `yaml:"window_stride"`
	KeepPunctuation bool   `yaml:"keep_punctuation"`
	Parallelism     int    `yaml:"parallelism"` // 1 = sequential scan
	TimeoutSec      int    `yaml:"timeout_sec"` // 0 = unbounded
}

// Options converts the settings into locator options.
func (c LocatorConfig) Options() domlocate.Options {
	return domlocate.Options{
		Mode:            domlocate.Mode(c.Mode),
		PrefixLength:    c.PrefixLength,
		WindowSize:      c.WindowSize,
		WindowStride:    c.WindowStride,
		KeepPunctuation: c.KeepPunctuation,
	}
}

// DocumentsConfig holds document retrieval settings.
type DocumentsConfig struct {
	RootDir         string   `yaml:"root_dir"` // empty disables local references
	AllowedHosts    []string `yaml:"allowed_hosts"`
	FetchTimeoutSec int      `yaml:"fetch_timeout_sec"`
	MaxBytes        int64    `yaml:"max_bytes"`
	RetryAttempts   int      `yaml:"retry_attempts"`
	RetryDelayMs    int      `yaml:"retry_delay_ms"`
	Watch           bool     `yaml:"watch"` // invalidate cached pages when files under root_dir change
}

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheValkey = "valkey"
)

// CacheConfig holds page text cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none, memory (default), redis, valkey
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLSec           int      `yaml:"ttl_sec"`
	MaxDocuments     int      `yaml:"max_documents"` // memory driver only
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ChatConfig holds chat endpoint settings.
type ChatConfig struct {
	Enabled           bool           `yaml:"enabled"`
	SearchURL         string         `yaml:"search_url"`
	SearchTimeoutSec  int            `yaml:"search_timeout_sec"`
	TopK              int            `yaml:"top_k"`
	LocatePages       bool           `yaml:"locate_pages"`
	LocateConcurrency int            `yaml:"locate_concurrency"`
	SystemPrompt      string         `yaml:"system_prompt"`
	MaxHistory        int            `yaml:"max_history"`
	Provider          ProviderConfig `yaml:"provider"`
	Budget            BudgetConfig   `yaml:"budget"`
}

// BudgetConfig caps chat model token consumption. A zero limit disables that window.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"`
	Action            string `yaml:"action"` // warn (default) or reject
}

// Enabled reports whether any token limit is configured.
func (b BudgetConfig) Enabled() bool {
	return b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0
}

// ProviderConfig holds chat model provider settings.
type ProviderConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// SessionsConfig holds selection board retention settings.
type SessionsConfig struct {
	TTLSec      int `yaml:"ttl_sec"`
	MaxSessions int `yaml:"max_sessions"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from the given YAML file.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	// Negative lengths are left for Validate to reject.
	if c.Locator.Mode == "" {
		c.Locator.Mode = string(domlocate.Prefix)
	}
	if c.Locator.PrefixLength == 0 {
		c.Locator.PrefixLength = domlocate.DefaultPrefixLength
	}
	if c.Locator.WindowSize == 0 {
		c.Locator.WindowSize = domlocate.DefaultWindowSize
	}
	if c.Locator.WindowStride == 0 {
		c.Locator.WindowStride = domlocate.DefaultWindowStride
	}
	if c.Locator.Parallelism <= 0 {
		c.Locator.Parallelism = 1
	}

	if c.Documents.FetchTimeoutSec <= 0 {
		c.Documents.FetchTimeoutSec = 15
	}
	if c.Documents.MaxBytes <= 0 {
		c.Documents.MaxBytes = 64 << 20
	}
	if c.Documents.RetryAttempts <= 0 {
		c.Documents.RetryAttempts = 3
	}
	if c.Documents.RetryDelayMs <= 0 {
		c.Documents.RetryDelayMs = 200
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheMemory
	}
	if c.Cache.MaxDocuments <= 0 {
		c.Cache.MaxDocuments = 32
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 24 * 60 * 60
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "arbitro:pages:"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Chat.TopK <= 0 {
		c.Chat.TopK = 5
	}
	if c.Chat.SearchTimeoutSec <= 0 {
		c.Chat.SearchTimeoutSec = 20
	}
	if c.Chat.LocateConcurrency <= 0 {
		c.Chat.LocateConcurrency = 4
	}
	if c.Chat.MaxHistory <= 0 {
		c.Chat.MaxHistory = 10
	}
	if c.Chat.Budget.Action == "" {
		c.Chat.Budget.Action = string(budget.ActionWarn)
	}

	if c.Sessions.TTLSec <= 0 {
		c.Sessions.TTLSec = 30 * 60
	}
	if c.Sessions.MaxSessions <= 0 {
		c.Sessions.MaxSessions = 10000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if err := c.Locator.Options().Validate(); err != nil {
		return fmt.Errorf("locator: %w", err)
	}
	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
	case CacheRedis, CacheValkey:
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be one of none, memory, redis, valkey, got %q", c.Cache.Driver)
	}
	if c.Documents.Watch && c.Documents.RootDir == "" {
		return fmt.Errorf("documents.watch requires documents.root_dir")
	}
	if c.Chat.Enabled {
		if c.Chat.SearchURL == "" {
			return fmt.Errorf("chat.search_url is required when chat is enabled")
		}
		if c.Chat.Provider.Model == "" {
			return fmt.Errorf("chat.provider.model is required when chat is enabled")
		}
	}
	if c.Chat.Budget.DailyTokenLimit < 0 || c.Chat.Budget.MonthlyTokenLimit < 0 {
		return fmt.Errorf("chat.budget limits must not be negative")
	}
	if !budget.Action(c.Chat.Budget.Action).IsValid() {
		return fmt.Errorf("chat.budget.action must be warn or reject, got %q", c.Chat.Budget.Action)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
