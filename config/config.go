// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file used when none is given.
const DefaultPath = "zentypes.yaml"

// Config is the root configuration structure.
type Config struct {
	Registry RegistryConfig `yaml:"registry"`
	Cache    CacheConfig    `yaml:"cache"`
	Output   OutputConfig   `yaml:"output"`
	Filter   FilterConfig   `yaml:"filter"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Server   ServerConfig   `yaml:"server"`
}

// RegistryConfig configures the schema registry connection.
// Either URL or Snapshot must be set.
type RegistryConfig struct {
	URL          string            `yaml:"url"`
	Client       string            `yaml:"client"`
	Secret       string            `yaml:"secret,omitempty"`
	Timeout      time.Duration     `yaml:"timeout"`
	ListMethod   string            `yaml:"list_method"`
	SymbolMethod string            `yaml:"symbol_method"`
	TaggedMethod string            `yaml:"tagged_method"`
	Tags         []string          `yaml:"tags,omitempty"` // extra tagged listings merged into the full listing
	Concurrency  int               `yaml:"concurrency"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	Snapshot     string            `yaml:"snapshot,omitempty"` // JSON dump used instead of the live registry
}

// CacheConfig configures the raw-response disk cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // sqlite database file
}

// OutputConfig configures generated output.
type OutputConfig struct {
	Path    string `yaml:"path"`   // "" or "-" writes to stdout
	Format  string `yaml:"format"` // "ts", "json", "yaml", "openapi"
	Title   string `yaml:"title,omitempty"`
	Version string `yaml:"version,omitempty"`
	Compact bool   `yaml:"compact,omitempty"`
}

// FilterConfig selects which symbols are compiled.
type FilterConfig struct {
	// ExcludePrefixes replaces the built-in prefix list when set.
	ExcludePrefixes []string `yaml:"exclude_prefixes,omitempty"`
	// Expression is an optional expr-lang predicate over a symbol.
	Expression string `yaml:"expression,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// ServerConfig configures the preview HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// TokenHash is a bcrypt hash of the bearer token accepted by POST /generate.
	// Regeneration over HTTP is disabled when empty.
	TokenHash string `yaml:"token_hash,omitempty"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	ZENTYPES_REGISTRY_URL      - Registry base URL (required unless a snapshot is set)
//	ZENTYPES_REGISTRY_CLIENT   - Basic auth client id
//	ZENTYPES_REGISTRY_SECRET   - Basic auth client secret
//	ZENTYPES_REGISTRY_SNAPSHOT - JSON snapshot used instead of the registry
//	ZENTYPES_CACHE_ENABLED     - Enable the raw-response cache (alias: USE_CACHE)
//	ZENTYPES_CACHE_PATH        - Cache database path (default: .zentypes/cache.db)
//	ZENTYPES_OUTPUT_PATH       - Output file (default: stdout)
//	ZENTYPES_OUTPUT_FORMAT     - Output format (default: ts)
//	ZENTYPES_FILTER_EXPRESSION - Symbol filter expression
//	ZENTYPES_LOG_LEVEL         - Log level: debug, info, warn, error (default: info)
//	ZENTYPES_LOG_FORMAT        - Log format: json or console (default: console)
//	ZENTYPES_SERVER_PORT       - Preview server port (default: 8080)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide %s or set ZENTYPES_REGISTRY_URL", path)
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("ZENTYPES_REGISTRY_URL") != "" || os.Getenv("ZENTYPES_REGISTRY_SNAPSHOT") != ""
}

// applyEnvOverrides applies ZENTYPES_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Registry configuration
	if v := os.Getenv("ZENTYPES_REGISTRY_URL"); v != "" {
		cfg.Registry.URL = v
	}
	if v := os.Getenv("ZENTYPES_REGISTRY_CLIENT"); v != "" {
		cfg.Registry.Client = v
	}
	if v := os.Getenv("ZENTYPES_REGISTRY_SECRET"); v != "" {
		cfg.Registry.Secret = v
	}
	if v := os.Getenv("ZENTYPES_REGISTRY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Registry.Timeout = d
		}
	}
	if v := os.Getenv("ZENTYPES_REGISTRY_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Registry.Concurrency = n
		}
	}
	if v := os.Getenv("ZENTYPES_REGISTRY_TAGS"); v != "" {
		cfg.Registry.Tags = splitList(v)
	}
	if v := os.Getenv("ZENTYPES_REGISTRY_SNAPSHOT"); v != "" {
		cfg.Registry.Snapshot = v
	}

	// Cache configuration
	if v := os.Getenv("USE_CACHE"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("ZENTYPES_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("ZENTYPES_CACHE_PATH"); v != "" {
		cfg.Cache.Path = v
	}

	// Output configuration
	if v := os.Getenv("ZENTYPES_OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("ZENTYPES_OUTPUT_FORMAT"); v != "" {
		cfg.Output.Format = v
	}

	// Filter configuration
	if v := os.Getenv("ZENTYPES_FILTER_EXCLUDE_PREFIXES"); v != "" {
		cfg.Filter.ExcludePrefixes = splitList(v)
	}
	if v := os.Getenv("ZENTYPES_FILTER_EXPRESSION"); v != "" {
		cfg.Filter.Expression = v
	}

	// Logging configuration
	if v := os.Getenv("ZENTYPES_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ZENTYPES_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("ZENTYPES_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	// Server configuration
	if v := os.Getenv("ZENTYPES_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ZENTYPES_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ZENTYPES_SERVER_TOKEN_HASH"); v != "" {
		cfg.Server.TokenHash = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.Registry.Timeout == 0 {
		cfg.Registry.Timeout = 30 * time.Second
	}
	if cfg.Registry.ListMethod == "" {
		cfg.Registry.ListMethod = "relatient/zen-all-symbols"
	}
	if cfg.Registry.SymbolMethod == "" {
		cfg.Registry.SymbolMethod = "aidbox.zen/symbol"
	}
	if cfg.Registry.TaggedMethod == "" {
		cfg.Registry.TaggedMethod = "aidbox.zen/tagged-symbols"
	}
	if cfg.Registry.Concurrency == 0 {
		cfg.Registry.Concurrency = 8
	}

	if cfg.Cache.Path == "" {
		cfg.Cache.Path = ".zentypes/cache.db"
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = "ts"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 5 * time.Minute
	}
}

func validate(cfg *Config) error {
	if cfg.Registry.URL == "" && cfg.Registry.Snapshot == "" {
		return fmt.Errorf("registry.url is required unless registry.snapshot is set")
	}
	if cfg.Registry.URL != "" {
		u, err := url.Parse(cfg.Registry.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("registry.url must be an absolute URL, got %q", cfg.Registry.URL)
		}
	}
	if cfg.Registry.Secret != "" && cfg.Registry.Client == "" {
		return fmt.Errorf("registry.client is required when registry.secret is set")
	}
	if cfg.Registry.Concurrency < 1 {
		return fmt.Errorf("registry.concurrency must be positive, got %d", cfg.Registry.Concurrency)
	}

	validFormats := map[string]bool{"ts": true, "json": true, "yaml": true, "openapi": true}
	if !validFormats[cfg.Output.Format] {
		return fmt.Errorf("output.format must be one of: ts, json, yaml, openapi, got %q", cfg.Output.Format)
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, got %q", cfg.Logging.Level)
	}
	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}
