// ABOUTME: Configuration loading and parsing for agent-roster
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/2389/agent-roster/internal/roster"
)

// Environment variables consulted by Load and LoadOrDefault.
const (
	EnvConfigPath = "ROSTER_CONFIG"
	EnvPort       = "PORT"
	EnvDBPath     = "ROSTER_DB_PATH"
	EnvDBDriver   = "ROSTER_DB_DRIVER"
	EnvRedisAddr  = "REDIS_ADDR"
)

// Config represents the complete agent-roster configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" toml:"server"`
	Tools       ToolsConfig       `yaml:"tools" toml:"tools"`
	Database    DatabaseConfig    `yaml:"database" toml:"database"`
	Defaults    roster.Defaults   `yaml:"defaults" toml:"defaults"`
	Idempotency IdempotencyConfig `yaml:"idempotency" toml:"idempotency"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `yaml:"-" toml:"-"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr" toml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"-" toml:"-"`

	ShutdownTimeoutRaw string `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// ToolsConfig describes how the gateway starts and talks to tool servers
type ToolsConfig struct {
	Command  string   `yaml:"command" toml:"command"`
	Args     []string `yaml:"args" toml:"args"`
	PoolSize int      `yaml:"pool_size" toml:"pool_size"`

	HandshakeTimeout time.Duration `yaml:"-" toml:"-"`
	CallTimeout      time.Duration `yaml:"-" toml:"-"`
	HealthInterval   time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	HandshakeTimeoutRaw string `yaml:"handshake_timeout" toml:"handshake_timeout"`
	CallTimeoutRaw      string `yaml:"call_timeout" toml:"call_timeout"`
	HealthIntervalRaw   string `yaml:"health_interval" toml:"health_interval"`
}

// DatabaseConfig selects the document store backend
type DatabaseConfig struct {
	Driver        string `yaml:"driver" toml:"driver"` // sqlite, sqlite3, redis, memory
	Path          string `yaml:"path" toml:"path"`
	RedisAddr     string `yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword string `yaml:"redis_password" toml:"redis_password"`
	RedisDB       int    `yaml:"redis_db" toml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" toml:"redis_prefix"`
}

// IdempotencyConfig bounds the Idempotency-Key replay cache
type IdempotencyConfig struct {
	TTL        time.Duration `yaml:"-" toml:"-"`
	MaxEntries int           `yaml:"max_entries" toml:"max_entries"`

	TTLRaw string `yaml:"ttl" toml:"ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.Path = path

	if err := finish(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path, or ROSTER_CONFIG when path is empty. A missing
// file is not an error: the defaults are used instead.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		cfg, err := Load(path)
		if err == nil || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	cfg := &Config{}
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored and existing variables are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

func finish(cfg *Config) error {
	if err := parseDurations(cfg); err != nil {
		return fmt.Errorf("parsing durations: %w", err)
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = ":3001"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}

	if cfg.Tools.Command == "" {
		cfg.Tools.Command = "roster-tools"
	}
	if cfg.Tools.PoolSize == 0 {
		cfg.Tools.PoolSize = 4
	}
	if cfg.Tools.HandshakeTimeout == 0 {
		cfg.Tools.HandshakeTimeout = 10 * time.Second
	}
	if cfg.Tools.CallTimeout == 0 {
		cfg.Tools.CallTimeout = 30 * time.Second
	}
	if cfg.Tools.HealthInterval == 0 {
		cfg.Tools.HealthInterval = 30 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "roster.db"
	}
	if cfg.Database.RedisAddr == "" {
		cfg.Database.RedisAddr = "localhost:6379"
	}
	if cfg.Database.RedisPrefix == "" {
		cfg.Database.RedisPrefix = "roster:"
	}

	builtin := roster.BuiltinDefaults()
	if cfg.Defaults.Context == nil {
		cfg.Defaults.Context = builtin.Context
	}
	if cfg.Defaults.SecurityDefinitions == nil {
		cfg.Defaults.SecurityDefinitions = builtin.SecurityDefinitions
	}
	if cfg.Defaults.Security == nil {
		cfg.Defaults.Security = builtin.Security
	}

	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 10 * time.Minute
	}
	if cfg.Idempotency.MaxEntries == 0 {
		cfg.Idempotency.MaxEntries = 1000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// applyEnv lets deployment environment variables override file values.
func applyEnv(cfg *Config) {
	if port := os.Getenv(EnvPort); port != "" {
		host := ""
		if i := strings.LastIndex(cfg.Server.HTTPAddr, ":"); i >= 0 {
			host = cfg.Server.HTTPAddr[:i]
		}
		cfg.Server.HTTPAddr = host + ":" + port
	}
	if driver := os.Getenv(EnvDBDriver); driver != "" {
		cfg.Database.Driver = driver
	}
	if path := os.Getenv(EnvDBPath); path != "" {
		cfg.Database.Path = path
	}
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		cfg.Database.RedisAddr = addr
	}
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Tools.Command == "" {
		return fmt.Errorf("tools.command is required")
	}
	if c.Tools.PoolSize < 1 {
		return fmt.Errorf("tools.pool_size must be at least 1, got %d", c.Tools.PoolSize)
	}
	if c.Tools.HandshakeTimeout < 0 || c.Tools.CallTimeout < 0 || c.Tools.HealthInterval < 0 {
		return fmt.Errorf("tools timeouts must be positive")
	}

	switch c.Database.Driver {
	case "sqlite", "sqlite3":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for driver %q", c.Database.Driver)
		}
	case "redis":
		if c.Database.RedisAddr == "" {
			return fmt.Errorf("database.redis_addr is required for driver redis")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be one of sqlite, sqlite3, redis, memory, got %q", c.Database.Driver)
	}

	for _, name := range c.Defaults.Security {
		if _, ok := c.Defaults.SecurityDefinitions[name]; !ok {
			return fmt.Errorf("defaults.security references undefined scheme %q", name)
		}
	}

	if c.Idempotency.TTL < 0 || c.Idempotency.MaxEntries < 0 {
		return fmt.Errorf("idempotency.ttl and idempotency.max_entries must not be negative")
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeoutRaw, &cfg.Server.ShutdownTimeout},
		{"tools.handshake_timeout", cfg.Tools.HandshakeTimeoutRaw, &cfg.Tools.HandshakeTimeout},
		{"tools.call_timeout", cfg.Tools.CallTimeoutRaw, &cfg.Tools.CallTimeout},
		{"tools.health_interval", cfg.Tools.HealthIntervalRaw, &cfg.Tools.HealthInterval},
		{"idempotency.ttl", cfg.Idempotency.TTLRaw, &cfg.Idempotency.TTL},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// ToolEnv returns the environment a spawned tool server needs to open the
// same store with the same defaults.
func (c *Config) ToolEnv() []string {
	var env []string
	if c.Path != "" {
		if abs, err := filepath.Abs(c.Path); err == nil {
			env = append(env, EnvConfigPath+"="+abs)
		} else {
			env = append(env, EnvConfigPath+"="+c.Path)
		}
	}
	env = append(env,
		EnvDBDriver+"="+c.Database.Driver,
		EnvDBPath+"="+c.Database.Path,
		EnvRedisAddr+"="+c.Database.RedisAddr,
	)
	return env
}
