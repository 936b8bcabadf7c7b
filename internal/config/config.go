// Package config provides configuration loading and validation for the careers agent.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Draft backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config represents the service configuration that can be loaded from a JSON file.
// Missing values are filled by MergeWithDefaults and environment overrides.
type Config struct {
	// Server
	Port int `json:"port,omitempty"`

	// Upstream records backend
	UpstreamURL     string `json:"upstream_url,omitempty"`
	UpstreamToken   string `json:"upstream_token,omitempty"`
	UpstreamTimeout int    `json:"upstream_timeout_seconds,omitempty"`

	// Drafts
	DraftBackend  string `json:"draft_backend,omitempty"`  // memory, file, redis or postgres
	DraftDir      string `json:"draft_dir,omitempty"`      // Directory for the file backend
	RedisAddr     string `json:"redis_addr,omitempty"`     // host:port for the redis backend
	RedisPassword string `json:"redis_password,omitempty"` // Optional
	RedisDB       int    `json:"redis_db,omitempty"`
	DraftTTLHours int    `json:"draft_ttl_hours,omitempty"` // Redis expiry; 0 keeps drafts forever
	DatabaseURL   string `json:"database_url,omitempty"`    // PostgreSQL connection URL

	// Behavior
	MaxExperience   int    `json:"max_experience,omitempty"`         // Cap on work experience entries
	SaveConcurrency int    `json:"save_concurrency,omitempty"`       // Parallel calls per batch save
	WorkspaceIdle   int    `json:"workspace_idle_minutes,omitempty"` // Idle time before an applicant's sessions are unloaded
	LogLevel        string `json:"log_level,omitempty"`
	LogFormat       string `json:"log_format,omitempty"` // json or console
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:            8080,
		UpstreamTimeout: 30,
		DraftBackend:    BackendMemory,
		MaxExperience:   3,
		SaveConcurrency: 4,
		WorkspaceIdle:   30,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables when they are set.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"CAREERS_UPSTREAM_URL":   &c.UpstreamURL,
		"CAREERS_UPSTREAM_TOKEN": &c.UpstreamToken,
		"CAREERS_DRAFT_BACKEND":  &c.DraftBackend,
		"CAREERS_DRAFT_DIR":      &c.DraftDir,
		"REDIS_ADDR":             &c.RedisAddr,
		"REDIS_PASSWORD":         &c.RedisPassword,
		"DATABASE_URL":           &c.DatabaseURL,
		"LOG_LEVEL":              &c.LogLevel,
		"LOG_FORMAT":             &c.LogFormat,
	}
	for key, field := range strs {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}

	ints := map[string]*int{
		"PORT":                     &c.Port,
		"CAREERS_UPSTREAM_TIMEOUT": &c.UpstreamTimeout,
		"REDIS_DB":                 &c.RedisDB,
		"CAREERS_WORKSPACE_IDLE":   &c.WorkspaceIdle,
	}
	for key, field := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*field = n
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.UpstreamTimeout < 0 {
		return fmt.Errorf("config error: 'upstream_timeout_seconds' must be non-negative")
	}
	if c.MaxExperience < 0 {
		return fmt.Errorf("config error: 'max_experience' must be non-negative")
	}
	if c.SaveConcurrency < 0 {
		return fmt.Errorf("config error: 'save_concurrency' must be non-negative")
	}
	if c.DraftTTLHours < 0 {
		return fmt.Errorf("config error: 'draft_ttl_hours' must be non-negative")
	}
	if c.WorkspaceIdle < 0 {
		return fmt.Errorf("config error: 'workspace_idle_minutes' must be non-negative")
	}

	if c.UpstreamURL != "" {
		u, err := url.Parse(c.UpstreamURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config error: 'upstream_url' is not a valid URL: %s", c.UpstreamURL)
		}
	}

	switch c.DraftBackend {
	case "", BackendMemory:
	case BackendFile:
		if c.DraftDir == "" {
			return fmt.Errorf("config error: 'draft_dir' is required for the file draft backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config error: 'redis_addr' is required for the redis draft backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: 'database_url' is required for the postgres draft backend")
		}
	default:
		return fmt.Errorf("config error: unknown draft backend %q", c.DraftBackend)
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.UpstreamURL == "" {
		result.UpstreamURL = defaults.UpstreamURL
	}
	if result.UpstreamToken == "" {
		result.UpstreamToken = defaults.UpstreamToken
	}
	if result.DraftBackend == "" {
		result.DraftBackend = defaults.DraftBackend
	}
	if result.DraftDir == "" {
		result.DraftDir = defaults.DraftDir
	}
	if result.RedisAddr == "" {
		result.RedisAddr = defaults.RedisAddr
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.UpstreamTimeout == 0 {
		result.UpstreamTimeout = defaults.UpstreamTimeout
	}
	if result.MaxExperience == 0 {
		result.MaxExperience = defaults.MaxExperience
	}
	if result.SaveConcurrency == 0 {
		result.SaveConcurrency = defaults.SaveConcurrency
	}
	if result.DraftTTLHours == 0 {
		result.DraftTTLHours = defaults.DraftTTLHours
	}
	if result.WorkspaceIdle == 0 {
		result.WorkspaceIdle = defaults.WorkspaceIdle
	}

	return result
}

// Timeout returns the upstream timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.UpstreamTimeout) * time.Second
}

// IdleTimeout returns how long an applicant's sessions stay loaded without requests.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.WorkspaceIdle) * time.Minute
}

// DraftTTL returns the Redis draft expiry.
func (c *Config) DraftTTL() time.Duration {
	return time.Duration(c.DraftTTLHours) * time.Hour
}
