package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule limits requests whose method matches and whose path ends with Suffix.
type Rule struct {
	Method string
	Suffix string
	Limit  int           // Requests per window
	Window time.Duration
	Burst  int // Defaults to Limit when 0
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Allow           map[string]bool // Clients never limited
	Deny            map[string]bool // Clients always refused
	Rules           []Rule
}

// DefaultConfig returns the limits used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Allow:           map[string]bool{},
		Deny:            map[string]bool{},
		Rules:           DefaultRules(),
	}
}

// DefaultRules limits the calls that fan out to the records backend
// harder than plain draft edits.
func DefaultRules() []Rule {
	return []Rule{
		{Method: "POST", Suffix: "/save", Limit: 30, Window: time.Minute, Burst: 5},
		{Method: "POST", Suffix: "/wizard/advance", Limit: 30, Window: time.Minute, Burst: 5},
		{Method: "POST", Suffix: "/refresh", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

// LoadConfig reads RATE_LIMIT_* environment variables over DefaultConfig.
func LoadConfig() *Config {
	cfg := DefaultConfig()
	if !envBool("RATE_LIMIT_ENABLED", true) {
		cfg.Enabled = false
		return cfg
	}
	cfg.DefaultLimit = envInt("RATE_LIMIT_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.DefaultWindow = envDuration("RATE_LIMIT_DEFAULT_WINDOW", cfg.DefaultWindow)
	cfg.CleanupInterval = envDuration("RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.Allow = parseList(os.Getenv("RATE_LIMIT_ALLOW"))
	cfg.Deny = parseList(os.Getenv("RATE_LIMIT_DENY"))
	return cfg
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

// parseList parses a comma-separated list of client ids.
func parseList(list string) map[string]bool {
	out := make(map[string]bool)
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out[item] = true
		}
	}
	return out
}
