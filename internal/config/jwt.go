package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultJWTIssuer is the issuer claim of applicant tokens.
const DefaultJWTIssuer = "careers-portal"

const defaultTokenHours = 24

// JWTConfig describes how applicant tokens are signed and checked. Tokens are
// HMAC signed with Secret, carry Issuer and expire ExpirationHours after issue.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
	Issuer          string
}

// NewJWTConfig reads the token settings from the environment:
//
//	JWT_SECRET            signing key, required
//	JWT_EXPIRATION_HOURS  token lifetime, 24 when unset
//	JWT_ISSUER            issuer claim, DefaultJWTIssuer when unset
func NewJWTConfig() (*JWTConfig, error) {
	cfg := &JWTConfig{
		Secret:          os.Getenv("JWT_SECRET"),
		ExpirationHours: defaultTokenHours,
		Issuer:          DefaultJWTIssuer,
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("config error: JWT_SECRET is required but not set")
	}
	if v := os.Getenv("JWT_EXPIRATION_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config error: JWT_EXPIRATION_HOURS is not a whole number of hours: %q", v)
		}
		cfg.ExpirationHours = hours
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks a JWTConfig built by hand or from the environment.
func (c *JWTConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("config error: JWT_SECRET cannot be empty")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("config error: JWT_EXPIRATION_HOURS must be at least 1, got %d", c.ExpirationHours)
	}
	return nil
}

// Lifetime returns how long an issued token stays valid.
func (c *JWTConfig) Lifetime() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}
