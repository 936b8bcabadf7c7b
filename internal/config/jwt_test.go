package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig_DefaultValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("JWT_EXPIRATION_HOURS", "")
	t.Setenv("JWT_ISSUER", "")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, "test-secret-key", cfg.Secret)
	assert.Equal(t, 24, cfg.ExpirationHours, "should use default expiration of 24 hours")
	assert.Equal(t, DefaultJWTIssuer, cfg.Issuer)
}

func TestNewJWTConfig_FromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "my-secret-key-123")
	t.Setenv("JWT_EXPIRATION_HOURS", "36")
	t.Setenv("JWT_ISSUER", "hr")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, 36, cfg.ExpirationHours)
	assert.Equal(t, "hr", cfg.Issuer)
}

func TestNewJWTConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := NewJWTConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestNewJWTConfig_InvalidExpiration(t *testing.T) {
	tests := []struct {
		name       string
		expiration string
	}{
		{name: "non-numeric expiration", expiration: "invalid"},
		{name: "zero expiration", expiration: "0"},
		{name: "negative expiration", expiration: "-1"},
		{name: "float expiration", expiration: "12.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret-key")
			t.Setenv("JWT_EXPIRATION_HOURS", tt.expiration)

			cfg, err := NewJWTConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "JWT_EXPIRATION_HOURS")
		})
	}
}

func TestJWTConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     JWTConfig
		wantErr string
	}{
		{name: "valid", cfg: JWTConfig{Secret: "s", ExpirationHours: 1}},
		{name: "empty secret", cfg: JWTConfig{ExpirationHours: 1}, wantErr: "JWT_SECRET"},
		{name: "zero lifetime", cfg: JWTConfig{Secret: "s"}, wantErr: "at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJWTConfig_Lifetime(t *testing.T) {
	cfg := JWTConfig{Secret: "s", ExpirationHours: 36}
	assert.Equal(t, 36*time.Hour, cfg.Lifetime())
}
