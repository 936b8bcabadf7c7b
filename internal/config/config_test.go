package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"port": 9090,
		"upstream_url": "https://records.example.com/api",
		"draft_backend": "redis",
		"redis_addr": "localhost:6379",
		"max_experience": 5,
		"log_format": "console"
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "https://records.example.com/api", cfg.UpstreamURL)
	assert.Equal(t, BackendRedis, cfg.DraftBackend)
	assert.Equal(t, 5, cfg.MaxExperience)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Defaults()},
		{name: "empty", cfg: Config{}},
		{name: "negative max experience", cfg: Config{MaxExperience: -1}, wantErr: "max_experience"},
		{name: "negative concurrency", cfg: Config{SaveConcurrency: -2}, wantErr: "save_concurrency"},
		{name: "negative idle", cfg: Config{WorkspaceIdle: -1}, wantErr: "workspace_idle_minutes"},
		{name: "bad port", cfg: Config{Port: 70000}, wantErr: "port"},
		{name: "bad upstream", cfg: Config{UpstreamURL: "records"}, wantErr: "upstream_url"},
		{name: "file without dir", cfg: Config{DraftBackend: BackendFile}, wantErr: "draft_dir"},
		{name: "file with dir", cfg: Config{DraftBackend: BackendFile, DraftDir: "/tmp/drafts"}},
		{name: "redis without addr", cfg: Config{DraftBackend: BackendRedis}, wantErr: "redis_addr"},
		{name: "postgres without url", cfg: Config{DraftBackend: BackendPostgres}, wantErr: "database_url"},
		{name: "unknown backend", cfg: Config{DraftBackend: "etcd"}, wantErr: "unknown draft backend"},
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

func TestMergeWithDefaults(t *testing.T) {
	partial := Config{
		UpstreamURL:  "https://records.example.com",
		DraftBackend: BackendFile,
		DraftDir:     "/var/lib/drafts",
	}

	merged := partial.MergeWithDefaults(Defaults())

	assert.Equal(t, "https://records.example.com", merged.UpstreamURL)
	assert.Equal(t, BackendFile, merged.DraftBackend)
	assert.Equal(t, "/var/lib/drafts", merged.DraftDir)

	assert.Equal(t, 8080, merged.Port)
	assert.Equal(t, 3, merged.MaxExperience)
	assert.Equal(t, 4, merged.SaveConcurrency)
	assert.Equal(t, 30*time.Minute, merged.IdleTimeout())
	assert.Equal(t, 30*time.Second, merged.Timeout())
	assert.Equal(t, "info", merged.LogLevel)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{Port: 1234}
	merged := cfg.MergeWithDefaults(Config{})
	assert.Equal(t, 1234, merged.Port)
	assert.Empty(t, merged.DraftBackend)
	assert.Zero(t, merged.DraftTTL())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CAREERS_UPSTREAM_URL", "https://env.example.com")
	t.Setenv("CAREERS_DRAFT_BACKEND", BackendRedis)
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("PORT", "7070")

	cfg := Defaults()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "https://env.example.com", cfg.UpstreamURL)
	assert.Equal(t, BackendRedis, cfg.DraftBackend)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, 7070, cfg.Port)

	t.Setenv("REDIS_DB", "zero")
	err := cfg.ApplyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}
