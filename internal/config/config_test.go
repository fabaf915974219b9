package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	assert.Equal(t, "2022-11-28", cfg.GitHub.APIVersion)
	assert.Equal(t, "gpt-4o", cfg.Model.Model)
	assert.Equal(t, 0.0, cfg.Model.Temperature)
	assert.Equal(t, 4096, cfg.Model.MaxTokens)
	assert.Equal(t, 2*time.Minute, cfg.ModelTimeout())
	assert.Equal(t, 20, cfg.Loop.MaxIterations)
	assert.Equal(t, 3, cfg.Loop.OscillationThreshold)
	assert.Equal(t, 30*time.Minute, cfg.LoopTimeout())
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 5, cfg.Retry.PrimaryBufferSeconds)
	assert.Equal(t, 60, cfg.Retry.SecondaryDefaultSeconds)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Loop.MaxIterations)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"loop":{"max_iterations":7},"search":{"provider":"exa"}}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Loop.MaxIterations)
	assert.Equal(t, "exa", cfg.Search.Provider)
	assert.Equal(t, 3, cfg.Loop.OscillationThreshold, "fields absent from the file keep defaults")
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"loop":{"max_iterations":7},"log_level":"warn"}`), 0600))

	t.Setenv("AUTORESOLVE_MAX_ITERATIONS", "12")
	t.Setenv("AUTORESOLVE_LOG_LEVEL", "debug")
	t.Setenv("AUTORESOLVE_RETRY_MAX", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Loop.MaxIterations)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
}

func TestLoadInvalidEnvironmentValue(t *testing.T) {
	t.Setenv("AUTORESOLVE_MAX_ITERATIONS", "many")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment overrides")
}

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.GitHub.Token = "ghs_token"
	cfg.Model.OpenAIAPIKey = "sk-test"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.GitHub.Token = "" }, wantErr: "github token"},
		{name: "anthropic without key", mutate: func(c *Config) { c.Model.Provider = "anthropic" }, wantErr: "ANTHROPIC_API_KEY"},
		{name: "unknown provider", mutate: func(c *Config) { c.Model.Provider = "llama" }, wantErr: "unknown model provider"},
		{name: "exa without key", mutate: func(c *Config) { c.Search.Provider = "exa" }, wantErr: "EXA_API_KEY"},
		{name: "pse without cx", mutate: func(c *Config) {
			c.Search.Provider = "google_pse"
			c.Search.GooglePSE.APIKey = "k"
		}, wantErr: "cx"},
		{name: "zero iterations", mutate: func(c *Config) { c.Loop.MaxIterations = 0 }, wantErr: "max_iterations"},
		{name: "negative retries", mutate: func(c *Config) { c.Retry.MaxRetries = -1 }, wantErr: "max_retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.GitHub.Token = "ghs_abcdefghijkl"
	cfg.Search.Exa.APIKey = "short"

	red := cfg.Redacted()

	assert.Equal(t, "ghs_****", red.GitHub.Token)
	assert.Equal(t, "****", red.Search.Exa.APIKey)
	assert.Equal(t, "ghs_abcdefghijkl", cfg.GitHub.Token, "original must be untouched")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := DefaultConfig()
	cfg.Loop.MaxIterations = 9
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Loop.MaxIterations)
}

func TestGetConfigPathHonoursXDG(t *testing.T) {
	if filepath.Separator != '/' {
		t.Skip("XDG paths only apply on unix-like systems")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "autoresolve", "config.json"), GetConfigPath())
}
