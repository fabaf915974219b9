package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/codefionn/autoresolve/internal/consts"
)

const appName = "autoresolve"

// GitHubConfig holds code host access settings
type GitHubConfig struct {
	APIURL     string `json:"api_url" env:"AUTORESOLVE_GITHUB_API_URL"`
	APIVersion string `json:"api_version" env:"AUTORESOLVE_GITHUB_API_VERSION"`
	Token      string `json:"token,omitempty" env:"GITHUB_TOKEN"`
}

// ModelConfig selects and tunes the LLM provider
type ModelConfig struct {
	Provider          string  `json:"provider" env:"AUTORESOLVE_MODEL_PROVIDER"` // "openai", "anthropic", "google"
	Model             string  `json:"model" env:"AUTORESOLVE_MODEL"`
	Temperature       float64 `json:"temperature" env:"AUTORESOLVE_MODEL_TEMPERATURE"`
	MaxTokens         int     `json:"max_tokens" env:"AUTORESOLVE_MODEL_MAX_TOKENS"`
	TimeoutSeconds    int     `json:"timeout_seconds" env:"AUTORESOLVE_MODEL_TIMEOUT_SECONDS"`
	RequestsPerMinute int     `json:"requests_per_minute" env:"AUTORESOLVE_MODEL_RPM"`
	TokensPerMinute   int     `json:"tokens_per_minute" env:"AUTORESOLVE_MODEL_TPM"`
	OpenAIAPIKey      string  `json:"openai_api_key,omitempty" env:"OPENAI_API_KEY"`
	AnthropicAPIKey   string  `json:"anthropic_api_key,omitempty" env:"ANTHROPIC_API_KEY"`
	GoogleAPIKey      string  `json:"google_api_key,omitempty" env:"GEMINI_API_KEY"`
}

// SearchConfig holds configuration for search providers
type SearchConfig struct {
	Provider   string           `json:"provider" env:"AUTORESOLVE_SEARCH_PROVIDER"` // "github", "exa", "google_pse", "perplexity"
	Results    int              `json:"results" env:"AUTORESOLVE_SEARCH_RESULTS"`
	Exa        ExaConfig        `json:"exa"`
	GooglePSE  GooglePSEConfig  `json:"google_pse"`
	Perplexity PerplexityConfig `json:"perplexity"`
}

// ExaConfig holds Exa AI Search API configuration
type ExaConfig struct {
	APIKey string `json:"api_key,omitempty" env:"EXA_API_KEY"`
}

// GooglePSEConfig holds Google Programmable Search Engine configuration
type GooglePSEConfig struct {
	APIKey string `json:"api_key,omitempty" env:"GOOGLE_PSE_API_KEY"`
	CX     string `json:"cx" env:"GOOGLE_PSE_CX"` // Search Engine ID
}

// PerplexityConfig holds Perplexity Search API configuration
type PerplexityConfig struct {
	APIKey string `json:"api_key,omitempty" env:"PERPLEXITY_API_KEY"`
}

// LoopConfig bounds a single resolution run
type LoopConfig struct {
	MaxIterations        int `json:"max_iterations" env:"AUTORESOLVE_MAX_ITERATIONS"`
	TimeoutSeconds       int `json:"timeout_seconds" env:"AUTORESOLVE_TIMEOUT_SECONDS"`
	OscillationThreshold int `json:"oscillation_threshold" env:"AUTORESOLVE_OSCILLATION_THRESHOLD"`
	MaxToolOutputBytes   int `json:"max_tool_output_bytes" env:"AUTORESOLVE_MAX_TOOL_OUTPUT_BYTES"`
}

// RetryConfig tunes the rate limit retry executor
type RetryConfig struct {
	MaxRetries              int `json:"max_retries" env:"AUTORESOLVE_RETRY_MAX"`
	PrimaryBufferSeconds    int `json:"primary_buffer_seconds" env:"AUTORESOLVE_RETRY_PRIMARY_BUFFER_SECONDS"`
	SecondaryDefaultSeconds int `json:"secondary_default_seconds" env:"AUTORESOLVE_RETRY_SECONDARY_DEFAULT_SECONDS"`
	MaxWaitSeconds          int `json:"max_wait_seconds" env:"AUTORESOLVE_RETRY_MAX_WAIT_SECONDS"`
}

// TelemetryConfig configures tracing export
type TelemetryConfig struct {
	ServiceName  string `json:"service_name" env:"OTEL_SERVICE_NAME"`
	OTLPEndpoint string `json:"otlp_endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Config represents application configuration
type Config struct {
	GitHub    GitHubConfig    `json:"github"`
	Model     ModelConfig     `json:"model"`
	Search    SearchConfig    `json:"search"`
	Loop      LoopConfig      `json:"loop"`
	Retry     RetryConfig     `json:"retry"`
	Telemetry TelemetryConfig `json:"telemetry"`
	LogLevel  string          `json:"log_level" env:"AUTORESOLVE_LOG_LEVEL"` // debug, info, warn, error, none
	LogPath   string          `json:"log_path,omitempty" env:"AUTORESOLVE_LOG_PATH"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", appName)
	default:
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", appName)
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			APIURL:     consts.GitHubAPIURL,
			APIVersion: consts.GitHubAPIVersion,
		},
		Model: ModelConfig{
			Provider:          "openai",
			Model:             consts.DefaultModelID,
			Temperature:       consts.DefaultTemperature,
			MaxTokens:         consts.DefaultMaxTokens,
			TimeoutSeconds:    int(consts.Timeout2Minutes / time.Second),
			RequestsPerMinute: 0,
			TokensPerMinute:   0,
		},
		Search: SearchConfig{
			Provider: "github",
			Results:  consts.DefaultSearchResults,
		},
		Loop: LoopConfig{
			MaxIterations:        consts.DefaultMaxIterations,
			TimeoutSeconds:       int(consts.Timeout30Minutes / time.Second),
			OscillationThreshold: consts.DefaultOscillationThreshold,
			MaxToolOutputBytes:   consts.BufferSize64KB,
		},
		Retry: RetryConfig{
			MaxRetries:              consts.DefaultMaxRetries,
			PrimaryBufferSeconds:    int(consts.PrimaryRateLimitBuffer / time.Second),
			SecondaryDefaultSeconds: int(consts.SecondaryRateLimitWait / time.Second),
			MaxWaitSeconds:          int(consts.MaxRateLimitWait / time.Second),
		},
		Telemetry: TelemetryConfig{
			ServiceName: appName,
		},
		LogLevel: "info",
	}
}

// Load reads the JSON file at path over the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return cfg, nil
}

// Validate reports configuration that cannot produce a working resolver.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.GitHub.Token) == "" {
		errs = append(errs, errors.New("github token is required (GITHUB_TOKEN)"))
	}

	switch strings.ToLower(c.Model.Provider) {
	case "openai":
		if c.Model.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("openai provider requires OPENAI_API_KEY"))
		}
	case "anthropic":
		if c.Model.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("anthropic provider requires ANTHROPIC_API_KEY"))
		}
	case "google":
		if c.Model.GoogleAPIKey == "" {
			errs = append(errs, errors.New("google provider requires GEMINI_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown model provider %q", c.Model.Provider))
	}

	switch strings.ToLower(c.Search.Provider) {
	case "", "github":
	case "exa":
		if c.Search.Exa.APIKey == "" {
			errs = append(errs, errors.New("exa search requires EXA_API_KEY"))
		}
	case "google_pse":
		if c.Search.GooglePSE.APIKey == "" || c.Search.GooglePSE.CX == "" {
			errs = append(errs, errors.New("google_pse search requires an API key and cx"))
		}
	case "perplexity":
		if c.Search.Perplexity.APIKey == "" {
			errs = append(errs, errors.New("perplexity search requires PERPLEXITY_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown search provider %q", c.Search.Provider))
	}

	if c.Loop.MaxIterations <= 0 {
		errs = append(errs, errors.New("loop.max_iterations must be positive"))
	}
	if c.Loop.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("loop.timeout_seconds must be positive"))
	}
	if c.Loop.OscillationThreshold < 0 {
		errs = append(errs, errors.New("loop.oscillation_threshold must not be negative"))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("retry.max_retries must not be negative"))
	}

	return errors.Join(errs...)
}

// ModelTimeout is the per round-trip deadline.
func (c *Config) ModelTimeout() time.Duration {
	return c.Model.Timeout()
}

// Timeout is the per round-trip deadline. Zero disables it.
func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// LoopTimeout is the wall-clock bound of one resolution.
func (c *Config) LoopTimeout() time.Duration {
	return time.Duration(c.Loop.TimeoutSeconds) * time.Second
}

// Redacted returns a copy safe to print: secrets are masked.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.GitHub.Token = mask(cp.GitHub.Token)
	cp.Model.OpenAIAPIKey = mask(cp.Model.OpenAIAPIKey)
	cp.Model.AnthropicAPIKey = mask(cp.Model.AnthropicAPIKey)
	cp.Model.GoogleAPIKey = mask(cp.Model.GoogleAPIKey)
	cp.Search.Exa.APIKey = mask(cp.Search.Exa.APIKey)
	cp.Search.GooglePSE.APIKey = mask(cp.Search.GooglePSE.APIKey)
	cp.Search.Perplexity.APIKey = mask(cp.Search.Perplexity.APIKey)
	return &cp
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}
