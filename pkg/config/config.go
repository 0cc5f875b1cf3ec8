package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Backend names understood by the generation registry.
const (
	BackendOpenAI     = "openai"
	BackendOpenRouter = "openrouter"
	BackendGoogle     = "google"
	BackendDryRun     = "dryrun"
)

const (
	DefaultModel        = "ContactDoctor/Bio-Medical-Llama-3-2-1B-CoT-012025"
	DefaultSystemPrompt = "You are an expert trained on healthcare and biomedical domain!"
)

// Config represents the application configuration
type Config struct {
	Backend      string           `json:"backend"`
	Model        string           `json:"model"`
	ChatTemplate string           `json:"chat_template"` // empty: guessed from model
	SystemPrompt string           `json:"system_prompt"`
	Generation   GenerationConfig `json:"generation"`
	Providers    ProvidersConfig  `json:"providers"`
	Server       ServerConfig     `json:"server"`
	DryRun       bool             `json:"dry_run"`
	LogLevel     string           `json:"log_level"`
	LogFormat    string           `json:"log_format"`
	LogFile      string           `json:"log_file"`
}

// GenerationConfig holds the default sampling settings for the terminal loop.
type GenerationConfig struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
}

// ProvidersConfig groups per-backend connection settings.
type ProvidersConfig struct {
	OpenAI     OpenAIConfig     `json:"openai"`
	OpenRouter OpenRouterConfig `json:"openrouter"`
	Google     GoogleConfig     `json:"google"`
}

// OpenAIConfig points at an OpenAI-compatible completions server
// (vLLM, llama.cpp server, TGI).
type OpenAIConfig struct {
	APIKey            string `json:"api_key"`
	APIURL            string `json:"api_url"`
	Echo              bool   `json:"echo"` // server honours echo=true
	APITimeoutSeconds int    `json:"api_timeout_seconds"`
}

// OpenRouterConfig holds the OpenRouter API configuration
type OpenRouterConfig struct {
	APIKey            string `json:"api_key"`
	APIURL            string `json:"api_url"`
	HTTPReferer       string `json:"http_referer"`
	XTitle            string `json:"x_title"`
	APITimeoutSeconds int    `json:"api_timeout_seconds"`
}

// GoogleConfig holds the Gemini API configuration
type GoogleConfig struct {
	APIKey            string `json:"api_key"`
	Model             string `json:"model"` // Gemini model; the top-level model only picks the template
	APITimeoutSeconds int    `json:"api_timeout_seconds"`
}

// ServerConfig configures the browser front-end.
type ServerConfig struct {
	Addr               string `json:"addr"`
	SessionIdleMinutes int    `json:"session_idle_minutes"`
}

// Default returns a configuration with default values
func Default() Config {
	return Config{
		Backend:      BackendOpenAI,
		Model:        DefaultModel,
		SystemPrompt: DefaultSystemPrompt,
		Generation: GenerationConfig{
			MaxNewTokens: 256,
			Temperature:  0.6,
			TopP:         0.9,
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				APIURL:            "http://localhost:8000/v1",
				Echo:              true,
				APITimeoutSeconds: 120,
			},
			OpenRouter: OpenRouterConfig{
				APIURL:            "https://openrouter.ai/api/v1",
				XTitle:            "biochat",
				APITimeoutSeconds: 60,
			},
			Google: GoogleConfig{
				Model:             "gemini-3-flash-preview",
				APITimeoutSeconds: 60,
			},
		},
		Server: ServerConfig{
			Addr:               ":8501",
			SessionIdleMinutes: 60,
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load reads configuration from configPath on top of the defaults.
// A missing file is not an error and nothing is written to disk.
func Load(configPath string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv lets the hosting environment override connection settings.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("BIOCHAT_BACKEND")); v != "" {
		cfg.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("BIOCHAT_MODEL")); v != "" {
		cfg.Model = v
	}
	key := strings.TrimSpace(os.Getenv("BIOCHAT_API_KEY"))
	apiURL := strings.TrimSpace(os.Getenv("BIOCHAT_API_URL"))
	switch cfg.Backend {
	case BackendOpenAI:
		if key != "" {
			cfg.Providers.OpenAI.APIKey = key
		}
		if apiURL != "" {
			cfg.Providers.OpenAI.APIURL = apiURL
		}
	case BackendOpenRouter:
		if key != "" {
			cfg.Providers.OpenRouter.APIKey = key
		}
		if apiURL != "" {
			cfg.Providers.OpenRouter.APIURL = apiURL
		}
	case BackendGoogle:
		if key != "" {
			cfg.Providers.Google.APIKey = key
		}
	}
}

// Save saves the configuration to the specified path
func Save(configPath string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// SupportedBackends returns the backend names accepted in the config.
func SupportedBackends() []string {
	return []string{BackendOpenAI, BackendOpenRouter, BackendGoogle, BackendDryRun}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	supported := false
	for _, b := range SupportedBackends() {
		if c.Backend == b {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("unsupported backend: %s", c.Backend)
	}

	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model is required")
	}

	if strings.TrimSpace(c.SystemPrompt) == "" {
		return fmt.Errorf("system_prompt must not be empty")
	}

	if c.Generation.MaxNewTokens <= 0 {
		return fmt.Errorf("max_new_tokens must be positive, got: %d", c.Generation.MaxNewTokens)
	}

	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got: %f", c.Generation.Temperature)
	}

	if c.Generation.TopP <= 0 || c.Generation.TopP > 1 {
		return fmt.Errorf("top_p must be in (0, 1], got: %f", c.Generation.TopP)
	}

	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}

	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid log_format: %s", c.LogFormat)
	}

	if c.DryRun || c.Backend == BackendDryRun {
		return c.validateServer()
	}

	switch c.Backend {
	case BackendOpenAI:
		if err := validateAPIURL(c.Providers.OpenAI.APIURL); err != nil {
			return fmt.Errorf("openai %w", err)
		}
		if c.Providers.OpenAI.APITimeoutSeconds <= 0 {
			return fmt.Errorf("api_timeout_seconds must be positive, got: %d", c.Providers.OpenAI.APITimeoutSeconds)
		}
	case BackendOpenRouter:
		if c.Providers.OpenRouter.APIKey == "" {
			return fmt.Errorf("OpenRouter API key is required (set in config file or BIOCHAT_API_KEY)")
		}
		if err := validateAPIURL(c.Providers.OpenRouter.APIURL); err != nil {
			return fmt.Errorf("openrouter %w", err)
		}
		if c.Providers.OpenRouter.APITimeoutSeconds <= 0 {
			return fmt.Errorf("api_timeout_seconds must be positive, got: %d", c.Providers.OpenRouter.APITimeoutSeconds)
		}
	case BackendGoogle:
		if c.Providers.Google.APIKey == "" {
			return fmt.Errorf("Google API key is required (set in config file or BIOCHAT_API_KEY)")
		}
	}

	return c.validateServer()
}

func validateAPIURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("api_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url must be an http(s) URL, got: %q", raw)
	}
	return nil
}

func (c Config) validateServer() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.Server.SessionIdleMinutes <= 0 {
		return fmt.Errorf("session_idle_minutes must be positive, got: %d", c.Server.SessionIdleMinutes)
	}
	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("BIOCHAT_CONFIG")); p != "" {
		return p
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".biochat/config.json"
	}
	return filepath.Join(homeDir, ".biochat", "config.json")
}
