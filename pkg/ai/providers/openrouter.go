package providers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"biochat/pkg/ai"
	"biochat/pkg/config"
)

const openRouterDefaultTimeout = 60

func init() {
	ai.RegisterBackend(ai.BackendInfo{
		Type:        ai.BackendOpenRouter,
		Name:        "OpenRouter",
		Description: "Hosted completions for open models through the OpenRouter API",
		RequiresKey: true,
	}, NewOpenRouterGenerator)
}

// NewOpenRouterGenerator creates a completions generator against OpenRouter.
// OpenRouter does not echo prompts, so the prompt is prepended locally.
func NewOpenRouterGenerator(cfg ai.BackendConfig) (ai.Generator, error) {
	orCfg := cfg.Config.Providers.OpenRouter
	timeout := orCfg.APITimeoutSeconds
	if timeout <= 0 {
		timeout = openRouterDefaultTimeout
	}
	httpClient := &http.Client{Timeout: time.Duration(timeout) * time.Second}
	return newOpenRouterGeneratorWithHTTPClient(orCfg, cfg.Config.Model, httpClient)
}

func newOpenRouterGeneratorWithHTTPClient(cfg config.OpenRouterConfig, model string, httpClient *http.Client) (*CompletionGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		slog.Debug("openrouter_backend_missing_key")
		return nil, fmt.Errorf("openrouter api_key is required")
	}

	return newCompletionGenerator(completionOptions{
		backend: string(ai.BackendOpenRouter),
		apiKey:  cfg.APIKey,
		apiURL:  cfg.APIURL,
		model:   model,
		echo:    false,
		headers: map[string]string{
			"HTTP-Referer": cfg.HTTPReferer,
			"X-Title":      cfg.XTitle,
		},
	}, httpClient)
}
