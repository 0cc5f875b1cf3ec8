package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"biochat/pkg/ai"
	"biochat/pkg/config"
)

const modelsListTimeout = 15 * time.Second

// ListModels asks the configured completions server which models it serves.
// Only the OpenAI-compatible backends expose a model list.
func ListModels(ctx context.Context, cfg config.Config) ([]ai.ModelInfo, error) {
	return listModels(ctx, cfg, &http.Client{Timeout: modelsListTimeout})
}

func listModels(ctx context.Context, cfg config.Config, httpClient *http.Client) ([]ai.ModelInfo, error) {
	backend := cfg.Backend
	if cfg.DryRun {
		backend = config.BackendDryRun
	}

	var (
		gen *CompletionGenerator
		err error
	)
	switch backend {
	case config.BackendOpenAI:
		gen, err = newCompletionGenerator(completionOptions{
			backend: config.BackendOpenAI,
			apiKey:  cfg.Providers.OpenAI.APIKey,
			apiURL:  cfg.Providers.OpenAI.APIURL,
			model:   cfg.Model,
		}, httpClient)
	case config.BackendOpenRouter:
		gen, err = newOpenRouterGeneratorWithHTTPClient(cfg.Providers.OpenRouter, cfg.Model, httpClient)
	default:
		return nil, fmt.Errorf("backend %q does not support listing models", backend)
	}
	if err != nil {
		return nil, err
	}

	page, err := gen.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}

	models := make([]ai.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, ai.ModelInfo{
			ID:      m.ID,
			OwnedBy: m.OwnedBy,
			Created: m.Created,
		})
	}
	slog.Debug("models_listed", "backend", cfg.Backend, "count", len(models))
	return ai.SortModels(models), nil
}
