package providers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"biochat/pkg/config"
)

func modelsResponse(ids ...string) map[string]any {
	data := make([]any, 0, len(ids))
	for _, id := range ids {
		data = append(data, map[string]any{
			"id":       id,
			"object":   "model",
			"created":  1,
			"owned_by": "vllm",
		})
	}
	return map[string]any{"object": "list", "data": data}
}

func TestListModels_OpenAI(t *testing.T) {
	var gotPath, gotMethod string
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.Path
		gotMethod = req.Method
		return newJSONResponse(t, req, http.StatusOK, modelsResponse("zeta-model", "bio-llama", "bio-llama")), nil
	})

	cfg := config.Default()
	cfg.Backend = config.BackendOpenAI
	cfg.Providers.OpenAI.APIURL = "https://llm.test"

	models, err := listModels(context.Background(), cfg, client)
	if err != nil {
		t.Fatalf("listModels() error: %v", err)
	}
	if gotMethod != http.MethodGet || gotPath != "/models" {
		t.Errorf("Expected GET /models, got %s %s", gotMethod, gotPath)
	}
	if len(models) != 2 {
		t.Fatalf("Expected 2 unique models, got %+v", models)
	}
	if models[0].ID != "bio-llama" || models[1].ID != "zeta-model" {
		t.Errorf("Expected sorted models, got %+v", models)
	}
	if models[0].OwnedBy != "vllm" {
		t.Errorf("Expected owner vllm, got %q", models[0].OwnedBy)
	}
}

func TestListModels_OpenRouterSendsKey(t *testing.T) {
	var gotAuth string
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		return newJSONResponse(t, req, http.StatusOK, modelsResponse("meta-llama/llama-3.2-1b-instruct")), nil
	})

	cfg := config.Default()
	cfg.Backend = config.BackendOpenRouter
	cfg.Providers.OpenRouter.APIKey = "test-key"
	cfg.Providers.OpenRouter.APIURL = "https://openrouter.test"

	models, err := listModels(context.Background(), cfg, client)
	if err != nil {
		t.Fatalf("listModels() error: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Expected Authorization header, got %q", gotAuth)
	}
	if len(models) != 1 {
		t.Fatalf("Expected 1 model, got %+v", models)
	}
}

func TestListModels_ServerError(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return newHTTPResponse(req, http.StatusInternalServerError, "application/json", []byte(`{"error":{"message":"down"}}`)), nil
	})

	cfg := config.Default()
	cfg.Backend = config.BackendOpenAI
	cfg.Providers.OpenAI.APIURL = "https://llm.test"

	_, err := listModels(context.Background(), cfg, client)
	if err == nil || !strings.Contains(err.Error(), "fetch models") {
		t.Fatalf("Expected fetch error, got %v", err)
	}
}

func TestListModels_UnsupportedBackend(t *testing.T) {
	for _, backend := range []string{config.BackendGoogle, config.BackendDryRun} {
		cfg := config.Default()
		cfg.Backend = backend
		_, err := listModels(context.Background(), cfg, nil)
		if err == nil || !strings.Contains(err.Error(), "does not support listing models") {
			t.Errorf("%s: expected unsupported error, got %v", backend, err)
		}
	}
}

func TestListModels_DryRunOverridesBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendOpenAI
	cfg.DryRun = true
	_, err := listModels(context.Background(), cfg, nil)
	if err == nil || !strings.Contains(err.Error(), `"dryrun"`) {
		t.Fatalf("Expected dry-run unsupported error, got %v", err)
	}
}
