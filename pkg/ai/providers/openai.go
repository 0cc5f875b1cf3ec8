package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"biochat/pkg/ai"
	"biochat/pkg/logging"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	openAIDefaultTimeout = 120
	// vLLM and llama.cpp accept any bearer token; the SDK still wants one.
	openAIPlaceholderKey = "EMPTY"
)

func init() {
	ai.RegisterBackend(ai.BackendInfo{
		Type:        ai.BackendOpenAI,
		Name:        "OpenAI-compatible",
		Description: "Raw prompt completions from an OpenAI-compatible server (vLLM, llama.cpp, TGI)",
		RequiresKey: false,
	}, NewOpenAIGenerator)
}

// CompletionGenerator implements ai.Generator on the legacy completions
// endpoint, which accepts an already templated prompt.
type CompletionGenerator struct {
	client  openai.Client
	backend string
	model   string
	echo    bool
}

type completionOptions struct {
	backend string
	apiKey  string
	apiURL  string
	model   string
	echo    bool
	headers map[string]string
}

// NewOpenAIGenerator creates a completions generator from config.
func NewOpenAIGenerator(cfg ai.BackendConfig) (ai.Generator, error) {
	providerCfg := cfg.Config.Providers.OpenAI

	timeout := providerCfg.APITimeoutSeconds
	if timeout <= 0 {
		timeout = openAIDefaultTimeout
	}
	httpClient := &http.Client{Timeout: time.Duration(timeout) * time.Second}

	return newCompletionGenerator(completionOptions{
		backend: string(ai.BackendOpenAI),
		apiKey:  providerCfg.APIKey,
		apiURL:  providerCfg.APIURL,
		model:   cfg.Config.Model,
		echo:    providerCfg.Echo,
	}, httpClient)
}

func newCompletionGenerator(opts completionOptions, httpClient *http.Client) (*CompletionGenerator, error) {
	if strings.TrimSpace(opts.apiURL) == "" {
		return nil, fmt.Errorf("%s api_url is required", opts.backend)
	}
	if strings.TrimSpace(opts.model) == "" {
		return nil, fmt.Errorf("%s model is required", opts.backend)
	}

	apiKey := strings.TrimSpace(opts.apiKey)
	if apiKey == "" {
		apiKey = openAIPlaceholderKey
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(opts.apiURL),
		option.WithMaxRetries(0),
	}
	for name, value := range opts.headers {
		if strings.TrimSpace(value) != "" {
			reqOpts = append(reqOpts, option.WithHeader(name, value))
		}
	}
	if httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(httpClient))
	}

	return &CompletionGenerator{
		client:  openai.NewClient(reqOpts...),
		backend: opts.backend,
		model:   opts.model,
		echo:    opts.echo,
	}, nil
}

// Generate sends prompt to the completions endpoint. With echo enabled the
// server returns the prompt ahead of the completion; otherwise the prompt is
// prepended locally so callers always get prompt + new text.
func (g *CompletionGenerator) Generate(ctx context.Context, prompt string, params ai.GenerationParams) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	if err := params.Validate(); err != nil {
		return "", err
	}

	req := openai.CompletionNewParams{
		Model:       openai.CompletionNewParamsModel(g.model),
		Prompt:      openai.CompletionNewParamsPromptUnion{OfString: openai.String(prompt)},
		MaxTokens:   openai.Int(int64(params.MaxNewTokens)),
		Temperature: openai.Float(params.Temperature),
		TopP:        openai.Float(params.TopP),
	}
	if g.echo {
		req.Echo = openai.Bool(true)
	}
	if len(params.Stop) > 0 {
		req.Stop = openai.CompletionNewParamsStopUnion{OfStringArray: params.Stop}
	}

	logger := slog.Default()
	if logger.Enabled(ctx, logging.LevelTrace) {
		logger.Log(ctx, logging.LevelTrace, "completion_prompt", "backend", g.backend, "prompt", prompt)
	}
	slog.Debug("completion_request",
		"backend", g.backend,
		"model", g.model,
		"prompt_len", len(prompt),
		"max_new_tokens", params.MaxNewTokens,
		"echo", g.echo,
	)

	resp, err := g.client.Completions.New(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s completion returned no choices", g.backend)
	}

	text := resp.Choices[0].Text
	if !g.echo {
		text = prompt + text
	}
	slog.Debug("completion_done",
		"backend", g.backend,
		"finish_reason", string(resp.Choices[0].FinishReason),
		"output_len", len(text),
	)
	return text, nil
}

// Ensure interface compliance
var _ ai.Generator = (*CompletionGenerator)(nil)
