package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"biochat/pkg/ai"

	"google.golang.org/genai"
)

const (
	googleDefaultModel   = "gemini-3-flash-preview"
	googleDefaultTimeout = 60
)

func init() {
	ai.RegisterBackend(ai.BackendInfo{
		Type:        ai.BackendGoogle,
		Name:        "Google",
		Description: "Gemini API fed with the rendered prompt as plain text",
		RequiresKey: true,
	}, NewGoogleGenerator)
}

type googleModelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var newGoogleClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
	return genai.NewClient(ctx, cfg)
}

// GoogleGenerator implements ai.Generator using the native Google AI SDK.
// Gemini has no raw-completion mode, so the templated prompt is sent as a
// single user part and the reply is appended to it.
type GoogleGenerator struct {
	models         googleModelsClient
	model          string
	defaultTimeout time.Duration
}

// NewGoogleGenerator creates a Gemini generator from config.
func NewGoogleGenerator(cfg ai.BackendConfig) (ai.Generator, error) {
	providerCfg := cfg.Config.Providers.Google

	apiKey := strings.TrimSpace(providerCfg.APIKey)
	if apiKey == "" {
		slog.Debug("google_backend_missing_key")
		return nil, fmt.Errorf("google api_key is required")
	}

	model := strings.TrimSpace(providerCfg.Model)
	if model == "" {
		model = googleDefaultModel
	}

	timeoutSeconds := providerCfg.APITimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = googleDefaultTimeout
	}

	client, err := newGoogleClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create google client: %w", err)
	}

	slog.Debug("google_backend_ready",
		"model", model,
		"timeout_seconds", timeoutSeconds,
	)
	return &GoogleGenerator{
		models:         client.Models,
		model:          model,
		defaultTimeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// Generate sends prompt to Gemini and returns prompt + reply.
func (g *GoogleGenerator) Generate(ctx context.Context, prompt string, params ai.GenerationParams) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	if err := params.Validate(); err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(params.Temperature)),
		TopP:            genai.Ptr(float32(params.TopP)),
		MaxOutputTokens: int32(params.MaxNewTokens),
		StopSequences:   params.Stop,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(0)),
		},
	}

	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.models.GenerateContent(callCtx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", err
	}

	return prompt + extractVisibleText(resp), nil
}

func (g *GoogleGenerator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline || g.defaultTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, g.defaultTimeout)
}

// Ensure interface compliance
var _ ai.Generator = (*GoogleGenerator)(nil)

func extractVisibleText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
