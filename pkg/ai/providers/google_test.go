package providers

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"biochat/pkg/ai"
	"biochat/pkg/config"

	"google.golang.org/genai"
)

type stubGoogleModelsClient struct {
	generateResp *genai.GenerateContentResponse
	generateErr  error

	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
	gotDeadline bool
}

func (s *stubGoogleModelsClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.gotModel = model
	s.gotContents = contents
	s.gotConfig = cfg
	_, s.gotDeadline = ctx.Deadline()
	return s.generateResp, s.generateErr
}

func googleTextResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Role:  genai.RoleModel,
					Parts: parts,
				},
			},
		},
	}
}

func TestNewGoogleGenerator_RequiresAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendGoogle
	cfg.Providers.Google.APIKey = ""

	_, err := NewGoogleGenerator(ai.BackendConfig{
		Type:   ai.BackendGoogle,
		Config: cfg,
	})
	if err == nil {
		t.Fatal("Expected error when Google API key is missing")
	}
}

func TestNewGoogleGenerator_DefaultFallbacks(t *testing.T) {
	origNewClient := newGoogleClient
	defer func() {
		newGoogleClient = origNewClient
	}()

	var gotClientCfg *genai.ClientConfig
	newGoogleClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
		gotClientCfg = cfg
		return &genai.Client{}, nil
	}

	cfg := config.Default()
	cfg.Backend = config.BackendGoogle
	cfg.Providers.Google.APIKey = "test-key"
	cfg.Providers.Google.Model = ""
	cfg.Providers.Google.APITimeoutSeconds = 0

	gen, err := NewGoogleGenerator(ai.BackendConfig{Type: ai.BackendGoogle, Config: cfg})
	if err != nil {
		t.Fatalf("NewGoogleGenerator() error: %v", err)
	}

	if gotClientCfg == nil || gotClientCfg.APIKey != "test-key" || gotClientCfg.Backend != genai.BackendGeminiAPI {
		t.Fatalf("Unexpected client config: %+v", gotClientCfg)
	}

	google := gen.(*GoogleGenerator)
	if google.model != googleDefaultModel {
		t.Errorf("Expected default model %q, got %q", googleDefaultModel, google.model)
	}
	if google.defaultTimeout != googleDefaultTimeout*time.Second {
		t.Errorf("Expected default timeout, got %v", google.defaultTimeout)
	}
}

func TestGoogleGenerator_Generate(t *testing.T) {
	stub := &stubGoogleModelsClient{
		generateResp: googleTextResponse(
			&genai.Part{Text: "thinking...", Thought: true},
			&genai.Part{Text: "Hypertension is "},
			&genai.Part{Text: "high blood pressure."},
		),
	}
	gen := &GoogleGenerator{models: stub, model: "gemini-test", defaultTimeout: time.Minute}

	out, err := gen.Generate(context.Background(), "PROMPT", testParams())
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if out != "PROMPTHypertension is high blood pressure." {
		t.Fatalf("Unexpected output %q", out)
	}
	if stub.gotModel != "gemini-test" {
		t.Errorf("Expected model gemini-test, got %q", stub.gotModel)
	}
	if len(stub.gotContents) != 1 || stub.gotContents[0].Parts[0].Text != "PROMPT" {
		t.Errorf("Expected prompt as single user content, got %+v", stub.gotContents)
	}
	if !stub.gotDeadline {
		t.Error("Expected default timeout to be applied")
	}

	cfg := stub.gotConfig
	if cfg.MaxOutputTokens != 256 {
		t.Errorf("Expected MaxOutputTokens 256, got %d", cfg.MaxOutputTokens)
	}
	if cfg.Temperature == nil || math.Abs(float64(*cfg.Temperature)-0.6) > 1e-6 {
		t.Errorf("Expected temperature 0.6, got %v", cfg.Temperature)
	}
	if cfg.TopP == nil || math.Abs(float64(*cfg.TopP)-0.9) > 1e-6 {
		t.Errorf("Expected top_p 0.9, got %v", cfg.TopP)
	}
	if len(cfg.StopSequences) != 2 {
		t.Errorf("Expected stop sequences, got %v", cfg.StopSequences)
	}
}

func TestGoogleGenerator_ErrorVerbatim(t *testing.T) {
	want := errors.New("quota exceeded")
	gen := &GoogleGenerator{models: &stubGoogleModelsClient{generateErr: want}, model: "m"}

	_, err := gen.Generate(context.Background(), "PROMPT", testParams())
	if !errors.Is(err, want) {
		t.Fatalf("Expected verbatim error, got %v", err)
	}
}

func TestExtractVisibleText_Empty(t *testing.T) {
	if got := extractVisibleText(nil); got != "" {
		t.Errorf("Expected empty text for nil response, got %q", got)
	}
	if got := extractVisibleText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("Expected empty text for no candidates, got %q", got)
	}
}
