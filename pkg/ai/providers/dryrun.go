package providers

import (
	"context"
	"fmt"
	"strings"

	"biochat/pkg/ai"
)

func init() {
	ai.RegisterBackend(ai.BackendInfo{
		Type:        ai.BackendDryRun,
		Name:        "Dry run",
		Description: "Offline backend that answers without calling a model",
		RequiresKey: false,
	}, NewDryRunGenerator)
}

// DryRunGenerator echoes the prompt followed by a fixed notice. It lets both
// front-ends run end to end without an inference server.
type DryRunGenerator struct {
	Reply string
}

// NewDryRunGenerator creates the offline generator.
func NewDryRunGenerator(ai.BackendConfig) (ai.Generator, error) {
	return &DryRunGenerator{}, nil
}

// Generate returns prompt + reply, cut to at most MaxNewTokens words.
func (g *DryRunGenerator) Generate(ctx context.Context, prompt string, params ai.GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	if err := params.Validate(); err != nil {
		return "", err
	}

	reply := g.Reply
	if reply == "" {
		reply = fmt.Sprintf("(dry run) Received a %d character prompt; no model was called.", len(prompt))
	}
	if words := strings.Fields(reply); len(words) > params.MaxNewTokens {
		reply = strings.Join(words[:params.MaxNewTokens], " ")
	}
	return prompt + reply, nil
}

var _ ai.Generator = (*DryRunGenerator)(nil)
