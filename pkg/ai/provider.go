package ai

import "context"

// Message is one role-tagged entry handed to a chat template.
type Message struct {
	Role    string
	Content string
}

// ChatTemplate renders an ordered message list into a single model-input string.
// Implementations must be deterministic and append a generation cue for the
// next assistant turn.
type ChatTemplate interface {
	Name() string
	RenderChatTemplate(messages []Message) (string, error)
	// Terminators lists the strings that end an assistant turn for this markup.
	Terminators() []string
}

// Generator runs text generation over a fully rendered prompt.
// The returned text begins with (a reproduction of) prompt followed by the
// newly generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Capability is the complete generation capability used by both front-ends.
type Capability interface {
	ChatTemplate
	Generator
	Model() string
}

// templatedGenerator joins a chat template with a backend generator.
type templatedGenerator struct {
	ChatTemplate
	Generator
	model string
}

func (c *templatedGenerator) Model() string { return c.model }

// NewCapability pairs a template with a generator for the given model id.
func NewCapability(model string, tmpl ChatTemplate, gen Generator) Capability {
	return &templatedGenerator{ChatTemplate: tmpl, Generator: gen, model: model}
}
