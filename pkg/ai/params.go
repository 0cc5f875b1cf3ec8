package ai

import (
	"fmt"
	"math"
)

const (
	DefaultMaxNewTokens = 256
	DefaultTemperature  = 0.6
	DefaultTopP         = 0.9
)

// GenerationParams are per-request sampling settings. They are never part of
// the transcript.
type GenerationParams struct {
	MaxNewTokens int
	Temperature  float64
	TopP         float64
	// Stop holds terminator strings; usually filled from the chat template.
	Stop []string
}

// DefaultParams returns the settings used by the terminal front-end.
func DefaultParams() GenerationParams {
	return GenerationParams{
		MaxNewTokens: DefaultMaxNewTokens,
		Temperature:  DefaultTemperature,
		TopP:         DefaultTopP,
	}
}

// Validate checks the recognised options.
func (p GenerationParams) Validate() error {
	if p.MaxNewTokens <= 0 {
		return fmt.Errorf("max_new_tokens must be positive, got: %d", p.MaxNewTokens)
	}
	if math.IsNaN(p.Temperature) || p.Temperature < 0 {
		return fmt.Errorf("temperature must be non-negative, got: %f", p.Temperature)
	}
	if math.IsNaN(p.TopP) || p.TopP <= 0 || p.TopP > 1 {
		return fmt.Errorf("top_p must be in (0, 1], got: %f", p.TopP)
	}
	return nil
}

// WithStop returns a copy of p with the given terminators appended, skipping
// duplicates and empty strings.
func (p GenerationParams) WithStop(stop ...string) GenerationParams {
	merged := make([]string, 0, len(p.Stop)+len(stop))
	seen := make(map[string]struct{}, len(p.Stop)+len(stop))
	for _, s := range append(append([]string{}, p.Stop...), stop...) {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		merged = append(merged, s)
	}
	p.Stop = merged
	return p
}
