package web

import (
	"net/url"
	"testing"

	"biochat/pkg/ai"
)

func TestSettings_Clamp(t *testing.T) {
	tests := []struct {
		name string
		in   Settings
		want Settings
	}{
		{"defaults", DefaultSettings(), Settings{Temperature: 0.6, MaxLength: 256, TopP: 0.9}},
		{"below range", Settings{Temperature: 0, MaxLength: 1, TopP: -1}, Settings{Temperature: 0.1, MaxLength: 64, TopP: 0.1}},
		{"above range", Settings{Temperature: 1.7, MaxLength: 4096, TopP: 3}, Settings{Temperature: 1.0, MaxLength: 512, TopP: 1.0}},
		{"snaps to step", Settings{Temperature: 0.33, MaxLength: 100, TopP: 0.74}, Settings{Temperature: 0.3, MaxLength: 96, TopP: 0.7}},
		{"rounds max length up", Settings{Temperature: 0.5, MaxLength: 90, TopP: 0.5}, Settings{Temperature: 0.5, MaxLength: 96, TopP: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamp(); got != tt.want {
				t.Errorf("Clamp() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseSettings_FallsBack(t *testing.T) {
	fallback := Settings{Temperature: 0.2, MaxLength: 128, TopP: 0.5}
	got := parseSettings(url.Values{
		"temperature": {"abc"},
		"top_p":       {"NaN"},
	}, fallback)
	if got != fallback {
		t.Fatalf("Expected fallback for missing and malformed values, got %+v", got)
	}

	got = parseSettings(url.Values{"max_length": {"512"}}, fallback)
	if got.MaxLength != 512 || got.Temperature != 0.2 {
		t.Fatalf("Expected only max length to change, got %+v", got)
	}
}

func TestSettings_Params(t *testing.T) {
	p := Settings{Temperature: 0.4, MaxLength: 160, TopP: 0.8}.Params()
	if p.MaxNewTokens != 160 || p.Temperature != 0.4 || p.TopP != 0.8 {
		t.Fatalf("unexpected params %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid params: %v", err)
	}
}

func TestSettingsFromParams(t *testing.T) {
	got := SettingsFromParams(ai.GenerationParams{MaxNewTokens: 2048, Temperature: 1.4, TopP: 0.95})
	if got.MaxLength != 512 || got.Temperature != 1.0 {
		t.Fatalf("expected configured params clamped to panel, got %+v", got)
	}
}
