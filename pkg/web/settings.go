package web

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"biochat/pkg/ai"
)

// Slider ranges of the settings panel.
const (
	TemperatureMin  = 0.1
	TemperatureMax  = 1.0
	TemperatureStep = 0.1

	MaxLengthMin  = 64
	MaxLengthMax  = 512
	MaxLengthStep = 32

	TopPMin  = 0.1
	TopPMax  = 1.0
	TopPStep = 0.1
)

// Settings are the per-visitor generation controls.
type Settings struct {
	Temperature float64
	MaxLength   int
	TopP        float64
}

// DefaultSettings returns the panel defaults.
func DefaultSettings() Settings {
	return Settings{
		Temperature: ai.DefaultTemperature,
		MaxLength:   ai.DefaultMaxNewTokens,
		TopP:        ai.DefaultTopP,
	}
}

// SettingsFromParams snaps configured generation params onto the panel.
func SettingsFromParams(p ai.GenerationParams) Settings {
	return Settings{
		Temperature: p.Temperature,
		MaxLength:   p.MaxNewTokens,
		TopP:        p.TopP,
	}.Clamp()
}

// Clamp snaps every value to its slider step and range.
func (s Settings) Clamp() Settings {
	return Settings{
		Temperature: snapFloat(s.Temperature, TemperatureMin, TemperatureMax, TemperatureStep),
		MaxLength:   snapInt(s.MaxLength, MaxLengthMin, MaxLengthMax, MaxLengthStep),
		TopP:        snapFloat(s.TopP, TopPMin, TopPMax, TopPStep),
	}
}

// Params converts the settings into generation params.
func (s Settings) Params() ai.GenerationParams {
	return ai.GenerationParams{
		MaxNewTokens: s.MaxLength,
		Temperature:  s.Temperature,
		TopP:         s.TopP,
	}
}

// parseSettings reads the three controls from a form. Missing or malformed
// values keep the fallback.
func parseSettings(form url.Values, fallback Settings) Settings {
	out := fallback
	if v, ok := formFloat(form, "temperature"); ok {
		out.Temperature = v
	}
	if v, ok := formFloat(form, "max_length"); ok {
		out.MaxLength = int(math.Round(v))
	}
	if v, ok := formFloat(form, "top_p"); ok {
		out.TopP = v
	}
	return out.Clamp()
}

func formFloat(form url.Values, key string) (float64, bool) {
	raw := strings.TrimSpace(form.Get(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func snapFloat(v, lo, hi, step float64) float64 {
	if math.IsNaN(v) {
		v = lo
	}
	v = lo + math.Round((v-lo)/step)*step
	v = math.Round(v*100) / 100
	return math.Min(hi, math.Max(lo, v))
}

func snapInt(v, lo, hi, step int) int {
	if v <= lo {
		return lo
	}
	if v >= hi {
		return hi
	}
	return lo + int(math.Round(float64(v-lo)/float64(step)))*step
}
