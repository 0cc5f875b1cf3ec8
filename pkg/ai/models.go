package ai

import (
	"sort"
	"strings"
)

// ModelInfo describes one model served by an inference backend.
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
	Created int64  `json:"created,omitempty"`
}

// SortModels orders models by ID and drops blank or duplicate entries.
func SortModels(models []ModelInfo) []ModelInfo {
	seen := make(map[string]bool, len(models))
	out := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// HasModel reports whether id is in models.
func HasModel(models []ModelInfo, id string) bool {
	id = strings.TrimSpace(id)
	for _, m := range models {
		if m.ID == id {
			return true
		}
	}
	return false
}
