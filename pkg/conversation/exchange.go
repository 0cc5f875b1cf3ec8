package conversation

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"biochat/pkg/ai"
)

// Exchange runs one generation cycle for the pending user turn: render,
// generate, ingest. Params get the template's terminators appended.
// Generator failures come back as *GenerationError and leave the pending
// user turn in place so the caller may try again.
func (s *Session) Exchange(ctx context.Context, gen ai.Generator, params ai.GenerationParams) (Turn, error) {
	prompt, err := s.RenderPrompt()
	if err != nil {
		return Turn{}, err
	}

	params = params.WithStop(s.template.Terminators()...)
	sessionID := s.ID()
	slog.Info("turn_start",
		"session_id", sessionID,
		"prompt_len", len(prompt),
		"max_new_tokens", params.MaxNewTokens,
		"temperature", params.Temperature,
		"top_p", params.TopP,
	)

	start := time.Now()
	raw, err := gen.Generate(ctx, prompt, params)
	if err != nil {
		slog.Error("generation_error",
			"session_id", sessionID,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return Turn{}, &GenerationError{Err: err}
	}

	raw = trimTerminators(raw, prompt, params.Stop)
	if err := s.IngestResponse(raw, prompt); err != nil {
		return Turn{}, err
	}

	reply := s.LastTurn()
	slog.Info("turn_done",
		"session_id", sessionID,
		"reply_len", len(reply.Content),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

// trimTerminators strips terminator strings left at the end of the generated
// suffix. The prompt part of raw is never touched.
func trimTerminators(raw, prompt string, stop []string) string {
	promptRunes := utf8.RuneCountInString(prompt)
	if utf8.RuneCountInString(raw) <= promptRunes {
		return raw
	}
	for trimmed := true; trimmed; {
		trimmed = false
		for _, term := range stop {
			if term != "" && strings.HasSuffix(raw, term) &&
				utf8.RuneCountInString(raw)-utf8.RuneCountInString(term) >= promptRunes {
				raw = raw[:len(raw)-len(term)]
				trimmed = true
			}
		}
	}
	return raw
}
