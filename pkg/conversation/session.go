package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"biochat/pkg/ai"
	"biochat/pkg/config"
	"biochat/pkg/logging"

	"github.com/google/uuid"
)

// Session owns one transcript and mediates every change to it.
// All methods are safe for concurrent use, but a conversation is meant to be
// driven by one caller at a time; Exchange does not hold the lock while the
// generator runs.
type Session struct {
	mu        sync.RWMutex
	id        string
	createdAt time.Time
	system    string
	template  ai.ChatTemplate
	turns     []Turn
	closed    bool
}

// NewSession creates a session seeded with the system prompt. A blank
// prompt falls back to config.DefaultSystemPrompt.
func NewSession(systemPrompt string, tmpl ai.ChatTemplate) *Session {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = config.DefaultSystemPrompt
	}
	if tmpl == nil {
		tmpl = ai.TemplateForModel("")
	}
	s := &Session{
		system:   systemPrompt,
		template: tmpl,
	}
	s.reinit()
	slog.Debug("session_created", "session_id", s.id, "template", tmpl.Name())
	return s
}

func (s *Session) reinit() {
	s.id = uuid.NewString()
	s.createdAt = time.Now()
	s.turns = []Turn{{Role: RoleSystem, Content: s.system}}
}

// ID returns the current session identifier. It changes on Reset.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// CreatedAt returns when the current transcript was seeded.
func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

// Template returns the chat template the session renders with.
func (s *Session) Template() ai.ChatTemplate {
	return s.template
}

// State reports where the session is in the turn cycle.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	switch {
	case s.closed:
		return Closed
	case s.turns[len(s.turns)-1].Role == RoleUser:
		return ReadyToGenerate
	default:
		return AwaitingInput
	}
}

// Len returns the number of turns, system turn included.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Turns returns a copy of the transcript.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// VisibleTurns returns the transcript without the system turn.
func (s *Session) VisibleTurns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, 0, len(s.turns)-1)
	for _, t := range s.turns {
		if t.Role == RoleSystem {
			continue
		}
		out = append(out, t)
	}
	return out
}

// LastTurn returns the most recent turn.
func (s *Session) LastTurn() Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turns[len(s.turns)-1]
}

// AppendUserTurn adds a user turn. Blank text fails with ErrEmptyInput and
// leaves the transcript untouched.
func (s *Session) AppendUserTurn(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.turns = append(s.turns, Turn{Role: RoleUser, Content: text})
	slog.Debug("turn_appended",
		"session_id", s.id,
		"role", RoleUser,
		"turns", len(s.turns),
	)
	return nil
}

// RenderPrompt renders the full transcript through the chat template. It
// requires a pending user turn and never mutates the session.
func (s *Session) RenderPrompt() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.renderLocked()
}

func (s *Session) renderLocked() (string, error) {
	if s.closed {
		return "", ErrClosed
	}
	if len(s.turns) == 0 || s.turns[len(s.turns)-1].Role != RoleUser {
		return "", ErrInvalidState
	}

	messages := make([]ai.Message, len(s.turns))
	for i, t := range s.turns {
		messages[i] = t.message()
	}
	prompt, err := s.template.RenderChatTemplate(messages)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	logger := slog.Default()
	if logger.Enabled(context.Background(), logging.LevelTrace) {
		logger.Log(context.Background(), logging.LevelTrace, "prompt_rendered",
			"session_id", s.id,
			"template", s.template.Name(),
			"prompt", prompt,
		)
	}
	return prompt, nil
}

// IngestResponse appends the text generated beyond promptText as an
// assistant turn. The new text is taken by length in characters, so a
// generator that does not reproduce the prompt exactly still yields a turn
// on a rune boundary; that case is logged as prompt_echo_mismatch.
func (s *Session) IngestResponse(rawOutput, promptText string) error {
	rawRunes := utf8.RuneCountInString(rawOutput)
	promptRunes := utf8.RuneCountInString(promptText)
	if rawRunes <= promptRunes {
		slog.Warn("response_truncated",
			"raw_len", rawRunes,
			"prompt_len", promptRunes,
		)
		return ErrTruncation
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.turns[len(s.turns)-1].Role != RoleUser {
		return ErrInvalidState
	}

	if !strings.HasPrefix(rawOutput, promptText) {
		slog.Warn("prompt_echo_mismatch",
			"session_id", s.id,
			"prompt_len", promptRunes,
			"raw_len", rawRunes,
		)
	}

	reply := dropRunes(rawOutput, promptRunes)
	s.turns = append(s.turns, Turn{Role: RoleAssistant, Content: reply})
	slog.Debug("turn_appended",
		"session_id", s.id,
		"role", RoleAssistant,
		"turns", len(s.turns),
		"reply_len", len(reply),
	)
	return nil
}

// Reset drops every turn but the system turn and assigns a new identifier.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	old := s.id
	s.reinit()
	slog.Info("session_reset", "old_session_id", old, "session_id", s.id)
	return nil
}

// Close moves the session to its terminal state. Closing twice is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	slog.Debug("session_closed", "session_id", s.id, "turns", len(s.turns))
}

// dropRunes returns s without its first n runes.
func dropRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}
