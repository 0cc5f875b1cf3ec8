package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"biochat/pkg/ai"
	"biochat/pkg/conversation"
	"biochat/pkg/version"
)

// Flash messages shown above the chat.
const (
	msgTruncated    = "No response generated. Try asking again."
	msgNothingRetry = "There is no unanswered question to retry."
)

type turnView struct {
	Role    string
	User    bool
	Content string
}

type pageData struct {
	Model     string
	Version   string
	SessionID string
	Turns     []turnView
	Welcome   bool
	Pending   bool
	Flash     string
	Settings  Settings

	TemperatureMin, TemperatureMax, TemperatureStep float64
	MaxLengthMin, MaxLengthMax, MaxLengthStep       int
	TopPMin, TopPMax, TopPStep                      float64
}

// entryFor resolves the visitor's entry from the cookie, creating a session
// and setting the cookie when needed.
func (s *Server) entryFor(w http.ResponseWriter, r *http.Request) *Entry {
	var id string
	if c, err := r.Cookie(cookieName); err == nil {
		id = c.Value
	}
	e, created := s.store.Resolve(id)
	if created {
		setSessionCookie(w, e.session.ID())
	}
	return e
}

func setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	e := s.entryFor(w, r)

	e.turn.Lock()
	data := s.pageData(e)
	e.flash = ""
	e.turn.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		slog.Error("web_render_error", "error", err)
	}
}

func (s *Server) pageData(e *Entry) pageData {
	visible := e.session.VisibleTurns()
	turns := make([]turnView, 0, len(visible))
	for _, t := range visible {
		turns = append(turns, turnView{
			Role:    string(t.Role),
			User:    t.Role == conversation.RoleUser,
			Content: t.Content,
		})
	}

	return pageData{
		Model:     s.model,
		Version:   version.Summary(),
		SessionID: e.session.ID(),
		Turns:     turns,
		Welcome:   len(turns) == 0,
		Pending:   e.session.State() == conversation.ReadyToGenerate,
		Flash:     e.flash,
		Settings:  e.settings,

		TemperatureMin: TemperatureMin, TemperatureMax: TemperatureMax, TemperatureStep: TemperatureStep,
		MaxLengthMin: MaxLengthMin, MaxLengthMax: MaxLengthMax, MaxLengthStep: MaxLengthStep,
		TopPMin: TopPMin, TopPMax: TopPMax, TopPStep: TopPStep,
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	e := s.entryFor(w, r)

	e.turn.Lock()
	defer e.turn.Unlock()

	e.settings = parseSettings(r.PostForm, e.settings)
	if err := e.session.AppendUserTurn(r.PostForm.Get("question")); err != nil {
		if errors.Is(err, conversation.ErrEmptyInput) {
			s.metrics.turns.WithLabelValues(outcomeEmpty).Inc()
		} else {
			e.flash = err.Error()
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.runTurn(r.Context(), e)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	e := s.entryFor(w, r)

	e.turn.Lock()
	defer e.turn.Unlock()

	e.settings = parseSettings(r.PostForm, e.settings)
	if e.session.State() != conversation.ReadyToGenerate {
		e.flash = msgNothingRetry
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.runTurn(r.Context(), e)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// runTurn generates the answer for the pending user turn. The request
// context's cancellation is dropped: once issued, a generation runs to
// completion or failure. The caller holds the turn lock.
func (s *Server) runTurn(ctx context.Context, e *Entry) {
	start := time.Now()
	_, err := e.session.Exchange(context.WithoutCancel(ctx), s.gen, e.settings.Params())
	s.metrics.generationSeconds.Observe(time.Since(start).Seconds())

	outcome := outcomeOK
	var loadErr *ai.LoadError
	var genErr *conversation.GenerationError
	switch {
	case err == nil:
	case errors.As(err, &loadErr):
		outcome = outcomeLoadError
		e.flash = "Error loading model: " + loadErr.Err.Error()
	case errors.As(err, &genErr):
		outcome = outcomeGenError
		e.flash = "An error occurred: " + genErr.Error()
	case errors.Is(err, conversation.ErrTruncation):
		outcome = outcomeTruncated
		e.flash = msgTruncated
	case errors.Is(err, conversation.ErrInvalidState):
		outcome = outcomeInvalidState
		e.flash = msgNothingRetry
	default:
		outcome = outcomeGenError
		e.flash = "An error occurred: " + err.Error()
	}
	s.metrics.turns.WithLabelValues(outcome).Inc()

	if err != nil {
		slog.Warn("web_turn_failed",
			"session_id", e.session.ID(),
			"outcome", outcome,
			"error", err,
		)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	e := s.entryFor(w, r)

	e.turn.Lock()
	defer e.turn.Unlock()

	newID, err := s.store.Reset(e)
	if err != nil {
		e.flash = err.Error()
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.metrics.resets.Inc()
	e.flash = ""
	setSessionCookie(w, newID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := false
	if s.loaded != nil {
		loaded = s.loaded()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                true,
		"model":             s.model,
		"sessions":          s.store.Len(),
		"capability_loaded": loaded,
		"version":           version.Summary(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
