package conversation

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"biochat/pkg/ai"
	"biochat/pkg/config"
)

const testSystemPrompt = "You are an expert trained on healthcare and biomedical domain!"

func newTestSession(t *testing.T) *Session {
	t.Helper()
	tmpl, err := ai.TemplateFor(ai.TemplateLlama3)
	if err != nil {
		t.Fatalf("TemplateFor() error: %v", err)
	}
	return NewSession(testSystemPrompt, tmpl)
}

func TestNewSession_SeedsSystemTurn(t *testing.T) {
	s := newTestSession(t)

	if s.Len() != 1 {
		t.Fatalf("expected 1 turn, got %d", s.Len())
	}
	if got := s.LastTurn(); got.Role != RoleSystem || got.Content != testSystemPrompt {
		t.Fatalf("unexpected seed turn %+v", got)
	}
	if s.ID() == "" {
		t.Fatal("expected a session id")
	}
	if s.State() != AwaitingInput {
		t.Fatalf("expected AwaitingInput, got %s", s.State())
	}
	if len(s.VisibleTurns()) != 0 {
		t.Fatal("expected no visible turns on a fresh session")
	}
}

func TestNewSession_BlankSystemPromptUsesDefault(t *testing.T) {
	s := NewSession("  ", nil)
	if got := s.Turns()[0].Content; got != config.DefaultSystemPrompt {
		t.Fatalf("expected default system prompt, got %q", got)
	}
	if s.Template().Name() != ai.TemplateLlama3 {
		t.Fatalf("expected llama3 fallback template, got %q", s.Template().Name())
	}
}

func TestAppendUserTurn_RejectsBlank(t *testing.T) {
	s := newTestSession(t)

	for _, in := range []string{"", "   ", "\t\n"} {
		if err := s.AppendUserTurn(in); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("AppendUserTurn(%q) = %v, want ErrEmptyInput", in, err)
		}
	}
	if s.Len() != 1 {
		t.Fatalf("expected transcript unchanged, got %d turns", s.Len())
	}
}

func TestRenderPrompt_RequiresPendingUserTurn(t *testing.T) {
	s := newTestSession(t)

	if _, err := s.RenderPrompt(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on fresh session, got %v", err)
	}

	_ = s.AppendUserTurn("q")
	prompt, _ := s.RenderPrompt()
	if err := s.IngestResponse(prompt+"a", prompt); err != nil {
		t.Fatalf("IngestResponse() error: %v", err)
	}
	if _, err := s.RenderPrompt(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after assistant turn, got %v", err)
	}
}

func TestRenderPrompt_Idempotent(t *testing.T) {
	s := newTestSession(t)
	_ = s.AppendUserTurn("What is hypertension?")

	before := s.Turns()
	first, err := s.RenderPrompt()
	if err != nil {
		t.Fatalf("RenderPrompt() error: %v", err)
	}
	second, _ := s.RenderPrompt()
	if first != second {
		t.Fatal("expected identical renders")
	}
	after := s.Turns()
	if len(before) != len(after) || before[len(before)-1] != after[len(after)-1] {
		t.Fatal("expected render not to mutate the transcript")
	}
}

func TestIngestResponse_TakesSuffix(t *testing.T) {
	s := newTestSession(t)
	_ = s.AppendUserTurn("hello")
	prompt, _ := s.RenderPrompt()

	if err := s.IngestResponse(prompt+"X", prompt); err != nil {
		t.Fatalf("IngestResponse() error: %v", err)
	}
	if got := s.LastTurn(); got.Role != RoleAssistant || got.Content != "X" {
		t.Fatalf("expected assistant turn X, got %+v", got)
	}
}

func TestIngestResponse_Truncation(t *testing.T) {
	s := newTestSession(t)
	_ = s.AppendUserTurn("hello")
	prompt, _ := s.RenderPrompt()

	for _, raw := range []string{prompt, prompt[:len(prompt)-1], ""} {
		if err := s.IngestResponse(raw, prompt); !errors.Is(err, ErrTruncation) {
			t.Errorf("IngestResponse(len=%d) = %v, want ErrTruncation", len(raw), err)
		}
	}
	if s.Len() != 2 {
		t.Fatalf("expected transcript length 2, got %d", s.Len())
	}
	if s.State() != ReadyToGenerate {
		t.Fatalf("expected session to stay ReadyToGenerate, got %s", s.State())
	}
}

// A generator that normalises whitespace in its echo shifts the slice.
func TestIngestResponse_EchoMismatchSlicesByLength(t *testing.T) {
	s := newTestSession(t)
	_ = s.AppendUserTurn("hello")
	prompt, _ := s.RenderPrompt()

	echo := strings.Replace(prompt, "\n\n", "\n", 1)
	raw := echo + "Hi there."
	if err := s.IngestResponse(raw, prompt); err != nil {
		t.Fatalf("IngestResponse() error: %v", err)
	}
	got := s.LastTurn().Content
	if got != "i there." {
		t.Fatalf("expected slice off by one character, got %q", got)
	}

	s2 := newTestSession(t)
	_ = s2.AppendUserTurn("hello")
	prompt2, _ := s2.RenderPrompt()
	shortEcho := strings.Replace(prompt2, "\n\n", "\n", 1)
	if err := s2.IngestResponse(shortEcho+"A", prompt2); !errors.Is(err, ErrTruncation) {
		t.Fatalf("expected one-character reply to be lost as truncation, got %v", err)
	}
}

func TestIngestResponse_EchoMismatchKeepsRuneBoundary(t *testing.T) {
	s := newTestSession(t)
	_ = s.AppendUserTurn("Qu'est-ce que l'hypertension artérielle?")
	prompt, _ := s.RenderPrompt()

	// Same character count as the prompt, one byte shorter.
	echo := strings.Replace(prompt, "é", "e", 1)
	if len(echo) == len(prompt) {
		t.Fatal("expected normalised echo to change the byte length")
	}
	if err := s.IngestResponse(echo+"Élevée pression.", prompt); err != nil {
		t.Fatalf("IngestResponse() error: %v", err)
	}

	got := s.LastTurn().Content
	if !utf8.ValidString(got) {
		t.Fatalf("expected valid UTF-8 reply, got %q", got)
	}
	if got != "Élevée pression." {
		t.Fatalf("expected reply sliced by characters, got %q", got)
	}
}

func TestIngestResponse_TruncationCountsCharacters(t *testing.T) {
	s := newTestSession(t)
	_ = s.AppendUserTurn("fièvre")
	prompt, _ := s.RenderPrompt()

	// More bytes than the prompt but no more characters.
	echo := strings.Replace(prompt, "è", "\u1ebb", 1)
	if err := s.IngestResponse(echo, prompt); !errors.Is(err, ErrTruncation) {
		t.Fatalf("expected ErrTruncation, got %v", err)
	}
	if s.State() != ReadyToGenerate {
		t.Fatalf("expected pending user turn kept, got %v", s.State())
	}
}

func TestIngestResponse_RequiresPendingUserTurn(t *testing.T) {
	s := newTestSession(t)
	if err := s.IngestResponse("prompt plus more", "prompt"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected no turn appended, got %d", s.Len())
	}
}

func TestTranscript_LengthAndAlternation(t *testing.T) {
	s := newTestSession(t)

	for i := 0; i < 4; i++ {
		n := s.Len()
		if err := s.AppendUserTurn("question"); err != nil {
			t.Fatalf("AppendUserTurn() error: %v", err)
		}
		if s.Len() != n+1 {
			t.Fatalf("expected length %d, got %d", n+1, s.Len())
		}
		prompt, err := s.RenderPrompt()
		if err != nil {
			t.Fatalf("RenderPrompt() error: %v", err)
		}
		if err := s.IngestResponse(prompt+"answer", prompt); err != nil {
			t.Fatalf("IngestResponse() error: %v", err)
		}
		if s.Len() != n+2 {
			t.Fatalf("expected length %d, got %d", n+2, s.Len())
		}
	}

	turns := s.Turns()
	if turns[0].Role != RoleSystem {
		t.Fatalf("expected system turn first, got %s", turns[0].Role)
	}
	for i, turn := range turns[1:] {
		want := RoleUser
		if i%2 == 1 {
			want = RoleAssistant
		}
		if turn.Role != want {
			t.Fatalf("turn %d: expected %s, got %s", i+1, want, turn.Role)
		}
	}
}

func TestReset_RestoresSeedAndChangesID(t *testing.T) {
	s := newTestSession(t)
	_ = s.AppendUserTurn("hello")

	seen := map[string]bool{s.ID(): true}
	for i := 0; i < 3; i++ {
		if err := s.Reset(); err != nil {
			t.Fatalf("Reset() error: %v", err)
		}
		if s.Len() != 1 || s.LastTurn().Role != RoleSystem {
			t.Fatalf("expected only the system turn, got %v", s.Turns())
		}
		if seen[s.ID()] {
			t.Fatalf("expected a fresh session id on reset %d", i)
		}
		seen[s.ID()] = true
	}
}

func TestClose_IsTerminal(t *testing.T) {
	s := newTestSession(t)
	s.Close()
	s.Close()

	if s.State() != Closed {
		t.Fatalf("expected Closed, got %s", s.State())
	}
	if err := s.AppendUserTurn("hi"); !errors.Is(err, ErrClosed) {
		t.Errorf("AppendUserTurn() = %v, want ErrClosed", err)
	}
	if _, err := s.RenderPrompt(); !errors.Is(err, ErrClosed) {
		t.Errorf("RenderPrompt() = %v, want ErrClosed", err)
	}
	if err := s.Reset(); !errors.Is(err, ErrClosed) {
		t.Errorf("Reset() = %v, want ErrClosed", err)
	}
}

func TestTurns_ReturnsCopy(t *testing.T) {
	s := newTestSession(t)
	turns := s.Turns()
	turns[0].Content = "mutated"
	if s.Turns()[0].Content != testSystemPrompt {
		t.Fatal("expected Turns to return a copy")
	}
}

func TestHypertensionScenario(t *testing.T) {
	s := newTestSession(t)

	if err := s.AppendUserTurn("What is hypertension?"); err != nil {
		t.Fatalf("AppendUserTurn() error: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected length 2, got %d", s.Len())
	}

	prompt, err := s.RenderPrompt()
	if err != nil {
		t.Fatalf("RenderPrompt() error: %v", err)
	}
	if !strings.Contains(prompt, "What is hypertension?") {
		t.Fatalf("expected prompt to contain the question, got %q", prompt)
	}

	answer := "Hypertension is elevated blood pressure."
	if err := s.IngestResponse(prompt+answer, prompt); err != nil {
		t.Fatalf("IngestResponse() error: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected length 3, got %d", s.Len())
	}
	if got := s.LastTurn(); got != (Turn{Role: RoleAssistant, Content: answer}) {
		t.Fatalf("unexpected last turn %+v", got)
	}
}


func TestCreatedAt_RenewedOnReset(t *testing.T) {
	before := time.Now()
	s := newTestSession(t)
	created := s.CreatedAt()
	if created.Before(before) || created.After(time.Now()) {
		t.Fatalf("CreatedAt() = %v, want time of construction", created)
	}

	_ = s.AppendUserTurn("hello")
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if s.CreatedAt().Before(created) {
		t.Fatalf("expected CreatedAt to move forward on reset, got %v < %v", s.CreatedAt(), created)
	}
}
