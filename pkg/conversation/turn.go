package conversation

import (
	"fmt"

	"biochat/pkg/ai"
)

// Role tags a turn with its speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the transcript. It is a value type; the session
// never hands out references into its own storage.
type Turn struct {
	Role    Role
	Content string
}

func (t Turn) message() ai.Message {
	return ai.Message{Role: string(t.Role), Content: t.Content}
}

// State is the position of a session in its turn cycle.
type State int

const (
	AwaitingInput State = iota
	ReadyToGenerate
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case ReadyToGenerate:
		return "ready_to_generate"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
