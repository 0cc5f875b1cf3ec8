// Package cli is the interactive terminal driver: one question per line,
// answered through a conversation session.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"biochat/pkg/ai"
	"biochat/pkg/conversation"
	"biochat/pkg/ui/styles"

	"charm.land/bubbles/v2/spinner"
	"charm.land/lipgloss/v2"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

const (
	InputPrompt    = "Enter your medical question (or 'exit' to quit): "
	SpeakerLabel   = "Chatbot:"
	GoodbyeMessage = "Exiting chatbot. Goodbye!"

	copyCommand = "/copy"
)

// IsExitSentinel reports whether a line asks the loop to end.
func IsExitSentinel(line string) bool {
	line = strings.TrimSpace(line)
	return strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit")
}

// Options configures a Loop.
type Options struct {
	In  io.Reader
	Out io.Writer
	// Clipboard receives OSC52 sequences for /copy. Defaults to Out.
	Clipboard io.Writer
	Params    ai.GenerationParams
	Model     string
	// Color enables lipgloss styling; Progress enables the spinner. Both
	// are meant for terminals only.
	Color    bool
	Progress bool
}

// Loop drives one session from a line-oriented reader.
type Loop struct {
	session   *conversation.Session
	gen       ai.Generator
	in        *bufio.Reader
	out       io.Writer
	clipboard io.Writer
	params    ai.GenerationParams
	model     string
	color     bool
	progress  bool
}

// New creates a loop over session. Zero params fall back to ai.DefaultParams.
func New(session *conversation.Session, gen ai.Generator, opts Options) *Loop {
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	clip := opts.Clipboard
	if clip == nil {
		clip = out
	}
	params := opts.Params
	if params.MaxNewTokens == 0 {
		params = ai.DefaultParams()
	}

	return &Loop{
		session:   session,
		gen:       gen,
		in:        bufio.NewReader(in),
		out:       out,
		clipboard: clip,
		params:    params,
		model:     opts.Model,
		color:     opts.Color,
		progress:  opts.Progress,
	}
}

func (l *Loop) paint(style lipgloss.Style, s string) string {
	if !l.color {
		return s
	}
	return style.Render(s)
}

// Run prints the banner and answers questions until an exit sentinel or end
// of input. Both end the loop with a nil error and close the session.
func (l *Loop) Run(ctx context.Context) error {
	defer l.session.Close()

	fmt.Fprint(l.out, Banner(l.model, l.color))
	slog.Info("cli_loop_start", "session_id", l.session.ID(), "model", l.model)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(l.out, l.paint(styles.PromptStyle, InputPrompt))
		line, readErr := l.in.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read input: %w", readErr)
		}
		eof := errors.Is(readErr, io.EOF)
		if eof && line == "" {
			fmt.Fprintln(l.out)
			l.goodbye("eof")
			return nil
		}

		line = strings.TrimRight(line, "\r\n")
		if IsExitSentinel(line) {
			l.goodbye("sentinel")
			return nil
		}

		if strings.TrimSpace(line) == copyCommand {
			l.copyLastAnswer()
		} else {
			l.ask(ctx, line)
		}

		if eof {
			l.goodbye("eof")
			return nil
		}
	}
}

func (l *Loop) goodbye(reason string) {
	fmt.Fprintln(l.out, l.paint(styles.FooterStyle, GoodbyeMessage))
	slog.Info("cli_loop_exit",
		"session_id", l.session.ID(),
		"reason", reason,
		"turns", l.session.Len(),
		"duration_ms", time.Since(l.session.CreatedAt()).Milliseconds(),
	)
}

// ask runs one turn cycle. Every failure is printed and the loop goes on.
func (l *Loop) ask(ctx context.Context, question string) {
	if err := l.session.AppendUserTurn(question); err != nil {
		if errors.Is(err, conversation.ErrEmptyInput) {
			return
		}
		l.printError(err)
		return
	}

	var p *progress
	if l.progress {
		p = startProgress(l.out, spinner.MiniDot, "Thinking...", l.color)
	}
	turn, err := l.session.Exchange(ctx, l.gen, l.params)
	if p != nil {
		p.stop()
	}
	if err != nil {
		l.printError(err)
		return
	}

	fmt.Fprintf(l.out, "%s %s\n", l.paint(styles.SpeakerStyle, SpeakerLabel), strings.TrimSpace(turn.Content))
}

func (l *Loop) printError(err error) {
	var genErr *conversation.GenerationError
	switch {
	case errors.Is(err, conversation.ErrTruncation):
		fmt.Fprintln(l.out, l.paint(styles.WarningStyle, SpeakerLabel+" ("+err.Error()+")"))
	case errors.As(err, &genErr):
		fmt.Fprintln(l.out, l.paint(styles.ErrorStyle, "Error: "+genErr.Error()))
	default:
		slog.Error("cli_turn_error", "session_id", l.session.ID(), "error", err)
		fmt.Fprintln(l.out, l.paint(styles.ErrorStyle, "Error: "+err.Error()))
	}
}

func (l *Loop) copyLastAnswer() {
	last := l.session.LastTurn()
	if last.Role != conversation.RoleAssistant {
		fmt.Fprintln(l.out, l.paint(styles.TextMutedStyle, "Nothing to copy yet."))
		return
	}

	seq := osc52.New(strings.TrimSpace(last.Content))
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	}
	if _, err := seq.WriteTo(l.clipboard); err != nil {
		l.printError(fmt.Errorf("copy to clipboard: %w", err))
		return
	}
	fmt.Fprintln(l.out, l.paint(styles.TextMutedStyle, "Copied last answer to clipboard."))
}
