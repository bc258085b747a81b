// Package chat implements the interactive turn loop: read a line, complete
// it against the whole session history, show the reply and remember the
// turn in vector memory.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/papercomputeco/emunet/pkg/cliui"
	"github.com/papercomputeco/emunet/pkg/llm"
	"github.com/papercomputeco/emunet/pkg/memory"
	"github.com/papercomputeco/emunet/pkg/session"
)

const (
	// ReplyPrefix precedes every reply shown to the user.
	ReplyPrefix = "AI: "

	// NoContentNotice is shown when the completion service returned nothing.
	NoContentNotice = "No response found, try again."

	// NotRememberedNotice is shown when a reply could not be stored.
	NotRememberedNotice = "reply not remembered"

	// ExitCommand ends the loop when entered as input.
	ExitCommand = "/exit"

	inputPrompt    = "you> "
	continuePrompt = "Continue? [Y/n] "
)

// Config holds the collaborators of a Loop.
type Config struct {
	Session   *session.Session
	Completer llm.Completer

	// Recorder stores each turn. Nil disables memory.
	Recorder memory.Recorder

	// Reader supplies user input for Run.
	Reader LineReader

	// Out receives replies and notices. Defaults to io.Discard.
	Out io.Writer

	// Render, when set, formats replies before they are printed.
	Render func(string) (string, error)

	Logger *slog.Logger
}

// Loop is the turn loop state machine. It owns its session.
type Loop struct {
	session   *session.Session
	completer llm.Completer
	recorder  memory.Recorder
	reader    LineReader
	out       io.Writer
	render    func(string) (string, error)
	logger    *slog.Logger

	state State
}

// NewLoop creates a Loop in StateAwaitingInput.
func NewLoop(c Config) (*Loop, error) {
	if c.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if c.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}

	out := c.Out
	if out == nil {
		out = io.Discard
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Loop{
		session:   c.Session,
		completer: c.Completer,
		recorder:  c.Recorder,
		reader:    c.Reader,
		out:       out,
		render:    c.Render,
		logger:    logger,
		state:     StateAwaitingInput,
	}, nil
}

// State returns the loop's current state.
func (l *Loop) State() State {
	return l.state
}

// Session returns the session the loop owns.
func (l *Loop) Session() *session.Session {
	return l.session
}

// Turn runs one full turn for input and returns to StateAwaitingInput.
// Input is taken literally, including empty text.
func (l *Loop) Turn(ctx context.Context, input string) TurnResult {
	l.session.Append(llm.NewUserMessage(input))
	l.state = StateCompletionPending

	reply, err := l.completer.Complete(ctx, l.session.Messages())
	if err != nil {
		l.state = StateAwaitingInput

		if errors.Is(err, llm.ErrNoContent) {
			l.logger.Debug("completion returned no content", "error", err)
			return l.result(OutcomeNoContent, "", err)
		}

		l.logger.Warn("completion failed, turn abandoned", "error", err)
		return l.result(OutcomeCompletionFailed, "", err)
	}

	l.session.Append(llm.NewAssistantMessage(reply))

	if l.recorder == nil {
		l.state = StateAwaitingInput
		return l.result(OutcomeReplied, reply, nil)
	}

	l.state = StateMemoryWritePending

	next, err := l.recorder.RecordTurn(ctx, input, reply, l.session.NextID())
	if err == nil {
		err = l.session.Advance(next)
	}
	l.state = StateAwaitingInput

	if err != nil {
		l.logger.Warn("turn not remembered",
			"next_id", l.session.NextID(),
			"error", err,
		)
		return l.result(OutcomeWriteFailed, reply, err)
	}

	l.logger.Debug("turn remembered", "next_id", l.session.NextID())
	return l.result(OutcomeRemembered, reply, nil)
}

func (l *Loop) result(o Outcome, reply string, err error) TurnResult {
	return TurnResult{
		Outcome: o,
		Reply:   reply,
		Err:     err,
		NextID:  l.session.NextID(),
	}
}

// Run reads and answers lines until the user stops, input ends or ctx is
// cancelled. A graceful stop returns nil.
func (l *Loop) Run(ctx context.Context) error {
	if l.reader == nil {
		return fmt.Errorf("line reader is required")
	}
	defer func() { l.state = StateEnded }()

	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := l.reader.ReadLine(inputPrompt)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if strings.TrimSpace(input) == ExitCommand {
			return nil
		}

		l.show(l.Turn(ctx, input))

		proceed, err := l.askContinue()
		if err != nil {
			return err
		}
		if !proceed {
			return nil
		}
	}
}

// show prints a turn's reply and any notice for it.
func (l *Loop) show(res TurnResult) {
	if !res.Outcome.HasReply() {
		if res.Outcome == OutcomeNoContent {
			fmt.Fprintf(l.out, "%s%s\n", ReplyPrefix, NoContentNotice)
		} else {
			fmt.Fprintf(l.out, "  %s %s\n", cliui.FailMark, cliui.DimStyle.Render(fmt.Sprintf("completion failed: %v", res.Err)))
		}
		return
	}

	fmt.Fprintf(l.out, "%s%s\n", ReplyPrefix, l.format(res.Reply))

	if res.Outcome == OutcomeWriteFailed {
		fmt.Fprintf(l.out, "  %s %s\n", cliui.WarnMark, cliui.DimStyle.Render(fmt.Sprintf("%s: %v", NotRememberedNotice, res.Err)))
	}
}

func (l *Loop) format(reply string) string {
	if l.render == nil {
		return reply
	}

	rendered, err := l.render(reply)
	if err != nil {
		l.logger.Debug("rendering reply failed", "error", err)
		return reply
	}
	return "\n" + strings.TrimRight(rendered, "\n")
}

// askContinue reads the continue prompt. Anything but "n" or "no" continues.
func (l *Loop) askContinue() (bool, error) {
	answer, err := l.reader.ReadLine(continuePrompt)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "n", "no":
		return false, nil
	default:
		return true, nil
	}
}
