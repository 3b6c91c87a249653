package orderdesk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// EndCommand ends the session from the chat loop.
const EndCommand = "/end"

// Conversation is what the Runner drives.
type Conversation interface {
	HandleTurn(ctx context.Context, userID, message string) (domain.TurnResult, error)
	Resume(ctx context.Context, userID string) (domain.TurnResult, error)
	EndSession(ctx context.Context, userID string) (domain.EndSummary, error)
}

// Runner runs an interactive chat over line-based IO.
// Options are listed with numbers and can be picked by number or by label.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	UserID   string
	Renderer ContentRenderer
}

// ContentRenderer transforms a reply before it is printed, e.g. markdown to ANSI.
type ContentRenderer func(string) (string, error)

// Run loops until EOF, "exit" or EndCommand. An existing session for UserID
// is picked up where it stopped; otherwise one is opened with an empty first message.
func (r *Runner) Run(ctx context.Context, conv Conversation) error {
	if r.Input == nil {
		return errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return errors.New("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewReader(r.Input)

	res, err := conv.Resume(ctx, r.UserID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		res, err = conv.HandleTurn(ctx, r.UserID, "")
	}
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	for {
		r.show(res)

		fmt.Fprint(r.Output, "> ")
		text, err := lines.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || text == "") {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		msg := strings.TrimSpace(text)

		switch msg {
		case "exit", "quit":
			fmt.Fprintln(r.Output, "Bye!")
			return nil
		case EndCommand:
			summary, err := conv.EndSession(ctx, r.UserID)
			if err != nil {
				return fmt.Errorf("failed to end session: %w", err)
			}
			fmt.Fprintln(r.Output, strings.TrimSpace(summary.Message()))
			return nil
		}
		msg = pickOption(msg, res.Options)

		next, err := conv.HandleTurn(ctx, r.UserID, msg)
		if errors.Is(err, domain.ErrModelCall) {
			// Session is unchanged; show the last reply again so the user can retry.
			fmt.Fprintln(r.Output, "The assistant is unavailable right now. Please send your message again.")
			continue
		}
		if err != nil {
			return fmt.Errorf("turn failed: %w", err)
		}
		res = next
	}
}

func (r *Runner) show(res domain.TurnResult) {
	out := res.Reply
	if r.Renderer != nil {
		if rendered, err := r.Renderer(out); err == nil {
			out = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(out))
	for i, opt := range res.Options {
		fmt.Fprintf(r.Output, "  [%d] %s\n", i+1, opt)
	}
	if res.TasksCompleted {
		fmt.Fprintf(r.Output, "All tasks completed. Type %s to finish.\n", EndCommand)
	}
}

// pickOption maps a 1-based option number to its label.
func pickOption(msg string, options []string) string {
	n, err := strconv.Atoi(msg)
	if err != nil || n < 1 || n > len(options) {
		return msg
	}
	return options[n-1]
}
