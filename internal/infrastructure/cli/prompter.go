package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/ports"
)

// Console implements ports.Reviewer on a terminal. A single reader backs
// both the chat loop and every confirmation gate.
type Console struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	styles styles
}

// NewConsole constructs a console referencing stdio when arguments are nil.
func NewConsole(in io.Reader, out, errOut io.Writer) *Console {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Console{
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		styles: newStyles(out),
	}
}

// ReadLine prints prompt and returns the trimmed input. io.EOF is returned
// only when no input remains.
func (c *Console) ReadLine(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Review shows the consolidated preview. Empty input, "n" or end of input
// reject; "y" accepts; anything else is feedback for a revision.
func (c *Console) Review(_ context.Context, review domain.Review) (domain.ReviewDecision, error) {
	renderReview(c.out, c.styles, review)
	answer, err := c.ReadLine("Apply? [y/N, or describe what to change]: ")
	if errors.Is(err, io.EOF) {
		return domain.ReviewDecision{Kind: domain.DecisionReject}, nil
	}
	if err != nil {
		return domain.ReviewDecision{Kind: domain.DecisionReject}, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return domain.ReviewDecision{Kind: domain.DecisionAccept}, nil
	case "", "n", "no":
		return domain.ReviewDecision{Kind: domain.DecisionReject}, nil
	default:
		return domain.ReviewDecision{Kind: domain.DecisionFeedback, Feedback: answer}, nil
	}
}

// ConfirmRevision shows revised proposals and asks for a second explicit accept.
func (c *Console) ConfirmRevision(_ context.Context, review domain.Review) (bool, error) {
	renderReview(c.out, c.styles, review)
	return c.confirm("Apply revised changes?")
}

// ConfirmCommand previews a single command.
func (c *Console) ConfirmCommand(_ context.Context, command string) (bool, error) {
	fmt.Fprintf(c.out, "\nCommand:\n  %s\n", c.styles.command.Render(command))
	return c.confirm("Run it?")
}

// confirm defaults to no: only "y" or "yes" accept, and end of input declines.
func (c *Console) confirm(question string) (bool, error) {
	answer, err := c.ReadLine(question + " [y/N]: ")
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Output returns the writers that receive streamed command output.
func (c *Console) Output() (io.Writer, io.Writer) {
	return c.out, NewStreamWriter(c.errOut, c.styles.warn)
}

// Render summarizes a finished turn.
func (c *Console) Render(outcome domain.TurnOutcome, streamed bool) {
	renderOutcome(c.out, c.styles, outcome, streamed)
}

// RenderError prints err without ending the session.
func (c *Console) RenderError(err error) {
	renderError(c.errOut, c.styles, err)
}

var _ ports.Reviewer = (*Console)(nil)
