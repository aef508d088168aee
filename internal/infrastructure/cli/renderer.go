package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/doeshing/shai-agent/internal/domain"
)

// styles are bound to the writer they render for, so plain buffers get no
// escape sequences.
type styles struct {
	title   lipgloss.Style
	command lipgloss.Style
	added   lipgloss.Style
	removed lipgloss.Style
	hunk    lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true),
		command: r.NewStyle().Foreground(lipgloss.Color("14")),
		added:   r.NewStyle().Foreground(lipgloss.Color("10")),
		removed: r.NewStyle().Foreground(lipgloss.Color("9")),
		hunk:    r.NewStyle().Foreground(lipgloss.Color("13")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("10")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("11")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		muted:   r.NewStyle().Faint(true),
	}
}

// renderReview prints the consolidated preview: commands first, then one
// block per proposal with its validation and diff.
func renderReview(w io.Writer, st styles, review domain.Review) {
	title := review.Title
	if review.Revision {
		title += " (revised)"
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.title.Render(title))

	if len(review.Commands) > 0 {
		fmt.Fprintln(w, "Commands:")
		for _, command := range review.Commands {
			fmt.Fprintf(w, "  $ %s\n", st.command.Render(command))
		}
	}

	for i, item := range review.Items {
		fmt.Fprintf(w, "\n[%d] %s line %s\n", i+1, item.Proposal.File, item.Proposal.LineLabel())
		if item.Proposal.Explanation != "" {
			fmt.Fprintf(w, "    %s\n", st.muted.Render(item.Proposal.Explanation))
		}
		for _, msg := range item.Validation.Errors {
			fmt.Fprintf(w, "    %s\n", st.fail.Render("error: "+msg))
		}
		for _, msg := range item.Validation.Warnings {
			fmt.Fprintf(w, "    %s\n", st.warn.Render("warning: "+msg))
		}
		renderDiff(w, st, item.Diff)
	}
	fmt.Fprintln(w)
}

func renderDiff(w io.Writer, st styles, diff string) {
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case line == "":
			fmt.Fprintln(w)
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprintln(w, st.title.Render(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Fprintln(w, st.hunk.Render(line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprintln(w, st.added.Render(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprintln(w, st.removed.Render(line))
		default:
			fmt.Fprintln(w, line)
		}
	}
}

// renderOutcome summarizes a finished turn. Errors are left to the caller.
// streamed suppresses command output that was already shown live.
func renderOutcome(w io.Writer, st styles, outcome domain.TurnOutcome, streamed bool) {
	switch outcome.State {
	case domain.StateQuestionAnswered:
		fmt.Fprintln(w, strings.TrimSpace(outcome.Answer))
		return
	case domain.StateRejected:
		fmt.Fprintln(w, st.muted.Render("No changes applied."))
		return
	}

	for _, result := range outcome.Commands {
		fmt.Fprintf(w, "$ %s\n", st.command.Render(result.Command))
		if !streamed {
			if out := strings.TrimRight(result.Stdout, "\n"); out != "" {
				fmt.Fprintln(w, out)
			}
			if errOut := strings.TrimRight(result.Stderr, "\n"); errOut != "" {
				fmt.Fprintln(w, st.warn.Render(errOut))
			}
		}
		switch {
		case result.TimedOut:
			fmt.Fprintln(w, st.fail.Render(fmt.Sprintf("timed out after %s", result.Duration.Round(time.Millisecond))))
		case result.ExitCode != 0:
			fmt.Fprintln(w, st.fail.Render(fmt.Sprintf("exit status %d", result.ExitCode)))
		}
		if result.Truncated {
			fmt.Fprintln(w, st.muted.Render("output truncated"))
		}
	}

	for _, p := range outcome.Applied {
		fmt.Fprintln(w, st.ok.Render("✓ "+p.File))
	}
	if outcome.State == domain.StateApplied && len(outcome.Applied) > 1 {
		fmt.Fprintln(w, st.muted.Render(fmt.Sprintf("%d edits applied", len(outcome.Applied))))
	}
}

// renderError prints a turn error without aborting an interactive session.
func renderError(w io.Writer, st styles, err error) {
	fmt.Fprintln(w, st.fail.Render("error: "+err.Error()))
}
