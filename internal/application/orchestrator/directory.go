package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/doeshing/shai-agent/internal/domain"
)

// parseCd recognizes a bare "cd [dir]" command and returns its target.
func parseCd(command string) (string, bool) {
	if strings.ContainsAny(command, ";&|<>`$(") {
		return "", false
	}
	fields := strings.Fields(command)
	if len(fields) == 0 || fields[0] != "cd" || len(fields) > 2 {
		return "", false
	}
	if len(fields) == 1 {
		return "", true
	}
	return strings.Trim(fields[1], `"'`), true
}

// changeDir moves the project context instead of spawning a subprocess.
// Unresolvable targets fail without changing anything.
func (s *Service) changeDir(ctx context.Context, t *turn, project domain.ProjectContext, command, target string) {
	t.enter(domain.StateShellPending)

	next, err := project.ChangeDir(target, s.homeDir())
	if err != nil {
		t.fail(err)
		return
	}

	approved, err := s.Reviewer.ConfirmCommand(ctx, command)
	if err != nil {
		t.fail(fmt.Errorf("confirm command: %w", err))
		return
	}
	t.enter(domain.StateReviewed)
	if !approved {
		t.enter(domain.StateRejected)
		return
	}

	s.Searcher.Invalidate(project.Root)
	t.outcome.Project = next
	t.outcome.Commands = append(t.outcome.Commands, domain.ShellResult{Command: command, Stdout: next.Root + "\n"})
	s.Logger.Info("working directory changed", map[string]interface{}{"from": project.Root, "to": next.Root})
	t.enter(domain.StateApplied)
}
