package orchestrator

import (
	"context"
	"fmt"

	"github.com/doeshing/shai-agent/internal/domain"
)

// runShell classifies, confirms and executes a single command.
func (s *Service) runShell(ctx context.Context, t *turn, project domain.ProjectContext, command string) {
	t.enter(domain.StateShellPending)

	if err := s.checkCommand(command); err != nil {
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

	result := s.Executor.Execute(ctx, command, s.execOptions(project))
	t.outcome.Commands = append(t.outcome.Commands, result)
	s.Logger.Info("command finished", map[string]interface{}{
		"command":   command,
		"exit_code": result.ExitCode,
		"duration":  result.Duration.String(),
	})
	if !result.Succeeded() {
		t.fail(commandError(result))
		return
	}
	t.enter(domain.StateApplied)
}

// checkCommand rejects commands the safety policy does not allow.
func (s *Service) checkCommand(command string) error {
	verdict := s.Safety.IsSafe(command)
	if verdict.Safe {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrUnsafeCommand, verdict.Reason)
}
