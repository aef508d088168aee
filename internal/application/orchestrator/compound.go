package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/doeshing/shai-agent/internal/domain"
)

// runCompound plans every step before anything is shown. Any step that fails
// search, proposal, validation or safety aborts the whole action unreviewed.
func (s *Service) runCompound(ctx context.Context, t *turn, project domain.ProjectContext, intent domain.Intent) {
	t.enter(domain.StateCompoundPending)

	var (
		commands []pendingCommand
		plans    []stepPlan
		earlier  []domain.Proposal
	)
	cwd := project
	for idx, step := range intent.Steps {
		n := idx + 1
		if step.IsShell() {
			pending, err := s.pendingShell(cwd, step.Command)
			if err != nil {
				t.fail(stepError(n, err))
				return
			}
			if pending.dir != nil {
				cwd = *pending.dir
			}
			commands = append(commands, pending)
			continue
		}

		plan, err := s.plan(ctx, project, step.AsIntent(), earlier)
		if err != nil {
			t.fail(stepError(n, err))
			return
		}
		plan.step = n
		if err := s.validate(ctx, project, &plan); err != nil {
			t.fail(stepError(n, err))
			return
		}
		earlier = append(earlier, plan.proposals...)
		plans = append(plans, plan)
	}

	s.Logger.Debug("compound action planned", map[string]interface{}{
		"steps":     len(intent.Steps),
		"commands":  len(commands),
		"proposals": len(earlier),
	})
	s.review(ctx, t, project, compoundTitle(intent), commands, plans)
}

// pendingShell checks a shell step against the policy, resolving cd targets
// relative to the directory earlier steps moved to.
func (s *Service) pendingShell(cwd domain.ProjectContext, command string) (pendingCommand, error) {
	if target, ok := parseCd(command); ok {
		next, err := cwd.ChangeDir(target, s.homeDir())
		if err != nil {
			return pendingCommand{}, err
		}
		return pendingCommand{command: command, dir: &next}, nil
	}
	if err := s.checkCommand(command); err != nil {
		return pendingCommand{}, err
	}
	return pendingCommand{command: command}, nil
}

func stepError(step int, err error) error {
	if step == 0 {
		return err
	}
	return fmt.Errorf("%w: step %d: %w", domain.ErrStepFailed, step, err)
}

func compoundTitle(intent domain.Intent) string {
	if intent.Description != "" {
		return intent.Description
	}
	parts := make([]string, 0, len(intent.Steps))
	for _, step := range intent.Steps {
		if step.IsShell() {
			parts = append(parts, step.Command)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", step.Action, step.Target))
	}
	return strings.Join(parts, ", then ")
}
