package orchestrator

import (
	"context"
	"fmt"

	"github.com/doeshing/shai-agent/internal/application/proposal"
	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/ports"
)

// stepPlan is the validated output of search → propose for one code step.
type stepPlan struct {
	step      int
	request   ports.ProposalRequest
	proposals []domain.Proposal
	results   []domain.ValidationResult
}

// pendingCommand is a shell step awaiting acceptance. A non-nil dir marks a
// resolved cd that moves later commands instead of spawning a process.
type pendingCommand struct {
	command string
	dir     *domain.ProjectContext
}

// runEdit handles a single add_code or modify_code intent.
func (s *Service) runEdit(ctx context.Context, t *turn, project domain.ProjectContext, intent domain.Intent) {
	t.enter(domain.StateEditPending)

	plan, err := s.plan(ctx, project, intent, nil)
	if err != nil {
		t.fail(err)
		return
	}
	if err := s.validate(ctx, project, &plan); err != nil {
		t.outcome.Proposals, t.outcome.Validation = plan.proposals, plan.results
		t.fail(err)
		return
	}

	s.review(ctx, t, project, reviewTitle(intent), nil, []stepPlan{plan})
}

// plan searches for the best location and asks for proposals. Proposals
// identical to one in earlier are dropped.
func (s *Service) plan(ctx context.Context, project domain.ProjectContext, intent domain.Intent, earlier []domain.Proposal) (stepPlan, error) {
	matches, err := s.Searcher.Search(ctx, project, intent.Target, ports.SearchQuery{
		Action:      intent.Action,
		Target:      intent.Target,
		Description: intent.Description,
	})
	if err != nil {
		return stepPlan{}, fmt.Errorf("search %q: %w", intent.Target, err)
	}
	if len(matches) == 0 {
		return stepPlan{}, fmt.Errorf("%w for %q", domain.ErrNoSearchMatch, intent.Target)
	}

	match := matches[0]
	var content string
	if !match.NewFile {
		if content, err = s.Editor.Read(project, match.File); err != nil {
			return stepPlan{}, fmt.Errorf("read %s: %w", match.File, err)
		}
	}
	s.Logger.Debug("search match selected", map[string]interface{}{
		"file":     match.File,
		"line":     match.LineNumber,
		"score":    match.RelevanceScore,
		"new_file": match.NewFile,
	})

	req := ports.ProposalRequest{Intent: intent, Match: match, Project: project, FileContent: content}
	proposals, err := s.Reasoner.Propose(ctx, req)
	if err != nil {
		return stepPlan{}, fmt.Errorf("propose changes: %w", err)
	}
	proposals = dedupeAfter(project.Root, earlier, proposals)
	if len(proposals) == 0 && len(earlier) == 0 {
		return stepPlan{}, domain.ErrNoProposals
	}
	return stepPlan{request: req, proposals: proposals}, nil
}

// validate fills plan.results and fails on the first invalid proposal.
func (s *Service) validate(ctx context.Context, project domain.ProjectContext, plan *stepPlan) error {
	plan.results = s.Validator.Validate(ctx, project, plan.proposals)
	if proposal.AllValid(plan.results) {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrValidationFailed, proposal.FirstError(plan.proposals, plan.results))
}

// review presents everything pending and acts on the decision. Feedback
// triggers one revision that needs a second explicit accept.
func (s *Service) review(ctx context.Context, t *turn, project domain.ProjectContext, title string, commands []pendingCommand, plans []stepPlan) {
	proposals, results := flatten(plans)
	t.outcome.Proposals, t.outcome.Validation = proposals, results

	decision, err := s.Reviewer.Review(ctx, s.buildReview(project, title, commands, proposals, results, false))
	if err != nil {
		t.fail(fmt.Errorf("review: %w", err))
		return
	}
	t.enter(domain.StateReviewed)

	switch decision.Kind {
	case domain.DecisionAccept:
	case domain.DecisionFeedback:
		t.enter(domain.StateRevised)
		revised, err := s.revise(ctx, project, plans, decision.Feedback)
		if err != nil {
			t.fail(err)
			return
		}
		proposals, results = flatten(revised)
		t.outcome.Proposals, t.outcome.Validation = proposals, results

		approved, err := s.Reviewer.ConfirmRevision(ctx, s.buildReview(project, title, commands, proposals, results, true))
		if err != nil {
			t.fail(fmt.Errorf("confirm revision: %w", err))
			return
		}
		if !approved {
			t.enter(domain.StateRejected)
			return
		}
	default:
		t.enter(domain.StateRejected)
		return
	}

	s.execute(ctx, t, project, commands, proposals)
}

// revise asks for new proposals per original step and match, then validates them.
func (s *Service) revise(ctx context.Context, project domain.ProjectContext, plans []stepPlan, feedback string) ([]stepPlan, error) {
	revised := make([]stepPlan, 0, len(plans))
	var earlier []domain.Proposal
	for _, plan := range plans {
		proposals, err := s.Reasoner.Revise(ctx, ports.RevisionRequest{
			ProposalRequest: plan.request,
			Feedback:        feedback,
			Previous:        plan.proposals,
		})
		if err != nil {
			return nil, fmt.Errorf("revise changes: %w", err)
		}
		next := stepPlan{step: plan.step, request: plan.request, proposals: dedupeAfter(project.Root, earlier, proposals)}
		if err := s.validate(ctx, project, &next); err != nil {
			return nil, stepError(next.step, err)
		}
		earlier = append(earlier, next.proposals...)
		revised = append(revised, next)
	}
	return revised, nil
}

// execute runs accepted commands in order, then writes every edit. A failing
// command stops the rest and skips the edits; nothing already done is undone.
func (s *Service) execute(ctx context.Context, t *turn, project domain.ProjectContext, commands []pendingCommand, proposals []domain.Proposal) {
	cwd := project
	for _, pending := range commands {
		if pending.dir != nil {
			s.Searcher.Invalidate(cwd.Root)
			cwd = *pending.dir
			t.outcome.Project = cwd
			t.outcome.Commands = append(t.outcome.Commands, domain.ShellResult{Command: pending.command, Stdout: cwd.Root + "\n"})
			continue
		}
		result := s.Executor.Execute(ctx, pending.command, s.execOptions(cwd))
		t.outcome.Commands = append(t.outcome.Commands, result)
		if !result.Succeeded() {
			t.fail(commandError(result))
			return
		}
	}

	applied, err := s.Editor.ApplyMany(project, proposals)
	t.outcome.Applied = applied
	if err != nil {
		t.fail(fmt.Errorf("apply edits (%d of %d written): %w", len(applied), len(proposals), err))
		return
	}
	if len(applied) > 0 {
		s.Searcher.Invalidate(project.Root)
	}
	t.enter(domain.StateApplied)
}

func (s *Service) buildReview(project domain.ProjectContext, title string, commands []pendingCommand, proposals []domain.Proposal, results []domain.ValidationResult, revision bool) domain.Review {
	review := domain.Review{Title: title, Revision: revision}
	for _, pending := range commands {
		review.Commands = append(review.Commands, pending.command)
	}
	for idx, p := range proposals {
		item := domain.ReviewItem{Proposal: p}
		if idx < len(results) {
			item.Validation = results[idx]
		}
		if s.Diff != nil {
			if before, after, err := s.Editor.Preview(project, p); err == nil {
				item.Diff = s.Diff.Render(p.File, before, after)
			}
		}
		review.Items = append(review.Items, item)
	}
	return review
}

func flatten(plans []stepPlan) ([]domain.Proposal, []domain.ValidationResult) {
	var proposals []domain.Proposal
	var results []domain.ValidationResult
	for _, plan := range plans {
		proposals = append(proposals, plan.proposals...)
		results = append(results, plan.results...)
	}
	return proposals, results
}

// dedupeAfter dedupes next and drops entries already present in earlier.
func dedupeAfter(root string, earlier, next []domain.Proposal) []domain.Proposal {
	combined := make([]domain.Proposal, 0, len(earlier)+len(next))
	combined = append(combined, earlier...)
	combined = append(combined, next...)
	return proposal.Dedupe(root, combined)[len(earlier):]
}

func reviewTitle(intent domain.Intent) string {
	if intent.Description != "" {
		return intent.Description
	}
	return fmt.Sprintf("%s %s", intent.Action, intent.Target)
}
