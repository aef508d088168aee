// Package orchestrator drives one user turn from intent to applied change.
//
// A turn moves Idle → IntentResolved → one of QuestionAnswered, ShellPending,
// CompoundPending or EditPending → Reviewed → Applied, Revised, Rejected or
// Errored, and back to Idle. Nothing touches disk or runs before the user
// accepts the consolidated review.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/pkg/filesystem"
	"github.com/doeshing/shai-agent/internal/ports"
)

// Options tunes command execution and classification context.
type Options struct {
	CommandTimeout time.Duration
	GracePeriod    time.Duration
	Interactive    bool
	RecentTurns    int
	HomeDir        string
}

// Service orchestrates the turn lifecycle end-to-end. History is optional.
type Service struct {
	Reasoner  ports.Reasoner
	Searcher  ports.Searcher
	Validator ports.ProposalValidator
	Safety    ports.SafetyClassifier
	Executor  ports.CommandExecutor
	Editor    ports.EditApplier
	Diff      ports.DiffRenderer
	Reviewer  ports.Reviewer
	History   ports.HistoryRepository
	Logger    ports.Logger
	Options   Options

	mu sync.Mutex
}

// turn accumulates the outcome of one HandleTurn call.
type turn struct {
	prompt  string
	outcome domain.TurnOutcome
}

func newTurn(project domain.ProjectContext, prompt string) *turn {
	return &turn{
		prompt: prompt,
		outcome: domain.TurnOutcome{
			State:       domain.StateIdle,
			Transitions: []domain.TurnState{domain.StateIdle},
			Project:     project,
		},
	}
}

func (t *turn) enter(state domain.TurnState) {
	t.outcome.State = state
	t.outcome.Transitions = append(t.outcome.Transitions, state)
}

func (t *turn) fail(err error) {
	t.outcome.Err = err
	t.enter(domain.StateErrored)
}

// HandleTurn processes a single natural-language request against project.
// Turns are serialized; the returned outcome carries the project context for
// the next turn.
func (s *Service) HandleTurn(ctx context.Context, project domain.ProjectContext, prompt string) domain.TurnOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := newTurn(project, prompt)
	if err := s.ready(); err != nil {
		t.fail(err)
		return t.outcome
	}

	intent, err := s.Reasoner.ClassifyIntent(ctx, ports.IntentRequest{
		Prompt:  prompt,
		Project: project,
		History: s.recentTurns(),
	})
	if err != nil {
		if !errors.Is(err, domain.ErrSchemaInvalid) {
			t.fail(fmt.Errorf("classify intent: %w", err))
			s.record(t)
			return t.outcome
		}
		s.Logger.Warn("intent unparseable, answering as a question", map[string]interface{}{"error": err.Error()})
		intent = domain.Intent{Kind: domain.IntentQuestion, Question: prompt}
	}
	t.outcome.Intent = intent
	t.enter(domain.StateIntentResolved)

	switch {
	case intent.Kind == domain.IntentQuestion:
		s.answer(ctx, t, project, intent.Question)
	case intent.Action == domain.ActionShellCommand:
		if target, ok := parseCd(intent.Command); ok {
			s.changeDir(ctx, t, project, intent.Command, target)
		} else {
			s.runShell(ctx, t, project, intent.Command)
		}
	case intent.Action == domain.ActionCompoundAction:
		s.runCompound(ctx, t, project, intent)
	default:
		s.runEdit(ctx, t, project, intent)
	}

	s.record(t)
	return t.outcome
}

func (s *Service) ready() error {
	if s.Reasoner == nil || s.Searcher == nil || s.Validator == nil || s.Safety == nil ||
		s.Executor == nil || s.Editor == nil || s.Reviewer == nil || s.Logger == nil {
		return errors.New("orchestrator.Service dependencies not satisfied")
	}
	return nil
}

func (s *Service) answer(ctx context.Context, t *turn, project domain.ProjectContext, question string) {
	answer, err := s.Reasoner.Answer(ctx, question, project)
	if err != nil {
		t.fail(fmt.Errorf("answer question: %w", err))
		return
	}
	t.outcome.Answer = answer
	t.enter(domain.StateQuestionAnswered)
}

// recentTurns returns the configured number of past turns, oldest first.
func (s *Service) recentTurns() []domain.HistoryRecord {
	if s.History == nil || s.Options.RecentTurns <= 0 {
		return nil
	}
	records, err := s.History.Records(s.Options.RecentTurns, "")
	if err != nil {
		s.Logger.Warn("history unavailable", map[string]interface{}{"error": err.Error()})
		return nil
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records
}

func (s *Service) record(t *turn) {
	if s.History == nil {
		return
	}
	out := t.outcome
	rec := domain.HistoryRecord{
		Timestamp:  time.Now().UTC(),
		Prompt:     t.prompt,
		Intent:     intentLabel(out.Intent),
		State:      out.State,
		WorkingDir: out.Project.Root,
	}
	for _, result := range out.Commands {
		rec.Commands = append(rec.Commands, result.Command)
	}
	for _, p := range out.Applied {
		rec.FilesChanged = append(rec.FilesChanged, p.File)
	}
	if out.Err != nil {
		rec.Error = out.Err.Error()
	}
	if err := s.History.Save(rec); err != nil {
		s.Logger.Warn("history save failed", map[string]interface{}{"error": err.Error()})
	}
}

func intentLabel(intent domain.Intent) string {
	if intent.Kind == domain.IntentQuestion {
		return string(domain.IntentQuestion)
	}
	return intent.Action
}

func (s *Service) execOptions(project domain.ProjectContext) ports.ExecOptions {
	opts := ports.ExecOptions{
		Dir:         project.Root,
		Timeout:     s.Options.CommandTimeout,
		Grace:       s.Options.GracePeriod,
		Interactive: s.Options.Interactive,
	}
	if opts.Interactive {
		opts.Stdout, opts.Stderr = s.Reviewer.Output()
	}
	return opts
}

func (s *Service) homeDir() string {
	if s.Options.HomeDir != "" {
		return s.Options.HomeDir
	}
	return filesystem.UserHomeDir()
}

// commandError maps a failed result onto the error taxonomy.
func commandError(result domain.ShellResult) error {
	if result.TimedOut {
		return fmt.Errorf("%w: %s", domain.ErrCommandTimeout, result.Command)
	}
	return fmt.Errorf("%w: %q exited with %d", domain.ErrNonZeroExit, result.Command, result.ExitCode)
}
