package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/pkg/logger"
	"github.com/doeshing/shai-agent/internal/ports"
)

type stubReasoner struct {
	intent    domain.Intent
	intentErr error
	proposals map[string][]domain.Proposal
	revised   map[string][]domain.Proposal
	answer    string

	intentRequests []ports.IntentRequest
	revisions      []ports.RevisionRequest
}

func (r *stubReasoner) ClassifyIntent(_ context.Context, req ports.IntentRequest) (domain.Intent, error) {
	r.intentRequests = append(r.intentRequests, req)
	return r.intent, r.intentErr
}

func (r *stubReasoner) Propose(_ context.Context, req ports.ProposalRequest) ([]domain.Proposal, error) {
	proposals, ok := r.proposals[req.Intent.Target]
	if !ok {
		return nil, errors.New("no proposals scripted")
	}
	return proposals, nil
}

func (r *stubReasoner) Revise(_ context.Context, req ports.RevisionRequest) ([]domain.Proposal, error) {
	r.revisions = append(r.revisions, req)
	return r.revised[req.Intent.Target], nil
}

func (r *stubReasoner) ValidateProposals(context.Context, []domain.Proposal) ([]domain.ValidationResult, error) {
	return nil, errors.New("not used")
}

func (r *stubReasoner) Answer(_ context.Context, question string, _ domain.ProjectContext) (string, error) {
	return r.answer + question, nil
}

type stubSearcher struct {
	matches     map[string][]domain.SearchMatch
	invalidated []string
}

func (s *stubSearcher) Search(_ context.Context, _ domain.ProjectContext, keyword string, _ ports.SearchQuery) ([]domain.SearchMatch, error) {
	return s.matches[keyword], nil
}

func (s *stubSearcher) Invalidate(root string) {
	s.invalidated = append(s.invalidated, root)
}

type stubValidator struct {
	invalid map[string]string
	calls   int
}

func (v *stubValidator) Validate(_ context.Context, _ domain.ProjectContext, proposals []domain.Proposal) []domain.ValidationResult {
	v.calls++
	results := make([]domain.ValidationResult, len(proposals))
	for i, p := range proposals {
		if msg, bad := v.invalid[p.Replacement]; bad {
			results[i] = domain.Invalid(msg)
			continue
		}
		results[i] = domain.Valid()
	}
	return results
}

type stubSafety struct {
	unsafe map[string]string
}

func (s stubSafety) IsSafe(command string) domain.SafetyVerdict {
	if reason, bad := s.unsafe[command]; bad {
		return domain.SafetyVerdict{Safe: false, Reason: reason}
	}
	return domain.SafetyVerdict{Safe: true}
}

func (s stubSafety) Mode() domain.SafetyMode { return domain.SafetyStrict }

type stubExecutor struct {
	events *[]string
	exit   map[string]int
	opts   []ports.ExecOptions
}

func (e *stubExecutor) Execute(_ context.Context, command string, opts ports.ExecOptions) domain.ShellResult {
	*e.events = append(*e.events, "run "+command)
	e.opts = append(e.opts, opts)
	return domain.ShellResult{Command: command, ExitCode: e.exit[command]}
}

type stubEditor struct {
	events  *[]string
	failing string
}

func (e *stubEditor) Apply(_ domain.ProjectContext, p domain.Proposal) error {
	if p.File == e.failing {
		return domain.ErrOriginalNotFound
	}
	*e.events = append(*e.events, "edit "+p.File)
	return nil
}

func (e *stubEditor) ApplyMany(project domain.ProjectContext, proposals []domain.Proposal) ([]domain.Proposal, error) {
	var applied []domain.Proposal
	for _, p := range proposals {
		if err := e.Apply(project, p); err != nil {
			return applied, err
		}
		applied = append(applied, p)
	}
	return applied, nil
}

func (e *stubEditor) Preview(_ domain.ProjectContext, p domain.Proposal) (string, string, error) {
	return p.Original, p.Replacement, nil
}

func (e *stubEditor) Read(domain.ProjectContext, string) (string, error) {
	return "", nil
}

type stubDiff struct{}

func (stubDiff) Render(path, before, after string) string {
	return path + ": " + before + " -> " + after
}

type stubReviewer struct {
	decision        domain.ReviewDecision
	confirmRevision bool
	confirmCommand  bool

	reviews   []domain.Review
	revisions []domain.Review
	commands  []string
	out       bytes.Buffer
}

func (r *stubReviewer) Review(_ context.Context, review domain.Review) (domain.ReviewDecision, error) {
	r.reviews = append(r.reviews, review)
	return r.decision, nil
}

func (r *stubReviewer) ConfirmRevision(_ context.Context, review domain.Review) (bool, error) {
	r.revisions = append(r.revisions, review)
	return r.confirmRevision, nil
}

func (r *stubReviewer) ConfirmCommand(_ context.Context, command string) (bool, error) {
	r.commands = append(r.commands, command)
	return r.confirmCommand, nil
}

func (r *stubReviewer) Output() (io.Writer, io.Writer) {
	return &r.out, &r.out
}

type stubHistory struct {
	saved []domain.HistoryRecord
	past  []domain.HistoryRecord
}

func (h *stubHistory) Save(rec domain.HistoryRecord) error {
	h.saved = append(h.saved, rec)
	return nil
}

func (h *stubHistory) Records(limit int, _ string) ([]domain.HistoryRecord, error) {
	out := append([]domain.HistoryRecord{}, h.past...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *stubHistory) Clear() error { return nil }

// fixture wires a Service to stubs sharing one event log.
type fixture struct {
	svc       *Service
	reasoner  *stubReasoner
	searcher  *stubSearcher
	validator *stubValidator
	executor  *stubExecutor
	editor    *stubEditor
	reviewer  *stubReviewer
	history   *stubHistory
	events    []string
}

func newFixture() *fixture {
	f := &fixture{
		reasoner:  &stubReasoner{proposals: map[string][]domain.Proposal{}, revised: map[string][]domain.Proposal{}},
		searcher:  &stubSearcher{matches: map[string][]domain.SearchMatch{}},
		validator: &stubValidator{invalid: map[string]string{}},
		reviewer:  &stubReviewer{decision: domain.ReviewDecision{Kind: domain.DecisionAccept}, confirmCommand: true, confirmRevision: true},
		history:   &stubHistory{},
	}
	f.executor = &stubExecutor{events: &f.events, exit: map[string]int{}}
	f.editor = &stubEditor{events: &f.events}
	f.svc = &Service{
		Reasoner:  f.reasoner,
		Searcher:  f.searcher,
		Validator: f.validator,
		Safety:    stubSafety{unsafe: map[string]string{"rm -rf build": `destructive command "rm" is not allowed`}},
		Executor:  f.executor,
		Editor:    f.editor,
		Diff:      stubDiff{},
		Reviewer:  f.reviewer,
		History:   f.history,
		Logger:    logger.NewNop(),
		Options:   Options{RecentTurns: 3},
	}
	return f
}

// withCodeStep scripts a search match and proposals for target.
func (f *fixture) withCodeStep(target string, proposals ...domain.Proposal) {
	f.searcher.matches[target] = []domain.SearchMatch{{File: proposals[0].File, LineNumber: 1, RelevanceScore: 40}}
	f.reasoner.proposals[target] = proposals
}
