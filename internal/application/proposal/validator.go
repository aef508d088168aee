package proposal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/pkg/filesystem"
	"github.com/doeshing/shai-agent/internal/ports"
)

// SemanticChecker judges proposals that passed the local checks but carry
// warnings. ports.Reasoner satisfies it.
type SemanticChecker interface {
	ValidateProposals(context.Context, []domain.Proposal) ([]domain.ValidationResult, error)
}

// Previewer computes the patched content of a proposal without writing it.
type Previewer interface {
	Preview(project domain.ProjectContext, proposal domain.Proposal) (before string, after string, err error)
}

// Validator implements ports.ProposalValidator.
type Validator struct {
	denylist  []string
	previewer Previewer
	semantic  SemanticChecker
	budget    int
	logger    ports.Logger
}

// NewValidator builds a validator. A nil semantic checker keeps validation local.
func NewValidator(denylist []string, previewer Previewer, semantic SemanticChecker, budget int, logger ports.Logger) *Validator {
	if len(denylist) == 0 {
		denylist = DefaultDenylist
	}
	lowered := make([]string, 0, len(denylist))
	for _, entry := range denylist {
		lowered = append(lowered, strings.ToLower(entry))
	}
	if budget <= 0 {
		budget = domain.DefaultBatchCharBudget
	}
	return &Validator{
		denylist:  lowered,
		previewer: previewer,
		semantic:  semantic,
		budget:    budget,
		logger:    logger,
	}
}

// Validate returns one result per proposal, in order. Path escapes and
// denylisted content fail immediately and are never sent for semantic review.
func (v *Validator) Validate(ctx context.Context, project domain.ProjectContext, proposals []domain.Proposal) []domain.ValidationResult {
	results := make([]domain.ValidationResult, len(proposals))
	var delegate []int

	for idx, p := range proposals {
		if err := v.preflight(project, p); err != nil {
			results[idx] = domain.Invalid(err.Error())
			v.logger.Warn("proposal rejected", map[string]interface{}{"file": p.File, "reason": err.Error()})
			continue
		}
		results[idx] = v.local(project, p)
		if results[idx].IsValid && len(results[idx].Warnings) > 0 {
			delegate = append(delegate, idx)
		}
	}

	if v.semantic == nil || len(delegate) == 0 {
		return results
	}
	for _, batch := range v.batches(proposals, delegate) {
		v.delegate(ctx, proposals, batch, results)
	}
	return results
}

// preflight runs the hard safety checks.
func (v *Validator) preflight(project domain.ProjectContext, p domain.Proposal) error {
	if _, err := filesystem.Resolve(project.Root, p.File); err != nil {
		return fmt.Errorf("path escapes project root: %s", p.File)
	}
	if entry, hit := matchDenylist(v.denylist, p.Replacement); hit {
		return fmt.Errorf("dangerous content: replacement contains %q", entry)
	}
	return nil
}

// local runs the shape checks that do not need the Reasoning Service.
func (v *Validator) local(project domain.ProjectContext, p domain.Proposal) domain.ValidationResult {
	var warnings []string

	if v.previewer != nil {
		_, after, err := v.previewer.Preview(project, p)
		switch {
		case errors.Is(err, domain.ErrOriginalNotFound):
			warnings = append(warnings, fmt.Sprintf("original snippet not found in %s", p.File))
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("could not preview %s: %v", p.File, err))
		case strings.EqualFold(filepath.Ext(p.File), ".json") && strings.TrimSpace(after) != "" && !json.Valid([]byte(after)):
			return domain.Invalid(fmt.Sprintf("invalid JSON after applying proposal to %s", p.File))
		}
	}

	if bracketsShifted(p.Original, p.Replacement) {
		warnings = append(warnings, "unbalanced brackets in replacement")
	}
	if hasPlaceholder(p.Replacement) {
		warnings = append(warnings, "replacement contains placeholder text")
	}
	return domain.Valid(warnings...)
}

// batches groups indices so the summed proposal size never exceeds the
// budget. An oversize proposal travels alone.
func (v *Validator) batches(proposals []domain.Proposal, indices []int) [][]int {
	var out [][]int
	var current []int
	size := 0
	for _, idx := range indices {
		n := proposalSize(proposals[idx])
		if len(current) > 0 && size+n > v.budget {
			out = append(out, current)
			current, size = nil, 0
		}
		current = append(current, idx)
		size += n
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

func (v *Validator) delegate(ctx context.Context, proposals []domain.Proposal, batch []int, results []domain.ValidationResult) {
	subset := make([]domain.Proposal, len(batch))
	for i, idx := range batch {
		subset[i] = proposals[idx]
	}

	remote, err := v.semantic.ValidateProposals(ctx, subset)
	if err == nil && len(remote) != len(batch) {
		err = fmt.Errorf("%w: expected %d results, got %d", domain.ErrValidatorParse, len(batch), len(remote))
	}
	if err != nil {
		v.logger.Warn("semantic validation unavailable", map[string]interface{}{
			"batch": len(batch),
			"error": err.Error(),
		})
		for _, idx := range batch {
			results[idx] = results[idx].WithWarnings(domain.CautionWarning)
		}
		return
	}

	for i, idx := range batch {
		local := results[idx]
		r := remote[i]
		if !r.IsValid {
			merged := domain.Invalid(r.Errors...)
			merged.Warnings = append(append([]string{}, local.Warnings...), r.Warnings...)
			results[idx] = merged
			continue
		}
		results[idx] = local.WithWarnings(r.Warnings...)
	}
}

func proposalSize(p domain.Proposal) int {
	return len(p.File) + len(p.Original) + len(p.Replacement) + len(p.Explanation)
}

// AllValid reports whether every result passed.
func AllValid(results []domain.ValidationResult) bool {
	for _, r := range results {
		if !r.IsValid {
			return false
		}
	}
	return true
}

// FirstError returns the first failing result's errors joined, for reporting.
func FirstError(proposals []domain.Proposal, results []domain.ValidationResult) string {
	for idx, r := range results {
		if !r.IsValid {
			return fmt.Sprintf("%s: %s", proposals[idx].File, strings.Join(r.Errors, "; "))
		}
	}
	return ""
}

var _ ports.ProposalValidator = (*Validator)(nil)
