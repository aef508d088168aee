package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/ports"
)

// Stage names the Reasoning Service call that failed.
type Stage string

const (
	StageIntent   Stage = "intent"
	StagePropose  Stage = "propose"
	StageRevise   Stage = "revise"
	StageValidate Stage = "validate"
	StageAnswer   Stage = "answer"
)

// ResponseError reports a Reasoning Service failure with the last raw reply.
type ResponseError struct {
	Stage Stage
	Raw   string
	Cause error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("reasoner %s: %v", e.Stage, e.Cause)
}

func (e *ResponseError) Unwrap() error {
	return e.Cause
}

// Reasoner implements ports.Reasoner over a chat-completion provider.
// Every structured reply is schema-checked and gets exactly one corrective retry.
type Reasoner struct {
	provider ports.Provider
	logger   ports.Logger
	debug    bool
}

// NewReasoner builds a Reasoner.
func NewReasoner(provider ports.Provider, logger ports.Logger, debug bool) *Reasoner {
	return &Reasoner{provider: provider, logger: logger, debug: debug}
}

// ClassifyIntent implements ports.Reasoner.
func (r *Reasoner) ClassifyIntent(ctx context.Context, req ports.IntentRequest) (domain.Intent, error) {
	prompt, err := render(intentTemplate, intentData{Root: req.Project.Root, Prompt: req.Prompt, History: req.History})
	if err != nil {
		return domain.Intent{}, err
	}
	var intent domain.Intent
	err = r.structured(ctx, StageIntent, prompt, func(reply string) error {
		parsed, err := parseIntent(reply)
		if err == nil {
			intent = parsed
		}
		return err
	})
	return intent, err
}

// Propose implements ports.Reasoner.
func (r *Reasoner) Propose(ctx context.Context, req ports.ProposalRequest) ([]domain.Proposal, error) {
	prompt, err := render(proposeTemplate, newProposeData(req))
	if err != nil {
		return nil, err
	}
	return r.proposals(ctx, StagePropose, prompt)
}

// Revise implements ports.Reasoner.
func (r *Reasoner) Revise(ctx context.Context, req ports.RevisionRequest) ([]domain.Proposal, error) {
	data := newProposeData(req.ProposalRequest)
	data.Feedback = strings.TrimSpace(req.Feedback)
	data.Previous = proposalsJSON(req.Previous)
	prompt, err := render(proposeTemplate, data)
	if err != nil {
		return nil, err
	}
	return r.proposals(ctx, StageRevise, prompt)
}

// ValidateProposals implements ports.Reasoner. Replies that still fail the
// schema after the retry are reported as domain.ErrValidatorParse.
func (r *Reasoner) ValidateProposals(ctx context.Context, proposals []domain.Proposal) ([]domain.ValidationResult, error) {
	if len(proposals) == 0 {
		return nil, nil
	}
	prompt, err := render(validateTemplate, validateData{Proposals: proposalsJSON(proposals), Count: len(proposals)})
	if err != nil {
		return nil, err
	}
	var results []domain.ValidationResult
	err = r.structured(ctx, StageValidate, prompt, func(reply string) error {
		parsed, err := parseValidation(reply, len(proposals))
		if err == nil {
			results = parsed
		}
		return err
	})
	if err != nil {
		var respErr *ResponseError
		if errors.As(err, &respErr) && errors.Is(err, domain.ErrSchemaInvalid) {
			return nil, &ResponseError{Stage: StageValidate, Raw: respErr.Raw, Cause: fmt.Errorf("%w: %v", domain.ErrValidatorParse, respErr.Cause)}
		}
		return nil, err
	}
	return results, nil
}

// Answer implements ports.Reasoner.
func (r *Reasoner) Answer(ctx context.Context, question string, project domain.ProjectContext) (string, error) {
	prompt, err := render(answerTemplate, answerData{Root: project.Root, Question: question})
	if err != nil {
		return "", err
	}
	reply, err := r.generate(ctx, r.conversation(prompt))
	if err != nil {
		return "", &ResponseError{Stage: StageAnswer, Cause: err}
	}
	return strings.TrimSpace(reply), nil
}

func (r *Reasoner) proposals(ctx context.Context, stage Stage, prompt string) ([]domain.Proposal, error) {
	var proposals []domain.Proposal
	err := r.structured(ctx, stage, prompt, func(reply string) error {
		parsed, err := parseProposals(reply)
		if err == nil {
			proposals = parsed
		}
		return err
	})
	return proposals, err
}

// structured sends prompt, and when parse rejects the reply sends it once
// more with the invalid output and the violation appended.
func (r *Reasoner) structured(ctx context.Context, stage Stage, prompt string, parse func(string) error) error {
	messages := r.conversation(prompt)
	reply, err := r.generate(ctx, messages)
	if err != nil {
		return &ResponseError{Stage: stage, Cause: err}
	}
	parseErr := parse(reply)
	if parseErr == nil {
		return nil
	}

	r.logger.Warn("reasoner reply rejected, retrying", map[string]interface{}{
		"stage": string(stage),
		"error": parseErr.Error(),
	})
	messages = append(messages,
		domain.PromptMessage{Role: "assistant", Content: reply},
		domain.PromptMessage{Role: "user", Content: fmt.Sprintf(
			"Your previous reply was rejected: %v\nReply again with only the JSON object described above.", parseErr)},
	)
	retry, err := r.generate(ctx, messages)
	if err != nil {
		return &ResponseError{Stage: stage, Raw: reply, Cause: err}
	}
	if parseErr = parse(retry); parseErr != nil {
		return &ResponseError{Stage: stage, Raw: retry, Cause: parseErr}
	}
	return nil
}

// conversation prepends the model's configured system messages to prompt.
func (r *Reasoner) conversation(prompt string) []domain.PromptMessage {
	var messages []domain.PromptMessage
	for _, msg := range r.provider.Model().Prompt {
		if strings.EqualFold(msg.Role, "system") && strings.TrimSpace(msg.Content) != "" {
			messages = append(messages, msg)
		}
	}
	return append(messages, domain.PromptMessage{Role: "user", Content: prompt})
}

func (r *Reasoner) generate(ctx context.Context, messages []domain.PromptMessage) (string, error) {
	resp, err := r.provider.Generate(ctx, ports.ProviderRequest{Messages: messages, Debug: r.debug})
	if err != nil {
		return "", err
	}
	if r.debug {
		r.logger.Debug("reasoner reply", map[string]interface{}{"reply": resp.Reply})
	}
	return resp.Reply, nil
}

var _ ports.Reasoner = (*Reasoner)(nil)
