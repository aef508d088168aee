package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/pkg/logger"
	"github.com/doeshing/shai-agent/internal/ports"
)

type scriptedProvider struct {
	model    domain.ModelDefinition
	replies  []string
	err      error
	requests []ports.ProviderRequest
}

func (p *scriptedProvider) Name() string                  { return "scripted" }
func (p *scriptedProvider) Model() domain.ModelDefinition { return p.model }

func (p *scriptedProvider) Generate(_ context.Context, req ports.ProviderRequest) (ports.ProviderResponse, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return ports.ProviderResponse{}, p.err
	}
	if len(p.replies) == 0 {
		return ports.ProviderResponse{}, errors.New("no scripted reply")
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	return ports.ProviderResponse{Reply: reply}, nil
}

func newReasoner(p *scriptedProvider) *Reasoner {
	return NewReasoner(p, logger.NewNop(), false)
}

func TestClassifyIntentStripsFences(t *testing.T) {
	p := &scriptedProvider{replies: []string{"```json\n{\"type\":\"edit\",\"action\":\"shell_command\",\"target\":\"deps\",\"description\":\"install\",\"command\":\"npm install\"}\n```"}}

	intent, err := newReasoner(p).ClassifyIntent(context.Background(), ports.IntentRequest{Prompt: "install deps"})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentEdit, intent.Kind)
	assert.Equal(t, domain.ActionShellCommand, intent.Action)
	assert.Equal(t, "npm install", intent.Command)
	assert.Len(t, p.requests, 1)
}

func TestClassifyIntentRetriesOnce(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		`{"type":"edit","action":"compound_action","steps":[]}`,
		`{"type":"question","question":"what does main do?"}`,
	}}

	intent, err := newReasoner(p).ClassifyIntent(context.Background(), ports.IntentRequest{Prompt: "what does main do?"})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentQuestion, intent.Kind)

	require.Len(t, p.requests, 2)
	retry := p.requests[1].Messages
	require.GreaterOrEqual(t, len(retry), 3)
	assert.Equal(t, "assistant", retry[len(retry)-2].Role)
	assert.Contains(t, retry[len(retry)-2].Content, "compound_action")
	assert.Contains(t, retry[len(retry)-1].Content, "rejected")
}

func TestClassifyIntentFailsAfterRetry(t *testing.T) {
	p := &scriptedProvider{replies: []string{"not json", `{"type":"edit","action":"dance"}`, "unused"}}

	_, err := newReasoner(p).ClassifyIntent(context.Background(), ports.IntentRequest{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSchemaInvalid))

	var respErr *ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, StageIntent, respErr.Stage)
	assert.Contains(t, respErr.Raw, "dance")
	assert.Len(t, p.requests, 2)
}

func TestClassifyIntentRejectsUnknownFields(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		`{"type":"question","question":"q","confidence":0.9}`,
		`{"type":"question","question":"q","confidence":0.9}`,
	}}

	_, err := newReasoner(p).ClassifyIntent(context.Background(), ports.IntentRequest{Prompt: "q"})
	assert.True(t, errors.Is(err, domain.ErrSchemaInvalid))
}

func TestTransportErrorIsNotRetried(t *testing.T) {
	p := &scriptedProvider{err: errors.New("connection refused")}

	_, err := newReasoner(p).ClassifyIntent(context.Background(), ports.IntentRequest{Prompt: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrSchemaInvalid))
	assert.Len(t, p.requests, 1)
}

func TestProposeParsesProposals(t *testing.T) {
	p := &scriptedProvider{replies: []string{`Here you go:
{"proposals":[
 {"file":"src/app.ts","original":"old","replacement":"new","lineNumber":3,"explanation":"rename"},
 {"file":"src/new.ts","original":"","replacement":"export {}\n","lineNumber":null,"explanation":"create"}
]}`}}

	proposals, err := newReasoner(p).Propose(context.Background(), ports.ProposalRequest{
		Intent:      domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionModifyCode, Target: "app"},
		Match:       domain.SearchMatch{File: "src/app.ts", LineNumber: 3, Line: "old"},
		FileContent: "a\nb\nold\n",
	})
	require.NoError(t, err)
	require.Len(t, proposals, 2)
	require.NotNil(t, proposals[0].LineNumber)
	assert.Equal(t, 3, *proposals[0].LineNumber)
	assert.True(t, proposals[1].IsAppend())

	prompt := p.requests[0].Messages[len(p.requests[0].Messages)-1].Content
	assert.Contains(t, prompt, "    3| old")
}

func TestProposeRequiresFile(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		`{"proposals":[{"replacement":"x","lineNumber":null}]}`,
		`{"proposals":[]}`,
	}}

	_, err := newReasoner(p).Propose(context.Background(), ports.ProposalRequest{})
	assert.True(t, errors.Is(err, domain.ErrSchemaInvalid))
}

func TestReviseIncludesFeedback(t *testing.T) {
	p := &scriptedProvider{replies: []string{`{"proposals":[{"file":"a.go","original":"x","replacement":"y","lineNumber":1,"explanation":""}]}`}}

	_, err := newReasoner(p).Revise(context.Background(), ports.RevisionRequest{
		ProposalRequest: ports.ProposalRequest{Match: domain.SearchMatch{File: "a.go", LineNumber: 1}},
		Feedback:        "use camelCase",
		Previous:        []domain.Proposal{{File: "a.go", Original: "x", Replacement: "z"}},
	})
	require.NoError(t, err)
	prompt := p.requests[0].Messages[0].Content
	assert.Contains(t, prompt, "use camelCase")
	assert.Contains(t, prompt, `"replacement": "z"`)
}

func TestValidateProposals(t *testing.T) {
	p := &scriptedProvider{replies: []string{`{"results":[{"isValid":true,"errors":[],"warnings":["check imports"]},{"isValid":false,"errors":["anchor missing"],"warnings":[]}]}`}}

	results, err := newReasoner(p).ValidateProposals(context.Background(), []domain.Proposal{{File: "a"}, {File: "b"}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].IsValid)
	assert.Equal(t, []string{"check imports"}, results[0].Warnings)
	assert.False(t, results[1].IsValid)
	assert.Equal(t, []string{"anchor missing"}, results[1].Errors)
}

func TestValidateProposalsParseFailure(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		`{"results":[{"isValid":true}]}`,
		"I think they look fine",
	}}

	_, err := newReasoner(p).ValidateProposals(context.Background(), []domain.Proposal{{File: "a"}, {File: "b"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidatorParse))
	assert.Len(t, p.requests, 2)
}

func TestAnswerUsesModelSystemPrompt(t *testing.T) {
	p := &scriptedProvider{
		model:   domain.ModelDefinition{Prompt: []domain.PromptMessage{{Role: "system", Content: "Be brief."}}},
		replies: []string{"  It starts the server.  "},
	}

	answer, err := newReasoner(p).Answer(context.Background(), "what does main do?", domain.ProjectContext{Root: "/repo"})
	require.NoError(t, err)
	assert.Equal(t, "It starts the server.", answer)

	msgs := p.requests[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "Be brief.", msgs[0].Content)
	assert.True(t, strings.HasSuffix(msgs[1].Content, "what does main do?"))
}
