// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// The orchestrator in the application layer depends only on these contracts;
// search, validation, shell execution, edit application, the Reasoning Service
// and the console live behind adapters in the infrastructure layer.
package ports

import (
	"context"
	"io"
	"time"

	"github.com/doeshing/shai-agent/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.shai/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// ProviderFactory builds Reasoning Service transports from model definitions.
type ProviderFactory interface {
	ForModel(domain.ModelDefinition) (Provider, error)
}

// Provider sends one rendered conversation to a chat-completion endpoint and
// returns the raw text reply.
type Provider interface {
	Name() string
	Model() domain.ModelDefinition
	Generate(context.Context, ProviderRequest) (ProviderResponse, error)
}

// ProviderRequest is a rendered conversation.
type ProviderRequest struct {
	Messages []domain.PromptMessage
	Debug    bool
}

// ProviderResponse holds the raw model reply.
type ProviderResponse struct {
	Reply string
}

// IntentRequest is the input of intent classification.
type IntentRequest struct {
	Prompt  string
	Project domain.ProjectContext
	History []domain.HistoryRecord
}

// ProposalRequest asks for proposals implementing one edit step at a match.
type ProposalRequest struct {
	Intent  domain.Intent
	Match   domain.SearchMatch
	Project domain.ProjectContext
	// FileContent is the current content of Match.File, empty for new files.
	FileContent string
}

// RevisionRequest asks for revised proposals given user feedback.
type RevisionRequest struct {
	ProposalRequest
	Feedback string
	Previous []domain.Proposal
}

// Reasoner is the Reasoning Service boundary. Every method returns values
// that already passed strict schema validation.
type Reasoner interface {
	ClassifyIntent(context.Context, IntentRequest) (domain.Intent, error)
	Propose(context.Context, ProposalRequest) ([]domain.Proposal, error)
	Revise(context.Context, RevisionRequest) ([]domain.Proposal, error)
	// ValidateProposals returns one result per proposal, in order.
	ValidateProposals(context.Context, []domain.Proposal) ([]domain.ValidationResult, error)
	Answer(ctx context.Context, question string, project domain.ProjectContext) (string, error)
}

// SearchQuery is the structured part of a relevance search.
type SearchQuery struct {
	Action      string
	Target      string
	Description string
}

// Searcher ranks project locations against a target description.
type Searcher interface {
	Search(ctx context.Context, project domain.ProjectContext, keyword string, query SearchQuery) ([]domain.SearchMatch, error)
	// Invalidate drops any cached file listing for root.
	Invalidate(root string)
}

// ProposalValidator returns one ValidationResult per proposal, in order.
type ProposalValidator interface {
	Validate(ctx context.Context, project domain.ProjectContext, proposals []domain.Proposal) []domain.ValidationResult
}

// SafetyClassifier decides whether a command may run.
type SafetyClassifier interface {
	IsSafe(command string) domain.SafetyVerdict
	Mode() domain.SafetyMode
}

// ExecOptions configures one command execution.
type ExecOptions struct {
	Dir         string
	Timeout     time.Duration
	Grace       time.Duration
	Interactive bool
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
}

// CommandExecutor runs shell commands. Failures surface in the result, never as errors.
type CommandExecutor interface {
	Execute(ctx context.Context, command string, opts ExecOptions) domain.ShellResult
}

// EditApplier writes proposals to disk.
type EditApplier interface {
	Apply(project domain.ProjectContext, proposal domain.Proposal) error
	// ApplyMany applies in order and returns the proposals written before any failure.
	ApplyMany(project domain.ProjectContext, proposals []domain.Proposal) ([]domain.Proposal, error)
	// Preview returns the current and patched content without writing.
	Preview(project domain.ProjectContext, proposal domain.Proposal) (before string, after string, err error)
	// Read returns the content of file, empty when it does not exist yet.
	Read(project domain.ProjectContext, file string) (string, error)
}

// DiffRenderer renders a before/after pair for review.
type DiffRenderer interface {
	Render(path, before, after string) string
}

// Reviewer is the interactive console used for every confirmation gate.
type Reviewer interface {
	// Review presents the consolidated preview and collects accept/reject/feedback.
	Review(context.Context, domain.Review) (domain.ReviewDecision, error)
	// ConfirmRevision is the second explicit accept required for revised proposals.
	ConfirmRevision(context.Context, domain.Review) (bool, error)
	// ConfirmCommand previews a single command and asks for approval.
	ConfirmCommand(ctx context.Context, command string) (bool, error)
	// Output receives streamed command output.
	Output() (stdout io.Writer, stderr io.Writer)
}

// HistoryRepository persists processed turns.
type HistoryRepository interface {
	Save(domain.HistoryRecord) error
	Records(limit int, search string) ([]domain.HistoryRecord, error)
	Clear() error
}

// Logger provides structured logging abstraction for the application layer.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
