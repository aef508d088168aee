package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shai-agent/internal/domain"
)

var project = domain.ProjectContext{Root: "/repo"}

func edit(file, original, replacement string) domain.Proposal {
	return domain.Proposal{File: file, Original: original, Replacement: replacement, LineNumber: domain.Line(1)}
}

func TestQuestionIsAnswered(t *testing.T) {
	f := newFixture()
	f.reasoner.intent = domain.Intent{Kind: domain.IntentQuestion, Question: "what is main?"}
	f.reasoner.answer = "answer to: "

	out := f.svc.HandleTurn(context.Background(), project, "what is main?")

	require.NoError(t, out.Err)
	assert.Equal(t, domain.StateQuestionAnswered, out.State)
	assert.Equal(t, "answer to: what is main?", out.Answer)
	assert.Equal(t, []domain.TurnState{domain.StateIdle, domain.StateIntentResolved, domain.StateQuestionAnswered}, out.Transitions)
	require.Len(t, f.history.saved, 1)
	assert.Equal(t, "question", f.history.saved[0].Intent)
}

func TestSchemaFailureFallsBackToQuestion(t *testing.T) {
	f := newFixture()
	f.reasoner.intentErr = errors.Join(domain.ErrSchemaInvalid, errors.New("missing command"))

	out := f.svc.HandleTurn(context.Background(), project, "explain the build")

	require.NoError(t, out.Err)
	assert.Equal(t, domain.StateQuestionAnswered, out.State)
	assert.Equal(t, "explain the build", out.Intent.Question)
}

func TestClassifyTransportErrorFails(t *testing.T) {
	f := newFixture()
	f.reasoner.intentErr = errors.New("connection refused")

	out := f.svc.HandleTurn(context.Background(), project, "anything")

	assert.Equal(t, domain.StateErrored, out.State)
	assert.ErrorContains(t, out.Err, "connection refused")
	require.Len(t, f.history.saved, 1)
	assert.Equal(t, domain.StateErrored, f.history.saved[0].State)
}

func TestRecentTurnsAreOldestFirst(t *testing.T) {
	f := newFixture()
	f.history.past = []domain.HistoryRecord{{Prompt: "third"}, {Prompt: "second"}, {Prompt: "first"}, {Prompt: "zeroth"}}
	f.reasoner.intent = domain.Intent{Kind: domain.IntentQuestion, Question: "q"}

	f.svc.HandleTurn(context.Background(), project, "q")

	require.Len(t, f.reasoner.intentRequests, 1)
	history := f.reasoner.intentRequests[0].History
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Prompt)
	assert.Equal(t, "third", history[2].Prompt)
}

func TestShellCommandRuns(t *testing.T) {
	f := newFixture()
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionShellCommand, Command: "npm install"}

	out := f.svc.HandleTurn(context.Background(), project, "install deps")

	require.NoError(t, out.Err)
	assert.Equal(t, domain.StateApplied, out.State)
	assert.Equal(t, []domain.TurnState{
		domain.StateIdle, domain.StateIntentResolved, domain.StateShellPending, domain.StateReviewed, domain.StateApplied,
	}, out.Transitions)
	assert.Equal(t, []string{"npm install"}, f.reviewer.commands)
	assert.Equal(t, []string{"run npm install"}, f.events)
	assert.Equal(t, "/repo", f.executor.opts[0].Dir)
	assert.Equal(t, []string{"npm install"}, f.history.saved[0].Commands)
}

func TestUnsafeShellCommandIsBlocked(t *testing.T) {
	f := newFixture()
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionShellCommand, Command: "rm -rf build"}

	out := f.svc.HandleTurn(context.Background(), project, "clean")

	assert.Equal(t, domain.StateErrored, out.State)
	assert.ErrorIs(t, out.Err, domain.ErrUnsafeCommand)
	assert.ErrorContains(t, out.Err, `destructive command "rm"`)
	assert.Empty(t, f.reviewer.commands)
	assert.Empty(t, f.events)
}

func TestDeclinedShellCommandDoesNotRun(t *testing.T) {
	f := newFixture()
	f.reviewer.confirmCommand = false
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionShellCommand, Command: "make"}

	out := f.svc.HandleTurn(context.Background(), project, "build")

	assert.Equal(t, domain.StateRejected, out.State)
	assert.Empty(t, f.events)
}

func TestShellNonZeroExitIsReported(t *testing.T) {
	f := newFixture()
	f.executor.exit["make test"] = 2
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionShellCommand, Command: "make test"}

	out := f.svc.HandleTurn(context.Background(), project, "test")

	assert.Equal(t, domain.StateErrored, out.State)
	assert.ErrorIs(t, out.Err, domain.ErrNonZeroExit)
	require.Len(t, out.Commands, 1)
	assert.Equal(t, 2, out.Commands[0].ExitCode)
}

func TestInteractiveCommandStreamsToReviewer(t *testing.T) {
	f := newFixture()
	f.svc.Options.Interactive = true
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionShellCommand, Command: "ls"}

	f.svc.HandleTurn(context.Background(), project, "list")

	require.Len(t, f.executor.opts, 1)
	assert.True(t, f.executor.opts[0].Interactive)
	assert.Same(t, &f.reviewer.out, f.executor.opts[0].Stdout)
}

func TestChangeDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "web"), 0o755))
	start := domain.ProjectContext{Root: root, Epoch: 4}

	f := newFixture()
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionShellCommand, Command: "cd web"}

	out := f.svc.HandleTurn(context.Background(), start, "go to web")

	require.NoError(t, out.Err)
	assert.Equal(t, domain.StateApplied, out.State)
	assert.Equal(t, filepath.Join(root, "web"), out.Project.Root)
	assert.Equal(t, uint64(5), out.Project.Epoch)
	assert.Equal(t, []string{root}, f.searcher.invalidated)
	assert.Empty(t, f.events)
}

func TestChangeDirectoryUnresolvable(t *testing.T) {
	start := domain.ProjectContext{Root: t.TempDir()}
	f := newFixture()
	f.svc.Options.HomeDir = t.TempDir()
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionShellCommand, Command: "cd nowhere"}

	out := f.svc.HandleTurn(context.Background(), start, "cd nowhere")

	assert.Equal(t, domain.StateErrored, out.State)
	assert.ErrorIs(t, out.Err, domain.ErrDirectoryNotFound)
	assert.Equal(t, start, out.Project)
	assert.Empty(t, f.reviewer.commands)
	assert.Empty(t, f.searcher.invalidated)
}

func TestEditAccepted(t *testing.T) {
	f := newFixture()
	f.withCodeStep("handler", edit("api/handler.go", "old", "new"), edit("api/handler.go", "old", "new"))
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionModifyCode, Target: "handler"}

	out := f.svc.HandleTurn(context.Background(), project, "rename handler")

	require.NoError(t, out.Err)
	assert.Equal(t, domain.StateApplied, out.State)
	require.Len(t, out.Applied, 1, "duplicates collapse before review")
	require.Len(t, f.reviewer.reviews, 1)
	require.Len(t, f.reviewer.reviews[0].Items, 1)
	assert.Equal(t, "api/handler.go: old -> new", f.reviewer.reviews[0].Items[0].Diff)
	assert.Equal(t, []string{"edit api/handler.go"}, f.events)
	assert.Equal(t, []string{"/repo"}, f.searcher.invalidated)
	assert.Equal(t, []string{"api/handler.go"}, f.history.saved[0].FilesChanged)
}

func TestEditInvalidFailsBeforeReview(t *testing.T) {
	f := newFixture()
	f.withCodeStep("config", edit("../outside/x.ts", "a", "b"))
	f.validator.invalid["b"] = "path escapes project root: ../outside/x.ts"
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionModifyCode, Target: "config"}

	out := f.svc.HandleTurn(context.Background(), project, "edit config")

	assert.Equal(t, domain.StateErrored, out.State)
	assert.ErrorIs(t, out.Err, domain.ErrValidationFailed)
	assert.ErrorContains(t, out.Err, "path escapes project root")
	assert.Empty(t, f.reviewer.reviews)
	assert.Empty(t, f.events)
}

func TestEditRejected(t *testing.T) {
	f := newFixture()
	f.reviewer.decision = domain.ReviewDecision{Kind: domain.DecisionReject}
	f.withCodeStep("main", edit("main.go", "a", "b"))
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionModifyCode, Target: "main"}

	out := f.svc.HandleTurn(context.Background(), project, "change main")

	assert.Equal(t, domain.StateRejected, out.State)
	assert.Empty(t, out.Applied)
	assert.Empty(t, f.events)
}

func TestEditFeedbackRevisesAndNeedsSecondAccept(t *testing.T) {
	f := newFixture()
	f.reviewer.decision = domain.ReviewDecision{Kind: domain.DecisionFeedback, Feedback: "use camelCase"}
	f.withCodeStep("main", edit("main.go", "a", "snake_name"))
	f.reasoner.revised["main"] = []domain.Proposal{edit("main.go", "a", "camelName")}
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionModifyCode, Target: "main"}

	out := f.svc.HandleTurn(context.Background(), project, "rename")

	require.NoError(t, out.Err)
	assert.Equal(t, domain.StateApplied, out.State)
	assert.Contains(t, out.Transitions, domain.StateRevised)
	require.Len(t, f.reasoner.revisions, 1)
	assert.Equal(t, "use camelCase", f.reasoner.revisions[0].Feedback)
	assert.Equal(t, "snake_name", f.reasoner.revisions[0].Previous[0].Replacement)
	require.Len(t, f.reviewer.revisions, 1)
	assert.True(t, f.reviewer.revisions[0].Revision)
	require.Len(t, out.Applied, 1)
	assert.Equal(t, "camelName", out.Applied[0].Replacement)
	assert.Equal(t, 2, f.validator.calls)
}

func TestEditRevisionDeclined(t *testing.T) {
	f := newFixture()
	f.reviewer.decision = domain.ReviewDecision{Kind: domain.DecisionFeedback, Feedback: "smaller"}
	f.reviewer.confirmRevision = false
	f.withCodeStep("main", edit("main.go", "a", "b"))
	f.reasoner.revised["main"] = []domain.Proposal{edit("main.go", "a", "c")}
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionModifyCode, Target: "main"}

	out := f.svc.HandleTurn(context.Background(), project, "change")

	assert.Equal(t, domain.StateRejected, out.State)
	assert.Empty(t, f.events)
}

func TestEditRevisionInvalid(t *testing.T) {
	f := newFixture()
	f.reviewer.decision = domain.ReviewDecision{Kind: domain.DecisionFeedback, Feedback: "more"}
	f.withCodeStep("main", edit("main.go", "a", "b"))
	f.reasoner.revised["main"] = []domain.Proposal{edit("main.go", "a", "rm -rf /")}
	f.validator.invalid["rm -rf /"] = `dangerous content: replacement contains "rm -rf /"`
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionModifyCode, Target: "main"}

	out := f.svc.HandleTurn(context.Background(), project, "change")

	assert.Equal(t, domain.StateErrored, out.State)
	assert.ErrorIs(t, out.Err, domain.ErrValidationFailed)
	assert.Empty(t, f.reviewer.revisions)
	assert.Empty(t, f.events)
}

func TestEditApplyFailureKeepsPrefix(t *testing.T) {
	f := newFixture()
	f.editor.failing = "b.go"
	f.withCodeStep("pair", edit("a.go", "x", "y"), edit("b.go", "x", "y"))
	f.reasoner.intent = domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionModifyCode, Target: "pair"}

	out := f.svc.HandleTurn(context.Background(), project, "edit both")

	assert.Equal(t, domain.StateErrored, out.State)
	assert.ErrorIs(t, out.Err, domain.ErrOriginalNotFound)
	assert.ErrorContains(t, out.Err, "1 of 2 written")
	require.Len(t, out.Applied, 1)
	assert.Equal(t, "a.go", out.Applied[0].File)
}

func TestParseCd(t *testing.T) {
	tests := []struct {
		command string
		target  string
		ok      bool
	}{
		{"cd", "", true},
		{"cd src", "src", true},
		{"cd ~/code", "~/code", true},
		{`cd "my dir"`, "", false},
		{"cd src && ls", "", false},
		{"cdk deploy", "", false},
		{"ls", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			target, ok := parseCd(tt.command)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.target, target)
			}
		})
	}
}
