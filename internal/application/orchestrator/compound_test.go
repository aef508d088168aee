package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shai-agent/internal/domain"
)

func compound(steps ...domain.CompoundStep) domain.Intent {
	return domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionCompoundAction, Steps: steps}
}

func codeStep(target string) domain.CompoundStep {
	return domain.CompoundStep{Action: domain.ActionModifyCode, Target: target}
}

func shellStep(command string) domain.CompoundStep {
	return domain.CompoundStep{Action: domain.ActionShellCommand, Command: command}
}

func TestCompoundAbortsBeforeReviewWhenStepHasNoMatch(t *testing.T) {
	f := newFixture()
	f.withCodeStep("router", edit("router.go", "a", "b"))
	f.withCodeStep("docs", edit("README.md", "c", "d"))
	f.reasoner.intent = compound(codeStep("router"), codeStep("missing"), codeStep("docs"))

	out := f.svc.HandleTurn(context.Background(), project, "three steps")

	assert.Equal(t, domain.StateErrored, out.State)
	assert.ErrorIs(t, out.Err, domain.ErrStepFailed)
	assert.ErrorIs(t, out.Err, domain.ErrNoSearchMatch)
	assert.ErrorContains(t, out.Err, "step 2")
	assert.Empty(t, f.reviewer.reviews, "nothing is previewed")
	assert.Empty(t, out.Proposals)
	assert.Empty(t, out.Applied)
	assert.Empty(t, f.events, "step 1 is not written")
	assert.NotContains(t, out.Transitions, domain.StateReviewed)
}

func TestCompoundAbortsOnInvalidStep(t *testing.T) {
	f := newFixture()
	f.withCodeStep("a", edit("a.go", "x", "ok"))
	f.withCodeStep("b", edit("b.go", "x", "bad"))
	f.validator.invalid["bad"] = "original snippet not found in b.go"
	f.reasoner.intent = compound(shellStep("npm install"), codeStep("a"), codeStep("b"))

	out := f.svc.HandleTurn(context.Background(), project, "do it")

	assert.ErrorIs(t, out.Err, domain.ErrStepFailed)
	assert.ErrorIs(t, out.Err, domain.ErrValidationFailed)
	assert.ErrorContains(t, out.Err, "step 3")
	assert.Empty(t, f.reviewer.reviews)
	assert.Empty(t, f.events)
}

func TestCompoundAbortsOnUnsafeStep(t *testing.T) {
	f := newFixture()
	f.withCodeStep("a", edit("a.go", "x", "y"))
	f.reasoner.intent = compound(codeStep("a"), shellStep("rm -rf build"))

	out := f.svc.HandleTurn(context.Background(), project, "clean")

	assert.ErrorIs(t, out.Err, domain.ErrUnsafeCommand)
	assert.ErrorContains(t, out.Err, "step 2")
	assert.Empty(t, f.reviewer.reviews)
	assert.Empty(t, f.events)
}

func TestCompoundRunsCommandsBeforeEdits(t *testing.T) {
	f := newFixture()
	f.withCodeStep("server", edit("server.go", "x", "y"))
	f.withCodeStep("client", edit("client.go", "x", "y"))
	f.reasoner.intent = compound(codeStep("server"), shellStep("go mod tidy"), codeStep("client"), shellStep("go build ./..."))

	out := f.svc.HandleTurn(context.Background(), project, "wire it up")

	require.NoError(t, out.Err)
	assert.Equal(t, domain.StateApplied, out.State)
	assert.Equal(t, []string{"run go mod tidy", "run go build ./...", "edit server.go", "edit client.go"}, f.events)

	require.Len(t, f.reviewer.reviews, 1)
	review := f.reviewer.reviews[0]
	assert.Equal(t, []string{"go mod tidy", "go build ./..."}, review.Commands)
	assert.Len(t, review.Items, 2)
	assert.Contains(t, out.Transitions, domain.StateCompoundPending)
}

func TestCompoundCommandFailureSkipsEdits(t *testing.T) {
	f := newFixture()
	f.executor.exit["npm test"] = 1
	f.withCodeStep("a", edit("a.go", "x", "y"))
	f.reasoner.intent = compound(shellStep("npm test"), shellStep("npm run build"), codeStep("a"))

	out := f.svc.HandleTurn(context.Background(), project, "test then edit")

	assert.Equal(t, domain.StateErrored, out.State)
	assert.ErrorIs(t, out.Err, domain.ErrNonZeroExit)
	assert.Equal(t, []string{"run npm test"}, f.events)
	assert.Empty(t, out.Applied)
}

func TestCompoundRejectDiscardsEverything(t *testing.T) {
	f := newFixture()
	f.reviewer.decision = domain.ReviewDecision{Kind: domain.DecisionReject}
	f.withCodeStep("a", edit("a.go", "x", "y"))
	f.reasoner.intent = compound(shellStep("make"), codeStep("a"))

	out := f.svc.HandleTurn(context.Background(), project, "x")

	assert.Equal(t, domain.StateRejected, out.State)
	assert.Empty(t, f.events)
}

func TestCompoundFeedbackRevisesPerStep(t *testing.T) {
	f := newFixture()
	f.reviewer.decision = domain.ReviewDecision{Kind: domain.DecisionFeedback, Feedback: "add logging"}
	f.withCodeStep("a", edit("a.go", "x", "y"))
	f.withCodeStep("b", edit("b.go", "x", "y"))
	f.reasoner.revised["a"] = []domain.Proposal{edit("a.go", "x", "y2")}
	f.reasoner.revised["b"] = []domain.Proposal{edit("b.go", "x", "y2")}
	f.reasoner.intent = compound(codeStep("a"), shellStep("make"), codeStep("b"))

	out := f.svc.HandleTurn(context.Background(), project, "x")

	require.NoError(t, out.Err)
	assert.Equal(t, domain.StateApplied, out.State)
	require.Len(t, f.reasoner.revisions, 2)
	assert.Equal(t, "a.go", f.reasoner.revisions[0].Match.File)
	assert.Equal(t, "b.go", f.reasoner.revisions[1].Match.File)
	require.Len(t, f.reviewer.revisions, 1)
	assert.Equal(t, []string{"make"}, f.reviewer.revisions[0].Commands)
	assert.Equal(t, []string{"run make", "edit a.go", "edit b.go"}, f.events)
	assert.Equal(t, "y2", out.Applied[0].Replacement)
}

func TestCompoundDedupesAcrossSteps(t *testing.T) {
	f := newFixture()
	shared := edit("shared.go", "x", "y")
	f.withCodeStep("a", shared)
	f.withCodeStep("b", shared, edit("b.go", "x", "y"))
	f.reasoner.intent = compound(codeStep("a"), codeStep("b"))

	out := f.svc.HandleTurn(context.Background(), project, "x")

	require.NoError(t, out.Err)
	assert.Equal(t, []string{"edit shared.go", "edit b.go"}, f.events)
}

func TestCompoundCdMovesLaterCommands(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "web"), 0o755))
	start := domain.ProjectContext{Root: root}

	f := newFixture()
	f.reasoner.intent = compound(shellStep("npm ci"), shellStep("cd web"), shellStep("npm run build"))

	out := f.svc.HandleTurn(context.Background(), start, "build web")

	require.NoError(t, out.Err)
	require.Len(t, f.executor.opts, 2)
	assert.Equal(t, root, f.executor.opts[0].Dir)
	assert.Equal(t, filepath.Join(root, "web"), f.executor.opts[1].Dir)
	assert.Equal(t, filepath.Join(root, "web"), out.Project.Root)
	assert.Len(t, out.Commands, 3)
}

func TestCompoundCdUnresolvableAborts(t *testing.T) {
	f := newFixture()
	f.svc.Options.HomeDir = t.TempDir()
	start := domain.ProjectContext{Root: t.TempDir()}
	f.reasoner.intent = compound(shellStep("cd nope"), shellStep("ls"))

	out := f.svc.HandleTurn(context.Background(), start, "x")

	assert.ErrorIs(t, out.Err, domain.ErrStepFailed)
	assert.ErrorIs(t, out.Err, domain.ErrDirectoryNotFound)
	assert.Empty(t, f.reviewer.reviews)
}
