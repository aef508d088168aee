package domain

// TurnState names the orchestrator states of one user turn.
type TurnState string

const (
	StateIdle             TurnState = "idle"
	StateIntentResolved   TurnState = "intent_resolved"
	StateQuestionAnswered TurnState = "question_answered"
	StateShellPending     TurnState = "shell_pending"
	StateCompoundPending  TurnState = "compound_pending"
	StateEditPending      TurnState = "edit_pending"
	StateReviewed         TurnState = "reviewed"
	StateApplied          TurnState = "applied"
	StateRevised          TurnState = "revised"
	StateRejected         TurnState = "rejected"
	StateErrored          TurnState = "errored"
)

// TurnOutcome is everything one turn produced. Project carries the (possibly
// changed) context into the next turn.
type TurnOutcome struct {
	State       TurnState
	Transitions []TurnState
	Intent      Intent
	Answer      string
	Commands    []ShellResult
	Proposals   []Proposal
	Validation  []ValidationResult
	Applied     []Proposal
	Project     ProjectContext
	Err         error
}

// ReviewDecisionKind is the user's answer to a consolidated review.
type ReviewDecisionKind string

const (
	DecisionAccept   ReviewDecisionKind = "accept"
	DecisionReject   ReviewDecisionKind = "reject"
	DecisionFeedback ReviewDecisionKind = "feedback"
)

// ReviewDecision carries free-text feedback when Kind is DecisionFeedback.
type ReviewDecision struct {
	Kind     ReviewDecisionKind
	Feedback string
}

// ReviewItem pairs a proposal with its validation and a rendered diff.
type ReviewItem struct {
	Proposal   Proposal
	Validation ValidationResult
	Diff       string
}

// Review is the consolidated preview shown before anything is applied.
type Review struct {
	Title    string
	Commands []string
	Items    []ReviewItem
	Revision bool
}
