package domain

import (
	"fmt"
	"strings"
)

// IntentKind discriminates the two intent shapes.
type IntentKind string

const (
	IntentQuestion IntentKind = "question"
	IntentEdit     IntentKind = "edit"
)

// Action names understood by the orchestrator.
const (
	ActionAddCode        = "add_code"
	ActionModifyCode     = "modify_code"
	ActionShellCommand   = "shell_command"
	ActionCompoundAction = "compound_action"
)

// Intent is the classification of one user turn.
type Intent struct {
	Kind        IntentKind     `json:"type"`
	Question    string         `json:"question,omitempty"`
	Action      string         `json:"action,omitempty"`
	Target      string         `json:"target,omitempty"`
	Description string         `json:"description,omitempty"`
	Command     string         `json:"command,omitempty"`
	Steps       []CompoundStep `json:"steps,omitempty"`
}

// CompoundStep is one ordered step of a compound action.
type CompoundStep struct {
	Action      string `json:"action"`
	Target      string `json:"target"`
	Description string `json:"description"`
	Command     string `json:"command,omitempty"`
}

// IsShell reports whether the step runs a command instead of changing code.
func (s CompoundStep) IsShell() bool {
	return s.Action == ActionShellCommand
}

// AsIntent lifts a code step into a single edit intent for search and proposal.
func (s CompoundStep) AsIntent() Intent {
	return Intent{
		Kind:        IntentEdit,
		Action:      s.Action,
		Target:      s.Target,
		Description: s.Description,
		Command:     s.Command,
	}
}

// Validate enforces the intent schema invariants.
func (i Intent) Validate() error {
	switch i.Kind {
	case IntentQuestion:
		if strings.TrimSpace(i.Question) == "" {
			return fmt.Errorf("%w: question intent requires question", ErrSchemaInvalid)
		}
		return nil
	case IntentEdit:
	default:
		return fmt.Errorf("%w: unknown intent type %q", ErrSchemaInvalid, i.Kind)
	}

	switch i.Action {
	case ActionAddCode, ActionModifyCode:
		return nil
	case ActionShellCommand:
		if strings.TrimSpace(i.Command) == "" {
			return fmt.Errorf("%w: shell_command requires command", ErrSchemaInvalid)
		}
		return nil
	case ActionCompoundAction:
		if len(i.Steps) == 0 {
			return fmt.Errorf("%w: compound_action requires non-empty steps", ErrSchemaInvalid)
		}
		for idx, step := range i.Steps {
			if err := step.Validate(); err != nil {
				return fmt.Errorf("step %d: %w", idx+1, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown action %q", ErrSchemaInvalid, i.Action)
	}
}

// Validate enforces the step schema invariants.
func (s CompoundStep) Validate() error {
	switch s.Action {
	case ActionAddCode, ActionModifyCode:
		return nil
	case ActionShellCommand:
		if strings.TrimSpace(s.Command) == "" {
			return fmt.Errorf("%w: shell step requires command", ErrSchemaInvalid)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown step action %q", ErrSchemaInvalid, s.Action)
	}
}
