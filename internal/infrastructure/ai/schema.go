package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/doeshing/shai-agent/internal/domain"
)

// Wire types mirror the Reasoning Service contract exactly. Unknown fields
// and missing required fields are schema violations.

type intentWire struct {
	Type        string     `json:"type"`
	Question    string     `json:"question"`
	Action      string     `json:"action"`
	Target      string     `json:"target"`
	Description string     `json:"description"`
	Command     string     `json:"command"`
	Steps       []stepWire `json:"steps"`
}

type stepWire struct {
	Action      string `json:"action"`
	Target      string `json:"target"`
	Description string `json:"description"`
	Command     string `json:"command"`
}

type proposalsWire struct {
	Proposals []proposalWire `json:"proposals"`
}

type proposalWire struct {
	File        *string `json:"file"`
	Original    *string `json:"original"`
	Replacement *string `json:"replacement"`
	LineNumber  *int    `json:"lineNumber"`
	Explanation string  `json:"explanation"`
}

type validationWire struct {
	Results []validationResultWire `json:"results"`
}

type validationResultWire struct {
	IsValid  *bool    `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func decodeStrict(raw string, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON value", domain.ErrSchemaInvalid)
	}
	return nil
}

func parseIntent(reply string) (domain.Intent, error) {
	raw, err := extractJSON(reply)
	if err != nil {
		return domain.Intent{}, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	var wire intentWire
	if err := decodeStrict(raw, &wire); err != nil {
		return domain.Intent{}, err
	}

	intent := domain.Intent{
		Kind:        domain.IntentKind(strings.ToLower(strings.TrimSpace(wire.Type))),
		Question:    strings.TrimSpace(wire.Question),
		Action:      strings.TrimSpace(wire.Action),
		Target:      strings.TrimSpace(wire.Target),
		Description: strings.TrimSpace(wire.Description),
		Command:     strings.TrimSpace(wire.Command),
	}
	for _, step := range wire.Steps {
		intent.Steps = append(intent.Steps, domain.CompoundStep{
			Action:      strings.TrimSpace(step.Action),
			Target:      strings.TrimSpace(step.Target),
			Description: strings.TrimSpace(step.Description),
			Command:     strings.TrimSpace(step.Command),
		})
	}
	if err := intent.Validate(); err != nil {
		return domain.Intent{}, err
	}
	return intent, nil
}

func parseProposals(reply string) ([]domain.Proposal, error) {
	raw, err := extractJSON(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	var wire proposalsWire
	if err := decodeStrict(raw, &wire); err != nil {
		return nil, err
	}
	if len(wire.Proposals) == 0 {
		return nil, fmt.Errorf("%w: proposals must be non-empty", domain.ErrSchemaInvalid)
	}

	out := make([]domain.Proposal, 0, len(wire.Proposals))
	for idx, p := range wire.Proposals {
		if p.File == nil || strings.TrimSpace(*p.File) == "" {
			return nil, fmt.Errorf("%w: proposal %d requires file", domain.ErrSchemaInvalid, idx+1)
		}
		if p.Replacement == nil {
			return nil, fmt.Errorf("%w: proposal %d requires replacement", domain.ErrSchemaInvalid, idx+1)
		}
		if p.LineNumber != nil && *p.LineNumber < 1 {
			return nil, fmt.Errorf("%w: proposal %d lineNumber must be >= 1 or null", domain.ErrSchemaInvalid, idx+1)
		}
		original := ""
		if p.Original != nil {
			original = *p.Original
		}
		out = append(out, domain.Proposal{
			File:        strings.TrimSpace(*p.File),
			Original:    original,
			Replacement: *p.Replacement,
			LineNumber:  p.LineNumber,
			Explanation: strings.TrimSpace(p.Explanation),
		})
	}
	return out, nil
}

func parseValidation(reply string, expected int) ([]domain.ValidationResult, error) {
	raw, err := extractJSON(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	var wire validationWire
	if err := decodeStrict(raw, &wire); err != nil {
		return nil, err
	}
	if len(wire.Results) != expected {
		return nil, fmt.Errorf("%w: expected %d results, got %d", domain.ErrSchemaInvalid, expected, len(wire.Results))
	}

	out := make([]domain.ValidationResult, 0, len(wire.Results))
	for idx, r := range wire.Results {
		if r.IsValid == nil {
			return nil, fmt.Errorf("%w: result %d requires isValid", domain.ErrSchemaInvalid, idx+1)
		}
		if !*r.IsValid && len(r.Errors) == 0 {
			return nil, fmt.Errorf("%w: invalid result %d requires errors", domain.ErrSchemaInvalid, idx+1)
		}
		if *r.IsValid {
			out = append(out, domain.Valid(r.Warnings...))
			continue
		}
		result := domain.Invalid(r.Errors...)
		result.Warnings = append(result.Warnings, r.Warnings...)
		out = append(out, result)
	}
	return out, nil
}
