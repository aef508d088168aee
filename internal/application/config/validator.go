package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/shai-agent/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if len(cfg.Models) == 0 {
		return errors.New("at least one model must be configured")
	}
	if err := cfg.ValidateConsistency(); err != nil {
		return err
	}
	for _, model := range cfg.Models {
		if err := validateModel(model); err != nil {
			return err
		}
	}
	if err := validateExecution(cfg.Execution); err != nil {
		return err
	}
	if err := validateSearch(cfg.Search); err != nil {
		return err
	}
	if err := validateHistory(cfg.History); err != nil {
		return err
	}
	return nil
}

func validateModel(model domain.ModelDefinition) error {
	if strings.TrimSpace(model.Name) == "" {
		return errors.New("models: every model needs a name")
	}
	if !strings.HasPrefix(model.Endpoint, "http://") && !strings.HasPrefix(model.Endpoint, "https://") {
		return fmt.Errorf("model %s: endpoint must be an http(s) URL, got %q", model.Name, model.Endpoint)
	}
	switch model.APIFormat.GetSystemMessageMode() {
	case domain.SystemMessageModeInline, domain.SystemMessageModeSeparate:
	default:
		return fmt.Errorf("model %s: system_message_mode must be inline|separate", model.Name)
	}
	switch model.APIFormat.GetContentWrapper() {
	case domain.ContentWrapperStandard, domain.ContentWrapperAnthropic:
	default:
		return fmt.Errorf("model %s: content_wrapper must be standard|anthropic", model.Name)
	}
	return nil
}

func validateExecution(exec domain.ExecutionSettings) error {
	if exec.TimeoutMS < 0 {
		return fmt.Errorf("execution.timeout_ms must be >= 0")
	}
	if exec.GraceMS < 0 {
		return fmt.Errorf("execution.grace_ms must be >= 0")
	}
	if exec.MaxOutputBytes < 0 {
		return fmt.Errorf("execution.max_output_bytes must be >= 0")
	}
	return nil
}

func validateSearch(search domain.SearchSettings) error {
	if search.ConfidenceFloor < 0 {
		return fmt.Errorf("search.confidence_floor must be >= 0")
	}
	if search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be >= 0")
	}
	return nil
}

func validateHistory(history domain.HistorySettings) error {
	if history.RecentTurns < 0 {
		return fmt.Errorf("history.recent_turns must be >= 0")
	}
	return nil
}
