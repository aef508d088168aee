package domain

import (
	"fmt"
	"time"
)

// GetDefaultModel retrieves the default model definition from configuration.
func (c *Config) GetDefaultModel() (ModelDefinition, error) {
	if c.Preferences.DefaultModel == "" {
		return ModelDefinition{}, fmt.Errorf("no default model configured")
	}

	for _, model := range c.Models {
		if model.Name == c.Preferences.DefaultModel {
			return model, nil
		}
	}

	return ModelDefinition{}, fmt.Errorf("default model %s not found in configuration", c.Preferences.DefaultModel)
}

// FindModelByName searches for a model by its name.
func (c *Config) FindModelByName(name string) (ModelDefinition, bool) {
	for _, model := range c.Models {
		if model.Name == name {
			return model, true
		}
	}
	return ModelDefinition{}, false
}

// HasModel checks if a model with the given name exists in the configuration.
func (c *Config) HasModel(name string) bool {
	_, exists := c.FindModelByName(name)
	return exists
}

// GetFallbackModels returns the configured fallback models that actually exist.
func (c *Config) GetFallbackModels() []ModelDefinition {
	var fallbackModels []ModelDefinition
	for _, fallbackName := range c.Preferences.FallbackModels {
		if model, exists := c.FindModelByName(fallbackName); exists {
			fallbackModels = append(fallbackModels, model)
		}
	}
	return fallbackModels
}

// GetSafetyMode returns the configured mode, strict when unset or unknown.
func (c *Config) GetSafetyMode() SafetyMode {
	return ParseSafetyMode(string(c.Safety.Mode))
}

// ShouldEnforceAllowlist reports whether unknown base commands are rejected in strict mode.
func (c *Config) ShouldEnforceAllowlist() bool {
	if c.Safety.EnforceAllowlist == nil {
		return true
	}
	return *c.Safety.EnforceAllowlist
}

// GetExecutionShell returns the shell used for `-c` execution.
func (c *Config) GetExecutionShell() string {
	const defaultShell = "/bin/sh"

	if c.Execution.Shell == "" || c.Execution.Shell == "auto" {
		return defaultShell
	}
	return c.Execution.Shell
}

// GetCommandTimeout returns the per-command time box.
func (c *Config) GetCommandTimeout() time.Duration {
	if c.Execution.TimeoutMS <= 0 {
		return DefaultCommandTimeout
	}
	return time.Duration(c.Execution.TimeoutMS) * time.Millisecond
}

// GetGracePeriod returns the window between SIGTERM and SIGKILL.
func (c *Config) GetGracePeriod() time.Duration {
	if c.Execution.GraceMS <= 0 {
		return DefaultGracePeriod
	}
	return time.Duration(c.Execution.GraceMS) * time.Millisecond
}

// GetMaxOutputBytes returns the capture cap per output stream.
func (c *Config) GetMaxOutputBytes() int64 {
	if c.Execution.MaxOutputBytes <= 0 {
		return DefaultMaxOutputBytes
	}
	return c.Execution.MaxOutputBytes
}

// GetConfidenceFloor returns the minimum score for an existing-file match.
func (c *Config) GetConfidenceFloor() int {
	if c.Search.ConfidenceFloor <= 0 {
		return DefaultConfidenceFloor
	}
	return c.Search.ConfidenceFloor
}

// GetMaxSearchResults returns how many ranked matches are kept.
func (c *Config) GetMaxSearchResults() int {
	if c.Search.MaxResults <= 0 {
		return DefaultMaxSearchResults
	}
	return c.Search.MaxResults
}

// GetMaxFileBytes returns the size above which files are not scanned.
func (c *Config) GetMaxFileBytes() int64 {
	if c.Search.MaxFileBytes <= 0 {
		return DefaultMaxFileBytes
	}
	return c.Search.MaxFileBytes
}

// GetBatchCharBudget returns the character budget of one semantic validation request.
func (c *Config) GetBatchCharBudget() int {
	if c.Validation.BatchCharBudget <= 0 {
		return DefaultBatchCharBudget
	}
	return c.Validation.BatchCharBudget
}

// GetRecentTurns returns how many past turns are sent as classification context.
func (c *Config) GetRecentTurns() int {
	if c.History.RecentTurns <= 0 {
		return DefaultRecentTurns
	}
	return c.History.RecentTurns
}

// GetTimeoutSeconds returns the reasoning request timeout in seconds.
func (c *Config) GetTimeoutSeconds() int {
	const defaultTimeoutSeconds = 60

	if c.Preferences.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds
	}
	return c.Preferences.TimeoutSeconds
}

// ValidateConsistency checks the internal consistency of the configuration.
func (c *Config) ValidateConsistency() error {
	if c.Preferences.DefaultModel != "" && !c.HasModel(c.Preferences.DefaultModel) {
		return fmt.Errorf("default model %s does not exist in models list", c.Preferences.DefaultModel)
	}

	for _, fallbackName := range c.Preferences.FallbackModels {
		if !c.HasModel(fallbackName) {
			return fmt.Errorf("fallback model %s does not exist in models list", fallbackName)
		}
	}

	if c.Safety.Mode != "" && !IsKnownSafetyMode(string(c.Safety.Mode)) {
		return fmt.Errorf("safety mode %q must be strict|relaxed|off", c.Safety.Mode)
	}

	return nil
}
