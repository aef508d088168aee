package domain

import (
	"strings"
	"time"
)

// ShellResult is produced per executed command. ExitCode 0 means success.
type ShellResult struct {
	Command   string        `json:"command"`
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr"`
	ExitCode  int           `json:"exitCode"`
	TimedOut  bool          `json:"timedOut,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Succeeded reports a zero exit code.
func (r ShellResult) Succeeded() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// SafetyMode enumerates shell policy strictness levels.
type SafetyMode string

const (
	SafetyStrict  SafetyMode = "strict"
	SafetyRelaxed SafetyMode = "relaxed"
	SafetyOff     SafetyMode = "off"
)

// ParseSafetyMode maps a raw toggle value to a mode; anything unknown is strict.
func ParseSafetyMode(value string) SafetyMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(SafetyRelaxed):
		return SafetyRelaxed
	case string(SafetyOff):
		return SafetyOff
	default:
		return SafetyStrict
	}
}

// IsKnownSafetyMode reports whether value names one of the supported modes.
func IsKnownSafetyMode(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(SafetyStrict), string(SafetyRelaxed), string(SafetyOff):
		return true
	default:
		return false
	}
}

// SafetyVerdict is the classifier outcome for one command.
type SafetyVerdict struct {
	Safe   bool
	Reason string
}
