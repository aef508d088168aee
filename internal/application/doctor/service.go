package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	appconfig "github.com/doeshing/shai-agent/internal/application/config"
	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/ports"
)

// probes are commands whose verdicts must not change under the strict policy.
var probes = []struct {
	command string
	safe    bool
}{
	{command: "ls -la", safe: true},
	{command: "rm -rf /", safe: false},
}

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Safety         ports.SafetyClassifier
	History        ports.HistoryRepository
	LookPath       func(string) (string, error)
	Getenv         func(string) string
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		checks = append(checks, fail("Config file", err.Error()))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("format %s, default model %s", cfg.ConfigFormatVersion, cfg.Preferences.DefaultModel)))
	}

	checks = append(checks, s.safetyCheck())
	checks = append(checks, s.shellCheck(cfg.GetExecutionShell()))

	if s.History != nil {
		if _, err := s.History.Records(1, ""); err != nil {
			checks = append(checks, warn("History", err.Error()))
		} else {
			checks = append(checks, ok("History", "store readable"))
		}
	}

	checks = append(checks, s.apiCheck(cfg.Models))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) safetyCheck() domain.HealthCheck {
	if s.Safety == nil {
		return warn("Safety policy", "classifier not initialized")
	}
	mode := s.Safety.Mode()
	if mode != domain.SafetyStrict {
		return warn("Safety policy", fmt.Sprintf("mode %s: commands are not filtered", mode))
	}
	for _, probe := range probes {
		if verdict := s.Safety.IsSafe(probe.command); verdict.Safe != probe.safe {
			return fail("Safety policy", fmt.Sprintf("unexpected verdict for %q: %s", probe.command, verdict.Reason))
		}
	}
	return ok("Safety policy", "strict rules loaded")
}

func (s *Service) shellCheck(shell string) domain.HealthCheck {
	lookPath := s.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(shell)
	if err != nil {
		return fail("Shell", fmt.Sprintf("%s not found: %v", shell, err))
	}
	return ok("Shell", path)
}

func (s *Service) apiCheck(models []domain.ModelDefinition) domain.HealthCheck {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	var missing []string
	for _, model := range models {
		if model.AuthEnvVar != "" && getenv(model.AuthEnvVar) == "" {
			missing = append(missing, model.AuthEnvVar)
		}
	}
	if len(missing) > 0 {
		return warn("API keys", fmt.Sprintf("missing %v", missing))
	}
	return ok("API keys", "detected for configured models")
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
