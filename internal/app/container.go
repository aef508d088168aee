package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	appconfig "github.com/doeshing/shai-agent/internal/application/config"
	"github.com/doeshing/shai-agent/internal/application/doctor"
	"github.com/doeshing/shai-agent/internal/application/orchestrator"
	"github.com/doeshing/shai-agent/internal/application/proposal"
	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/infrastructure/ai"
	"github.com/doeshing/shai-agent/internal/infrastructure/config"
	"github.com/doeshing/shai-agent/internal/infrastructure/diff"
	"github.com/doeshing/shai-agent/internal/infrastructure/edit"
	"github.com/doeshing/shai-agent/internal/infrastructure/executor"
	"github.com/doeshing/shai-agent/internal/infrastructure/history"
	"github.com/doeshing/shai-agent/internal/infrastructure/search"
	"github.com/doeshing/shai-agent/internal/infrastructure/security"
	"github.com/doeshing/shai-agent/internal/pkg/filesystem"
	"github.com/doeshing/shai-agent/internal/pkg/logger"
	"github.com/doeshing/shai-agent/internal/ports"
)

// Container wires up application services with infrastructure adapters.
// The Orchestrator's Reviewer is left for the CLI to attach.
type Container struct {
	Config         domain.Config
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Orchestrator   *orchestrator.Service
	DoctorService  *doctor.Service
	HistoryStore   ports.HistoryRepository
	Safety         *security.Classifier
	Logger         *logger.ZapLogger
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	log := logger.New(verbose)

	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", cfgLoader.Path(), err)
	}

	policy, err := security.LoadPolicy(cfg.Safety.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load safety rules: %w", err)
	}
	classifier := security.NewClassifier(cfg.GetSafetyMode(), policy, cfg.ShouldEnforceAllowlist())
	if classifier.Mode() != domain.SafetyStrict {
		log.Warn("shell safety checks relaxed", map[string]interface{}{"mode": string(classifier.Mode())})
	}

	model, err := cfg.GetDefaultModel()
	if err != nil {
		return nil, err
	}
	provider, err := ai.NewFactory(time.Duration(cfg.GetTimeoutSeconds()) * time.Second).ForModel(model)
	if err != nil {
		return nil, fmt.Errorf("provider init: %w", err)
	}
	reasoner := ai.NewReasoner(provider, log, verbose)

	applier := edit.NewApplier(log)
	var semantic proposal.SemanticChecker
	if cfg.Validation.Semantic {
		semantic = reasoner
	}

	historyStore := openHistory(cfg, log)

	orchestratorService := &orchestrator.Service{
		Reasoner: reasoner,
		Searcher: search.NewEngine(log,
			search.WithConfidenceFloor(cfg.GetConfidenceFloor()),
			search.WithMaxResults(cfg.GetMaxSearchResults()),
			search.WithMaxFileBytes(cfg.GetMaxFileBytes()),
		),
		Validator: proposal.NewValidator(policy.Denylist(), applier, semantic, cfg.GetBatchCharBudget(), log),
		Safety:    classifier,
		Executor: executor.NewLocalExecutor(cfg.GetExecutionShell(), log,
			executor.WithMaxOutput(cfg.GetMaxOutputBytes()),
			executor.WithDefaults(cfg.GetCommandTimeout(), cfg.GetGracePeriod()),
		),
		Editor:  applier,
		Diff:    diff.NewRenderer(),
		History: historyStore,
		Logger:  log,
		Options: orchestrator.Options{
			CommandTimeout: cfg.GetCommandTimeout(),
			GracePeriod:    cfg.GetGracePeriod(),
			Interactive:    cfg.Execution.Interactive,
			RecentTurns:    cfg.GetRecentTurns(),
		},
	}

	doctorService := &doctor.Service{
		ConfigProvider: cfgLoader,
		Safety:         classifier,
		History:        historyStore,
	}

	return &Container{
		Config:         cfg,
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Orchestrator:   orchestratorService,
		DoctorService:  doctorService,
		HistoryStore:   historyStore,
		Safety:         classifier,
		Logger:         log,
	}, nil
}

// openHistory prefers SQLite and falls back to a JSON lines file next to it.
// A nil repository disables history.
func openHistory(cfg domain.Config, log ports.Logger) ports.HistoryRepository {
	if !cfg.History.Enabled {
		return nil
	}
	path := cfg.History.Path
	if path == "" {
		path = filepath.Join(filesystem.UserHomeDir(), ".shai", "history", "history.db")
	}
	store, err := history.NewSQLiteStore(path)
	if err == nil {
		return store
	}
	fallback := strings.TrimSuffix(path, filepath.Ext(path)) + ".jsonl"
	log.Warn("sqlite history unavailable, using jsonl", map[string]interface{}{
		"error": err.Error(),
		"path":  fallback,
	})
	return history.NewFileStore(fallback)
}
