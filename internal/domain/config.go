package domain

// Config mirrors ~/.shai/config.yaml.
type Config struct {
	ConfigFormatVersion string             `yaml:"config_format_version"`
	Preferences         Preferences        `yaml:"preferences"`
	Models              []ModelDefinition  `yaml:"models"`
	Safety              SafetySettings     `yaml:"safety"`
	Execution           ExecutionSettings  `yaml:"execution"`
	Search              SearchSettings     `yaml:"search"`
	Validation          ValidationSettings `yaml:"validation"`
	History             HistorySettings    `yaml:"history"`
}

// Preferences captures user level toggles.
type Preferences struct {
	DefaultModel   string   `yaml:"default_model"`
	FallbackModels []string `yaml:"fallback_models,omitempty"`
	TimeoutSeconds int      `yaml:"timeout"`
}

// SafetySettings selects the shell safety policy.
type SafetySettings struct {
	Mode             SafetyMode `yaml:"mode"`
	RulesFile        string     `yaml:"rules_file"`
	EnforceAllowlist *bool      `yaml:"enforce_allowlist,omitempty"`
}

// ExecutionSettings controls how commands run.
type ExecutionSettings struct {
	Shell          string `yaml:"shell"`
	TimeoutMS      int    `yaml:"timeout_ms"`
	GraceMS        int    `yaml:"grace_ms"`
	MaxOutputBytes int64  `yaml:"max_output_bytes"`
	Interactive    bool   `yaml:"interactive"`
}

// SearchSettings tunes the relevance search.
type SearchSettings struct {
	ConfidenceFloor int   `yaml:"confidence_floor"`
	MaxResults      int   `yaml:"max_results"`
	MaxFileBytes    int64 `yaml:"max_file_bytes"`
}

// ValidationSettings tunes proposal validation.
type ValidationSettings struct {
	Semantic        bool `yaml:"semantic"`
	BatchCharBudget int  `yaml:"batch_char_budget"`
}

// HistorySettings controls the turn log.
type HistorySettings struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	RecentTurns int    `yaml:"recent_turns"`
}
