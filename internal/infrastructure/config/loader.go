package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/shai-agent/assets"
	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/pkg/filesystem"
	"github.com/doeshing/shai-agent/internal/ports"
)

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "SHAI_CONFIG"
	// EnvSafetyMode overrides safety.mode.
	EnvSafetyMode = "SHAI_SAFETY_MODE"
)

// FileLoader loads YAML configuration from ~/.shai/config.yaml (overridable via SHAI_CONFIG).
type FileLoader struct {
	overridePath string
	getenv       func(string) string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path, getenv: os.Getenv}
}

// Path returns the file the loader reads.
func (l *FileLoader) Path() string {
	return l.resolvePath()
}

// Load implements ports.ConfigProvider. Values missing from the file fall
// back to the embedded defaults; a missing file is created from them.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()

	cfg, err := defaultConfig()
	if err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := writeDefault(path); err != nil {
			return domain.Config{}, err
		}
	case err != nil:
		return domain.Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return domain.Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	return l.applyEnv(hydrateDefaults(cfg)), nil
}

// Save writes cfg to the loader's path with owner-only permissions.
func (l *FileLoader) Save(cfg domain.Config) error {
	path := l.resolvePath()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Backup copies the current file next to itself and returns the copy's path.
func (l *FileLoader) Backup() (string, error) {
	path := l.resolvePath()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read config %s: %w", path, err)
	}
	backup := path + ".bak"
	if err := os.WriteFile(backup, data, domain.SecureFilePermissions); err != nil {
		return "", fmt.Errorf("write backup %s: %w", backup, err)
	}
	return backup, nil
}

// Defaults returns the embedded configuration after default hydration.
func Defaults() (domain.Config, error) {
	cfg, err := defaultConfig()
	if err != nil {
		return domain.Config{}, err
	}
	return hydrateDefaults(cfg), nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return filesystem.ExpandHome(l.overridePath)
	}
	if custom := l.getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandHome(custom)
	}
	return filepath.Join(filesystem.UserHomeDir(), ".shai", "config.yaml")
}

func (l *FileLoader) applyEnv(cfg domain.Config) domain.Config {
	if mode := strings.TrimSpace(l.getenv(EnvSafetyMode)); mode != "" {
		cfg.Safety.Mode = domain.ParseSafetyMode(mode)
	}
	return cfg
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

func defaultConfig() (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse embedded config: %w", err)
	}
	return cfg, nil
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.Preferences.DefaultModel == "" && len(cfg.Models) > 0 {
		cfg.Preferences.DefaultModel = cfg.Models[0].Name
	}
	if cfg.Safety.Mode == "" {
		cfg.Safety.Mode = domain.SafetyStrict
	}
	if cfg.Safety.RulesFile != "" {
		cfg.Safety.RulesFile = filesystem.ExpandHome(cfg.Safety.RulesFile)
	}
	if cfg.History.Path != "" {
		cfg.History.Path = filesystem.ExpandHome(cfg.History.Path)
	}
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
