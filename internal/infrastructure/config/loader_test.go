package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shai-agent/assets"
	"github.com/doeshing/shai-agent/internal/domain"
)

func newTestLoader(path string, env map[string]string) *FileLoader {
	loader := NewFileLoader(path)
	loader.getenv = func(key string) string { return env[key] }
	return loader
}

func TestLoadWritesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := newTestLoader(path, nil).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4", cfg.Preferences.DefaultModel)
	assert.Equal(t, domain.SafetyStrict, cfg.GetSafetyMode())
	assert.Len(t, cfg.Models, 3)
	assert.True(t, cfg.History.Enabled)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, assets.DefaultConfigYAML, written)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(domain.SecureFilePermissions), info.Mode().Perm())
}

func TestLoadMergesOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
safety:
  mode: relaxed
execution:
  timeout_ms: 2500
search:
  confidence_floor: 30
`), 0o600))

	cfg, err := newTestLoader(path, nil).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.SafetyRelaxed, cfg.GetSafetyMode())
	assert.Equal(t, 2500, cfg.Execution.TimeoutMS)
	assert.Equal(t, 30, cfg.GetConfidenceFloor())
	assert.Equal(t, 5000, cfg.Execution.GraceMS)
	assert.Equal(t, "claude-sonnet-4", cfg.Preferences.DefaultModel)
	assert.True(t, cfg.ShouldEnforceAllowlist())
}

func TestLoadCustomModelsReplaceDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
preferences:
  default_model: ""
models:
  - name: local
    endpoint: http://localhost:8080/v1/chat/completions
    model_id: tiny
`), 0o600))

	cfg, err := newTestLoader(path, nil).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, cfg.Models, 1)
	assert.Equal(t, "local", cfg.Preferences.DefaultModel)
}

func TestLoadSafetyModeEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := newTestLoader(path, map[string]string{EnvSafetyMode: "OFF"}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SafetyOff, cfg.GetSafetyMode())
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "from-env.yaml")
	loader := newTestLoader("", map[string]string{EnvConfigPath: path})

	assert.Equal(t, path, loader.Path())
	_, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: [\n"), 0o600))

	_, err := newTestLoader(path, nil).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestSaveAndBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	loader := newTestLoader(path, nil)

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)

	backup, err := loader.Backup()
	require.NoError(t, err)
	assert.Equal(t, path+".bak", backup)

	cfg.Search.MaxResults = 3
	require.NoError(t, loader.Save(cfg))

	reloaded, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Search.MaxResults)

	original, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, assets.DefaultConfigYAML, original)
}

func TestDefaultsMatchLoadedDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	loaded, err := newTestLoader(path, nil).Load(context.Background())
	require.NoError(t, err)
	defaults, err := Defaults()
	require.NoError(t, err)

	assert.Equal(t, defaults, loaded)
}
