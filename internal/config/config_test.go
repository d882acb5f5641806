package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 0.65, cfg.Search.SemanticWeight)
	assert.Equal(t, 60, cfg.Search.RRFK)
	assert.Equal(t, filepath.Join(".kestrel", "index"), cfg.Paths.IndexDir)
	assert.Equal(t, 200*time.Millisecond, cfg.DebounceWindow())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
search:
  semantic_weight: 0.4
  rrf_k: 30
  max_results: 50
paths:
  index_dir: custom/index
  include_extensions: [swift, md]
watch:
  debounce_ms: 500
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Search.SemanticWeight)
	assert.Equal(t, 30, cfg.Search.RRFK)
	assert.Equal(t, "custom/index", cfg.Paths.IndexDir)
	assert.Equal(t, []string{"swift", "md"}, cfg.Paths.IncludeExtensions)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceWindow())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("KESTREL_SEMANTIC_WEIGHT", "0.9")
	t.Setenv("KESTREL_LOG_LEVEL", "debug")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName),
		[]byte("search:\n  semantic_weight: 0.4\nlog_level: info\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Search.SemanticWeight)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsInvalidWeight(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName),
		[]byte("search:\n  semantic_weight: 1.5\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, kerrors.IsKind(err, kerrors.KindConfig))
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName),
		[]byte("search: ["), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, kerrors.IsKind(err, kerrors.KindConfig))
}
