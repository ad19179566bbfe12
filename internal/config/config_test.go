package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_DefaultsAreValid(t *testing.T) {
	cfg := NewConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Indexing.BatchSize)
	assert.Equal(t, 1500, cfg.Chunking.TargetWords)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.BatchPauseDuration())
	assert.Equal(t, 100*time.Millisecond, cfg.PollIntervalDuration())
}

func TestLoad_NoConfigFilesUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Indexing, cfg.Indexing)
}

func TestLoad_ProjectConfigOverridesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	yaml := `
indexing:
  batch_size: 25
chunking:
  target_words: 500
  max_words: 800
  min_words: 300
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".inkdex.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Indexing.BatchSize)
	assert.Equal(t, 500, cfg.Chunking.TargetWords)
	assert.Equal(t, 800, cfg.Chunking.MaxWords)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, "50ms", cfg.Indexing.BatchPause)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	yaml := "indexing:\n  batch_size: 25\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".inkdex.yaml"), []byte(yaml), 0o644))
	t.Setenv("INKDEX_BATCH_SIZE", "5")
	t.Setenv("INKDEX_DATA_DIR", "/tmp/inkdex-test")
	t.Setenv("INKDEX_LOG_LEVEL", "error")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Indexing.BatchSize)
	assert.Equal(t, "/tmp/inkdex-test", cfg.Paths.DataDir)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoad_UserConfigApplies(t *testing.T) {
	userDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", userDir)
	require.NoError(t, os.MkdirAll(filepath.Join(userDir, "inkdex"), 0o755))
	yaml := "retry:\n  max_attempts: 7\n"
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "inkdex", "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.Indexing.BatchSize = 0 }},
		{"bad batch pause", func(c *Config) { c.Indexing.BatchPause = "soon" }},
		{"max below target", func(c *Config) { c.Chunking.MaxWords = 100 }},
		{"min above target", func(c *Config) { c.Chunking.MinWords = 5000 }},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"shrinking multiplier", func(c *Config) { c.Retry.Multiplier = 0.5 }},
		{"max delay below initial", func(c *Config) { c.Retry.MaxDelay = "1ms" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPaths_DerivedLocations(t *testing.T) {
	p := PathsConfig{DataDir: "/data/inkdex"}

	assert.Equal(t, "/data/inkdex/index.bleve", p.IndexPath())
	assert.Equal(t, "/data/inkdex/catalog.db", p.CatalogPath())
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Indexing.BatchSize = 42

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".inkdex.yaml")))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Indexing.BatchSize)
}
