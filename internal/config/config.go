// Package config loads and validates inkdex configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete inkdex configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	Paths    PathsConfig    `yaml:"paths" json:"paths"`
	Indexing IndexingConfig `yaml:"indexing" json:"indexing"`
	Chunking ChunkingConfig `yaml:"chunking" json:"chunking"`
	Retry    RetryConfig    `yaml:"retry" json:"retry"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// PathsConfig locates the on-disk index and catalog.
type PathsConfig struct {
	// DataDir is the root directory for index data.
	// Defaults to ~/.inkdex.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// IndexPath returns the Bleve index location under the data dir.
func (p PathsConfig) IndexPath() string {
	return filepath.Join(p.DataDir, "index.bleve")
}

// CatalogPath returns the metadata catalog location under the data dir.
func (p PathsConfig) CatalogPath() string {
	return filepath.Join(p.DataDir, "catalog.db")
}

// IndexingConfig tunes the coordinator's batch scheduling.
type IndexingConfig struct {
	// BatchSize is the number of items per batch.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// BatchPause is the yield between batches (e.g. "50ms").
	BatchPause string `yaml:"batch_pause" json:"batch_pause"`
	// PollInterval is the completion-poll sleep (e.g. "100ms").
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
}

// ChunkingConfig holds the word budgets for long documents.
type ChunkingConfig struct {
	TargetWords int `yaml:"target_words" json:"target_words"`
	MaxWords    int `yaml:"max_words" json:"max_words"`
	MinWords    int `yaml:"min_words" json:"min_words"`
}

// RetryConfig tunes backend-call retries.
type RetryConfig struct {
	MaxAttempts  int     `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay string  `yaml:"initial_delay" json:"initial_delay"`
	Multiplier   float64 `yaml:"multiplier" json:"multiplier"`
	MaxDelay     string  `yaml:"max_delay" json:"max_delay"`
}

// LoggingConfig tunes structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir: defaultDataDir(),
		},
		Indexing: IndexingConfig{
			BatchSize:    10,
			BatchPause:   "50ms",
			PollInterval: "100ms",
		},
		Chunking: ChunkingConfig{
			TargetWords: 1500,
			MaxWords:    2000,
			MinWords:    1000,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: "500ms",
			Multiplier:   2.0,
			MaxDelay:     "8s",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".inkdex")
	}
	return filepath.Join(home, ".inkdex")
}

// GetUserConfigPath returns the user configuration file path, following
// the XDG base directory convention.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "inkdex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "inkdex", "config.yaml")
	}
	return filepath.Join(home, ".config", "inkdex", "config.yaml")
}

// Load builds the configuration for the given project directory, in
// order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/inkdex/config.yaml)
//  3. Project config (.inkdex.yaml in dir)
//  4. Environment variables (INKDEX_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userPath := GetUserConfigPath()
	if fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	for _, name := range []string{".inkdex.yaml", ".inkdex.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML loads a YAML file and merges its non-zero values.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.DataDir != "" {
		c.Paths.DataDir = other.Paths.DataDir
	}

	if other.Indexing.BatchSize != 0 {
		c.Indexing.BatchSize = other.Indexing.BatchSize
	}
	if other.Indexing.BatchPause != "" {
		c.Indexing.BatchPause = other.Indexing.BatchPause
	}
	if other.Indexing.PollInterval != "" {
		c.Indexing.PollInterval = other.Indexing.PollInterval
	}

	if other.Chunking.TargetWords != 0 {
		c.Chunking.TargetWords = other.Chunking.TargetWords
	}
	if other.Chunking.MaxWords != 0 {
		c.Chunking.MaxWords = other.Chunking.MaxWords
	}
	if other.Chunking.MinWords != 0 {
		c.Chunking.MinWords = other.Chunking.MinWords
	}

	if other.Retry.MaxAttempts != 0 {
		c.Retry.MaxAttempts = other.Retry.MaxAttempts
	}
	if other.Retry.InitialDelay != "" {
		c.Retry.InitialDelay = other.Retry.InitialDelay
	}
	if other.Retry.Multiplier != 0 {
		c.Retry.Multiplier = other.Retry.Multiplier
	}
	if other.Retry.MaxDelay != "" {
		c.Retry.MaxDelay = other.Retry.MaxDelay
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies INKDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("INKDEX_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("INKDEX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Indexing.BatchSize = n
		}
	}
	if v := os.Getenv("INKDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("INKDEX_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("INKDEX_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retry.MaxAttempts = n
		}
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Indexing.BatchSize < 1 {
		return fmt.Errorf("indexing.batch_size must be >= 1, got %d", c.Indexing.BatchSize)
	}
	if _, err := time.ParseDuration(c.Indexing.BatchPause); err != nil {
		return fmt.Errorf("indexing.batch_pause is not a duration: %w", err)
	}
	if _, err := time.ParseDuration(c.Indexing.PollInterval); err != nil {
		return fmt.Errorf("indexing.poll_interval is not a duration: %w", err)
	}

	if c.Chunking.TargetWords < 1 {
		return fmt.Errorf("chunking.target_words must be >= 1, got %d", c.Chunking.TargetWords)
	}
	if c.Chunking.MaxWords < c.Chunking.TargetWords {
		return fmt.Errorf("chunking.max_words (%d) must be >= chunking.target_words (%d)",
			c.Chunking.MaxWords, c.Chunking.TargetWords)
	}
	if c.Chunking.MinWords < 0 || c.Chunking.MinWords > c.Chunking.TargetWords {
		return fmt.Errorf("chunking.min_words (%d) must be between 0 and chunking.target_words (%d)",
			c.Chunking.MinWords, c.Chunking.TargetWords)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be >= 1, got %g", c.Retry.Multiplier)
	}
	initial, err := time.ParseDuration(c.Retry.InitialDelay)
	if err != nil {
		return fmt.Errorf("retry.initial_delay is not a duration: %w", err)
	}
	max, err := time.ParseDuration(c.Retry.MaxDelay)
	if err != nil {
		return fmt.Errorf("retry.max_delay is not a duration: %w", err)
	}
	if max < initial {
		return fmt.Errorf("retry.max_delay (%s) must be >= retry.initial_delay (%s)",
			c.Retry.MaxDelay, c.Retry.InitialDelay)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// BatchPauseDuration returns the parsed batch pause. Call after
// Validate.
func (c *Config) BatchPauseDuration() time.Duration {
	d, _ := time.ParseDuration(c.Indexing.BatchPause)
	return d
}

// PollIntervalDuration returns the parsed poll interval. Call after
// Validate.
func (c *Config) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Indexing.PollInterval)
	return d
}

// RetryDelays returns the parsed retry delays. Call after Validate.
func (c *Config) RetryDelays() (initial, max time.Duration) {
	initial, _ = time.ParseDuration(c.Retry.InitialDelay)
	max, _ = time.ParseDuration(c.Retry.MaxDelay)
	return initial, max
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
