// Package cmd provides the CLI commands for inkdex.
package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell-hq/inkdex/internal/chunker"
	"github.com/inkwell-hq/inkdex/internal/config"
	errs "github.com/inkwell-hq/inkdex/internal/errors"
	"github.com/inkwell-hq/inkdex/internal/indexer"
	"github.com/inkwell-hq/inkdex/internal/logging"
	"github.com/inkwell-hq/inkdex/internal/store"
	"github.com/inkwell-hq/inkdex/pkg/version"
)

var (
	dataDirFlag    string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the inkdex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inkdex",
		Short: "Background full-text indexing engine",
		Long: `Inkdex keeps a local full-text index eventually consistent with a
primary content store. Content is normalized, long documents are split
into bounded chunks, and all backend writes go through a serialized,
batched job queue with retry on transient failures.`,
		Version:      version.Version,
		SilenceUsage: true,
	}

	cmd.SetVersionTemplate("inkdex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Override the index data directory")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.inkdex/logs/")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()

	// A broken config still surfaces through the command itself; logging
	// falls back to defaults rather than blocking commands like version.
	if cfg, err := loadConfig(); err == nil {
		logCfg = loggingConfig(cfg)
	}
	if debugMode {
		logCfg.Level = "debug"
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// loggingConfig maps the loaded configuration onto the logging setup.
func loggingConfig(cfg *config.Config) logging.Config {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	if cfg.Logging.File != "" {
		logCfg.FilePath = cfg.Logging.File
	}
	if cfg.Logging.MaxSizeMB != 0 {
		logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
	}
	if cfg.Logging.MaxFiles != 0 {
		logCfg.MaxFiles = cfg.Logging.MaxFiles
	}
	return logCfg
}

// loadConfig loads configuration for the current directory, applying
// the --data-dir override.
func loadConfig() (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(wd)
	if err != nil {
		return nil, err
	}
	if dataDirFlag != "" {
		cfg.Paths.DataDir = dataDirFlag
	}
	return cfg, nil
}

// openStores opens the search backend and metadata catalog configured
// under the data dir. The returned cleanup closes both.
func openStores(cfg *config.Config) (*store.BleveBackend, *store.Catalog, func(), error) {
	backend, err := store.NewBleveBackend(cfg.Paths.IndexPath())
	if err != nil {
		return nil, nil, nil, err
	}

	catalog, err := store.NewCatalog(cfg.Paths.CatalogPath())
	if err != nil {
		_ = backend.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		_ = catalog.Close()
		_ = backend.Close()
	}
	return backend, catalog, cleanup, nil
}

// newCoordinator builds a coordinator from the loaded configuration.
func newCoordinator(cfg *config.Config, backend store.Backend, catalog *store.Catalog) (*indexer.Coordinator, error) {
	initial, max := cfg.RetryDelays()

	coordCfg := indexer.Config{
		BatchSize:    cfg.Indexing.BatchSize,
		BatchPause:   cfg.BatchPauseDuration(),
		PollInterval: cfg.PollIntervalDuration(),
		Chunking: chunker.Config{
			TargetWords: cfg.Chunking.TargetWords,
			MaxWords:    cfg.Chunking.MaxWords,
			MinWords:    cfg.Chunking.MinWords,
		},
		Retry: errs.RetryPolicy{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: initial,
			Multiplier:   cfg.Retry.Multiplier,
			MaxDelay:     max,
		},
	}
	return indexer.New(coordCfg, backend, catalog, slog.Default())
}

// progressLoop prints coordinator progress until done is closed.
func progressLoop(c *indexer.Coordinator, done <-chan struct{}, print func(indexer.ProgressSnapshot)) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if p := c.GetProgress(); p != nil {
				print(*p)
			}
		}
	}
}
