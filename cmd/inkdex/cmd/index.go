package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/inkwell-hq/inkdex/internal/indexer"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	rebuild bool
	update  bool
	author  string
	source  string
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index <file>...",
		Short: "Index text files into the local full-text index",
		Long: `Index text files into the local full-text index.

Each file becomes one content item. Long documents are split into
bounded chunks at sentence boundaries before indexing.

Examples:
  inkdex index notes/*.md
  inkdex index --rebuild docs/**/*.txt
  inkdex index --update journal.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.rebuild, "rebuild", false, "Clear the index and rebuild it from the given files")
	cmd.Flags().BoolVar(&opts.update, "update", false, "Re-index only files whose content changed")
	cmd.Flags().StringVar(&opts.author, "author", "", "Author recorded on every indexed item")
	cmd.Flags().StringVar(&opts.source, "source", "", "Source label recorded on every indexed item (defaults to the file path)")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, paths []string, opts indexOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	items, err := loadItems(ctx, paths, opts)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to index.")
		return nil
	}

	backend, catalog, cleanup, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	coord, err := newCoordinator(cfg, backend, catalog)
	if err != nil {
		return err
	}
	defer coord.Close()

	start := time.Now()
	switch {
	case opts.rebuild:
		fmt.Fprintf(cmd.OutOrStdout(), "Rebuilding index from %d files...\n", len(items))
		err = coord.IndexAll(ctx, items)
	case opts.update:
		jobID, uerr := coord.UpdateMultiple(ctx, items)
		if uerr != nil {
			return uerr
		}
		if jobID == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "All files unchanged, nothing to do.")
			return nil
		}
		err = waitWithProgress(ctx, cmd, coord)
	default:
		coord.Enqueue(items, indexer.KindInitial)
		err = waitWithProgress(ctx, cmd, coord)
	}
	if err != nil {
		return err
	}

	st := coord.Status()
	if p := st.Progress; p != nil && len(p.Errors) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed with %d errors:\n", len(p.Errors))
		for _, msg := range p.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", msg)
		}
	}

	stats, err := coord.GetStatistics(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d items (%d documents) in %s\n",
		stats.IndexedItems, stats.Documents, time.Since(start).Round(time.Millisecond))
	return nil
}

// waitWithProgress blocks until the queue drains, printing progress.
func waitWithProgress(ctx context.Context, cmd *cobra.Command, coord *indexer.Coordinator) error {
	done := make(chan struct{})
	go progressLoop(coord, done, func(p indexer.ProgressSnapshot) {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d/%d items (%s)\n",
			p.ProcessedItems, p.TotalItems, p.CurrentOperation)
	})
	defer close(done)

	return coord.WaitForCompletion(ctx)
}

// loadItems reads the given files concurrently into content items.
func loadItems(ctx context.Context, paths []string, opts indexOptions) ([]*indexer.ContentItem, error) {
	items := make([]*indexer.ContentItem, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}

			source := opts.source
			if source == "" {
				source = filepath.ToSlash(path)
			}
			items[i] = &indexer.ContentItem{
				ID:        itemID(path),
				Text:      string(data),
				Author:    opts.author,
				Source:    source,
				UpdatedAt: info.ModTime(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("files_loaded", slog.Int("count", len(items)))
	return items, nil
}

// itemID derives the stable item identifier for a file path.
func itemID(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}
