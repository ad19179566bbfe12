package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/inkwell-hq/inkdex/internal/chunker"
	errs "github.com/inkwell-hq/inkdex/internal/errors"
	"github.com/inkwell-hq/inkdex/internal/store"
	"github.com/inkwell-hq/inkdex/internal/textutil"
)

// Defaults for batch scheduling.
const (
	DefaultBatchSize    = 10
	DefaultBatchPause   = 50 * time.Millisecond
	DefaultPollInterval = 100 * time.Millisecond
)

// seenCacheSize bounds the in-memory content-hash cache used to skip
// unchanged items on update.
const seenCacheSize = 4096

// errStopRequested signals that a job was interrupted at a batch
// boundary. Never returned to callers.
var errStopRequested = stderrors.New("stop requested")

// Config tunes the coordinator's scheduling, chunking, and retry
// behavior. Zero fields fall back to defaults.
type Config struct {
	// BatchSize is the number of items processed between cancellation
	// checks.
	BatchSize int

	// BatchPause is the yield between batches.
	BatchPause time.Duration

	// PollInterval is the sleep between WaitForCompletion checks.
	PollInterval time.Duration

	// Chunking holds the word budgets for long items.
	Chunking chunker.Config

	// Retry is the policy applied to every backend call.
	Retry errs.RetryPolicy
}

// DefaultConfig returns the standard coordinator configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:    DefaultBatchSize,
		BatchPause:   DefaultBatchPause,
		PollInterval: DefaultPollInterval,
		Chunking:     chunker.DefaultConfig(),
		Retry:        errs.DefaultRetryPolicy(),
	}
}

// Coordinator owns the FIFO job queue and drives batched indexing. At
// most one job is current at any instant; all backend writes happen on
// the single worker goroutine, so job order serializes them naturally.
type Coordinator struct {
	config  Config
	backend store.Backend
	catalog *store.Catalog
	chunker *chunker.Chunker
	logger  *slog.Logger

	// seen maps item ID to the content hash last indexed, so unchanged
	// items can be skipped on update without a catalog round trip.
	seen *lru.Cache[string, string]

	// ctx is cancelled only on Close. Stop does not touch it: an
	// in-flight batch and its retry backoffs always run to completion.
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	queue         []*Job
	current       *progress
	state         State
	failErr       error
	workerActive  bool
	workerDone    chan struct{}
	stopRequested bool
}

// New creates a coordinator writing to backend. The catalog may be nil;
// without it, unchanged-item detection relies on the in-memory cache
// alone.
func New(cfg Config, backend store.Backend, catalog *store.Catalog, logger *slog.Logger) (*Coordinator, error) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchPause == 0 {
		cfg.BatchPause = DefaultBatchPause
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Chunking == (chunker.Config{}) {
		cfg.Chunking = chunker.DefaultConfig()
	}
	if cfg.Retry == (errs.RetryPolicy{}) {
		cfg.Retry = errs.DefaultRetryPolicy()
	}

	if cfg.BatchSize < 1 {
		return nil, errs.ValidationError(fmt.Sprintf("batch size must be >= 1, got %d", cfg.BatchSize), nil)
	}
	if err := cfg.Chunking.Validate(); err != nil {
		return nil, errs.ValidationError("invalid chunking config", err)
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, err
	}

	seen, err := lru.New[string, string](seenCacheSize)
	if err != nil {
		return nil, errs.InternalError("failed to create seen cache", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		config:  cfg,
		backend: backend,
		catalog: catalog,
		chunker: chunker.NewWithConfig(cfg.Chunking),
		logger:  logger,
		seen:    seen,
		ctx:     ctx,
		cancel:  cancel,
		state:   StateIdle,
	}, nil
}

// Enqueue appends a job for the given items to the queue tail. An empty
// item list is a no-op returning an empty job ID. If the coordinator is
// idle, processing starts immediately; otherwise the job waits its turn.
func (c *Coordinator) Enqueue(items []*ContentItem, kind JobKind) string {
	if len(items) == 0 {
		return ""
	}

	job := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Items:     append([]*ContentItem(nil), items...),
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	c.queue = append(c.queue, job)
	queued := len(c.queue)
	c.startWorkerLocked()
	c.mu.Unlock()

	c.logger.Info("job_enqueued",
		slog.String("job_id", job.ID),
		slog.String("kind", string(kind)),
		slog.Int("items", len(items)),
		slog.Int("queued_jobs", queued))
	return job.ID
}

// Start begins processing queued jobs if any are waiting. Idempotent
// while processing is already active.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startWorkerLocked()
}

// startWorkerLocked launches the worker goroutine unless one is active
// or the queue is empty. Caller holds c.mu.
func (c *Coordinator) startWorkerLocked() {
	if c.workerActive || len(c.queue) == 0 {
		return
	}
	c.workerActive = true
	c.workerDone = make(chan struct{})
	go c.run(c.workerDone)
}

// Stop interrupts processing at the next batch boundary and blocks
// until the in-flight batch has finished. Status resets to idle; queued
// jobs remain queued but are not auto-resumed.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.workerActive {
		c.mu.Unlock()
		return
	}
	c.stopRequested = true
	done := c.workerDone
	c.mu.Unlock()

	<-done

	// The worker may have drained the queue and exited before seeing the
	// request; don't let the flag leak into the next run.
	c.mu.Lock()
	c.stopRequested = false
	c.mu.Unlock()
}

// Close stops the coordinator and cancels any backend call still in
// flight, including retry backoffs.
func (c *Coordinator) Close() {
	c.cancel()
	c.Stop()
}

// Status returns a snapshot of the coordinator's observable state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{State: c.state, Err: c.failErr}
	if c.current != nil && c.state == StateRunning {
		snap := c.current.Snapshot()
		st.Progress = &snap
	}
	return st
}

// GetProgress returns the current job's progress snapshot, or nil when
// idle, completed, or failed.
func (c *Coordinator) GetProgress() *ProgressSnapshot {
	st := c.Status()
	return st.Progress
}

// GetStatistics reports queue depth, backend stats, and catalog size.
func (c *Coordinator) GetStatistics(ctx context.Context) (Statistics, error) {
	c.mu.Lock()
	stats := Statistics{
		State:      c.state,
		QueuedJobs: len(c.queue),
	}
	c.mu.Unlock()

	stats.Documents = c.backend.Stats().DocumentCount
	if c.catalog != nil {
		n, err := c.catalog.Count(ctx)
		if err != nil {
			return stats, err
		}
		stats.IndexedItems = n
	}
	return stats, nil
}

// WaitForCompletion blocks, polling on a fixed short interval, until
// the queue is empty and no job is current. It imposes no timeout of
// its own; the caller's context is the only deadline. A failed
// coordinator surfaces its job-level error.
func (c *Coordinator) WaitForCompletion(ctx context.Context) error {
	for {
		c.mu.Lock()
		state := c.state
		failErr := c.failErr
		drained := len(c.queue) == 0 && !c.workerActive
		c.mu.Unlock()

		if state == StateFailed {
			return failErr
		}
		if drained {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.config.PollInterval):
		}
	}
}

// IndexAll rebuilds the index from scratch: clear the backend, enqueue
// a reindex job for all items, and wait for it to drain.
func (c *Coordinator) IndexAll(ctx context.Context, items []*ContentItem) error {
	err := errs.Do(ctx, c.config.Retry, func() error {
		return c.backend.ClearAll(ctx)
	})
	if err != nil {
		return errs.Wrap(errs.ErrCodeBackendUnavailable, err)
	}

	if c.catalog != nil {
		if err := c.catalog.Clear(ctx); err != nil {
			return err
		}
	}
	c.seen.Purge()

	c.logger.Info("reindex_started", slog.Int("items", len(items)))
	c.Enqueue(items, KindReindex)
	return c.WaitForCompletion(ctx)
}

// UpdateMultiple enqueues an update job for the items whose content
// actually changed since they were last indexed. Unchanged items are
// skipped. Returns the job ID, or empty when nothing changed.
func (c *Coordinator) UpdateMultiple(ctx context.Context, items []*ContentItem) (string, error) {
	changed := make([]*ContentItem, 0, len(items))
	for _, item := range items {
		hash := contentHash(item)

		if prev, ok := c.seen.Get(item.ID); ok && prev == hash {
			continue
		}
		if c.catalog != nil {
			rec, err := c.catalog.GetItem(ctx, item.ID)
			if err != nil {
				return "", err
			}
			if rec != nil && rec.ContentHash == hash {
				c.seen.Add(item.ID, hash)
				continue
			}
		}
		changed = append(changed, item)
	}

	if len(changed) < len(items) {
		c.logger.Debug("unchanged_items_skipped",
			slog.Int("skipped", len(items)-len(changed)),
			slog.Int("changed", len(changed)))
	}
	return c.Enqueue(changed, KindUpdate), nil
}

// RemoveMultiple removes each id from the backend directly, without
// queueing a job. Per-id failures are collected, never abort the rest.
func (c *Coordinator) RemoveMultiple(ctx context.Context, ids []string) error {
	var failures []string
	for _, id := range ids {
		err := errs.Do(ctx, c.config.Retry, func() error {
			return c.backend.RemoveItem(ctx, id)
		})
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", id, err))
			c.logger.Warn("item_remove_failed", slog.String("item_id", id), slog.Any("error", err))
			continue
		}

		c.seen.Remove(id)
		if c.catalog != nil {
			if err := c.catalog.DeleteItem(ctx, id); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", id, err))
			}
		}
	}

	if len(failures) > 0 {
		e := errs.New(errs.ErrCodeItemIndexFailed,
			fmt.Sprintf("failed to remove %d of %d items", len(failures), len(ids)), nil)
		return e.WithDetail("errors", strings.Join(failures, "; "))
	}
	return nil
}

// run is the worker loop: pop the head job, process it, repeat until
// the queue drains or a stop is requested.
func (c *Coordinator) run(done chan struct{}) {
	defer close(done)

	for {
		c.mu.Lock()
		if c.stopRequested || c.ctx.Err() != nil {
			c.state = StateIdle
			c.current = nil
			c.stopRequested = false
			c.workerActive = false
			c.mu.Unlock()
			c.logger.Info("coordinator_stopped")
			return
		}
		if len(c.queue) == 0 {
			c.workerActive = false
			c.mu.Unlock()
			return
		}
		job := c.queue[0]
		c.queue = c.queue[1:]
		tracker := newProgress(job)
		c.current = tracker
		c.state = StateRunning
		c.failErr = nil
		c.mu.Unlock()

		if err := c.runJob(job, tracker); err != nil {
			if stderrors.Is(err, errStopRequested) {
				continue
			}
			c.mu.Lock()
			c.state = StateFailed
			c.failErr = err
			c.current = nil
			c.workerActive = false
			c.mu.Unlock()
			c.logger.Error("job_failed",
				slog.String("job_id", job.ID),
				slog.Any("error", err))
			return
		}
	}
}

// runJob processes one job in fixed-size batches. Cancellation is
// checked only at batch boundaries; per-item failures accumulate in
// the tracker and never abort the batch.
func (c *Coordinator) runJob(job *Job, tracker *progress) error {
	c.logger.Info("job_started",
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
		slog.Int("items", len(job.Items)))

	succeeded := 0
	for start := 0; start < len(job.Items); start += c.config.BatchSize {
		if c.stopping() {
			c.logger.Info("job_interrupted",
				slog.String("job_id", job.ID),
				slog.Int("processed", tracker.Snapshot().ProcessedItems))
			return errStopRequested
		}

		end := start + c.config.BatchSize
		if end > len(job.Items) {
			end = len(job.Items)
		}
		tracker.SetOperation(fmt.Sprintf("indexing items %d-%d of %d", start+1, end, len(job.Items)))

		for _, item := range job.Items[start:end] {
			if err := c.processItem(c.ctx, item); err != nil {
				// A backend that was never reachable fails the whole
				// job; anything after the first success is per-item.
				if succeeded == 0 && backendUnreachable(err) {
					return errs.Wrap(errs.ErrCodeBackendUnavailable, err)
				}
				tracker.AddError(fmt.Sprintf("%s: %v", item.ID, err))
				c.logger.Warn("item_index_failed",
					slog.String("job_id", job.ID),
					slog.String("item_id", item.ID),
					slog.Any("error", err))
			} else {
				succeeded++
			}
			tracker.Advance()
		}

		// Yield between batches.
		if end < len(job.Items) {
			select {
			case <-c.ctx.Done():
				return errStopRequested
			case <-time.After(c.config.BatchPause):
			}
		}
	}

	errorCount := tracker.ErrorCount()
	c.mu.Lock()
	if errorCount == 0 {
		c.state = StateCompleted
		c.current = nil
	}
	// With errors the job is still done, but status stays running with
	// the error list attached for observers to inspect.
	c.mu.Unlock()

	c.logger.Info("job_finished",
		slog.String("job_id", job.ID),
		slog.Int("items", len(job.Items)),
		slog.Int("errors", errorCount))
	return nil
}

// processItem normalizes, chunks, and indexes one content item, with
// retries around the backend call.
func (c *Coordinator) processItem(ctx context.Context, item *ContentItem) error {
	normalized := textutil.Normalize(item.Text)
	keywords := textutil.Keywords(item.Text, item.Author, item.Source)

	var docs []*store.Document
	if textutil.WordCount(normalized) > c.config.Chunking.TargetWords {
		for _, ch := range c.chunker.Split(item.ID, normalized) {
			docs = append(docs, &store.Document{
				ID:          ch.ID,
				ParentID:    item.ID,
				ChunkIndex:  ch.Index,
				TotalChunks: ch.TotalChunks,
				Content:     ch.Content,
				Author:      item.Author,
				Source:      item.Source,
				Keywords:    keywords,
				UpdatedAt:   item.UpdatedAt,
			})
		}
	} else {
		docs = []*store.Document{{
			ID:          item.ID,
			ParentID:    item.ID,
			ChunkIndex:  0,
			TotalChunks: 1,
			Content:     normalized,
			Author:      item.Author,
			Source:      item.Source,
			Keywords:    keywords,
			UpdatedAt:   item.UpdatedAt,
		}}
	}

	err := errs.DoClassified(ctx, c.config.Retry, func() error {
		return c.backend.IndexItem(ctx, docs)
	})
	if err != nil {
		return err
	}

	hash := contentHash(item)
	c.seen.Add(item.ID, hash)
	if c.catalog != nil {
		rec := &store.ItemRecord{
			ID:          item.ID,
			ContentHash: hash,
			ChunkCount:  len(docs),
			IndexedAt:   time.Now(),
		}
		if err := c.catalog.SaveItem(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// stopping reports whether a stop was requested or the coordinator is
// closed.
func (c *Coordinator) stopping() bool {
	if c.ctx.Err() != nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopRequested
}

// backendUnreachable walks the error chain for a backend connectivity
// code.
func backendUnreachable(err error) bool {
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if ie, ok := e.(*errs.IndexError); ok {
			if ie.Code == errs.ErrCodeBackendUnavailable || ie.Code == errs.ErrCodeBackendTimeout {
				return true
			}
		}
	}
	return false
}

// contentHash fingerprints the indexable fields of an item.
func contentHash(item *ContentItem) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s\x00%s\x00%s", item.Text, item.Author, item.Source))
	return hex.EncodeToString(h[:])[:16]
}
