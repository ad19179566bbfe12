// Package indexer serializes all indexing work behind a FIFO job queue,
// batches it, shields it from transient backend failures, and exposes
// observable progress.
package indexer

import (
	"sync"
	"time"
)

// ContentItem is an immutable snapshot of one piece of content to index.
// The pipeline references it, never mutates it.
type ContentItem struct {
	// ID uniquely identifies the content item in the primary store.
	ID string

	// Text is the raw item text.
	Text string

	// Author and Source feed keyword generation and are always searchable.
	Author string
	Source string

	// UpdatedAt is when the item was last modified in the primary store.
	UpdatedAt time.Time
}

// JobKind classifies why a job was enqueued.
type JobKind string

const (
	// KindInitial is the first-time indexing of new items.
	KindInitial JobKind = "initial"
	// KindUpdate re-indexes items whose content changed.
	KindUpdate JobKind = "update"
	// KindReindex is a full rebuild after the backend was cleared.
	KindReindex JobKind = "reindex"
)

// Job is one queued unit of indexing work. Consumed and discarded once
// fully processed.
type Job struct {
	ID        string
	Kind      JobKind
	Items     []*ContentItem
	CreatedAt time.Time
}

// State is the coordinator's lifecycle state.
type State string

const (
	// StateIdle means no job is queued or running.
	StateIdle State = "idle"
	// StateRunning means a job is being processed, or the last job
	// finished with per-item errors still attached to its progress.
	StateRunning State = "running"
	// StateCompleted means the last job finished with no errors.
	StateCompleted State = "completed"
	// StateFailed means the backend was unreachable before any item of
	// the last job succeeded.
	StateFailed State = "failed"
)

// ProgressSnapshot is an immutable point-in-time view of a job's
// completion state and errors.
type ProgressSnapshot struct {
	JobID            string   `json:"job_id"`
	Kind             JobKind  `json:"kind"`
	TotalItems       int      `json:"total_items"`
	ProcessedItems   int      `json:"processed_items"`
	CurrentOperation string   `json:"current_operation"`
	Errors           []string `json:"errors,omitempty"`
}

// Fraction returns the completed share of the job, in [0, 1].
func (s ProgressSnapshot) Fraction() float64 {
	if s.TotalItems == 0 {
		return 0
	}
	return float64(s.ProcessedItems) / float64(s.TotalItems)
}

// Complete reports whether every item has been processed.
func (s ProgressSnapshot) Complete() bool {
	return s.ProcessedItems >= s.TotalItems
}

// Status is the coordinator's observable state. Err is set only in
// StateFailed; Progress is set only while a job's progress is live.
type Status struct {
	State    State
	Progress *ProgressSnapshot
	Err      error
}

// Statistics summarizes the coordinator and its stores for status
// surfaces.
type Statistics struct {
	State        State `json:"state"`
	QueuedJobs   int   `json:"queued_jobs"`
	IndexedItems int   `json:"indexed_items"`
	Documents    int   `json:"documents"`
}

// progress is the thread-safe tracker behind ProgressSnapshot. Owned by
// the coordinator; readers only ever see snapshots.
type progress struct {
	mu sync.RWMutex

	jobID     string
	kind      JobKind
	total     int
	processed int
	operation string
	errors    []string
}

func newProgress(job *Job) *progress {
	return &progress{
		jobID: job.ID,
		kind:  job.Kind,
		total: len(job.Items),
	}
}

// SetOperation updates the descriptive label for the current batch.
func (p *progress) SetOperation(op string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.operation = op
}

// Advance marks one more item as processed, succeeded or not.
func (p *progress) Advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++
}

// AddError appends one per-item failure message.
func (p *progress) AddError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors = append(p.errors, msg)
}

// ErrorCount returns the number of per-item failures so far.
func (p *progress) ErrorCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.errors)
}

// Snapshot returns an immutable copy of the current progress.
func (p *progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	errs := make([]string, len(p.errors))
	copy(errs, p.errors)

	return ProgressSnapshot{
		JobID:            p.jobID,
		Kind:             p.kind,
		TotalItems:       p.total,
		ProcessedItems:   p.processed,
		CurrentOperation: p.operation,
		Errors:           errs,
	}
}
