package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/energyplan-orchestrator/internal/apperr"
	"github.com/cuemby/energyplan-orchestrator/internal/logging"
)

// entry pairs a Job with the lock that serializes writes to it. Reads take
// the RLock, so concurrent Get/List calls never block each other or a job
// in a different id's write.
type entry struct {
	mu  sync.RWMutex
	job *Job
}

// Registry is the per-kind table of jobs described in SPEC_FULL.md §6.
// It is process-wide shared state; every write is serialized per job id,
// matching SPEC_FULL.md's "per-entity serialization" policy.
type Registry struct {
	mu     sync.RWMutex // guards the table maps themselves (insert/iterate)
	tables map[Kind]map[string]*entry
	order  map[Kind][]string // insertion order, for List
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		tables: map[Kind]map[string]*entry{
			KindForecast: {},
			KindProfile:  {},
			KindPypsa:    {},
		},
		order: map[Kind][]string{},
	}
}

// Create mints a new job id, stores it in the queued state, and returns
// the id. config is stored as-is and never mutated afterward.
func (r *Registry) Create(kind Kind, config interface{}) string {
	id := uuid.NewString()
	job := &Job{
		ID:      id,
		Kind:    kind,
		Status:  StatusQueued,
		Config:  config,
		Timings: Timings{SubmittedAt: time.Now()},
	}

	r.mu.Lock()
	r.tables[kind][id] = &entry{job: job}
	r.order[kind] = append(r.order[kind], id)
	r.mu.Unlock()

	logging.WithJob(id, string(kind)).Info().Msg("job created")
	return id
}

// Get returns a snapshot of the job, or NotFound if kind/id is unknown.
func (r *Registry) Get(kind Kind, id string) (*Snapshot, error) {
	e := r.lookup(kind, id)
	if e == nil {
		return nil, apperr.New(apperr.KindNotFound, "job not found")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.job.clone(), nil
}

// List returns all jobs for kind in insertion order, as summaries with
// Config and Result cleared.
func (r *Registry) List(kind Kind) []*Snapshot {
	r.mu.RLock()
	ids := append([]string(nil), r.order[kind]...)
	table := r.tables[kind]
	r.mu.RUnlock()

	out := make([]*Snapshot, 0, len(ids))
	for _, id := range ids {
		e, ok := table[id]
		if !ok {
			continue
		}
		e.mu.RLock()
		summary := e.job.clone()
		e.mu.RUnlock()
		summary.Config = nil
		summary.Result = nil
		out = append(out, summary)
	}
	return out
}

func (r *Registry) lookup(kind Kind, id string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table, ok := r.tables[kind]
	if !ok {
		return nil
	}
	return table[id]
}

// TransitionRunning moves a queued job to running. A no-op (returns nil)
// if the job is already past queued.
func (r *Registry) TransitionRunning(kind Kind, id string) error {
	e := r.lookup(kind, id)
	if e == nil {
		return apperr.New(apperr.KindNotFound, "job not found")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.Status != StatusQueued {
		return nil
	}
	e.job.Status = StatusRunning
	now := time.Now()
	e.job.Timings.StartedAt = &now
	return nil
}

// UpdateProgress applies a progress report from the worker supervisor.
// progress must be monotonic non-decreasing while the job is running;
// callers that violate this are clamped rather than rejected, since a
// worker reporting a stale value is a bug in the worker, not grounds to
// fail the job.
func (r *Registry) UpdateProgress(kind Kind, id string, progress int, step, detail string) error {
	e := r.lookup(kind, id)
	if e == nil {
		return apperr.New(apperr.KindNotFound, "job not found")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.Status != StatusRunning {
		return nil
	}
	if progress > e.job.Progress {
		e.job.Progress = progress
	}
	if step != "" {
		e.job.CurrentStep = step
	}
	if detail != "" {
		e.job.StatusDetails = detail
	}
	return nil
}

// Complete transitions a running job to completed with the given result.
// A no-op if the job is already terminal.
func (r *Registry) Complete(kind Kind, id string, result interface{}) error {
	e := r.lookup(kind, id)
	if e == nil {
		return apperr.New(apperr.KindNotFound, "job not found")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.Status.Terminal() {
		return nil
	}
	e.job.Status = StatusCompleted
	e.job.Progress = 100
	e.job.Result = result
	now := time.Now()
	e.job.Timings.EndedAt = &now
	return nil
}

// Fail transitions a running (or queued) job to failed with errMsg.
// Progress is frozen at its last observed value. A no-op if terminal.
func (r *Registry) Fail(kind Kind, id string, errMsg string) error {
	e := r.lookup(kind, id)
	if e == nil {
		return apperr.New(apperr.KindNotFound, "job not found")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.Status.Terminal() {
		return nil
	}
	e.job.Status = StatusFailed
	e.job.Error = errMsg
	now := time.Now()
	e.job.Timings.EndedAt = &now
	return nil
}

// MarkCancelled transitions a job to cancelled. A no-op if terminal.
// Cancelled jobs carry neither Result nor Error.
func (r *Registry) MarkCancelled(kind Kind, id string) error {
	e := r.lookup(kind, id)
	if e == nil {
		return apperr.New(apperr.KindNotFound, "job not found")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.Status.Terminal() {
		return nil
	}
	e.job.Status = StatusCancelled
	now := time.Now()
	e.job.Timings.EndedAt = &now
	return nil
}

// Cancellable reports whether the job is currently in a state Cancel can
// act on (queued or running). Used by the HTTP surface to return Conflict
// without invoking the supervisor for an already-terminal job.
func (r *Registry) Cancellable(kind Kind, id string) (bool, error) {
	e := r.lookup(kind, id)
	if e == nil {
		return false, apperr.New(apperr.KindNotFound, "job not found")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.job.Status.Terminal(), nil
}
