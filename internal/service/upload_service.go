// Package service composes the upload engine: it owns the batch, creates one
// run at a time with its own cancellation scope and concurrency gate, and
// exposes the command/snapshot surface the display layer consumes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/assetflow/uploader/internal/assetstore"
	"github.com/assetflow/uploader/internal/config"
	"github.com/assetflow/uploader/internal/domain"
	errpkg "github.com/assetflow/uploader/internal/errors"
	"github.com/assetflow/uploader/internal/eta"
	"github.com/assetflow/uploader/internal/gate"
	"github.com/assetflow/uploader/internal/metrics"
	"github.com/assetflow/uploader/internal/ratelimit"
	"github.com/assetflow/uploader/internal/repository"
	"github.com/assetflow/uploader/internal/validation"
	"github.com/assetflow/uploader/internal/worker"
)

// run is one upload session. It owns a fresh cancellation scope and gate;
// neither is ever reused across runs.
type run struct {
	ctx      context.Context
	cancel   context.CancelFunc
	gate     *gate.Gate
	parallel int

	startedAt time.Time

	mu       sync.Mutex
	endedAt  *time.Time
	firstETA *time.Time
	samples  []eta.Sample
}

func (r *run) sampleSnapshot() []eta.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]eta.Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// UploadService is the orchestrator. At most one run is active at a time.
type UploadService struct {
	batch  *repository.Batch
	store  assetstore.Client
	runner *worker.Runner
	bus    *ratelimit.Bus
	cfg    *config.Config
	logger *slog.Logger

	mu         sync.Mutex
	parallel   int
	connecting bool
	current    *run
	last       *run
}

// NewUploadService wires the orchestrator. The initial parallel count comes
// from configuration, clamped to the supported range.
func NewUploadService(
	batch *repository.Batch,
	store assetstore.Client,
	runner *worker.Runner,
	bus *ratelimit.Bus,
	cfg *config.Config,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		batch:    batch,
		store:    store,
		runner:   runner,
		bus:      bus,
		cfg:      cfg,
		logger:   logger,
		parallel: gate.Clamp(cfg.ParallelCount),
	}
}

// AddFiles validates the specs and adds them to the batch, deduplicating by
// identity key. The returned snapshots cover every input, including files
// that were already present.
func (s *UploadService) AddFiles(files []domain.FileSpec) ([]domain.TaskSnapshot, error) {
	if err := validation.ValidateFiles(files); err != nil {
		return nil, err
	}

	snapshots := make([]domain.TaskSnapshot, 0, len(files))
	added := 0
	for _, f := range files {
		t, ok := s.batch.Add(f)
		if ok {
			added++
		}
		snapshots = append(snapshots, domain.NewTaskSnapshot(t))
	}

	s.logger.Info("files added to batch", "requested", len(files), "added", added, "batch_size", s.batch.Len())
	return snapshots, nil
}

// RemoveFile removes one task from the batch. Tasks currently processing
// cannot be removed.
func (s *UploadService) RemoveFile(id uuid.UUID) error {
	return s.batch.Remove(id)
}

// ClearBatch removes every task. Rejected while a run is active.
func (s *UploadService) ClearBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return errpkg.ErrRunActive
	}
	s.batch.Clear()
	return nil
}

// SetParallelism sets the parallel upload count for subsequent runs, clamped
// to [1,10]. Rejected while a run is active; a running gate keeps its
// capacity. Returns the effective value.
func (s *UploadService) SetParallelism(n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return s.parallel, errpkg.ErrRunActive
	}
	s.parallel = gate.Clamp(n)
	return s.parallel, nil
}

// Start begins a new run. It rejects synchronously on an active run, an
// empty batch or missing credentials, and aborts before any task starts if
// the collaborator connection fails. On success the run proceeds in the
// background.
func (s *UploadService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.current != nil || s.connecting {
		s.mu.Unlock()
		return errpkg.ErrRunActive
	}
	if s.batch.Len() == 0 {
		s.mu.Unlock()
		return errpkg.ErrEmptyBatch
	}
	if !s.cfg.HasCredentials() {
		s.mu.Unlock()
		return errpkg.ErrMissingCredentials
	}
	s.connecting = true
	s.mu.Unlock()

	if err := s.store.Connect(ctx, s.cfg.SpaceID, s.cfg.EnvironmentID, s.cfg.AccessToken); err != nil {
		s.mu.Lock()
		s.connecting = false
		s.mu.Unlock()
		s.logger.Error("run aborted, connection failed", "error", err)
		return fmt.Errorf("%w: %v", errpkg.ErrConnect, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.connecting = false

	ids := s.batch.Requeue()
	if len(ids) == 0 {
		return errpkg.ErrEmptyBatch
	}

	s.bus.Reset()

	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{
		ctx:       runCtx,
		cancel:    cancel,
		gate:      gate.New(s.parallel),
		parallel:  s.parallel,
		startedAt: time.Now(),
	}
	s.current = r
	metrics.RunsStarted.Inc()

	s.logger.Info("run started", "tasks", len(ids), "parallel", r.parallel)
	go s.dispatch(r, ids)
	return nil
}

// dispatch admits tasks to the gate in work-list order, so permits are
// granted first-come-first-served relative to creation order. Completion
// order is whatever the collaborator delivers.
func (s *UploadService) dispatch(r *run, ids []uuid.UUID) {
	var wg sync.WaitGroup

	for i, id := range ids {
		if err := r.gate.Acquire(r.ctx); err != nil {
			// Run cancelled while waiting for a permit: everything not yet
			// admitted goes straight to cancelled.
			for _, rest := range ids[i:] {
				s.runner.MarkCancelled(rest)
			}
			break
		}

		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			defer r.gate.Release()
			s.runner.RunAdmitted(r.ctx, id)
			s.recordOutcome(r, id)
		}(id)
	}

	wg.Wait()
	s.finish(r)
}

// recordOutcome collects the timing sample of a completed task and captures
// the first-ETA diagnostic once, on the first completion of the run.
func (s *UploadService) recordOutcome(r *run, id uuid.UUID) {
	t, err := s.batch.Get(id)
	if err != nil || t.Status != domain.StatusCompleted {
		return
	}
	if t.StartTime == nil || t.EndTime == nil {
		return
	}

	r.mu.Lock()
	r.samples = append(r.samples, eta.Sample{
		Bytes:    t.File.Size,
		Duration: t.EndTime.Sub(*t.StartTime),
	})
	samples := make([]eta.Sample, len(r.samples))
	copy(samples, r.samples)
	first := r.firstETA == nil
	r.mu.Unlock()

	if first {
		if projected, ok := eta.ProjectedCompletion(time.Now(), samples, s.batch.RemainingBytes(), r.parallel); ok {
			r.mu.Lock()
			if r.firstETA == nil {
				r.firstETA = &projected
			}
			r.mu.Unlock()
		}
	}
}

func (s *UploadService) finish(r *run) {
	end := time.Now()
	r.mu.Lock()
	r.endedAt = &end
	r.mu.Unlock()
	r.cancel()

	s.mu.Lock()
	if s.current == r {
		s.current = nil
		s.last = r
	}
	s.mu.Unlock()

	s.logger.Info("run settled", "duration", end.Sub(r.startedAt).Round(time.Millisecond))
}

// Cancel signals the current run's cancellation token. Idempotent: calling
// it with no active run, or twice, is a no-op. In-flight tasks settle at
// their next checkpoint; tasks never admitted end as cancelled.
func (s *UploadService) Cancel() {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	if r == nil {
		return
	}
	r.cancel()
	s.logger.Info("run cancellation requested")
}

// TaskSnapshots returns the per-task view in display order.
func (s *UploadService) TaskSnapshots() []domain.TaskSnapshot {
	tasks := s.batch.Snapshot()
	out := make([]domain.TaskSnapshot, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, domain.NewTaskSnapshot(t))
	}
	return out
}

// RunSnapshot returns the run-level view: flags, timing, the first-ETA
// diagnostic, a live projected completion (recomputed on demand, never
// cached) and the rate-limit counter.
func (s *UploadService) RunSnapshot() domain.RunSnapshot {
	s.mu.Lock()
	r := s.current
	running := r != nil
	if r == nil {
		r = s.last
	}
	snap := domain.RunSnapshot{
		Running:         running,
		Connecting:      s.connecting,
		Parallel:        s.parallel,
		RateLimitEvents: s.bus.Count(),
	}
	s.mu.Unlock()

	if r == nil {
		return snap
	}

	now := time.Now()
	started := r.startedAt
	snap.StartTime = &started

	r.mu.Lock()
	snap.EndTime = r.endedAt
	snap.FirstETA = r.firstETA
	r.mu.Unlock()

	snap.SessionDuration = eta.SessionDuration(r.startedAt, snap.EndTime, now).Round(time.Millisecond).String()

	if running {
		if projected, ok := eta.ProjectedCompletion(now, r.sampleSnapshot(), s.batch.RemainingBytes(), r.parallel); ok {
			snap.ProjectedCompletion = &projected
		}
	}
	return snap
}
