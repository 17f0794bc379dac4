// Package repository holds the in-memory upload batch. Upload history is not
// persisted: a restart starts from an empty batch.
package repository

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/assetflow/uploader/internal/domain"
	errpkg "github.com/assetflow/uploader/internal/errors"
)

// Batch is the ordered set of upload tasks, keyed both by task ID and by
// file identity. All mutation goes through Update so that a runner goroutine
// and the orchestrator never race on a task.
type Batch struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.UploadTask
	byKey map[string]uuid.UUID
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{
		tasks: make(map[uuid.UUID]*domain.UploadTask),
		byKey: make(map[string]uuid.UUID),
	}
}

// Add inserts a pending task for the file. Re-adding a file with an
// identical identity key is a no-op: the existing task is returned with
// added=false.
func (b *Batch) Add(file domain.FileSpec) (task *domain.UploadTask, added bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := file.Key()
	if id, ok := b.byKey[key]; ok {
		slog.Debug("duplicate file ignored", "file", file.Name, "task_id", id)
		return b.tasks[id].Clone(), false
	}

	t := domain.NewUploadTask(file)
	b.tasks[t.ID] = t
	b.byKey[key] = t.ID
	return t.Clone(), true
}

// Get returns a clone of the task or ErrTaskNotFound.
func (b *Batch) Get(id uuid.UUID) (*domain.UploadTask, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.tasks[id]
	if !ok {
		return nil, errpkg.ErrTaskNotFound
	}
	return t.Clone(), nil
}

// Remove deletes one task. A task that is currently processing cannot be
// removed.
func (b *Batch) Remove(id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.tasks[id]
	if !ok {
		return errpkg.ErrTaskNotFound
	}
	if t.Status == domain.StatusProcessing {
		return errpkg.ErrTaskInFlight
	}

	delete(b.tasks, id)
	delete(b.byKey, t.File.Key())
	return nil
}

// Clear removes every task. Callers must ensure no run is active.
func (b *Batch) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tasks = make(map[uuid.UUID]*domain.UploadTask)
	b.byKey = make(map[string]uuid.UUID)
}

// Len returns the number of tasks in the batch.
func (b *Batch) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tasks)
}

// Snapshot returns clones of all tasks in display order.
func (b *Batch) Snapshot() []*domain.UploadTask {
	b.mu.RLock()
	out := make([]*domain.UploadTask, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t.Clone())
	}
	b.mu.RUnlock()

	domain.SortForDisplay(out)
	return out
}

// Update applies fn to the task under the batch lock. Terminal states are
// final: once a task is completed, failed or cancelled, Update refuses to
// touch it and returns false. Requeue is the only path that may revive a
// task, and only between runs.
func (b *Batch) Update(id uuid.UUID, fn func(*domain.UploadTask)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.tasks[id]
	if !ok || t.Status.Terminal() {
		return false
	}
	fn(t)
	return true
}

// Requeue resets failed and cancelled tasks to pending so a new run revisits
// them, and returns the IDs of all runnable tasks in display order (captured
// before the reset, so prior failures are revisited before untouched pending
// ones). Completed tasks are never requeued.
func (b *Batch) Requeue() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()

	ordered := make([]*domain.UploadTask, 0, len(b.tasks))
	for _, t := range b.tasks {
		ordered = append(ordered, t)
	}
	domain.SortForDisplay(ordered)

	ids := make([]uuid.UUID, 0, len(ordered))
	for _, t := range ordered {
		switch t.Status {
		case domain.StatusFailed, domain.StatusCancelled:
			t.Status = domain.StatusPending
			t.Progress = 0
			t.Error = ""
			t.Result = nil
			t.StartTime = nil
			t.EndTime = nil
			t.UploadSpeed = 0
			ids = append(ids, t.ID)
		case domain.StatusPending:
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// CountProcessing returns how many tasks are currently processing.
func (b *Batch) CountProcessing() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, t := range b.tasks {
		if t.Status == domain.StatusProcessing {
			n++
		}
	}
	return n
}

// RemainingBytes sums the sizes of tasks still pending or processing.
func (b *Batch) RemainingBytes() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var total int64
	for _, t := range b.tasks {
		if t.Status == domain.StatusPending || t.Status == domain.StatusProcessing {
			total += t.File.Size
		}
	}
	return total
}
