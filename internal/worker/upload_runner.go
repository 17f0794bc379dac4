// Package worker drives one upload task through its lifecycle against the
// asset store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/assetflow/uploader/internal/assetstore"
	"github.com/assetflow/uploader/internal/domain"
	"github.com/assetflow/uploader/internal/metrics"
	"github.com/assetflow/uploader/internal/repository"
	"github.com/assetflow/uploader/internal/storage"
)

// Progress milestones for the remote steps that follow the byte transfer.
const (
	progressTransferCeiling = 60
	progressProcessed       = 75
	progressTagged          = 85
	progressPublished       = 100
)

// Runner executes the per-file upload state machine:
//
//	pending -> processing -> {completed | failed | cancelled}
//
// Cancellation is checkpointed, not preemptive: the run context is consulted
// before creating the remote asset, after creating it, after processing it
// and after publishing it. A remote call already in flight is never aborted
// mid-step, so at most one additional remote step may finish after
// cancellation is requested.
type Runner struct {
	store  assetstore.Client
	inbox  *storage.Inbox
	batch  *repository.Batch
	logger *slog.Logger

	spaceID string
	envID   string
	tagName string
}

// NewRunner creates a Runner. tagName is optional; when set, every uploaded
// asset gets the tag applied best-effort before publishing.
func NewRunner(store assetstore.Client, inbox *storage.Inbox, batch *repository.Batch, spaceID, envID, tagName string, logger *slog.Logger) *Runner {
	return &Runner{
		store:   store,
		inbox:   inbox,
		batch:   batch,
		logger:  logger,
		spaceID: spaceID,
		envID:   envID,
		tagName: tagName,
	}
}

// RunAdmitted drives one task that has already been admitted by the gate.
// The caller owns the gate permit and releases it when this returns.
func (r *Runner) RunAdmitted(ctx context.Context, id uuid.UUID) {
	task, err := r.batch.Get(id)
	if err != nil {
		r.logger.Error("admitted task vanished from batch", "task_id", id)
		return
	}
	if task.Status != domain.StatusPending {
		return
	}

	// Checkpoint: before creating the remote asset. A task cancelled here
	// goes straight to cancelled without ever touching the collaborator.
	if ctx.Err() != nil {
		r.MarkCancelled(id)
		return
	}

	start := time.Now()
	r.batch.Update(id, func(t *domain.UploadTask) {
		t.Status = domain.StatusProcessing
		t.StartTime = &start
		t.Progress = 0
	})
	metrics.UploadsTotal.Inc()

	contents, err := r.inbox.Read(task.File.Name)
	if err != nil {
		r.markFailed(id, fmt.Errorf("read file: %w", err))
		return
	}

	asset, err := r.store.CreateAsset(ctx, contents, task.File.Name, task.File.ContentType, r.progressFunc(ctx, id))
	if err != nil {
		r.finishWithError(id, err)
		return
	}

	// Checkpoint: after creating the remote asset.
	if ctx.Err() != nil {
		r.MarkCancelled(id)
		return
	}

	asset, err = r.store.ProcessAsset(ctx, asset)
	if err != nil {
		r.finishWithError(id, err)
		return
	}
	r.setProgress(id, progressProcessed)

	// Checkpoint: after processing.
	if ctx.Err() != nil {
		r.MarkCancelled(id)
		return
	}

	asset = r.applyTagBestEffort(ctx, id, asset)

	asset, err = r.store.PublishAsset(ctx, asset)
	if err != nil {
		r.finishWithError(id, err)
		return
	}

	// Checkpoint: after publishing. The published asset stays remote; an
	// aborted run leaves it as the store's concern.
	if ctx.Err() != nil {
		r.MarkCancelled(id)
		return
	}

	r.markCompleted(id, task.File.Size, asset)
}

// progressFunc maps the collaborator's transfer progress into the task's
// 0-60 range. Progress never decreases; the run context is consulted here
// as well, but the abort itself happens at the next checkpoint.
func (r *Runner) progressFunc(ctx context.Context, id uuid.UUID) assetstore.ProgressFunc {
	return func(percent int) {
		if ctx.Err() != nil {
			return
		}
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		scaled := percent * progressTransferCeiling / 100
		r.setProgress(id, scaled)
	}
}

func (r *Runner) setProgress(id uuid.UUID, percent int) {
	r.batch.Update(id, func(t *domain.UploadTask) {
		if t.Status == domain.StatusProcessing && percent > t.Progress {
			t.Progress = percent
		}
	})
}

func (r *Runner) applyTagBestEffort(ctx context.Context, id uuid.UUID, asset assetstore.Asset) assetstore.Asset {
	if r.tagName == "" {
		return asset
	}

	tag, err := r.store.FindOrCreateTag(ctx, r.tagName)
	if err != nil {
		r.logger.Warn("tag lookup failed, publishing untagged", "task_id", id, "tag", r.tagName, "error", err)
		return asset
	}

	tagged, err := r.store.ApplyTag(ctx, asset, tag)
	if err != nil {
		r.logger.Warn("tag application failed, publishing untagged", "task_id", id, "tag", r.tagName, "error", err)
		return asset
	}

	r.setProgress(id, progressTagged)
	return tagged
}

// finishWithError distinguishes cancellation from ordinary failure: a
// collaborator call aborted by the run context surfaces as cancelled, never
// as an error.
func (r *Runner) finishWithError(id uuid.UUID, err error) {
	if errors.Is(err, context.Canceled) {
		r.MarkCancelled(id)
		return
	}
	r.markFailed(id, err)
}

func (r *Runner) markCompleted(id uuid.UUID, size int64, asset assetstore.Asset) {
	end := time.Now()
	r.batch.Update(id, func(t *domain.UploadTask) {
		t.Status = domain.StatusCompleted
		t.Progress = progressPublished
		t.EndTime = &end
		if t.StartTime != nil {
			elapsed := end.Sub(*t.StartTime)
			if elapsed > 0 {
				t.UploadSpeed = float64(size) / elapsed.Seconds()
			}
		}
		t.Result = &domain.UploadResult{
			AssetID:    asset.ID,
			AssetURL:   r.store.AssetPublicURL(asset),
			ConsoleURL: r.store.AssetConsoleURL(asset, r.spaceID, r.envID),
		}
		metrics.UploadsCompleted.Inc()
		metrics.UploadBytes.Add(float64(size))
		if t.StartTime != nil {
			metrics.UploadDuration.Observe(end.Sub(*t.StartTime).Seconds())
		}
		r.logger.Info("upload completed",
			"task_id", id,
			"file", t.File.Name,
			"asset_id", asset.ID,
			"speed_bps", t.UploadSpeed,
		)
	})
}

func (r *Runner) markFailed(id uuid.UUID, err error) {
	end := time.Now()
	r.batch.Update(id, func(t *domain.UploadTask) {
		t.Status = domain.StatusFailed
		t.Error = err.Error()
		t.EndTime = &end
		metrics.UploadsFailed.Inc()
		r.logger.Error("upload failed", "task_id", id, "file", t.File.Name, "error", err)
	})
}

// MarkCancelled moves a not-yet-terminal task to cancelled. The orchestrator
// uses it for tasks that were never admitted before cancellation.
func (r *Runner) MarkCancelled(id uuid.UUID) {
	end := time.Now()
	r.batch.Update(id, func(t *domain.UploadTask) {
		t.Status = domain.StatusCancelled
		t.EndTime = &end
		metrics.UploadsCancelled.Inc()
		r.logger.Info("upload cancelled", "task_id", id, "file", t.File.Name)
	})
}
