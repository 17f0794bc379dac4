package domain

import (
	"time"

	"github.com/google/uuid"
)

// AddFilesRequest is the request body for adding files to the batch.
type AddFilesRequest struct {
	Files []FileInput `json:"files" validate:"required,min=1,max=100,dive"`
}

// FileInput is the metadata of one file to add. Contents are resolved from
// the inbox directory by name when the run starts.
type FileInput struct {
	Name        string    `json:"name" validate:"required,max=255"`
	Size        int64     `json:"size" validate:"required,gt=0"`
	ModTime     time.Time `json:"mod_time" validate:"required"`
	ContentType string    `json:"content_type" validate:"required"`
}

// SetParallelismRequest sets the parallel upload count for subsequent runs.
type SetParallelismRequest struct {
	Parallel int `json:"parallel" validate:"required,min=1"`
}

// TaskSnapshot is the per-task view exposed to the display layer.
type TaskSnapshot struct {
	ID          uuid.UUID     `json:"id"`
	FileName    string        `json:"file_name"`
	Size        int64         `json:"size"`
	ContentType string        `json:"content_type"`
	Status      TaskStatus    `json:"status"`
	Progress    int           `json:"progress"`
	Error       string        `json:"error,omitempty"`
	Result      *UploadResult `json:"result,omitempty"`
	StartTime   *time.Time    `json:"start_time,omitempty"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
	UploadSpeed float64       `json:"upload_speed,omitempty"`
}

// NewTaskSnapshot projects a task clone into its display form.
func NewTaskSnapshot(t *UploadTask) TaskSnapshot {
	return TaskSnapshot{
		ID:          t.ID,
		FileName:    t.File.Name,
		Size:        t.File.Size,
		ContentType: t.File.ContentType,
		Status:      t.Status,
		Progress:    t.Progress,
		Error:       t.Error,
		Result:      t.Result,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		UploadSpeed: t.UploadSpeed,
	}
}

// RunSnapshot is the run-level view exposed to the display layer.
type RunSnapshot struct {
	Running             bool       `json:"running"`
	Connecting          bool       `json:"connecting"`
	Parallel            int        `json:"parallel"`
	StartTime           *time.Time `json:"start_time,omitempty"`
	EndTime             *time.Time `json:"end_time,omitempty"`
	FirstETA            *time.Time `json:"first_eta,omitempty"`
	ProjectedCompletion *time.Time `json:"projected_completion,omitempty"`
	SessionDuration     string     `json:"session_duration,omitempty"`
	RateLimitEvents     int64      `json:"rate_limit_events"`
}
