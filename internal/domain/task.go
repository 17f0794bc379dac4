package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of an UploadTask.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether the status is final for the current run.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// displayRank orders statuses for display and for work-list creation:
// in-flight work first, untouched work next, then prior failures and
// cancellations, settled uploads last.
func (s TaskStatus) displayRank() int {
	switch s {
	case StatusProcessing:
		return 0
	case StatusPending:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	case StatusCompleted:
		return 4
	}
	return 5
}

// FileSpec describes one selected file. Two specs with the same Key are the
// same file as far as the batch is concerned.
type FileSpec struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mod_time"`
	ContentType string    `json:"content_type"`
}

// Key derives the batch identity of the file from its metadata. Re-adding a
// file with an identical key is a no-op.
func (f FileSpec) Key() string {
	return fmt.Sprintf("%s|%d|%d|%s", f.Name, f.Size, f.ModTime.UnixNano(), f.ContentType)
}

// UploadResult holds the remote identifiers recorded on successful upload.
type UploadResult struct {
	AssetID    string `json:"asset_id"`
	AssetURL   string `json:"asset_url"`
	ConsoleURL string `json:"console_url"`
}

// UploadTask is one entry of the upload batch. A task is mutated only by its
// own runner goroutine or by the orchestrator during bulk operations; the
// batch store serializes both.
type UploadTask struct {
	ID          uuid.UUID     `json:"id"`
	File        FileSpec      `json:"file"`
	Status      TaskStatus    `json:"status"`
	Progress    int           `json:"progress"`
	Error       string        `json:"error,omitempty"`
	Result      *UploadResult `json:"result,omitempty"`
	StartTime   *time.Time    `json:"start_time,omitempty"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
	UploadSpeed float64       `json:"upload_speed,omitempty"` // bytes per second, set once on completion
}

// NewUploadTask creates a pending task for the given file.
func NewUploadTask(file FileSpec) *UploadTask {
	return &UploadTask{
		ID:     uuid.New(),
		File:   file,
		Status: StatusPending,
	}
}

// Clone returns a deep copy safe to hand to other goroutines.
func (t *UploadTask) Clone() *UploadTask {
	c := *t
	if t.Result != nil {
		r := *t.Result
		c.Result = &r
	}
	if t.StartTime != nil {
		ts := *t.StartTime
		c.StartTime = &ts
	}
	if t.EndTime != nil {
		ts := *t.EndTime
		c.EndTime = &ts
	}
	return &c
}

// SortForDisplay orders tasks by status rank, ties broken by filename.
// The same order seeds work-list creation at run start.
func SortForDisplay(tasks []*UploadTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := tasks[i].Status.displayRank(), tasks[j].Status.displayRank()
		if ri != rj {
			return ri < rj
		}
		return tasks[i].File.Name < tasks[j].File.Name
	})
}
