package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fileSpec(name string) FileSpec {
	return FileSpec{
		Name:        name,
		Size:        1024,
		ModTime:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ContentType: "image/png",
	}
}

func TestFileSpec_Key(t *testing.T) {
	a := fileSpec("photo.png")
	b := fileSpec("photo.png")
	assert.Equal(t, a.Key(), b.Key())

	c := fileSpec("photo.png")
	c.Size = 2048
	assert.NotEqual(t, a.Key(), c.Key())

	d := fileSpec("photo.png")
	d.ModTime = d.ModTime.Add(time.Second)
	assert.NotEqual(t, a.Key(), d.Key())

	e := fileSpec("photo.png")
	e.ContentType = "image/jpeg"
	assert.NotEqual(t, a.Key(), e.Key())
}

func TestTaskStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestUploadTask_Clone(t *testing.T) {
	now := time.Now()
	task := NewUploadTask(fileSpec("a.png"))
	task.Status = StatusCompleted
	task.StartTime = &now
	task.Result = &UploadResult{AssetID: "a1"}

	clone := task.Clone()
	clone.Result.AssetID = "changed"
	newTime := now.Add(time.Hour)
	clone.StartTime = &newTime

	assert.Equal(t, "a1", task.Result.AssetID)
	assert.Equal(t, now, *task.StartTime)
}

func TestSortForDisplay(t *testing.T) {
	mk := func(name string, status TaskStatus) *UploadTask {
		task := NewUploadTask(fileSpec(name))
		task.Status = status
		return task
	}

	tasks := []*UploadTask{
		mk("z.png", StatusCompleted),
		mk("b.png", StatusPending),
		mk("m.png", StatusProcessing),
		mk("a.png", StatusPending),
		mk("k.png", StatusCancelled),
		mk("f.png", StatusFailed),
	}

	SortForDisplay(tasks)

	var got []string
	for _, task := range tasks {
		got = append(got, string(task.Status)+":"+task.File.Name)
	}
	assert.Equal(t, []string{
		"processing:m.png",
		"pending:a.png",
		"pending:b.png",
		"failed:f.png",
		"cancelled:k.png",
		"completed:z.png",
	}, got)
}
