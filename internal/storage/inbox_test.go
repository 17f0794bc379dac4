package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInbox_Read(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	inbox := NewInbox(dir)

	data, err := inbox.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = inbox.Read("missing.txt")
	assert.Error(t, err)
}

func TestInbox_RejectsUnsafeNames(t *testing.T) {
	inbox := NewInbox(t.TempDir())

	for _, name := range []string{"", "../etc/passwd", "a/b.txt", `a\b.txt`, "..", "x..y"} {
		_, err := inbox.Read(name)
		assert.Error(t, err, "name %q must be rejected", name)
		assert.False(t, inbox.Exists(name))
	}
}

func TestInbox_ExistsAndSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	inbox := NewInbox(dir)

	assert.True(t, inbox.Exists("a.txt"))
	assert.False(t, inbox.Exists("b.txt"))

	size, err := inbox.Size("a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
}
