package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Inbox resolves the contents of selected files from a single directory.
// The display layer drops files here; the engine reads them by name at
// upload time.
type Inbox struct {
	dir string
}

// NewInbox creates an Inbox rooted at the given directory.
func NewInbox(dir string) *Inbox {
	return &Inbox{dir: filepath.Clean(dir)}
}

// Read returns the contents of the named file. Names containing path
// separators or parent references are rejected.
func (i *Inbox) Read(name string) ([]byte, error) {
	path, err := i.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inbox file: %w", err)
	}
	return data, nil
}

// Exists checks whether the named file is present in the inbox.
func (i *Inbox) Exists(name string) bool {
	path, err := i.resolve(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Size returns the byte size of the named file.
func (i *Inbox) Size(name string) (int64, error) {
	path, err := i.resolve(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (i *Inbox) resolve(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(i.dir, name), nil
}
