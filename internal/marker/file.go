package marker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultFileMode = 0600
	defaultDirMode  = 0700
)

// File stores the marker as a single line of epoch milliseconds. Writes go
// through a temp file and rename so a crash never leaves a torn value.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a marker stored at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

func (f *File) Load(context.Context) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("marker: read: %w", err)
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return time.Time{}, false, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("marker: parse %q: %w", s, err)
	}
	return time.UnixMilli(ms), true, nil
}

func (f *File) Save(_ context.Context, expireAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), defaultDirMode); err != nil {
		return fmt.Errorf("marker: mkdir: %w", err)
	}

	tmp := f.path + ".tmp"
	payload := []byte(strconv.FormatInt(expireAt.UnixMilli(), 10) + "\n")
	if err := os.WriteFile(tmp, payload, defaultFileMode); err != nil {
		return fmt.Errorf("marker: write tmp: %w", err)
	}

	fh, err := os.OpenFile(tmp, os.O_RDWR, defaultFileMode)
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("marker: open tmp: %w", err)
	}
	if err := fh.Sync(); err != nil {
		_ = fh.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("marker: sync tmp: %w", err)
	}
	if err := fh.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("marker: close tmp: %w", err)
	}

	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("marker: rename: %w", err)
	}
	return nil
}

func (f *File) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("marker: remove: %w", err)
	}
	return nil
}
