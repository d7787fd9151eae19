package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend stores every key in one JSON document. Each write replaces the
// document atomically, so readers see either the old or the new contents.
type FileBackend struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewFileBackend returns a backend writing to path. The file is created on
// first write.
func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	return &FileBackend{path: path}, nil
}

// Get returns the value for key.
func (f *FileBackend) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", false, ErrClosed
	}

	values, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Put stores value under key.
func (f *FileBackend) Put(key, value string) error {
	return f.update(func(values map[string]string) {
		values[key] = value
	})
}

// Delete removes keys.
func (f *FileBackend) Delete(keys ...string) error {
	return f.update(func(values map[string]string) {
		for _, k := range keys {
			delete(values, k)
		}
	})
}

// Close marks the backend closed.
func (f *FileBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FileBackend) update(fn func(map[string]string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	values, err := f.read()
	if err != nil {
		return err
	}
	fn(values)

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling storage: %w", err)
	}
	return WriteAtomic(f.path, data, filePermissions)
}

func (f *FileBackend) read() (map[string]string, error) {
	values := make(map[string]string)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading storage file: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}

	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing storage file: %w", err)
	}
	return values, nil
}

// ErrEmptyPath indicates an empty file path was provided.
var ErrEmptyPath = errors.New("path is empty")

// WriteAtomic writes data to path with the provided permissions. It writes a
// temp file in the same directory, fsyncs it, then renames it over path.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmpFile.Name()
	closed := false
	defer func() {
		if !closed {
			_ = tmpFile.Close()
		}
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("setting temp file permissions: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	closed = true

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	// Best effort directory sync so the rename survives a crash.
	if dirFile, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir is derived from the backend path
		_ = dirFile.Sync()
		_ = dirFile.Close()
	}

	return nil
}
