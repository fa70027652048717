package session

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// FilesystemStorage keeps snapshots as flat files in one directory
type FilesystemStorage struct {
	dir  string
	lock sync.RWMutex
}

func NewFilesystemStorage(dir string) (*FilesystemStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "could not create snapshot dir %q", dir)
	}
	return &FilesystemStorage{dir: dir}, nil
}

func (s *FilesystemStorage) Write(_ context.Context, key string, data []byte) error {
	filename, err := s.filename(key)
	if err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	// write and rename, a reader never sees half a snapshot
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, filename)
}

func (s *FilesystemStorage) Read(_ context.Context, key string) ([]byte, error) {
	filename, err := s.filename(key)
	if err != nil {
		return nil, err
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	return os.ReadFile(filename)
}

func (s *FilesystemStorage) List(_ context.Context, prefix string) ([]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || strings.HasSuffix(name, ".tmp") {
			continue
		}
		keys = append(keys, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

func (s *FilesystemStorage) Delete(_ context.Context, key string) error {
	filename, err := s.filename(key)
	if err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FilesystemStorage) Close() error {
	return nil
}

// filename keys are flat, anything that could leave the directory is rejected
func (s *FilesystemStorage) filename(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", errors.Errorf("invalid snapshot key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}
