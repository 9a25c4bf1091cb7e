// Package filestore keeps each ledger as one JSON document on disk.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ltpbot/internal/store"
)

// Store writes <dir>/<key>.json. Saves go through a temp file and a rename,
// so a reader never sees a half-written record.
type Store struct {
	dir string
	mu  sync.Mutex
}

var _ store.LedgerStore = (*Store)(nil)

func New(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the file backing key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

func (s *Store) Load(_ context.Context, key string) (store.LedgerRecord, error) {
	path := s.Path(key)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return store.LedgerRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.LedgerRecord{}, fmt.Errorf("%w: read %s: %v", store.ErrCorrupt, path, err)
	}
	var rec store.LedgerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return store.LedgerRecord{}, fmt.Errorf("%w: decode %s: %v", store.ErrCorrupt, path, err)
	}
	return rec, nil
}

func (s *Store) Save(_ context.Context, key string, rec store.LedgerRecord) error {
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("filestore: marshal %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(key)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("filestore: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("filestore: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("filestore: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filestore: replace %s: %w", path, err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "order_book"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
