// Package credentials persists the OAuth credential record for the managed
// upstream as credentials.json inside the .patchbay/ directory.
//
// The store caches the record in memory so the proxy's hot path does not
// touch the filesystem on every request. Saves go through a temp file and
// rename so a concurrent Load sees either the old record or the new one,
// never a partial write.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/papercomputeco/patchbay/pkg/dotdir"
)

const credentialsFileName = "credentials.json"

// Store manages the single credential record on disk.
type Store struct {
	ddm        *dotdir.Manager
	targetPath string

	mu     sync.RWMutex
	cached *Record
	loaded bool
}

// NewStore creates a store rooted at the resolved .patchbay/ directory.
// Pass an empty overrideDir to use the default resolution order.
func NewStore(overrideDir string) (*Store, error) {
	ddm := dotdir.NewManager()

	dir, err := ddm.Target(overrideDir)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials directory: %w", err)
	}

	return &Store{
		ddm:        ddm,
		targetPath: filepath.Join(dir, credentialsFileName),
	}, nil
}

// Load returns the stored record, or nil when none has been saved yet.
// The returned record is a copy; mutating it does not affect the store.
func (s *Store) Load() (*Record, error) {
	s.mu.RLock()
	if s.loaded {
		rec := copyRecord(s.cached)
		s.mu.RUnlock()
		return rec, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return copyRecord(s.cached), nil
	}

	data, err := os.ReadFile(s.targetPath)
	if errors.Is(err, os.ErrNotExist) {
		s.cached = nil
		s.loaded = true
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing credentials file %s: %w", s.targetPath, err)
	}

	s.cached = &rec
	s.loaded = true

	return copyRecord(s.cached), nil
}

// Save replaces the stored record wholesale.
func (s *Store) Save(rec *Record) error {
	if rec == nil {
		return errors.New("cannot save nil credentials")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	// Temp file in the target directory so the rename stays on one
	// filesystem and lands atomically.
	tmp, err := os.CreateTemp(filepath.Dir(s.targetPath), ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("creating temp credentials file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("restricting credentials file permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing credentials: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp credentials file: %w", err)
	}

	if err := os.Rename(tmpPath, s.targetPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing credentials file: %w", err)
	}

	s.cached = copyRecord(rec)
	s.loaded = true

	return nil
}

// Clear removes the stored record. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	s.loaded = true

	if err := os.Remove(s.targetPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credentials file: %w", err)
	}

	return nil
}

// GetTarget returns the absolute path of the backing credentials file.
func (s *Store) GetTarget() string {
	return s.targetPath
}

// invalidate drops the in-memory cache so the next Load re-reads the file.
func (s *Store) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.loaded = false
	s.mu.Unlock()
}

func copyRecord(rec *Record) *Record {
	if rec == nil {
		return nil
	}
	cp := *rec
	return &cp
}
