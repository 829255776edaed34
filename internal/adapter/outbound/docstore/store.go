// Package docstore implements a file-based outbound.DocStore: the
// declare-time documentation registry backing "aegis declare export"
// (SPEC_FULL.md §3). Its atomic-write sequence — in-process mutex, flock,
// backup, write-tmp-then-rename — is adapted from the teacher's
// FileStateStore (internal/adapter/outbound/state/store.go), swapping
// JSON for YAML since the registry is meant for human review and export.
package docstore

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aegis-policy/aegis/internal/port/outbound"
)

// Store is a file-backed outbound.DocStore. One file holds every rule's
// documentation as a YAML list, guarded by an in-process mutex and a
// cross-process flock on path+".lock" (spec.md §1's storage boundary is
// opaque to the core; this adapter owns the on-disk representation).
type Store struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewStore constructs a Store rooted at path. A nil logger defaults to
// slog.Default().
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// LoadDocs reads every persisted doc entry. A missing file is not an
// error; it yields an empty registry, matching FileStateStore.Load's
// "file not found -> default state" behavior.
func (s *Store) LoadDocs() (map[string]outbound.DocEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]outbound.DocEntry{}, nil
		}
		return nil, fmt.Errorf("read doc store: %w", err)
	}

	if runtime.GOOS != "windows" {
		if info, statErr := os.Stat(s.path); statErr == nil {
			if mode := info.Mode().Perm(); mode&0077 != 0 {
				s.logger.Warn("doc store has too-open permissions, should be 0600",
					"path", s.path, "current_mode", fmt.Sprintf("%04o", mode))
			}
		}
	}

	var entries []outbound.DocEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse doc store: %w", err)
	}
	out := make(map[string]outbound.DocEntry, len(entries))
	for _, e := range entries {
		out[e.Name] = e
	}
	return out, nil
}

// SaveDoc persists or overwrites one rule's documentation, atomically
// rewriting the whole registry file (in-process mutex -> flock -> backup
// -> marshal -> write-tmp -> fsync -> rename -> unflock).
func (s *Store) SaveDoc(entry outbound.DocEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockPath := s.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lockFile.Close() }()

	if err := flockLock(lockFile.Fd()); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer flockUnlock(lockFile.Fd()) //nolint:errcheck

	entries, err := s.loadLocked()
	if err != nil {
		return err
	}
	entries[entry.Name] = entry

	if currentData, readErr := os.ReadFile(s.path); readErr == nil {
		bakPath := s.path + ".bak"
		if writeErr := os.WriteFile(bakPath, currentData, 0600); writeErr != nil {
			s.logger.Warn("failed to create doc store backup", "error", writeErr)
		}
	}

	out := make([]outbound.DocEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal doc store: %w", err)
	}

	if err := s.writeAtomic(data); err != nil {
		return err
	}
	if err := os.Chmod(s.path, 0600); err != nil {
		s.logger.Warn("failed to set permissions on doc store", "error", err)
	}
	s.logger.Debug("doc store saved", "path", s.path, "rule", entry.Name)
	return nil
}

// loadLocked reads the current registry without re-acquiring the flock,
// for use inside SaveDoc which already holds it.
func (s *Store) loadLocked() (map[string]outbound.DocEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]outbound.DocEntry{}, nil
		}
		return nil, fmt.Errorf("read doc store: %w", err)
	}
	var entries []outbound.DocEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse doc store: %w", err)
	}
	out := make(map[string]outbound.DocEntry, len(entries))
	for _, e := range entries {
		out[e.Name] = e
	}
	return out, nil
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it over
// the target path, cleaning up the temp file on any error.
func (s *Store) writeAtomic(data []byte) error {
	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to doc store: %w", err)
	}
	return nil
}

var _ outbound.DocStore = (*Store)(nil)
