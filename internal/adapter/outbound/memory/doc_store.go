package memory

import (
	"sync"

	"github.com/aegis-policy/aegis/internal/port/outbound"
)

// DocStore is a process-local outbound.DocStore.
type DocStore struct {
	mu   sync.RWMutex
	docs map[string]outbound.DocEntry
}

// NewDocStore constructs an empty DocStore.
func NewDocStore() *DocStore {
	return &DocStore{docs: make(map[string]outbound.DocEntry)}
}

// LoadDocs returns a copy of every stored doc entry.
func (s *DocStore) LoadDocs() (map[string]outbound.DocEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]outbound.DocEntry, len(s.docs))
	for k, v := range s.docs {
		out[k] = v
	}
	return out, nil
}

// SaveDoc persists or overwrites one rule's documentation.
func (s *DocStore) SaveDoc(entry outbound.DocEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[entry.Name] = entry
	return nil
}

var _ outbound.DocStore = (*DocStore)(nil)
