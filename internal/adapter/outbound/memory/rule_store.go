// Package memory implements the default in-memory outbound.RuleTextStore
// and outbound.DocStore: a mutex-guarded map, matching the teacher's
// ResultCache/RuleIndex construction style in internal/service/policy_service.go
// (a small guarded struct, no external dependency).
package memory

import (
	"sort"
	"sync"

	"github.com/aegis-policy/aegis/internal/port/outbound"
)

// RuleStore is a process-local outbound.RuleTextStore. It is the default
// backend selected by rule_source.driver: memory (spec.md §1, SPEC_FULL.md §2.3).
type RuleStore struct {
	mu    sync.RWMutex
	specs map[string]outbound.RuleSpec
}

// NewRuleStore constructs an empty RuleStore.
func NewRuleStore() *RuleStore {
	return &RuleStore{specs: make(map[string]outbound.RuleSpec)}
}

// LoadRules returns every stored rule, sorted by name for deterministic
// iteration order.
func (s *RuleStore) LoadRules() ([]outbound.RuleSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]outbound.RuleSpec, 0, len(s.specs))
	for _, spec := range s.specs {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SaveRule persists or overwrites one rule.
func (s *RuleStore) SaveRule(spec outbound.RuleSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs[spec.Name] = spec
	return nil
}

// DeleteRule removes a rule. Deleting an absent name is a no-op.
func (s *RuleStore) DeleteRule(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.specs, name)
	return nil
}

var _ outbound.RuleTextStore = (*RuleStore)(nil)
