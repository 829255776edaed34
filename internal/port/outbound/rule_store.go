// Package outbound defines the outbound port interfaces for persisting and
// loading policy data. Adapters in internal/adapter/outbound implement
// these against memory, SQLite, or flat files; the domain and engine
// packages depend only on the interfaces here (spec.md §1: "rule text
// arrives as opaque strings from any source").
package outbound

import "github.com/aegis-policy/aegis/internal/domain/value"

// RuleSpec is the storage-layer DTO for a rule: everything SetRule needs
// to reconstruct a policy.Rule, plus struct tags so the CLI/API layer can
// validate a wire payload before it ever reaches the core (SPEC_FULL.md
// §3's validator/v10 bullet).
type RuleSpec struct {
	Name     string                   `yaml:"name" mapstructure:"name" validate:"required,excludesall=_"`
	Text     string                   `yaml:"text" mapstructure:"text"`
	Attrs    map[string]value.Value   `yaml:"-" mapstructure:"-"`
	Doc      string                   `yaml:"doc,omitempty" mapstructure:"doc"`
	AttrDocs map[string]string        `yaml:"attr_docs,omitempty" mapstructure:"attr_docs"`
}

// RuleTextStore is the outbound port for rule persistence. It knows
// nothing about compilation or evaluation; it loads and saves opaque
// RuleSpecs (spec.md §1's external-collaborator boundary: "the core
// exposes only set_rule/get_rule operations").
type RuleTextStore interface {
	// LoadRules returns every persisted rule, in no particular order.
	LoadRules() ([]RuleSpec, error)

	// SaveRule persists one rule, overwriting any existing entry with the
	// same name.
	SaveRule(spec RuleSpec) error

	// DeleteRule removes a persisted rule. Deleting a name that does not
	// exist is not an error.
	DeleteRule(name string) error
}
