package outbound

// DocEntry is one rule's documentation, as persisted by the declare/doc
// registry (SPEC_FULL.md §3's docstore bullet).
type DocEntry struct {
	Name     string            `yaml:"name"`
	Doc      string            `yaml:"doc,omitempty"`
	AttrDocs map[string]string `yaml:"attr_docs,omitempty"`
}

// DocStore is the outbound port for the declare-time documentation
// registry: the human-facing doc strings and attribute descriptions
// attached by Policy.Declare (spec.md §4.8), kept separate from rule
// text/attrs so "aegis declare export" can dump just the documentation
// surface for review.
type DocStore interface {
	// LoadDocs returns every persisted doc entry, keyed by rule name.
	LoadDocs() (map[string]DocEntry, error)

	// SaveDoc persists one rule's documentation, overwriting any existing
	// entry with the same name.
	SaveDoc(entry DocEntry) error
}
