package service

import (
	"fmt"
	"log/slog"

	"github.com/aegis-policy/aegis/internal/adapter/outbound/docstore"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/lang"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/memory"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/sqlitestore"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/vm"
	"github.com/aegis-policy/aegis/internal/config"
	"github.com/aegis-policy/aegis/internal/domain/policy"
	"github.com/aegis-policy/aegis/internal/engine"
	"github.com/aegis-policy/aegis/internal/port/outbound"
)

// Stores bundles the outbound.RuleTextStore and outbound.DocStore wired
// for one configuration, so CLI commands can persist new declarations
// through the same backend a Policy was loaded from.
type Stores struct {
	Rules outbound.RuleTextStore
	Docs  outbound.DocStore
	close func() error
}

// Close releases any resources the selected backend holds open (a SQLite
// connection, for instance). Safe to call on a zero-valued Stores.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores selects and opens the rule/doc storage backends named by
// cfg.RuleSource (spec.md §1's external-collaborator boundary): driver
// "sqlite" opens cfg.RuleSource.DSN plus a DSN+".docs.yaml" doc store;
// any other driver uses the in-memory stores.
func OpenStores(cfg *config.Config) (*Stores, error) {
	switch cfg.RuleSource.Driver {
	case "sqlite":
		rules, err := sqlitestore.Open(cfg.RuleSource.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite rule store: %w", err)
		}
		docs := docstore.NewStore(cfg.RuleSource.DSN+".docs.yaml", nil)
		return &Stores{Rules: rules, Docs: docs, close: rules.Close}, nil
	default:
		return &Stores{Rules: memory.NewRuleStore(), Docs: memory.NewDocStore()}, nil
	}
}

// LoadPolicy builds an engine.Policy from every rule and doc entry
// persisted in stores, ready for Evaluate/Declare calls.
func LoadPolicy(stores *Stores, logger *slog.Logger, opts ...engine.Option) (*engine.Policy, error) {
	specs, err := stores.Rules.LoadRules()
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	docs, err := stores.Docs.LoadDocs()
	if err != nil {
		return nil, fmt.Errorf("load docs: %w", err)
	}

	if logger != nil {
		opts = append(opts, engine.WithLogger(logger))
	}
	p := engine.NewPolicy(lang.Compile, vm.New(), opts...)

	for _, spec := range specs {
		attrDocs := spec.AttrDocs
		doc := spec.Doc
		if entry, ok := docs[spec.Name]; ok {
			if doc == "" {
				doc = entry.Doc
			}
			if attrDocs == nil {
				attrDocs = entry.AttrDocs
			}
		}
		r, err := policy.NewRule(spec.Name, spec.Text, spec.Attrs, doc, attrDocs)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
		}
		p.SetRule(r)
	}

	// Doc-only entries (declared without rule text yet) still register
	// their documentation, matching Declare's "register defaults and
	// documentation without requiring rule text" behavior.
	for name, entry := range docs {
		if _, ok := p.GetRule(name); ok {
			continue
		}
		if err := p.Declare(name, engine.DeclareOptions{Doc: entry.Doc, AttrDocs: entry.AttrDocs}); err != nil {
			return nil, fmt.Errorf("declare %q: %w", name, err)
		}
	}

	return p, nil
}

// SaveRule persists one rule's text/attrs/docs through stores, so a rule
// saved through it survives a process restart.
func SaveRule(stores *Stores, spec outbound.RuleSpec) error {
	if err := stores.Rules.SaveRule(spec); err != nil {
		return err
	}
	if spec.Doc != "" || len(spec.AttrDocs) > 0 {
		return stores.Docs.SaveDoc(outbound.DocEntry{Name: spec.Name, Doc: spec.Doc, AttrDocs: spec.AttrDocs})
	}
	return nil
}
