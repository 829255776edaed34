package policy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aegis-policy/aegis/internal/domain/value"
)

// Compiler lowers rule source text into an instruction stream. It is
// injected rather than imported directly so the domain package stays free
// of a dependency on the lexer/parser adapter (spec.md §2's Lexer/Parser
// component lives in internal/adapter/outbound/lang).
type Compiler func(text string) ([]Instruction, error)

// Rule is a named, compiled unit of policy (spec.md §3). Compilation is
// lazy and cached; the cache is invalidated whenever SetText reassigns the
// source text. Safe for concurrent reads; a per-rule mutex guards the
// (rare) write path, matching the "per-rule lock covering lazy compilation"
// concurrency model from spec.md §5.
type Rule struct {
	name string

	mu      sync.RWMutex
	text    string
	version uint64

	attrs    map[string]value.Value
	doc      string
	attrDocs map[string]string

	compileMu       sync.Mutex
	compiledVersion uint64
	compiledValid   bool
	compiled        []Instruction
	compileErr      error
}

// NewRule constructs a Rule. attrs supplies declared attribute defaults
// (default Nothing when nil); names beginning with "_" are rejected in
// both the rule name and every attribute name (spec.md §3 invariant).
func NewRule(name, text string, attrs map[string]value.Value, doc string, attrDocs map[string]string) (*Rule, error) {
	if strings.HasPrefix(name, "_") {
		return nil, fmt.Errorf("rule name %q must not begin with \"_\"", name)
	}
	for attr := range attrs {
		if strings.HasPrefix(attr, "_") {
			return nil, fmt.Errorf("attribute name %q must not begin with \"_\"", attr)
		}
	}
	r := &Rule{
		name:     name,
		text:     text,
		attrs:    copyAttrs(attrs),
		doc:      doc,
		attrDocs: copyDocs(attrDocs),
	}
	return r, nil
}

// Name returns the rule's unique name.
func (r *Rule) Name() string { return r.name }

// Text returns the rule's current source text.
func (r *Rule) Text() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.text
}

// SetText reassigns the rule's source text, invalidating the compiled
// instruction cache (spec.md §3: "Setting text clears the cached
// compilation").
func (r *Rule) SetText(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = text
	r.version++
}

// Attrs returns a copy of the declared attribute defaults.
func (r *Rule) Attrs() map[string]value.Value {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyAttrs(r.attrs)
}

// SetAttrs replaces the declared attribute defaults.
func (r *Rule) SetAttrs(attrs map[string]value.Value) error {
	for attr := range attrs {
		if strings.HasPrefix(attr, "_") {
			return fmt.Errorf("attribute name %q must not begin with \"_\"", attr)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attrs = copyAttrs(attrs)
	return nil
}

// Doc returns the rule's human-readable description.
func (r *Rule) Doc() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doc
}

// SetDoc sets the rule's human-readable description.
func (r *Rule) SetDoc(doc string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc = doc
}

// AttrDoc returns the description registered for a declared attribute.
func (r *Rule) AttrDoc(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attrDocs[name]
}

// AttrDocs returns a copy of all attribute descriptions.
func (r *Rule) AttrDocs() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyDocs(r.attrDocs)
}

// SetAttrDocs replaces the attribute descriptions.
func (r *Rule) SetAttrDocs(docs map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attrDocs = copyDocs(docs)
}

// Instructions returns the compiled instruction stream, compiling and
// caching it on first use (or after SetText invalidates the cache).
// recompiled reports whether compile actually ran, so a caller that wants
// to count real compilations (as opposed to cache hits) has something to
// count on.
func (r *Rule) Instructions(compile Compiler) (instructions []Instruction, recompiled bool, err error) {
	r.mu.RLock()
	text := r.text
	ver := r.version
	r.mu.RUnlock()

	r.compileMu.Lock()
	defer r.compileMu.Unlock()

	if r.compiledValid && r.compiledVersion == ver {
		return r.compiled, false, r.compileErr
	}

	instr, err := compile(text)
	r.compiled = instr
	r.compileErr = err
	r.compiledVersion = ver
	r.compiledValid = true
	return instr, true, err
}

func copyAttrs(attrs map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func copyDocs(docs map[string]string) map[string]string {
	out := make(map[string]string, len(docs))
	for k, v := range docs {
		out[k] = v
	}
	return out
}
