package value

// Authorization is the immutable result of evaluating a rule (spec.md
// §4.9): a boolean verdict plus a mapping of attribute names to the values
// declared in the rule's {{ ... }} block (or their registered defaults).
// It is itself one of the Value variants so that rule() can push it onto
// the stack and and/or can observe its truthiness.
type Authorization struct {
	Verdict bool
	Attrs   map[string]Value
}

// NewAuthorization builds an Authorization, copying attrs defensively.
func NewAuthorization(verdict bool, attrs map[string]Value) *Authorization {
	copied := make(map[string]Value, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return &Authorization{Verdict: verdict, Attrs: copied}
}

// Denied is the falsy, empty-attrs Authorization returned whenever a rule
// cannot be found or evaluation must degrade gracefully (spec.md §4.6,
// §4.8: "If the named rule does not exist, returns a falsy Authorization
// with empty attrs").
var Denied = &Authorization{Verdict: false, Attrs: map[string]Value{}}

// Attr reads a named attribute, returning Nothing for any name not present
// (spec.md §4.9: "Reading an unknown attribute yields Nothing, not an
// error").
func (a *Authorization) Attr(name string) Value {
	if a == nil {
		return Nothing
	}
	if v, ok := a.Attrs[name]; ok {
		return v
	}
	return Nothing
}

// Equal reports structural equality: same verdict and same attribute map.
func (a *Authorization) Equal(b *Authorization) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Verdict != b.Verdict || len(a.Attrs) != len(b.Attrs) {
		return false
	}
	for k, v := range a.Attrs {
		bv, ok := b.Attrs[k]
		if !ok || !Equal(v, bv) {
			return false
		}
	}
	return true
}
