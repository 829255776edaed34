package value

import (
	"sort"
	"strings"
)

// Set is the language's unordered collection of hashable elements (spec.md
// §3, §9 open question (c)). Both the set() and frozenset() builtins and the
// {e, e, ...} literal produce this same immutable representation: there is
// no mutation API, so a Set value is safe to share and to nest inside
// another Set.
type Set struct {
	buckets map[uint64][]Value
	count   int
}

// NewSet builds a Set from elems, deduplicating by Equal. It returns
// ErrUnhashable if any element cannot be hashed.
func NewSet(elems ...Value) (*Set, error) {
	s := &Set{buckets: make(map[uint64][]Value, len(elems))}
	for _, e := range elems {
		if err := s.add(e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) add(v Value) error {
	h, err := Hash(v)
	if err != nil {
		return err
	}
	for _, existing := range s.buckets[h] {
		if Equal(existing, v) {
			return nil // already present
		}
	}
	s.buckets[h] = append(s.buckets[h], v)
	s.count++
	return nil
}

// Len returns the number of distinct elements.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.count
}

// Contains reports whether v is a member of s.
func (s *Set) Contains(v Value) (bool, error) {
	h, err := Hash(v)
	if err != nil {
		return false, err
	}
	for _, existing := range s.buckets[h] {
		if Equal(existing, v) {
			return true, nil
		}
	}
	return false, nil
}

// Values returns the set's elements in an unspecified but stable-per-call
// order, for iteration by builtins such as sorted() and sum().
func (s *Set) Values() []Value {
	if s == nil {
		return nil
	}
	out := make([]Value, 0, s.count)
	for _, bucket := range s.buckets {
		out = append(out, bucket...)
	}
	return out
}

// Equal reports whether s and other contain the same elements,
// irrespective of order (spec.md §8: "{1, 2, 3} == {3, 2, 1} is true").
func (s *Set) Equal(other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, v := range s.Values() {
		ok, err := other.Contains(v)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// String renders the set for debugging, with elements in a deterministic
// (sorted by rendered form) order so output is reproducible in tests.
func (s *Set) String() string {
	parts := make([]string, 0, s.Len())
	for _, v := range s.Values() {
		parts = append(parts, v.String())
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ", ") + "}"
}
