package vm

import (
	"strings"

	"github.com/aegis-policy/aegis/internal/domain/value"
)

// seq is the Object backing the list, tuple, range, zip, enumerate and
// sorted builtins (spec.md §4.8): an ordered, Nothing-tolerant value
// sequence. label distinguishes list/tuple/etc. only for String()/Equal();
// the core language never reaches into it except through the Object
// capability contract.
type seq struct {
	label string
	items []value.Value
}

func newSeq(label string, items []value.Value) value.Value {
	return value.FromObject(&seq{label: label, items: items})
}

func (s *seq) GetAttr(name string) (value.Value, error) {
	return value.Nothing, value.ErrNoAttribute
}

func (s *seq) GetItem(key value.Value) (value.Value, error) {
	if key.Kind() != value.KindInt {
		return value.Nothing, value.ErrNotSubscriptable
	}
	idx := key.AsInt()
	if idx < 0 {
		idx += int64(len(s.items))
	}
	if idx < 0 || idx >= int64(len(s.items)) {
		return value.Nothing, value.ErrNotSubscriptable
	}
	return s.items[idx], nil
}

func (s *seq) Call(args []value.Value) (value.Value, error) {
	return value.Nothing, value.ErrNotCallable
}

func (s *seq) Equal(other value.Value) bool {
	o, ok := other.AsObject().(*seq)
	if other.Kind() != value.KindObject || !ok {
		return false
	}
	if s.label != o.label || len(s.items) != len(o.items) {
		return false
	}
	for i := range s.items {
		if !value.Equal(s.items[i], o.items[i]) {
			return false
		}
	}
	return true
}

func (s *seq) Compare(other value.Value) (value.Ordering, error) {
	return value.OrderEqual, value.ErrIncomparable
}

func (s *seq) Truthy() bool { return len(s.items) != 0 }

func (s *seq) Hash() (uint64, error) { return 0, value.ErrUnhashable }

func (s *seq) Contains(elem value.Value) (bool, error) {
	for _, v := range s.items {
		if value.Equal(v, elem) {
			return true, nil
		}
	}
	return false, nil
}

func (s *seq) String() string {
	parts := make([]string, len(s.items))
	for i, v := range s.items {
		parts[i] = v.String()
	}
	open, close := "[", "]"
	if s.label == "tuple" {
		open, close = "(", ")"
	}
	return open + strings.Join(parts, ", ") + close
}

// pair is one key/value entry of a dictObj, kept in insertion order.
type pair struct {
	key value.Value
	val value.Value
}

// dictObj is the Object backing the dict builtin: an insertion-ordered,
// Nothing-tolerant key/value mapping (spec.md §4.8).
type dictObj struct {
	pairs []pair
}

func newDict(pairs []pair) value.Value {
	return value.FromObject(&dictObj{pairs: pairs})
}

func (d *dictObj) GetAttr(name string) (value.Value, error) {
	return value.Nothing, value.ErrNoAttribute
}

func (d *dictObj) GetItem(key value.Value) (value.Value, error) {
	for _, p := range d.pairs {
		if value.Equal(p.key, key) {
			return p.val, nil
		}
	}
	return value.Nothing, value.ErrNotSubscriptable
}

func (d *dictObj) Call(args []value.Value) (value.Value, error) {
	return value.Nothing, value.ErrNotCallable
}

func (d *dictObj) Equal(other value.Value) bool {
	o, ok := other.AsObject().(*dictObj)
	if other.Kind() != value.KindObject || !ok {
		return false
	}
	if len(d.pairs) != len(o.pairs) {
		return false
	}
	for _, p := range d.pairs {
		v, err := o.GetItem(p.key)
		if err != nil || !value.Equal(v, p.val) {
			return false
		}
	}
	return true
}

func (d *dictObj) Compare(other value.Value) (value.Ordering, error) {
	return value.OrderEqual, value.ErrIncomparable
}

func (d *dictObj) Truthy() bool { return len(d.pairs) != 0 }

func (d *dictObj) Hash() (uint64, error) { return 0, value.ErrUnhashable }

func (d *dictObj) Contains(elem value.Value) (bool, error) {
	for _, p := range d.pairs {
		if value.Equal(p.key, elem) {
			return true, nil
		}
	}
	return false, nil
}

func (d *dictObj) String() string {
	parts := make([]string, len(d.pairs))
	for i, p := range d.pairs {
		parts[i] = p.key.String() + ": " + p.val.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// toSlice widens a Set, a seq Object, or a Str into an ordered slice of
// Values, for the builtins (sorted, zip, enumerate, sum, list, tuple) that
// accept "any iterable". Anything else yields ok=false.
func toSlice(v value.Value) ([]value.Value, bool) {
	switch v.Kind() {
	case value.KindSet:
		return v.AsSet().Values(), true
	case value.KindStr:
		runes := []rune(v.AsStr())
		out := make([]value.Value, len(runes))
		for i, r := range runes {
			out[i] = value.Str(string(r))
		}
		return out, true
	case value.KindObject:
		if s, ok := v.AsObject().(*seq); ok {
			return s.items, true
		}
		return nil, false
	default:
		return nil, false
	}
}
