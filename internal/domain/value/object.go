package value

import "errors"

// Ordering is the result of comparing two values with Compare.
type Ordering int

const (
	OrderLess    Ordering = -1
	OrderEqual   Ordering = 0
	OrderGreater Ordering = 1
)

// Capability-absence sentinels. An adapter wrapping a host value returns
// one of these from the corresponding Object method to report that the
// operation is simply not supported for this value — never a crash. The
// evaluator maps each to its silent-fallback behavior from spec.md §7:
// ErrNoAttribute, ErrNotSubscriptable and ErrNotCallable degrade to
// Nothing; ErrIncomparable and ErrUnhashable surface as EvaluationError,
// since they indicate the rule author wrote something the capability
// explicitly refuses rather than a merely-absent name.
var (
	ErrNoAttribute      = errors.New("object has no such attribute")
	ErrNotSubscriptable = errors.New("object does not support subscription")
	ErrNotCallable      = errors.New("object is not callable")
	ErrIncomparable     = errors.New("values are not comparable")
	ErrUnhashable       = errors.New("value is not hashable")
)

// Object is the capability contract an opaque host value must implement
// to participate in evaluation (spec.md §4.1). Every method may return one
// of the sentinels above instead of performing the operation; any other
// non-nil error is treated as a genuine evaluation failure.
type Object interface {
	// GetAttr resolves a named attribute, or ErrNoAttribute.
	GetAttr(name string) (Value, error)
	// GetItem resolves a subscription by key, or ErrNotSubscriptable.
	GetItem(key Value) (Value, error)
	// Call invokes the object with the given arguments, or ErrNotCallable.
	Call(args []Value) (Value, error)
	// Equal reports structural equality against another Value.
	Equal(other Value) bool
	// Compare orders this object against another Value, or ErrIncomparable.
	Compare(other Value) (Ordering, error)
	// Truthy reports the object's boolean coercion.
	Truthy() bool
	// Hash returns a stable hash for use as a Set element, or ErrUnhashable.
	Hash() (uint64, error)
	// Contains reports whether elem is "in" this object, or an error if the
	// object does not support containment tests.
	Contains(elem Value) (bool, error)
}
