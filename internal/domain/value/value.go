// Package value defines the tagged union of runtime values that flow
// through the Aegis expression VM, and the capability contract ("Object")
// opaque host values must satisfy to participate in evaluation.
package value

import "fmt"

// Kind discriminates the variant currently held by a Value.
type Kind uint8

const (
	// KindNothing is the unit "unresolved / none" sentinel.
	KindNothing Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindBytes
	KindSet
	KindObject
	KindFunction
	KindAuthorization
)

// String returns a human-readable name for the kind, used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNothing:
		return "nothing"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindBytes:
		return "bytes"
	case KindSet:
		return "set"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	case KindAuthorization:
		return "authorization"
	default:
		return "unknown"
	}
}

// Value is the tagged union of runtime values. The zero Value is Nothing.
type Value struct {
	kind Kind

	b  bool
	i  int64
	f  float64
	s  string
	bs []byte

	set   *Set
	obj   Object
	fn    Callable
	authz *Authorization
}

// Nothing is the unit "unresolved / none" sentinel value.
var Nothing = Value{kind: KindNothing}

// Bool returns a Value wrapping a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns a Value wrapping a 64-bit integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a Value wrapping a float64.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Str returns a Value wrapping a string.
func Str(s string) Value { return Value{kind: KindStr, s: s} }

// Bytes returns a Value wrapping a byte slice.
func Bytes(b []byte) Value { return Value{kind: KindBytes, bs: b} }

// FromSet returns a Value wrapping a Set.
func FromSet(s *Set) Value { return Value{kind: KindSet, set: s} }

// FromObject returns a Value wrapping a host Object.
func FromObject(o Object) Value { return Value{kind: KindObject, obj: o} }

// FromFunction returns a Value wrapping a callable.
func FromFunction(c Callable) Value { return Value{kind: KindFunction, fn: c} }

// FromAuthorization returns a Value wrapping an Authorization.
func FromAuthorization(a *Authorization) Value { return Value{kind: KindAuthorization, authz: a} }

// Kind reports which variant this Value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNothing reports whether v is the Nothing sentinel.
func (v Value) IsNothing() bool { return v.kind == KindNothing }

// AsBool returns the wrapped bool. Only valid when Kind() == KindBool.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the wrapped int64. Only valid when Kind() == KindInt.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the wrapped float64. Only valid when Kind() == KindFloat.
func (v Value) AsFloat() float64 { return v.f }

// AsStr returns the wrapped string. Only valid when Kind() == KindStr.
func (v Value) AsStr() string { return v.s }

// AsBytes returns the wrapped byte slice. Only valid when Kind() == KindBytes.
func (v Value) AsBytes() []byte { return v.bs }

// AsSet returns the wrapped Set. Only valid when Kind() == KindSet.
func (v Value) AsSet() *Set { return v.set }

// AsObject returns the wrapped Object. Only valid when Kind() == KindObject.
func (v Value) AsObject() Object { return v.obj }

// AsFunction returns the wrapped Callable. Only valid when Kind() == KindFunction.
func (v Value) AsFunction() Callable { return v.fn }

// AsAuthorization returns the wrapped Authorization. Only valid when
// Kind() == KindAuthorization.
func (v Value) AsAuthorization() *Authorization { return v.authz }

// Truthy implements the language's truthiness rules: Nothing, False, numeric
// zero, and empty string/bytes/set are false; everything else (including
// opaque objects, unless the capability overrides it) is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNothing:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindStr:
		return v.s != ""
	case KindBytes:
		return len(v.bs) != 0
	case KindSet:
		return v.set.Len() != 0
	case KindObject:
		return v.obj.Truthy()
	case KindFunction:
		return true
	case KindAuthorization:
		return v.authz.Verdict
	default:
		return false
	}
}

// String renders v for debugging and error messages. It is not the
// language's str() builtin, which has its own host-aware formatting rules.
func (v Value) String() string {
	switch v.kind {
	case KindNothing:
		return "Nothing"
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindStr:
		return fmt.Sprintf("%q", v.s)
	case KindBytes:
		return fmt.Sprintf("%v", v.bs)
	case KindSet:
		return v.set.String()
	case KindObject:
		return fmt.Sprintf("<object %v>", v.obj)
	case KindFunction:
		return "<function>"
	case KindAuthorization:
		return fmt.Sprintf("<authorization verdict=%v>", v.authz.Verdict)
	default:
		return "<invalid>"
	}
}

// IsNumeric reports whether v holds an Int or Float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// AsFloat64 widens an Int or Float value to float64. Panics (bug, caller
// must check IsNumeric first) for any other kind.
func (v Value) AsFloat64() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	default:
		panic("value: AsFloat64 called on non-numeric Value")
	}
}
