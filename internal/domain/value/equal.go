package value

import "reflect"

// Equal reports whether a and b are structurally equal. Int and Float
// compare across kinds by numeric value (1 == 1.0); all other cross-kind
// comparisons are false rather than an error, matching Python's "==" never
// raising for mismatched types.
func Equal(a, b Value) bool {
	if a.kind == KindObject {
		return a.obj.Equal(b)
	}
	if b.kind == KindObject {
		return b.obj.Equal(a)
	}
	if a.IsNumeric() && b.IsNumeric() {
		return a.AsFloat64() == b.AsFloat64()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNothing:
		return true
	case KindBool:
		return a.b == b.b
	case KindStr:
		return a.s == b.s
	case KindBytes:
		return string(a.bs) == string(b.bs)
	case KindSet:
		return a.set.Equal(b.set)
	case KindFunction:
		return sameCallable(a.fn, b.fn)
	case KindAuthorization:
		return a.authz.Equal(b.authz)
	default:
		return false
	}
}

func sameCallable(a, b Callable) bool {
	switch fa := a.(type) {
	case Normal:
		fb, ok := b.(Normal)
		return ok && sameFuncPointer(fa, fb)
	case ContextWanting:
		fb, ok := b.(ContextWanting)
		return ok && sameFuncPointer(fa, fb)
	default:
		return false
	}
}

func sameFuncPointer(a, b any) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
