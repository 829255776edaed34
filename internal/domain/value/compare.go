package value

import "strings"

// Compare orders a against b for the <, <=, >, >= operators. Int and Float
// compare across kinds by numeric value. Sets, Functions and Authorizations
// have no total order and return ErrIncomparable.
func Compare(a, b Value) (Ordering, error) {
	if a.kind == KindObject {
		return a.obj.Compare(b)
	}
	if b.kind == KindObject {
		ord, err := b.obj.Compare(a)
		if err != nil {
			return ord, err
		}
		return -ord, nil
	}
	if a.IsNumeric() && b.IsNumeric() {
		return compareFloat(a.AsFloat64(), b.AsFloat64()), nil
	}
	if a.kind != b.kind {
		return OrderEqual, ErrIncomparable
	}
	switch a.kind {
	case KindBool:
		return compareFloat(boolToFloat(a.b), boolToFloat(b.b)), nil
	case KindStr:
		return Ordering(strings.Compare(a.s, b.s)), nil
	case KindBytes:
		return Ordering(strings.Compare(string(a.bs), string(b.bs))), nil
	default:
		return OrderEqual, ErrIncomparable
	}
}

func compareFloat(a, b float64) Ordering {
	switch {
	case a < b:
		return OrderLess
	case a > b:
		return OrderGreater
	default:
		return OrderEqual
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
