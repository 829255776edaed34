package value

// Eq and Ne implement "==" and "!=": always defined (never an error),
// structural equality per Equal.
func Eq(a, b Value) bool { return Equal(a, b) }
func Ne(a, b Value) bool { return !Equal(a, b) }

// Lt, Le, Gt, Ge implement the ordering comparisons. They fail with
// ErrIncomparable for operand kinds with no total order (spec.md §4.3).
func Lt(a, b Value) (bool, error) {
	ord, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return ord == OrderLess, nil
}

func Le(a, b Value) (bool, error) {
	ord, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return ord != OrderGreater, nil
}

func Gt(a, b Value) (bool, error) {
	ord, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return ord == OrderGreater, nil
}

func Ge(a, b Value) (bool, error) {
	ord, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return ord != OrderLess, nil
}
