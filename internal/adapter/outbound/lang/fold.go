package lang

import "github.com/aegis-policy/aegis/internal/domain/value"

// foldConst attempts to evaluate e entirely at compile time (spec.md §4.4).
// It returns ok=false whenever any part of e is not a literal constant, and
// also whenever evaluation would fail (division by zero, a type mismatch,
// an unhashable set element): the fold is simply abandoned in that case,
// never reported as a ParseError — the failure, if it is ever reached at
// all, surfaces from the runtime instruction emitted instead.
func foldConst(e Expr) (value.Value, bool) {
	switch n := e.(type) {
	case *LiteralExpr:
		return n.Value, true

	case *UnaryExpr:
		operand, ok := foldConst(n.Operand)
		if !ok {
			return value.Nothing, false
		}
		var (
			r   value.Value
			err error
		)
		switch n.Op {
		case TokPlus:
			r, err = value.Pos(operand)
		case TokMinus:
			r, err = value.Neg(operand)
		case TokTilde:
			r, err = value.Invert(operand)
		case TokNot:
			return value.Not(operand), true
		default:
			return value.Nothing, false
		}
		if err != nil {
			return value.Nothing, false
		}
		return r, true

	case *BinaryExpr:
		return foldBinary(n)

	case *CompareExpr:
		return foldCompare(n)

	case *TernaryExpr:
		cond, ok := foldConst(n.Cond)
		if !ok {
			return value.Nothing, false
		}
		if cond.Truthy() {
			return foldConst(n.Then)
		}
		return foldConst(n.Else)

	case *SetExpr:
		elems := make([]value.Value, 0, len(n.Elements))
		for _, el := range n.Elements {
			v, ok := foldConst(el)
			if !ok {
				return value.Nothing, false
			}
			elems = append(elems, v)
		}
		s, err := value.NewSet(elems...)
		if err != nil {
			return value.Nothing, false
		}
		return value.FromSet(s), true

	default:
		// NameExpr, AttrExpr, SubscriptExpr, CallExpr: never constant —
		// they depend on runtime state or host capabilities.
		return value.Nothing, false
	}
}

func foldBinary(n *BinaryExpr) (value.Value, bool) {
	if n.Op == TokAnd {
		left, ok := foldConst(n.Left)
		if !ok {
			return value.Nothing, false
		}
		if !left.Truthy() {
			return left, true
		}
		return foldConst(n.Right)
	}
	if n.Op == TokOr {
		left, ok := foldConst(n.Left)
		if !ok {
			return value.Nothing, false
		}
		if left.Truthy() {
			return left, true
		}
		return foldConst(n.Right)
	}

	left, ok := foldConst(n.Left)
	if !ok {
		return value.Nothing, false
	}
	right, ok := foldConst(n.Right)
	if !ok {
		return value.Nothing, false
	}

	var (
		r   value.Value
		err error
	)
	switch n.Op {
	case TokPlus:
		r, err = value.Add(left, right)
	case TokMinus:
		r, err = value.Sub(left, right)
	case TokStar:
		r, err = value.Mul(left, right)
	case TokSlash:
		r, err = value.Div(left, right)
	case TokDoubleSlash:
		r, err = value.FloorDiv(left, right)
	case TokPercent:
		r, err = value.Mod(left, right)
	case TokDoubleStar:
		r, err = value.Pow(left, right)
	case TokAmp:
		r, err = value.BitAnd(left, right)
	case TokPipe:
		r, err = value.BitOr(left, right)
	case TokCaret:
		r, err = value.BitXor(left, right)
	case TokShl:
		r, err = value.Shl(left, right)
	case TokShr:
		r, err = value.Shr(left, right)
	default:
		return value.Nothing, false
	}
	if err != nil {
		return value.Nothing, false
	}
	return r, true
}

func foldCompare(n *CompareExpr) (value.Value, bool) {
	operands := make([]value.Value, len(n.Operands))
	for i, e := range n.Operands {
		v, ok := foldConst(e)
		if !ok {
			return value.Nothing, false
		}
		operands[i] = v
	}

	result := true
	for i, op := range n.Ops {
		a, b := operands[i], operands[i+1]
		ok, err := evalCompareStep(op, a, b)
		if err != nil {
			return value.Nothing, false
		}
		if !ok {
			result = false
			break
		}
	}
	return value.Bool(result), true
}

// evalCompareStep evaluates one step of a comparison chain, shared by
// constant folding here and the evaluator's runtime comparison opcodes.
func evalCompareStep(op TokenType, a, b value.Value) (bool, error) {
	switch op {
	case TokEqEq:
		return value.Eq(a, b), nil
	case TokNotEq:
		return value.Ne(a, b), nil
	case TokLt:
		return value.Lt(a, b)
	case TokLe:
		return value.Le(a, b)
	case TokGt:
		return value.Gt(a, b)
	case TokGe:
		return value.Ge(a, b)
	case TokIn:
		return value.Contains(a, b)
	case notInOp:
		in, err := value.Contains(a, b)
		if err != nil {
			return false, err
		}
		return !in, nil
	default:
		return false, value.ErrTypeMismatch
	}
}
