// Package vm is the tape interpreter that executes a compiled instruction
// stream against a policy.Context (spec.md §4.5). It is the concrete
// implementation of policy.RuleRunner, injected into the engine so the
// domain package stays free of a dependency on value arithmetic.
package vm

import (
	"errors"
	"fmt"

	"github.com/aegis-policy/aegis/internal/domain/policy"
	"github.com/aegis-policy/aegis/internal/domain/value"
)

// Evaluator runs one instruction stream to completion on a shared Context
// (spec.md §4.5). It carries no state of its own — everything mutable lives
// on the Context — so a single Evaluator is reused across every rule and
// every concurrent evaluation.
type Evaluator struct{}

// New returns an Evaluator.
func New() *Evaluator { return &Evaluator{} }

// Run executes instructions against ctx and returns the resulting
// Authorization, which the final SetAuthz instruction leaves as the sole
// value on the stack (spec.md §4.5).
func (e *Evaluator) Run(ctx *policy.Context, instructions []policy.Instruction) (*value.Authorization, error) {
	ip := 0
	for ip < len(instructions) {
		instr := instructions[ip]

		switch instr.Op {
		case policy.OpJump:
			ip = instr.Target
			continue

		case policy.OpJumpIfFalseElseKeep:
			v, err := ctx.Peek()
			if err != nil {
				return nil, evalErr(ctx, instr, err)
			}
			if !v.Truthy() {
				ip = instr.Target
				continue
			}
			if _, err := ctx.Pop(); err != nil {
				return nil, evalErr(ctx, instr, err)
			}

		case policy.OpJumpIfTrueElseKeep:
			v, err := ctx.Peek()
			if err != nil {
				return nil, evalErr(ctx, instr, err)
			}
			if v.Truthy() {
				ip = instr.Target
				continue
			}
			if _, err := ctx.Pop(); err != nil {
				return nil, evalErr(ctx, instr, err)
			}

		case policy.OpJumpIfFalsePop:
			v, err := ctx.Pop()
			if err != nil {
				return nil, evalErr(ctx, instr, err)
			}
			if !v.Truthy() {
				ip = instr.Target
				continue
			}

		default:
			if err := e.step(ctx, instr); err != nil {
				return nil, evalErr(ctx, instr, err)
			}
		}
		ip++
	}

	result, err := ctx.Pop()
	if err != nil {
		return nil, evalErr(ctx, policy.Instruction{}, err)
	}
	if result.Kind() != value.KindAuthorization {
		return nil, evalErr(ctx, policy.Instruction{}, fmt.Errorf("compiled stream left a %s on the stack, not an Authorization", result.Kind()))
	}
	return result.AsAuthorization(), nil
}

// step executes every opcode that does not itself alter the instruction
// pointer.
func (e *Evaluator) step(ctx *policy.Context, instr policy.Instruction) error {
	switch instr.Op {
	case policy.OpPushConst:
		ctx.Push(instr.Const)
		return nil

	case policy.OpLoadName:
		return e.loadName(ctx, instr.Name)

	case policy.OpGetAttr:
		return e.getAttr(ctx, instr.Name)

	case policy.OpGetItem:
		return e.getItem(ctx)

	case policy.OpCall:
		return e.call(ctx, instr.Argc)

	case policy.OpBuildSet:
		return e.buildSet(ctx, instr.Argc)

	case policy.OpDup:
		v, err := ctx.Peek()
		if err != nil {
			return err
		}
		ctx.Push(v)
		return nil

	case policy.OpRot3:
		return e.rot3(ctx)

	case policy.OpPopBelow:
		return e.popBelow(ctx)

	case policy.OpNeg, policy.OpPos, policy.OpNot, policy.OpInvert:
		return e.unary(ctx, instr.Op)

	case policy.OpAdd, policy.OpSub, policy.OpMul, policy.OpDiv, policy.OpFloorDiv, policy.OpMod, policy.OpPow,
		policy.OpBitAnd, policy.OpBitOr, policy.OpBitXor, policy.OpShl, policy.OpShr:
		return e.binaryArith(ctx, instr.Op)

	case policy.OpEq, policy.OpNe, policy.OpLt, policy.OpLe, policy.OpGt, policy.OpGe, policy.OpIn, policy.OpNotIn:
		return e.compare(ctx, instr.Op)

	case policy.OpSetAuthz:
		return e.setAuthz(ctx, instr.AttrNames)

	default:
		return fmt.Errorf("unhandled opcode %s", instr.Op)
	}
}

func (e *Evaluator) loadName(ctx *policy.Context, name string) error {
	if v, ok := ctx.Variables[name]; ok {
		ctx.Push(v)
		return nil
	}
	if ctx.Policy == nil {
		ctx.Push(value.Nothing)
		return nil
	}
	v, err := ctx.Policy.ResolveName(name)
	if err != nil {
		return err
	}
	ctx.Push(v)
	return nil
}

func (e *Evaluator) getAttr(ctx *policy.Context, name string) error {
	target, err := ctx.Pop()
	if err != nil {
		return err
	}
	switch target.Kind() {
	case value.KindObject:
		v, err := target.AsObject().GetAttr(name)
		if errors.Is(err, value.ErrNoAttribute) {
			ctx.Push(value.Nothing)
			return nil
		}
		if err != nil {
			return err
		}
		ctx.Push(v)
		return nil
	case value.KindAuthorization:
		ctx.Push(target.AsAuthorization().Attr(name))
		return nil
	default:
		// Missing-name tolerance (spec.md §8): ".name" on anything else,
		// including Nothing itself, degrades to Nothing rather than erroring.
		ctx.Push(value.Nothing)
		return nil
	}
}

func (e *Evaluator) getItem(ctx *policy.Context) error {
	vals, err := ctx.PopN(2)
	if err != nil {
		return err
	}
	target, key := vals[0], vals[1]
	switch target.Kind() {
	case value.KindObject:
		v, err := target.AsObject().GetItem(key)
		if errors.Is(err, value.ErrNotSubscriptable) {
			ctx.Push(value.Nothing)
			return nil
		}
		if err != nil {
			return err
		}
		ctx.Push(v)
		return nil
	default:
		ctx.Push(value.Nothing)
		return nil
	}
}

func (e *Evaluator) call(ctx *policy.Context, argc int) error {
	args, err := ctx.PopN(argc)
	if err != nil {
		return err
	}
	callee, err := ctx.Pop()
	if err != nil {
		return err
	}
	if callee.Kind() == value.KindObject {
		result, err := callee.AsObject().Call(args)
		if errors.Is(err, value.ErrNotCallable) {
			ctx.Push(value.Nothing)
			return nil
		}
		if err != nil {
			return err
		}
		ctx.Push(result)
		return nil
	}
	if callee.Kind() != value.KindFunction {
		// Calling a non-callable (or Nothing) is graceful degradation, not
		// an error (spec.md §4.5).
		ctx.Push(value.Nothing)
		return nil
	}
	switch fn := callee.AsFunction().(type) {
	case value.Normal:
		result, err := fn(args)
		if err != nil {
			return err
		}
		ctx.Push(result)
		return nil
	case value.ContextWanting:
		// Context-wanting functions manage the stack themselves and push
		// their own result, if any (spec.md §4.5).
		return fn(ctx, args)
	default:
		ctx.Push(value.Nothing)
		return nil
	}
}

func (e *Evaluator) buildSet(ctx *policy.Context, argc int) error {
	elems, err := ctx.PopN(argc)
	if err != nil {
		return err
	}
	s, err := value.NewSet(elems...)
	if err != nil {
		return err
	}
	ctx.Push(value.FromSet(s))
	return nil
}

// rot3 implements the chained-comparison helper: stack (bottom..top)
// [x, y, z] becomes [z, x, y].
func (e *Evaluator) rot3(ctx *policy.Context) error {
	vals, err := ctx.PopN(3)
	if err != nil {
		return err
	}
	ctx.Push(vals[2])
	ctx.Push(vals[0])
	ctx.Push(vals[1])
	return nil
}

// popBelow discards the second-from-top stack value, keeping the top
// (spec.md §4.3: cleans up the leftover shared operand at the end of a
// chained comparison).
func (e *Evaluator) popBelow(ctx *policy.Context) error {
	vals, err := ctx.PopN(2)
	if err != nil {
		return err
	}
	ctx.Push(vals[1])
	return nil
}

func (e *Evaluator) unary(ctx *policy.Context, op policy.Opcode) error {
	a, err := ctx.Pop()
	if err != nil {
		return err
	}
	var r value.Value
	switch op {
	case policy.OpNeg:
		r, err = value.Neg(a)
	case policy.OpPos:
		r, err = value.Pos(a)
	case policy.OpInvert:
		r, err = value.Invert(a)
	case policy.OpNot:
		r, err = value.Not(a), nil
	}
	if err != nil {
		return err
	}
	ctx.Push(r)
	return nil
}

func (e *Evaluator) binaryArith(ctx *policy.Context, op policy.Opcode) error {
	vals, err := ctx.PopN(2)
	if err != nil {
		return err
	}
	a, b := vals[0], vals[1]
	var r value.Value
	switch op {
	case policy.OpAdd:
		r, err = value.Add(a, b)
	case policy.OpSub:
		r, err = value.Sub(a, b)
	case policy.OpMul:
		r, err = value.Mul(a, b)
	case policy.OpDiv:
		r, err = value.Div(a, b)
	case policy.OpFloorDiv:
		r, err = value.FloorDiv(a, b)
	case policy.OpMod:
		r, err = value.Mod(a, b)
	case policy.OpPow:
		r, err = value.Pow(a, b)
	case policy.OpBitAnd:
		r, err = value.BitAnd(a, b)
	case policy.OpBitOr:
		r, err = value.BitOr(a, b)
	case policy.OpBitXor:
		r, err = value.BitXor(a, b)
	case policy.OpShl:
		r, err = value.Shl(a, b)
	case policy.OpShr:
		r, err = value.Shr(a, b)
	}
	if err != nil {
		return err
	}
	ctx.Push(r)
	return nil
}

func (e *Evaluator) compare(ctx *policy.Context, op policy.Opcode) error {
	vals, err := ctx.PopN(2)
	if err != nil {
		return err
	}
	a, b := vals[0], vals[1]

	var (
		result bool
		cmpErr error
	)
	switch op {
	case policy.OpEq:
		result = value.Eq(a, b)
	case policy.OpNe:
		result = value.Ne(a, b)
	case policy.OpLt:
		result, cmpErr = value.Lt(a, b)
	case policy.OpLe:
		result, cmpErr = value.Le(a, b)
	case policy.OpGt:
		result, cmpErr = value.Gt(a, b)
	case policy.OpGe:
		result, cmpErr = value.Ge(a, b)
	case policy.OpIn:
		result, cmpErr = value.Contains(a, b)
	case policy.OpNotIn:
		var in bool
		in, cmpErr = value.Contains(a, b)
		result = !in
	}
	if cmpErr != nil {
		return cmpErr
	}
	ctx.Push(value.Bool(result))
	return nil
}

func (e *Evaluator) setAuthz(ctx *policy.Context, names []string) error {
	attrVals, err := ctx.PopN(len(names))
	if err != nil {
		return err
	}
	verdict, err := ctx.Pop()
	if err != nil {
		return err
	}

	attrs := make(map[string]value.Value)
	for k, v := range ctx.CurrentDefaults() {
		attrs[k] = v
	}
	for i, name := range names {
		attrs[name] = attrVals[i]
	}

	ctx.Push(value.FromAuthorization(value.NewAuthorization(verdict.Truthy(), attrs)))
	return nil
}

func evalErr(ctx *policy.Context, instr policy.Instruction, err error) error {
	var pe *policy.EvaluationError
	if errors.As(err, &pe) {
		return err
	}
	return &policy.EvaluationError{Rule: ctx.CurrentRule(), Op: instr.Op.String(), Err: err}
}
