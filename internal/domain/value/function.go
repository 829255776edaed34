package value

// Callable is the sum type backing Value's Function variant (spec.md §9:
// "model it as a tagged variant Function::{Normal(fn), ContextWanting(fn)}
// rather than a runtime flag, so the evaluator dispatches on type"). Normal
// and ContextWanting are the only implementations; the evaluator
// type-switches on the concrete type rather than inspecting a flag field.
type Callable interface {
	callable()
}

// Normal is an ordinary builtin or entrypoint function: the evaluator pops
// its arguments, invokes it, and pushes the returned Value itself.
type Normal func(args []Value) (Value, error)

func (Normal) callable() {}

// ContextWanting is a function that receives the evaluation context as its
// first argument and manages the operand stack directly; the evaluator does
// not push a return value on its behalf (spec.md §4.5). ctx is typed `any`
// here to keep this leaf package free of a dependency on the policy
// package that defines the concrete context type; callers type-assert it
// back (e.g. ctx.(*policy.Context)).
type ContextWanting func(ctx any, args []Value) error

func (ContextWanting) callable() {}
