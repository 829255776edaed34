package policy

import "github.com/aegis-policy/aegis/internal/domain/value"

// RuleLookup is the subset of Policy the evaluator needs to resolve a
// rule() call by name.
type RuleLookup interface {
	GetRule(name string) (*Rule, bool)
}

// NameResolver is the subset of Policy needed to resolve a LoadName
// instruction once the context's own variables have missed (spec.md
// §4.7 steps 2-4: builtins, then entrypoint resolution, then Nothing).
type NameResolver interface {
	ResolveName(name string) (value.Value, error)
}

// PolicyView is everything a Context needs from its owning Policy,
// without depending on the Policy type itself (which lives in the engine
// package and would otherwise create an import cycle).
type PolicyView interface {
	RuleLookup
	NameResolver
}

// RuleRunner executes a compiled instruction stream against a Context,
// producing the resulting Authorization. The rule() builtin uses it to
// recurse through the same evaluator and Context (spec.md §4.6).
type RuleRunner interface {
	Run(ctx *Context, instructions []Instruction) (*value.Authorization, error)
}

// Context is the per-evaluation mutable state threaded through one
// Policy.Evaluate call (spec.md §3): variable bindings, the operand stack,
// the rule-result cache, and a non-owning back-reference to the Policy.
// A Context is owned exclusively by a single evaluation and is never
// shared across goroutines (spec.md §5).
type Context struct {
	Policy    PolicyView
	Runner    RuleRunner
	Compile   Compiler
	Variables map[string]value.Value

	stack     []value.Value
	ruleCache map[string]*value.Authorization
	onPath    map[string]bool // rules currently being evaluated on this call path

	// defaultsStack holds the currently-running rule's declared attribute
	// defaults, pushed before Run and popped after, so SetAuthz can merge
	// them under a recursive rule() call without losing the caller's own
	// defaults (spec.md §3 "attrs (mapping attr_name -> default_value)").
	defaultsStack []map[string]value.Value

	// ruleStack names the currently-running rule, pushed/popped in lockstep
	// with defaultsStack, so an EvaluationError raised mid-Run can report
	// which rule it happened in (spec.md §7).
	ruleStack []string
}

// NewContext constructs a Context ready for one Policy.Evaluate call.
func NewContext(policyView PolicyView, runner RuleRunner, compile Compiler, variables map[string]value.Value) *Context {
	if variables == nil {
		variables = map[string]value.Value{}
	}
	return &Context{
		Policy:    policyView,
		Runner:    runner,
		Compile:   compile,
		Variables: variables,
		ruleCache: make(map[string]*value.Authorization),
		onPath:    make(map[string]bool),
	}
}

// Push places a value on top of the operand stack.
func (c *Context) Push(v value.Value) {
	c.stack = append(c.stack, v)
}

// Pop removes and returns the top of the operand stack, or
// ErrStackUnderflow if the stack is empty (a compiler bug).
func (c *Context) Pop() (value.Value, error) {
	if len(c.stack) == 0 {
		return value.Nothing, ErrStackUnderflow
	}
	n := len(c.stack) - 1
	v := c.stack[n]
	c.stack = c.stack[:n]
	return v, nil
}

// PopN removes and returns the top n values in the order they were
// pushed (i.e. reversed relative to pop order), or ErrStackUnderflow.
func (c *Context) PopN(n int) ([]value.Value, error) {
	if n == 0 {
		return nil, nil
	}
	if len(c.stack) < n {
		return nil, ErrStackUnderflow
	}
	start := len(c.stack) - n
	out := make([]value.Value, n)
	copy(out, c.stack[start:])
	c.stack = c.stack[:start]
	return out, nil
}

// Peek returns the top of the stack without removing it.
func (c *Context) Peek() (value.Value, error) {
	if len(c.stack) == 0 {
		return value.Nothing, ErrStackUnderflow
	}
	return c.stack[len(c.stack)-1], nil
}

// StackLen reports the current operand stack depth, mainly for tests that
// assert the evaluator leaves exactly one value behind.
func (c *Context) StackLen() int { return len(c.stack) }

// CachedResult returns a rule's memoized result for this evaluation, if
// rule() has already run it once (spec.md §4.6, §8 "Memoization of
// rule()").
func (c *Context) CachedResult(name string) (*value.Authorization, bool) {
	a, ok := c.ruleCache[name]
	return a, ok
}

// CacheResult memoizes a rule's result for the remainder of this
// evaluation.
func (c *Context) CacheResult(name string, a *value.Authorization) {
	c.ruleCache[name] = a
}

// Enter marks name as currently being evaluated on this call path,
// returning ErrSelfRecursion if it already is (the self-recursion guard
// tripping; spec.md §4.6, §8). Callers must pair a successful Enter with
// Leave. The spec's own recursion response is a falsy Authorization, not
// a propagated error, so callers are expected to check the returned error
// only to decide whether to fall back to Denied, not to surface it further.
func (c *Context) Enter(name string) error {
	if c.onPath[name] {
		return ErrSelfRecursion
	}
	c.onPath[name] = true
	return nil
}

// Leave clears name from the in-progress set.
func (c *Context) Leave(name string) {
	delete(c.onPath, name)
}

// PushDefaults records the attribute defaults of the rule about to run.
// Callers must pair it with PopDefaults once that rule's instructions have
// finished, including the recursive case where rule() runs a nested rule
// on this same Context.
func (c *Context) PushDefaults(defaults map[string]value.Value) {
	c.defaultsStack = append(c.defaultsStack, defaults)
}

// PopDefaults discards the innermost defaults pushed by PushDefaults.
func (c *Context) PopDefaults() {
	c.defaultsStack = c.defaultsStack[:len(c.defaultsStack)-1]
}

// CurrentDefaults returns the declared attribute defaults of the
// currently-running rule, or nil if none is running.
func (c *Context) CurrentDefaults() map[string]value.Value {
	if len(c.defaultsStack) == 0 {
		return nil
	}
	return c.defaultsStack[len(c.defaultsStack)-1]
}

// PushRule records the name of the rule about to run, for EvaluationError
// reporting. Callers must pair it with PopRule, mirroring PushDefaults.
func (c *Context) PushRule(name string) {
	c.ruleStack = append(c.ruleStack, name)
}

// PopRule discards the innermost name pushed by PushRule.
func (c *Context) PopRule() {
	c.ruleStack = c.ruleStack[:len(c.ruleStack)-1]
}

// CurrentRule returns the name of the currently-running rule, or "" if
// none is running.
func (c *Context) CurrentRule() string {
	if len(c.ruleStack) == 0 {
		return ""
	}
	return c.ruleStack[len(c.ruleStack)-1]
}
