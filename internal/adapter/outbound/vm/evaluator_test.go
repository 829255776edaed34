package vm_test

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/aegis-policy/aegis/internal/adapter/outbound/lang"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/vm"
	"github.com/aegis-policy/aegis/internal/domain/policy"
	"github.com/aegis-policy/aegis/internal/domain/value"
)

// TestMain verifies that no goroutine (e.g. a runaway rule() recursion
// spawning evaluation work) outlives a test in this package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakePolicy is a minimal policy.PolicyView: a rule table plus the builtin
// map, with no entrypoint resolution step (spec.md §4.7 step 3 skipped
// whenever no resolver is configured).
type fakePolicy struct {
	rules    map[string]*policy.Rule
	builtins map[string]value.Value
}

func newFakePolicy() *fakePolicy {
	return &fakePolicy{rules: map[string]*policy.Rule{}, builtins: vm.DefaultBuiltins()}
}

func (f *fakePolicy) GetRule(name string) (*policy.Rule, bool) {
	r, ok := f.rules[name]
	return r, ok
}

func (f *fakePolicy) ResolveName(name string) (value.Value, error) {
	if v, ok := f.builtins[name]; ok {
		return v, nil
	}
	return value.Nothing, nil
}

func (f *fakePolicy) addRule(t *testing.T, name, text string, attrs map[string]value.Value) {
	t.Helper()
	r, err := policy.NewRule(name, text, attrs, "", nil)
	if err != nil {
		t.Fatalf("NewRule(%s): %v", name, err)
	}
	f.rules[name] = r
}

func evalText(t *testing.T, pol *fakePolicy, text string, vars map[string]value.Value) *value.Authorization {
	t.Helper()
	instr, err := lang.Compile(text)
	if err != nil {
		t.Fatalf("compile %q: %v", text, err)
	}
	ev := vm.New()
	ctx := policy.NewContext(pol, ev, lang.Compile, vars)
	authz, err := ev.Run(ctx, instr)
	if err != nil {
		t.Fatalf("run %q: %v", text, err)
	}
	return authz
}

// panicObj is an Object whose every capability call panics, used to prove a
// short-circuited or ternary-skipped operand is never touched (spec.md §8).
type panicObj struct{}

func (panicObj) GetAttr(string) (value.Value, error)      { panic("GetAttr touched") }
func (panicObj) GetItem(value.Value) (value.Value, error) { panic("GetItem touched") }
func (panicObj) Call([]value.Value) (value.Value, error)  { panic("Call touched") }
func (panicObj) Equal(value.Value) bool                   { panic("Equal touched") }
func (panicObj) Compare(value.Value) (value.Ordering, error) {
	panic("Compare touched")
}
func (panicObj) Truthy() bool                        { panic("Truthy touched") }
func (panicObj) Hash() (uint64, error)                { panic("Hash touched") }
func (panicObj) Contains(value.Value) (bool, error)   { panic("Contains touched") }

// userObj implements is_admin()/in_group()/admin for the scenarios below.
type userObj struct {
	admin      bool
	isAdminFn  bool
	groups     map[string]bool
	identity   string
}

func (u *userObj) GetAttr(name string) (value.Value, error) {
	switch name {
	case "admin":
		return value.Bool(u.admin), nil
	case "is_admin":
		fn := value.Normal(func(args []value.Value) (value.Value, error) {
			return value.Bool(u.isAdminFn), nil
		})
		return value.FromFunction(fn), nil
	case "in_group":
		fn := value.Normal(func(args []value.Value) (value.Value, error) {
			if len(args) != 1 || args[0].Kind() != value.KindStr {
				return value.Bool(false), nil
			}
			return value.Bool(u.groups[args[0].AsStr()]), nil
		})
		return value.FromFunction(fn), nil
	default:
		return value.Nothing, value.ErrNoAttribute
	}
}

func (u *userObj) GetItem(value.Value) (value.Value, error) { return value.Nothing, value.ErrNotSubscriptable }
func (u *userObj) Call([]value.Value) (value.Value, error)  { return value.Nothing, value.ErrNotCallable }
func (u *userObj) Equal(other value.Value) bool {
	o, ok := other.AsObject().(*userObj)
	return other.Kind() == value.KindObject && ok && o.identity == u.identity
}
func (u *userObj) Compare(value.Value) (value.Ordering, error) { return value.OrderEqual, value.ErrIncomparable }
func (u *userObj) Truthy() bool                                { return true }
func (u *userObj) Hash() (uint64, error)                       { return 0, value.ErrUnhashable }
func (u *userObj) Contains(value.Value) (bool, error) {
	return false, value.ErrIncomparable
}

func TestAdminOrTargetRuleTruthyEmptyAttrs(t *testing.T) {
	pol := newFakePolicy()
	user := &userObj{isAdminFn: true, identity: "u1"}
	target := &userObj{identity: "t1"}
	vars := map[string]value.Value{
		"user":   value.FromObject(user),
		"target": value.FromObject(target),
	}
	authz := evalText(t, pol, `user.is_admin() or user == target`, vars)
	if !authz.Verdict {
		t.Fatal("expected truthy verdict")
	}
	if len(authz.Attrs) != 0 {
		t.Errorf("expected empty attrs, got %v", authz.Attrs)
	}
}

func TestPaymentAttributeBlockReflectsAdminCheck(t *testing.T) {
	pol := newFakePolicy()
	user := &userObj{isAdminFn: false, identity: "u1"}
	target := &userObj{identity: "u1"}
	vars := map[string]value.Value{
		"user":   value.FromObject(user),
		"target": value.FromObject(target),
	}
	authz := evalText(t, pol, `user.is_admin() or user == target {{ payment=user.is_admin() }}`, vars)
	if !authz.Verdict {
		t.Fatal("expected truthy verdict (user == target)")
	}
	if got := authz.Attr("payment"); got.Kind() != value.KindBool || got.AsBool() != false {
		t.Errorf("attrs.payment = %v, want False", got)
	}
}

func TestRuleMemoizedAcrossMultipleCalls(t *testing.T) {
	pol := newFakePolicy()
	pol.addRule(t, "adm", `user.in_group("admins") and user.admin`, nil)
	pol.addRule(t, "upd", `user == target or rule("adm") and rule("adm") and rule("adm")`, nil)

	user := &userObj{admin: true, identity: "u1", groups: map[string]bool{"admins": true}}
	target := &userObj{identity: "t1"}
	vars := map[string]value.Value{
		"user":   value.FromObject(user),
		"target": value.FromObject(target),
	}

	instr, err := lang.Compile(pol.rules["upd"].Text())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ev := vm.New()
	ctx := policy.NewContext(pol, ev, lang.Compile, vars)
	authz, err := ev.Run(ctx, instr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !authz.Verdict {
		t.Fatal("expected upd to be truthy")
	}
	if cached, ok := ctx.CachedResult("adm"); !ok || !cached.Verdict {
		t.Fatal("expected adm result to be memoized and truthy")
	}
}

func TestSelfRecursionGuardTerminatesFalsy(t *testing.T) {
	pol := newFakePolicy()
	pol.addRule(t, "loop", `rule("loop")`, nil)
	authz := evalText(t, pol, `rule("loop")`, nil)
	if authz.Verdict {
		t.Error("self-recursive rule must terminate falsy")
	}
}

func TestConstantFoldedArithmeticComparison(t *testing.T) {
	pol := newFakePolicy()
	// user.spam is unbound on userObj (no "spam" attribute -> ErrNoAttribute
	// -> Nothing), so drive the comparison against a plain numeric variable
	// instead, matching the spec scenario's "5 + 23 > user.spam" shape with
	// spam == 10.
	vars := map[string]value.Value{"spam": value.Int(10)}
	instr, err := lang.Compile(`5 + 23 > spam`)
	if err != nil {
		t.Fatal(err)
	}
	foundFold, foundAdd := false, false
	for _, in := range instr {
		if in.Op == policy.OpPushConst && in.Const.Kind() == value.KindInt && in.Const.AsInt() == 28 {
			foundFold = true
		}
		if in.Op == policy.OpAdd {
			foundAdd = true
		}
	}
	if !foundFold || foundAdd {
		t.Errorf("expected folded PushConst(28) and no Add, instructions: %+v", instr)
	}
	ev := vm.New()
	ctx := policy.NewContext(pol, ev, lang.Compile, vars)
	authz, err := ev.Run(ctx, instr)
	if err != nil {
		t.Fatal(err)
	}
	if !authz.Verdict {
		t.Error("expected 28 > 10 to be truthy")
	}
}

func TestMissingNameToleranceChainedAttr(t *testing.T) {
	pol := newFakePolicy()
	authz := evalText(t, pol, `foo.bar.baz`, nil)
	if authz.Verdict {
		t.Error("unbound foo.bar.baz must evaluate falsy, not error")
	}
}

func TestSetLiteralTruthyAndMembership(t *testing.T) {
	pol := newFakePolicy()
	if !evalText(t, pol, `{1,2,3}`, nil).Verdict {
		t.Error("non-empty set literal must be truthy")
	}
	if !evalText(t, pol, `1 in {1,2,3} and 4 not in {1,2,3}`, nil).Verdict {
		t.Error("expected membership test to hold")
	}
}

func TestShortCircuitNeverTouchesSkippedOperand(t *testing.T) {
	pol := newFakePolicy()
	vars := map[string]value.Value{"poison": value.FromObject(panicObj{})}

	// False and poison.attr -> must not evaluate poison.attr.
	authz := evalText(t, pol, `False and poison.missing`, vars)
	if authz.Verdict {
		t.Error("expected falsy")
	}

	// True or poison.attr -> must not evaluate poison.attr.
	authz = evalText(t, pol, `True or poison.missing`, vars)
	if !authz.Verdict {
		t.Error("expected truthy")
	}

	// Ternary: only the live branch runs.
	authz = evalText(t, pol, `1 if True else poison.missing`, vars)
	if !authz.Verdict {
		t.Error("expected truthy (1 is truthy)")
	}
}

func TestChainedComparisonSharesMiddleOperandOnce(t *testing.T) {
	pol := newFakePolicy()
	calls := 0
	counter := value.Normal(func(args []value.Value) (value.Value, error) {
		calls++
		return value.Int(5), nil
	})
	vars := map[string]value.Value{"mid": value.FromFunction(counter)}
	authz := evalText(t, pol, `1 < mid() < 10`, vars)
	if !authz.Verdict {
		t.Error("expected 1 < 5 < 10 to hold")
	}
	if calls != 1 {
		t.Errorf("mid() called %d times, want exactly 1", calls)
	}
}
