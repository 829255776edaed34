package lang

import (
	"testing"

	"github.com/aegis-policy/aegis/internal/domain/policy"
	"github.com/aegis-policy/aegis/internal/domain/value"
)

func mustCompile(t *testing.T, text string) []policy.Instruction {
	t.Helper()
	instrs, err := Compile(text)
	if err != nil {
		t.Fatalf("Compile(%q) error: %v", text, err)
	}
	return instrs
}

// "5 + 23 > user.spam" folds the constant 5+23 to 28 at compile time
// (spec.md §8 scenario 4): inspection of the compiled instructions shows
// PushConst(28), not an Add opcode.
func TestConstantFoldingCollapsesArithmetic(t *testing.T) {
	instrs := mustCompile(t, "5 + 23 > user.spam")

	foundAdd := false
	foundConst28 := false
	for _, in := range instrs {
		if in.Op == policy.OpAdd {
			foundAdd = true
		}
		if in.Op == policy.OpPushConst && in.Const.Kind() == value.KindInt && in.Const.AsInt() == 28 {
			foundConst28 = true
		}
	}
	if foundAdd {
		t.Error("expected no ADD opcode, arithmetic should have folded")
	}
	if !foundConst28 {
		t.Error("expected PushConst(28) from folded 5 + 23")
	}
}

func TestConstantFoldingAbandonedOnDivByZero(t *testing.T) {
	instrs := mustCompile(t, "1 / 0")
	foundDiv := false
	for _, in := range instrs {
		if in.Op == policy.OpDiv {
			foundDiv = true
		}
	}
	if !foundDiv {
		t.Error("fold-time division by zero must be abandoned, runtime DIV opcode expected")
	}
}

func TestAndCompilesToJumpIfFalseElseKeep(t *testing.T) {
	instrs := mustCompile(t, "user.a and user.b")
	found := false
	for _, in := range instrs {
		if in.Op == policy.OpJumpIfFalseElseKeep {
			found = true
		}
	}
	if !found {
		t.Error("expected JumpIfFalseElseKeep for \"and\"")
	}
}

func TestOrCompilesToJumpIfTrueElseKeep(t *testing.T) {
	instrs := mustCompile(t, "user.a or user.b")
	found := false
	for _, in := range instrs {
		if in.Op == policy.OpJumpIfTrueElseKeep {
			found = true
		}
	}
	if !found {
		t.Error("expected JumpIfTrueElseKeep for \"or\"")
	}
}

func TestTernaryCompilesToJumpIfFalsePop(t *testing.T) {
	instrs := mustCompile(t, "1 if user.flag else 2")
	found := false
	for _, in := range instrs {
		if in.Op == policy.OpJumpIfFalsePop {
			found = true
		}
	}
	if !found {
		t.Error("expected JumpIfFalsePop for ternary")
	}
	// Both branches are literal but the condition is not, so the whole
	// expression cannot fold: constants 1 and 2 are still pushed.
	seen1, seen2 := false, false
	for _, in := range instrs {
		if in.Op == policy.OpPushConst {
			switch {
			case in.Const.Kind() == value.KindInt && in.Const.AsInt() == 1:
				seen1 = true
			case in.Const.Kind() == value.KindInt && in.Const.AsInt() == 2:
				seen2 = true
			}
		}
	}
	if !seen1 || !seen2 {
		t.Error("expected both ternary branches to be compiled")
	}
}

func TestTernaryFoldsWhenConditionConstant(t *testing.T) {
	instrs := mustCompile(t, "1 if True else 1/0")
	for _, in := range instrs {
		if in.Op == policy.OpDiv || in.Op == policy.OpJumpIfFalsePop {
			t.Errorf("expected full fold since the condition is constant and the else branch is never taken; got %s", in.Op)
		}
	}
}

func TestSetLiteralFoldsToConstant(t *testing.T) {
	instrs := mustCompile(t, "{1,2,3}")
	if len(instrs) != 2 { // PushConst(set), SetAuthz([])
		t.Fatalf("got %d instructions, want 2", len(instrs))
	}
	if instrs[0].Op != policy.OpPushConst || instrs[0].Const.Kind() != value.KindSet {
		t.Errorf("expected folded set constant, got %v", instrs[0])
	}
}

func TestSetLiteralWithVariableElementBuildsAtRuntime(t *testing.T) {
	instrs := mustCompile(t, "1 in {1, user.x}")
	found := false
	for _, in := range instrs {
		if in.Op == policy.OpBuildSet {
			found = true
		}
	}
	if !found {
		t.Error("expected BUILD_SET when a set literal element is not constant")
	}
}

func TestChainedComparisonUsesDupRot3AndPopBelow(t *testing.T) {
	instrs := mustCompile(t, "a < user.b < user.c")
	var ops []policy.Opcode
	for _, in := range instrs {
		ops = append(ops, in.Op)
	}
	want := []policy.Opcode{policy.OpDup, policy.OpRot3, policy.OpPopBelow}
	for _, w := range want {
		found := false
		for _, op := range ops {
			if op == w {
				found = true
			}
		}
		if !found {
			t.Errorf("expected opcode %s in chained comparison, got %v", w, ops)
		}
	}
}

func TestSingleComparisonDoesNotUseDup(t *testing.T) {
	instrs := mustCompile(t, "a < b")
	for _, in := range instrs {
		if in.Op == policy.OpDup {
			t.Error("a plain (non-chained) comparison should not emit DUP")
		}
	}
}

func TestAttributeBlockCompilesSetAuthzWithNames(t *testing.T) {
	instrs := mustCompile(t, `user.is_admin() {{ payment=user.is_admin() }}`)
	last := instrs[len(instrs)-1]
	if last.Op != policy.OpSetAuthz {
		t.Fatalf("expected final opcode SET_AUTHZ, got %s", last.Op)
	}
	if len(last.AttrNames) != 1 || last.AttrNames[0] != "payment" {
		t.Errorf("got AttrNames %v, want [payment]", last.AttrNames)
	}
}

func TestNoAttributeBlockStillEmitsImplicitSetAuthz(t *testing.T) {
	instrs := mustCompile(t, "True")
	last := instrs[len(instrs)-1]
	if last.Op != policy.OpSetAuthz || len(last.AttrNames) != 0 {
		t.Errorf("expected implicit SET_AUTHZ([]), got %v", last)
	}
}

func TestParseErrorOnUnderscoreAttrName(t *testing.T) {
	_, err := Compile(`user.admin {{ _secret=1 }}`)
	if err == nil {
		t.Fatal("expected ParseError for attribute name beginning with _")
	}
	if _, ok := err.(*policy.ParseError); !ok {
		t.Errorf("got %T, want *policy.ParseError", err)
	}
}

func TestParseErrorOnEmptySetLiteral(t *testing.T) {
	if _, err := Compile("{}"); err == nil {
		t.Fatal("expected ParseError for empty set literal")
	}
}

func TestParseErrorOnTrailingGarbage(t *testing.T) {
	if _, err := Compile("True True"); err == nil {
		t.Fatal("expected ParseError for trailing text after expression")
	}
}

func TestParseErrorOnDuplicateAttrName(t *testing.T) {
	if _, err := Compile(`True {{ a=1, a=2 }}`); err == nil {
		t.Fatal("expected ParseError for duplicate attribute name")
	}
}
