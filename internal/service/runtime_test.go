package service_test

import (
	"context"
	"testing"

	"github.com/aegis-policy/aegis/internal/adapter/outbound/lang"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/vm"
	"github.com/aegis-policy/aegis/internal/domain/policy"
	"github.com/aegis-policy/aegis/internal/domain/value"
	"github.com/aegis-policy/aegis/internal/engine"
	"github.com/aegis-policy/aegis/internal/service"
)

func newTestRuntime(t *testing.T) *service.Runtime {
	t.Helper()
	p := engine.NewPolicy(lang.Compile, vm.New())
	return service.NewRuntime(p, nil, nil)
}

func TestRuntimeEvaluateEndToEnd(t *testing.T) {
	rt := newTestRuntime(t)
	r, err := policy.NewRule("r", "5 + 23 > spam", nil, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	rt.Policy().SetRule(r)

	authz, err := rt.Evaluate(context.Background(), "r", map[string]value.Value{"spam": value.Int(10)})
	if err != nil {
		t.Fatal(err)
	}
	if !authz.Verdict {
		t.Error("expected 28 > 10 to be truthy")
	}
}

func TestRuntimeEvaluateMissingRuleFalsy(t *testing.T) {
	rt := newTestRuntime(t)
	authz, err := rt.Evaluate(context.Background(), "nope", nil)
	if err != nil {
		t.Fatal(err)
	}
	if authz.Verdict {
		t.Error("expected falsy verdict for missing rule")
	}
}

func TestRuntimeDeclare(t *testing.T) {
	rt := newTestRuntime(t)
	text := "True"
	if err := rt.Declare("pay", engine.DeclareOptions{Text: &text}); err != nil {
		t.Fatal(err)
	}
	authz, err := rt.Evaluate(context.Background(), "pay", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !authz.Verdict {
		t.Error("expected declared rule to evaluate truthy")
	}
}
