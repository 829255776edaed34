package engine_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/goleak"

	"github.com/aegis-policy/aegis/internal/adapter/outbound/lang"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/metrics"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/vm"
	"github.com/aegis-policy/aegis/internal/domain/policy"
	"github.com/aegis-policy/aegis/internal/domain/value"
	"github.com/aegis-policy/aegis/internal/engine"
)

// TestMain verifies no goroutine (e.g. an entrypoint resolver's background
// session) outlives a test in this package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestPolicy(opts ...engine.Option) *engine.Policy {
	return engine.NewPolicy(lang.Compile, vm.New(), opts...)
}

func TestNewPolicyAlwaysHasRuleBuiltin(t *testing.T) {
	p := newTestPolicy()
	v, err := p.ResolveName("rule")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind() != value.KindFunction {
		t.Errorf("ResolveName(%q) = %v, want a function", "rule", v)
	}
}

func TestSetGetDelRule(t *testing.T) {
	p := newTestPolicy()
	r, err := policy.NewRule("r", "True", nil, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	p.SetRule(r)

	if _, ok := p.GetRule("r"); !ok {
		t.Fatal("expected rule to be present after SetRule")
	}
	if err := p.DelRule("r"); err != nil {
		t.Fatalf("DelRule: %v", err)
	}
	if _, ok := p.GetRule("r"); ok {
		t.Error("expected rule to be gone after DelRule")
	}
	if err := p.DelRule("r"); err == nil {
		t.Error("expected error deleting an already-removed rule")
	}
}

func TestEvaluateMissingRuleIsFalsyNotError(t *testing.T) {
	p := newTestPolicy()
	authz, err := p.Evaluate("nope", nil)
	if err != nil {
		t.Fatalf("Evaluate on missing rule returned error: %v", err)
	}
	if authz.Verdict {
		t.Error("expected falsy Authorization for missing rule")
	}
	if len(authz.Attrs) != 0 {
		t.Errorf("expected empty attrs, got %v", authz.Attrs)
	}
}

func TestEvaluateEndToEnd(t *testing.T) {
	p := newTestPolicy()
	r, err := policy.NewRule("r", "5 + 23 > spam", nil, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	p.SetRule(r)

	authz, err := p.Evaluate("r", map[string]value.Value{"spam": value.Int(10)})
	if err != nil {
		t.Fatal(err)
	}
	if !authz.Verdict {
		t.Error("expected 28 > 10 to be truthy")
	}
}

func TestDeclareInstallsTextOnlyWhenRuleAbsent(t *testing.T) {
	p := newTestPolicy()
	text := "True"
	defaultAttrs := map[string]value.Value{"payment": value.Bool(false)}
	if err := p.Declare("pay", engine.DeclareOptions{Text: &text, Attrs: defaultAttrs}); err != nil {
		t.Fatal(err)
	}

	authz, err := p.Evaluate("pay", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !authz.Verdict {
		t.Error("expected declared rule text to evaluate truthy")
	}
	if got := authz.Attr("payment"); got.Kind() != value.KindBool || got.AsBool() != false {
		t.Errorf("attrs.payment = %v, want declared default False", got)
	}

	otherText := "False"
	if err := p.Declare("pay", engine.DeclareOptions{Text: &otherText}); err != nil {
		t.Fatal(err)
	}
	authz, err = p.Evaluate("pay", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !authz.Verdict {
		t.Error("Declare must not overwrite existing rule text once installed")
	}
}

// stubResolver counts how many times Resolve is invoked, to verify
// entrypoint resolution is memoized (spec.md §4.7).
type stubResolver struct {
	calls   int
	name    string
	fn      value.Callable
	present bool
}

func (s *stubResolver) Resolve(group, name string) (value.Callable, bool) {
	s.calls++
	if name == s.name {
		return s.fn, s.present
	}
	return nil, false
}

func TestEntrypointResolutionMemoizedPositiveAndNegative(t *testing.T) {
	found := value.Normal(func(args []value.Value) (value.Value, error) { return value.Bool(true), nil })
	resolver := &stubResolver{name: "plugin_ok", fn: found, present: true}
	p := newTestPolicy(engine.WithEntrypointResolver(resolver, "default"))

	for i := 0; i < 3; i++ {
		v, err := p.ResolveName("plugin_ok")
		if err != nil {
			t.Fatal(err)
		}
		if v.Kind() != value.KindFunction {
			t.Fatalf("expected resolved function, got %v", v)
		}
	}
	if resolver.calls != 1 {
		t.Errorf("Resolve called %d times for a hit, want 1 (memoized)", resolver.calls)
	}

	missResolver := &stubResolver{name: "plugin_ok", fn: found, present: true}
	p2 := newTestPolicy(engine.WithEntrypointResolver(missResolver, "default"))
	for i := 0; i < 3; i++ {
		v, err := p2.ResolveName("unknown_plugin")
		if err != nil {
			t.Fatal(err)
		}
		if !v.IsNothing() {
			t.Fatalf("expected Nothing for unresolved entrypoint, got %v", v)
		}
	}
	if missResolver.calls != 1 {
		t.Errorf("Resolve called %d times for a miss, want 1 (negative memoization)", missResolver.calls)
	}
}

func TestEntrypointResolutionSkippedWithoutGroup(t *testing.T) {
	resolver := &stubResolver{name: "x", present: true}
	p := newTestPolicy(engine.WithEntrypointResolver(resolver, ""))
	v, err := p.ResolveName("x")
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsNothing() {
		t.Error("expected Nothing when entrypoint group is unset")
	}
	if resolver.calls != 0 {
		t.Error("resolver must not be called when group is unset")
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func counterVecValue(t *testing.T, c *prometheus.CounterVec, label string) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.WithLabelValues(label).Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestWithMetricsRecordsCompilationAndEntrypointResolution(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	p := newTestPolicy(engine.WithMetrics(m))

	r, err := policy.NewRule("r", "True", nil, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	p.SetRule(r)

	if _, err := p.Evaluate("r", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Evaluate("r", nil); err != nil {
		t.Fatal(err)
	}
	if got := counterValue(t, m.CompilationsTotal); got != 1 {
		t.Errorf("CompilationsTotal = %v, want 1 (second Evaluate reuses the cached compile)", got)
	}

	found := value.Normal(func(args []value.Value) (value.Value, error) { return value.Bool(true), nil })
	resolver := &stubResolver{name: "plugin_ok", fn: found, present: true}
	pr := engine.NewPolicy(lang.Compile, vm.New(), engine.WithMetrics(m), engine.WithEntrypointResolver(resolver, "default"))

	if _, err := pr.ResolveName("plugin_ok"); err != nil {
		t.Fatal(err)
	}
	if _, err := pr.ResolveName("plugin_ok"); err != nil {
		t.Fatal(err)
	}
	if _, err := pr.ResolveName("missing"); err != nil {
		t.Fatal(err)
	}
	if got := counterVecValue(t, m.EntrypointResolutionTotal, "hit"); got != 2 {
		t.Errorf("EntrypointResolutionTotal{hit} = %v, want 2", got)
	}
	if got := counterVecValue(t, m.EntrypointResolutionTotal, "miss"); got != 1 {
		t.Errorf("EntrypointResolutionTotal{miss} = %v, want 1", got)
	}
}

func TestRulesReturnsSortedByName(t *testing.T) {
	p := newTestPolicy()
	for _, name := range []string{"zebra", "alpha", "mid"} {
		r, err := policy.NewRule(name, "True", nil, "", nil)
		if err != nil {
			t.Fatal(err)
		}
		p.SetRule(r)
	}
	rules := p.Rules()
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}
	if rules[0].Name() != "alpha" || rules[1].Name() != "mid" || rules[2].Name() != "zebra" {
		t.Errorf("expected alphabetical order, got %v, %v, %v", rules[0].Name(), rules[1].Name(), rules[2].Name())
	}
}
