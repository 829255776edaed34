package vm_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/aegis-policy/aegis/internal/adapter/outbound/metrics"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/vm"
	"github.com/aegis-policy/aegis/internal/domain/policy"
	"github.com/aegis-policy/aegis/internal/domain/value"
)

// newMetricPolicy returns a fakePolicy whose "rule" builtin is wired to a
// *metrics.Metrics, unlike newFakePolicy's metrics-less default.
func newMetricPolicy(m *metrics.Metrics) *fakePolicy {
	builtins := make(map[string]value.Value, len(vm.DefaultBuiltins()))
	for k, v := range vm.DefaultBuiltins() {
		builtins[k] = v
	}
	builtins["rule"] = value.FromFunction(vm.RuleBuiltin(m))
	return &fakePolicy{rules: map[string]*policy.Rule{}, builtins: builtins}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var dtoMetric dto.Metric
	if err := c.Write(&dtoMetric); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return dtoMetric.GetCounter().GetValue()
}

func TestRuleBuiltinRecordsCompilationAndCacheHit(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	pol := newMetricPolicy(m)
	pol.addRule(t, "adm", "True", nil)

	// "and" evaluates both operands when the left is truthy (unlike "or",
	// which would short-circuit and skip the second rule("adm") call):
	// the first call compiles adm's text, the second is served from cache.
	evalText(t, pol, `rule("adm") and rule("adm")`, nil)

	if got := counterValue(t, m.CompilationsTotal); got != 1 {
		t.Errorf("CompilationsTotal = %v, want 1 (adm compiled once)", got)
	}
	if got := counterValue(t, m.RuleCacheHitsTotal); got != 1 {
		t.Errorf("RuleCacheHitsTotal = %v, want 1 (second rule(\"adm\") served from cache)", got)
	}
}

func TestRuleBuiltinSkipsMetricsWhenNil(t *testing.T) {
	pol := newFakePolicy()
	pol.addRule(t, "adm", "True", nil)
	authz := evalText(t, pol, `rule("adm")`, nil)
	if !authz.Verdict {
		t.Fatal("expected adm to be truthy")
	}
}

