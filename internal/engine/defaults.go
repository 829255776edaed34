package engine

import (
	"github.com/aegis-policy/aegis/internal/adapter/outbound/metrics"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/vm"
	"github.com/aegis-policy/aegis/internal/domain/value"
)

func init() {
	RuleBuiltinFallback = func(m *metrics.Metrics) value.Callable { return vm.RuleBuiltin(m) }
}

// DefaultBuiltins returns the builtin table a Policy starts with when no
// WithBuiltins option overrides it: the vm package's full default set
// (spec.md §4.8), including "rule".
func DefaultBuiltins() map[string]value.Value {
	return vm.DefaultBuiltins()
}
