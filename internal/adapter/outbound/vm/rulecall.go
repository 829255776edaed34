package vm

import (
	"github.com/aegis-policy/aegis/internal/adapter/outbound/metrics"
	"github.com/aegis-policy/aegis/internal/domain/policy"
	"github.com/aegis-policy/aegis/internal/domain/value"
)

// RuleBuiltin returns the context-wanting "rule" builtin (spec.md §4.6). It
// recurses through ctx.Runner rather than closing over a concrete Evaluator,
// so a nested rule() call always runs on the exact same tape interpreter the
// top-level evaluation was started with. m may be nil to skip Prometheus
// recording (matching the optional-metrics convention used throughout
// internal/service and internal/engine).
func RuleBuiltin(m *metrics.Metrics) value.ContextWanting {
	return func(c any, args []value.Value) error {
		ctx, ok := c.(*policy.Context)
		if !ok {
			return errNotAPolicyContext
		}
		if len(args) != 1 || args[0].Kind() != value.KindStr {
			ctx.Push(value.FromAuthorization(value.Denied))
			return nil
		}
		name := args[0].AsStr()

		if cached, ok := ctx.CachedResult(name); ok {
			if m != nil {
				m.RuleCacheHitsTotal.Inc()
			}
			ctx.Push(value.FromAuthorization(cached))
			return nil
		}

		if err := ctx.Enter(name); err != nil {
			// Self-recursion guard tripped (policy.ErrSelfRecursion):
			// terminate with a falsy Authorization, uncached, so a retry
			// under different bindings remains possible (spec.md §4.6).
			ctx.Push(value.FromAuthorization(value.Denied))
			return nil
		}
		defer ctx.Leave(name)

		rule, ok := ctx.Policy.GetRule(name)
		if !ok {
			ctx.Push(value.FromAuthorization(value.Denied))
			return nil
		}

		instructions, recompiled, err := rule.Instructions(ctx.Compile)
		if err != nil {
			return err
		}
		if recompiled && m != nil {
			m.CompilationsTotal.Inc()
		}

		ctx.PushDefaults(rule.Attrs())
		ctx.PushRule(name)
		authz, err := ctx.Runner.Run(ctx, instructions)
		ctx.PopRule()
		ctx.PopDefaults()
		if err != nil {
			return err
		}

		ctx.CacheResult(name, authz)
		ctx.Push(value.FromAuthorization(authz))
		return nil
	}
}
