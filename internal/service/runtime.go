// Package service contains the application-level Runtime that wraps the
// core engine.Policy with the ambient concerns a deployed binary needs:
// request IDs, tracing spans, metrics, and structured logging — mirroring
// how the teacher's PolicyEvaluationService wraps policy.PolicyEngine
// (internal/service/policy_service.go).
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/aegis-policy/aegis/internal/adapter/outbound/metrics"
	"github.com/aegis-policy/aegis/internal/adapter/outbound/tracing"
	"github.com/aegis-policy/aegis/internal/domain/value"
	"github.com/aegis-policy/aegis/internal/engine"
)

// Runtime wraps an engine.Policy with request IDs, tracing, metrics, and
// logging around every evaluation (SPEC_FULL.md §3's "NON-CORE SURFACES").
type Runtime struct {
	policy      *engine.Policy
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	evalCounter metric.Int64Counter
	logger      *slog.Logger
}

// NewRuntime constructs a Runtime. metrics may be nil to disable Prometheus
// metric recording (e.g. in tests); logger defaults to slog.Default() when
// nil. The OpenTelemetry evaluation counter is always created against
// whatever global MeterProvider is installed (a no-op one until
// tracing.InitProvider runs, so this is safe with or without tracing
// enabled).
func NewRuntime(policy *engine.Policy, m *metrics.Metrics, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	meter := tracing.Meter("aegis/runtime")
	counter, _ := meter.Int64Counter("aegis.evaluations",
		metric.WithDescription("Total policy evaluations, by verdict"))
	return &Runtime{
		policy:      policy,
		metrics:     m,
		tracer:      tracing.Tracer("aegis/runtime"),
		evalCounter: counter,
		logger:      logger,
	}
}

// Evaluate runs Policy.Evaluate under a request ID, an OpenTelemetry span,
// and metric recording, mirroring PolicyService.Evaluate's cache-then-log
// shape in the teacher (minus the CEL-specific caching, which the core's
// own per-Context rule cache already covers at the language level).
func (r *Runtime) Evaluate(ctx context.Context, name string, variables map[string]value.Value) (*value.Authorization, error) {
	requestID := uuid.New().String()

	ctx, span := r.tracer.Start(ctx, "aegis.evaluate", trace.WithAttributes(
		attribute.String("aegis.request_id", requestID),
		attribute.String("aegis.rule", name),
	))
	defer span.End()

	start := time.Now()
	authz, err := r.policy.Evaluate(name, variables)
	elapsed := time.Since(start)

	if r.metrics != nil {
		r.metrics.EvaluationDuration.Observe(elapsed.Seconds())
	}

	if err != nil {
		span.RecordError(err)
		r.logger.Warn("runtime evaluation failed", "request_id", requestID, "rule", name, "error", err)
		return nil, err
	}

	result := "deny"
	if authz.Verdict {
		result = "allow"
	}
	if r.metrics != nil {
		r.metrics.EvaluationsTotal.WithLabelValues(result).Inc()
	}
	r.evalCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	r.logger.Debug("runtime evaluation completed",
		"request_id", requestID, "rule", name, "verdict", authz.Verdict, "duration", elapsed)
	return authz, nil
}

// Declare delegates to the wrapped Policy (no ambient concerns needed for
// a setup-time call).
func (r *Runtime) Declare(name string, opts engine.DeclareOptions) error {
	return r.policy.Declare(name, opts)
}

// Policy exposes the wrapped engine.Policy for callers (e.g. tests that
// install rules with SetRule) that need direct registry access.
func (r *Runtime) Policy() *engine.Policy { return r.policy }
