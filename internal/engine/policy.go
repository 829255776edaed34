// Package engine implements policy.Engine: the rule registry, builtin
// table, entrypoint-resolution cache, and evaluate entry point described in
// spec.md §4.8. It is the composition root that wires the Lexer/Parser
// adapter and the VM adapter behind the domain's Compiler/RuleRunner ports.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/aegis-policy/aegis/internal/adapter/outbound/metrics"
	"github.com/aegis-policy/aegis/internal/domain/policy"
	"github.com/aegis-policy/aegis/internal/domain/value"
)

// Policy is the registry of rules, builtins, and entrypoint configuration
// (spec.md §4.8). The rule table and builtin map are read-mostly after
// setup and safe for concurrent reads; writers (SetRule, Declare, the
// entrypoint cache) take the appropriate lock (spec.md §5).
type Policy struct {
	mu    sync.RWMutex
	rules map[string]*policy.Rule

	builtins map[string]value.Value

	resolver        policy.EntrypointResolver
	entrypointGroup string

	epMu    sync.RWMutex
	epCache map[uint64]value.Value

	compile policy.Compiler
	runner  policy.RuleRunner

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Policy at construction time.
type Option func(*Policy)

// WithBuiltins overrides the builtin table. Unset names keep whatever
// DefaultBuiltins-equivalent map the caller layered in beforehand; if the
// resulting table has no "rule" entry, NewPolicy injects one so the "rule"
// key is always present after construction (spec.md §4.8).
func WithBuiltins(builtins map[string]value.Value) Option {
	return func(p *Policy) {
		p.builtins = make(map[string]value.Value, len(builtins))
		for k, v := range builtins {
			p.builtins[k] = v
		}
	}
}

// WithEntrypointResolver configures the injectable EntrypointResolver and
// the resolution group (spec.md §4.7 step 3). Leaving this unset skips
// entrypoint resolution entirely.
func WithEntrypointResolver(resolver policy.EntrypointResolver, group string) Option {
	return func(p *Policy) {
		p.resolver = resolver
		p.entrypointGroup = group
	}
}

// WithLogger sets the structured logger used for compilation, evaluation
// and entrypoint-resolution diagnostics. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) { p.logger = logger }
}

// WithMetrics wires a Prometheus recorder into the Policy: compilation
// counts, "rule" cache hits, and entrypoint resolution outcomes. Leaving
// this unset (or passing nil) disables all three, matching the
// metrics-optional convention in internal/service.NewRuntime.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Policy) { p.metrics = m }
}

// RuleBuiltinFallback is injected into the builtins table by NewPolicy
// whenever the builtin table needs one installed (spec.md §4.8), carrying
// whatever *metrics.Metrics a WithMetrics option configured so the "rule"
// builtin can record cache hits. It is a var, set to vm.RuleBuiltin by the
// init function in defaults.go.
var RuleBuiltinFallback func(m *metrics.Metrics) value.Callable

// NewPolicy constructs a Policy. compile and runner are the concrete
// Lexer/Parser and Evaluator adapters — injected rather than hardwired so
// tests can substitute fakes, matching the "context_class (injectable for
// tests)" design note in spec.md §4.8.
func NewPolicy(compile policy.Compiler, runner policy.RuleRunner, opts ...Option) *Policy {
	p := &Policy{
		rules:   make(map[string]*policy.Rule),
		epCache: make(map[uint64]value.Value),
		compile: compile,
		runner:  runner,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	usedDefaults := false
	if p.builtins == nil {
		p.builtins = DefaultBuiltins()
		usedDefaults = true
	}
	// Re-install "rule" whenever the builtin table came from DefaultBuiltins
	// (so it picks up WithMetrics, processed above in the same opts loop)
	// or whenever a caller-supplied WithBuiltins map omitted it outright.
	_, hasRule := p.builtins["rule"]
	if (usedDefaults || !hasRule) && RuleBuiltinFallback != nil {
		p.builtins["rule"] = value.FromFunction(RuleBuiltinFallback(p.metrics))
	}
	return p
}

// SetRule installs or replaces a rule (spec.md §4.8).
func (p *Policy) SetRule(r *policy.Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules[r.Name()] = r
}

// GetRule looks up a rule by name.
func (p *Policy) GetRule(name string) (*policy.Rule, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.rules[name]
	return r, ok
}

// DelRule removes a rule, returning policy.ErrRuleNotFound if it does not
// exist.
func (p *Policy) DelRule(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.rules[name]; !ok {
		return fmt.Errorf("%w: %q", policy.ErrRuleNotFound, name)
	}
	delete(p.rules, name)
	return nil
}

// Rules returns every installed rule, sorted by name for deterministic
// iteration (spec.md §4.8 "iteration over rules").
func (p *Policy) Rules() []*policy.Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*policy.Rule, 0, len(p.rules))
	for _, r := range p.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// DeclareOptions carries the optional fields of Declare. A nil Text leaves
// an existing rule's text untouched; a non-nil Text installs it only when
// no rule by that name exists yet or the existing rule has no text
// (spec.md §4.8).
type DeclareOptions struct {
	Text     *string
	Attrs    map[string]value.Value
	Doc      string
	AttrDocs map[string]string
}

// Declare registers defaults and documentation for a rule without
// requiring rule text (spec.md §4.8). If Text is supplied and the rule
// does not exist yet or has no text, Declare installs it.
func (p *Policy) Declare(name string, opts DeclareOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.rules[name]
	if !ok {
		text := ""
		if opts.Text != nil {
			text = *opts.Text
		}
		newRule, err := policy.NewRule(name, text, opts.Attrs, opts.Doc, opts.AttrDocs)
		if err != nil {
			return err
		}
		p.rules[name] = newRule
		return nil
	}

	if opts.Attrs != nil {
		if err := r.SetAttrs(opts.Attrs); err != nil {
			return err
		}
	}
	if opts.Doc != "" {
		r.SetDoc(opts.Doc)
	}
	if opts.AttrDocs != nil {
		r.SetAttrDocs(opts.AttrDocs)
	}
	if opts.Text != nil && r.Text() == "" {
		r.SetText(*opts.Text)
	}
	return nil
}

// GetDoc returns a rule's documentation, or ok=false if it does not exist.
func (p *Policy) GetDoc(name string) (doc string, attrDocs map[string]string, ok bool) {
	r, ok := p.GetRule(name)
	if !ok {
		return "", nil, false
	}
	return r.Doc(), r.AttrDocs(), true
}

// GetDocs returns every rule's documentation, keyed by name.
func (p *Policy) GetDocs() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]string, len(p.rules))
	for name, r := range p.rules {
		out[name] = r.Doc()
	}
	return out
}

// Evaluate constructs a Context, runs the named rule's instruction stream,
// and returns the resulting Authorization (spec.md §4.8). A missing rule
// is a falsy Authorization, never an error.
func (p *Policy) Evaluate(name string, variables map[string]value.Value) (*value.Authorization, error) {
	r, ok := p.GetRule(name)
	if !ok {
		p.logger.Debug("evaluate: rule not found", "rule", name)
		return value.Denied, nil
	}

	instructions, recompiled, err := r.Instructions(p.compile)
	if err != nil {
		p.logger.Warn("rule compilation failed", "rule", name, "error", err)
		return nil, err
	}
	if recompiled && p.metrics != nil {
		p.metrics.CompilationsTotal.Inc()
	}

	ctx := policy.NewContext(p, p.runner, p.compile, variables)
	ctx.PushDefaults(r.Attrs())
	defer ctx.PopDefaults()
	ctx.PushRule(name)
	defer ctx.PopRule()

	authz, err := p.runner.Run(ctx, instructions)
	if err != nil {
		p.logger.Warn("evaluation failed", "rule", name, "error", err)
		return nil, err
	}
	p.logger.Debug("evaluation completed", "rule", name, "verdict", authz.Verdict)
	return authz, nil
}

// ResolveName implements policy.NameResolver: builtins, then entrypoint
// resolution with memoization, then Nothing (spec.md §4.7 steps 2-4).
// ctx.Variables (step 1) is handled by the evaluator before it ever calls
// this method.
func (p *Policy) ResolveName(name string) (value.Value, error) {
	p.mu.RLock()
	v, ok := p.builtins[name]
	p.mu.RUnlock()
	if ok {
		return v, nil
	}

	if p.resolver == nil || p.entrypointGroup == "" {
		return value.Nothing, nil
	}

	key := entrypointCacheKey(p.entrypointGroup, name)
	p.epMu.RLock()
	cached, hit := p.epCache[key]
	p.epMu.RUnlock()
	if hit {
		p.recordEntrypointResolution(cached)
		return cached, nil
	}

	fn, found := p.resolver.Resolve(p.entrypointGroup, name)
	var resolved value.Value
	if found {
		resolved = value.FromFunction(fn)
		p.logger.Debug("entrypoint resolved", "name", name, "group", p.entrypointGroup)
	} else {
		// Negative results are memoized too, so a misspelled name is not
		// re-resolved on every LoadName (spec.md §4.7).
		resolved = value.Nothing
		p.logger.Debug("entrypoint resolution missed", "name", name, "group", p.entrypointGroup)
	}

	p.epMu.Lock()
	p.epCache[key] = resolved
	p.epMu.Unlock()
	p.recordEntrypointResolution(resolved)
	return resolved, nil
}

// recordEntrypointResolution increments EntrypointResolutionTotal with
// outcome="hit" when resolution produced a usable function and "miss" when
// it produced Nothing, covering both the epCache-hit return above and the
// fresh-resolution path (spec.md §4.7 steps 3-4).
func (p *Policy) recordEntrypointResolution(resolved value.Value) {
	if p.metrics == nil {
		return
	}
	outcome := "miss"
	if !resolved.IsNothing() {
		outcome = "hit"
	}
	p.metrics.EntrypointResolutionTotal.WithLabelValues(outcome).Inc()
}

// entrypointCacheKey hashes group+name into the Policy-level entrypoint
// memoization key, the same xxhash-based cache-key pattern the teacher uses
// for its evaluation result cache.
func entrypointCacheKey(group, name string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(group)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(name)
	return h.Sum64()
}

var (
	_ policy.Engine     = (*Policy)(nil)
	_ policy.PolicyView = (*Policy)(nil)
)
