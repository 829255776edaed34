package policy

import "github.com/aegis-policy/aegis/internal/domain/value"

// Engine is the entry point for policy evaluation (spec.md §2, §6):
// construct a Context, look up (and if needed compile) the named rule,
// run its instruction stream, and return the resulting Authorization.
// It never returns an error for a missing rule — that is a falsy
// Authorization (spec.md §4.8) — only for genuine EvaluationError and
// ParseError failures.
type Engine interface {
	Evaluate(name string, variables map[string]value.Value) (*value.Authorization, error)
}

// EntrypointResolver discovers externally-installed named functions
// (spec.md §1, §4.7, §6). Looking up plug-ins is delegated entirely to
// this injectable collaborator; the core never reaches into a plug-in
// registry itself.
type EntrypointResolver interface {
	Resolve(group, name string) (value.Callable, bool)
}
