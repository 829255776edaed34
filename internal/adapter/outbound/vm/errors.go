package vm

import "errors"

// errNotAPolicyContext guards the type assertion in RuleBuiltin: ctx-wanting
// functions receive their context as `any` (value.ContextWanting) purely to
// avoid value importing policy, but in this codebase it is always a
// *policy.Context.
var errNotAPolicyContext = errors.New("vm: context-wanting function invoked without a *policy.Context")
