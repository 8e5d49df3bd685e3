package tools

import (
	"context"
	"fmt"

	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// Transport routes tool calls to an external tool server. Implementations
// own the wire protocol; the coordinator treats routed tools exactly like
// builtins.
//
//go:generate mockgen -destination=transportmocks_test.go -package=tools_test github.com/jhl-labs/sepilot-desktop-sub001/tools Transport
type Transport interface {
	Tools(ctx context.Context) ([]types.ToolSchema, error)
	Execute(ctx context.Context, name string, args map[string]any, conversationID string) (string, error)
}

// DisabledToolError is a typed error so the coordinator can report an
// allow-list rejection without dispatching.
type DisabledToolError struct {
	Name string
}

func (e DisabledToolError) Error() string {
	return fmt.Sprintf("tool %q is disabled for this conversation", e.Name)
}

// UnknownToolError reports a call to a name no builtin or transport serves.
type UnknownToolError struct {
	Name string
}

func (e UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// Registry resolves tool names to builtin implementations or the external
// transport. Registries are constructed per engine instance and injected,
// never shared module-wide.
type Registry struct {
	order     []string
	builtins  map[string]Tool
	transport Transport
	allowed   map[string]struct{}
}

type RegistryOption func(*Registry)

func WithTransport(t Transport) RegistryOption {
	return func(r *Registry) { r.transport = t }
}

// WithAllowedTools restricts dispatch to the named tools. An empty list
// leaves every tool enabled.
func WithAllowedTools(names []string) RegistryOption {
	return func(r *Registry) {
		if len(names) == 0 {
			return
		}
		r.allowed = make(map[string]struct{}, len(names))
		for _, name := range names {
			r.allowed[name] = struct{}{}
		}
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{builtins: make(map[string]Tool)}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register adds a builtin, keeping registration order for schema listing.
func (r *Registry) Register(tool Tool) {
	if _, ok := r.builtins[tool.Name()]; !ok {
		r.order = append(r.order, tool.Name())
	}
	r.builtins[tool.Name()] = tool
}

func (r *Registry) Allowed(name string) bool {
	if r.allowed == nil {
		return true
	}
	_, ok := r.allowed[name]
	return ok
}

func (r *Registry) Builtin(name string) (Tool, bool) {
	t, ok := r.builtins[name]
	return t, ok
}

// Schemas lists every dispatchable tool, builtins first, filtered by the
// allow-list. A transport failure degrades to builtin-only: the schemas
// gathered so far are returned together with the error so the caller can
// log what was skipped.
func (r *Registry) Schemas(ctx context.Context) ([]types.ToolSchema, error) {
	var out []types.ToolSchema

	for _, name := range r.order {
		if !r.Allowed(name) {
			continue
		}
		tool := r.builtins[name]
		out = append(out, types.ToolSchema{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}

	if r.transport == nil {
		return out, nil
	}

	remote, err := r.transport.Tools(ctx)
	if err != nil {
		return out, fmt.Errorf("list transport tools: %w", err)
	}
	for _, schema := range remote {
		if _, shadowed := r.builtins[schema.Name]; shadowed {
			continue
		}
		if !r.Allowed(schema.Name) {
			continue
		}
		out = append(out, schema)
	}

	return out, nil
}

// Dispatch runs one call against its builtin or the transport. Allow-list
// rejections fail before any dispatch.
func (r *Registry) Dispatch(ctx context.Context, call types.ToolCall, conversationID string) (string, error) {
	if !r.Allowed(call.Name) {
		return "", DisabledToolError{Name: call.Name}
	}
	if tool, ok := r.builtins[call.Name]; ok {
		return tool.Execute(ctx, call.Arguments)
	}
	if r.transport != nil {
		return r.transport.Execute(ctx, call.Name, call.Arguments, conversationID)
	}
	return "", UnknownToolError{Name: call.Name}
}

// Resolvable reports whether a name would dispatch at all, without running
// it. Used to fail unknown tools before the retry loop.
func (r *Registry) Resolvable(name string) bool {
	if _, ok := r.builtins[name]; ok {
		return true
	}
	return r.transport != nil
}
