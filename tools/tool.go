package tools

import (
	"context"
)

// Tool is one locally implemented capability the agent can call.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// FuncTool wraps a plain function as a Tool.
type FuncTool struct {
	ToolName   string
	ToolDesc   string
	ToolParams map[string]any
	Fn         func(ctx context.Context, args map[string]any) (string, error)
}

func (f *FuncTool) Name() string               { return f.ToolName }
func (f *FuncTool) Description() string        { return f.ToolDesc }
func (f *FuncTool) Parameters() map[string]any { return f.ToolParams }

func (f *FuncTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return f.Fn(ctx, args)
}
