// Package client implements the chat-completion collaborator on the Cohere
// chat API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	co "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"go.uber.org/zap"

	"github.com/jhl-labs/sepilot-desktop-sub001/engine"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

const DefaultModel = "command-r-plus"

// Client talks to Cohere's chat endpoint and satisfies engine.ChatCompleter.
// Cohere reports tool calls without ids; the payloads leave with empty ids
// and the engine synthesizes them.
type Client struct {
	client *cohereclient.Client
	model  string
	debug  *zap.SugaredLogger
}

var _ engine.ChatCompleter = (*Client)(nil)

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithDebugLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.debug = l
		}
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		client: cohereclient.NewClient(cohereclient.WithToken(apiKey)),
		model:  DefaultModel,
		debug:  zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete streams one chat turn. Text deltas go through onDelta as they
// arrive; tool calls are collected and returned with the accumulated text.
func (c *Client) Complete(ctx context.Context, req engine.CompletionRequest, onDelta func(delta string)) (engine.Completion, error) {
	message, history, toolResults := buildTurn(req.Messages)

	request := &co.ChatStreamRequest{
		Message:     message,
		ChatHistory: history,
		Temperature: req.Temperature,
	}
	if c.model != "" {
		model := c.model
		request.Model = &model
	}
	if len(req.Tools) > 0 {
		request.Tools = coTools(req.Tools)
	}
	if len(toolResults) > 0 {
		request.ToolResults = toolResults
	}

	c.debug.Debugf("cohere chat: model=%s history=%d tools=%d tool_results=%d",
		c.model, len(history), len(request.Tools), len(toolResults))

	stream, err := c.client.ChatStream(ctx, request)
	if err != nil {
		return engine.Completion{}, err
	}
	defer stream.Close()

	var (
		text      strings.Builder
		toolCalls []engine.ToolCallPayload
	)
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return engine.Completion{}, err
		}

		switch {
		case resp.TextGeneration != nil:
			text.WriteString(resp.TextGeneration.Text)
			if onDelta != nil {
				onDelta(resp.TextGeneration.Text)
			}
		case resp.ToolCallsGeneration != nil:
			for _, call := range resp.ToolCallsGeneration.ToolCalls {
				if call == nil {
					continue
				}
				toolCalls = append(toolCalls, engine.ToolCallPayload{
					Name:      call.Name,
					Arguments: marshalParameters(call.Parameters),
				})
			}
		}
	}

	return engine.Completion{Text: text.String(), ToolCalls: toolCalls}, nil
}

// buildTurn splits the conversation into Cohere's request shape: the new
// user message, the prior history, and the current turn's tool results.
// Only tool messages after the last tool-calling assistant turn become
// ToolResults; older ones are folded into the history as plain text.
func buildTurn(messages []types.Message) (string, []*co.ChatMessage, []*co.ChatStreamRequestToolResultsItem) {
	lastCallTurn := -1
	for i, msg := range messages {
		if msg.Role == types.RoleAssistant && len(msg.ToolCalls) > 0 {
			lastCallTurn = i
		}
	}

	message := ""
	messageAt := -1
	for i := len(messages) - 1; i > lastCallTurn; i-- {
		if messages[i].Role == types.RoleUser {
			message = messages[i].Content
			messageAt = i
			break
		}
	}

	var (
		history []*co.ChatMessage
		results []*co.ChatStreamRequestToolResultsItem
	)
	for i, msg := range messages {
		if i == messageAt {
			continue
		}

		switch msg.Role {
		case types.RoleSystem:
			history = append(history, &co.ChatMessage{Role: co.ChatMessageRoleSystem, Message: msg.Content})

		case types.RoleUser:
			history = append(history, &co.ChatMessage{Role: co.ChatMessageRoleUser, Message: msg.Content})

		case types.RoleAssistant:
			if content := assistantText(msg); content != "" {
				history = append(history, &co.ChatMessage{Role: co.ChatMessageRoleChatbot, Message: content})
			}

		case types.RoleTool:
			if i > lastCallTurn && lastCallTurn >= 0 {
				if result := toolResult(messages[lastCallTurn], msg); result != nil {
					results = append(results, result)
				}
				continue
			}
			history = append(history, &co.ChatMessage{Role: co.ChatMessageRoleUser, Message: "Tool output: " + msg.Content})
		}
	}

	return message, history, results
}

// assistantText renders an assistant turn for the history. A pure tool-call
// turn has no text; Cohere rejects empty chatbot messages, so it is
// summarized instead.
func assistantText(msg types.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	if len(msg.ToolCalls) == 0 {
		return ""
	}

	names := make([]string, 0, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		names = append(names, call.Name)
	}
	return "Calling tools: " + strings.Join(names, ", ")
}

func toolResult(callTurn types.Message, msg types.Message) *co.ChatStreamRequestToolResultsItem {
	call := matchCall(callTurn.ToolCalls, msg.ToolCallID)
	if call == nil {
		return nil
	}

	return &co.ChatStreamRequestToolResultsItem{
		Call:    &co.ToolCall{Name: call.Name, Parameters: call.Arguments},
		Outputs: []map[string]interface{}{{"output": msg.Content}},
	}
}

func matchCall(calls []types.ToolCall, id string) *types.ToolCall {
	for i := range calls {
		if calls[i].ID == id {
			return &calls[i]
		}
	}
	return nil
}

// coTools converts the registry's JSON-schema tool descriptions to Cohere's
// flat parameter definitions.
func coTools(schemas []types.ToolSchema) []*co.Tool {
	var out []*co.Tool
	for _, schema := range schemas {
		out = append(out, &co.Tool{
			Name:                 schema.Name,
			Description:          schema.Description,
			ParameterDefinitions: parameterDefinitions(schema.Parameters),
		})
	}
	return out
}

func parameterDefinitions(parameters map[string]any) map[string]*co.ToolParameterDefinitionsValue {
	properties, _ := parameters["properties"].(map[string]any)
	if len(properties) == 0 {
		return nil
	}

	required := map[string]bool{}
	if names, ok := parameters["required"].([]string); ok {
		for _, name := range names {
			required[name] = true
		}
	} else if names, ok := parameters["required"].([]any); ok {
		for _, name := range names {
			if s, ok := name.(string); ok {
				required[s] = true
			}
		}
	}

	out := make(map[string]*co.ToolParameterDefinitionsValue, len(properties))
	for name, raw := range properties {
		property, _ := raw.(map[string]any)

		definition := &co.ToolParameterDefinitionsValue{Type: "str"}
		if t, ok := property["type"].(string); ok {
			definition.Type = coType(t)
		}
		if d, ok := property["description"].(string); ok && d != "" {
			description := d
			definition.Description = &description
		}
		if required[name] {
			v := true
			definition.Required = &v
		}
		out[name] = definition
	}
	return out
}

// coType maps JSON-schema types onto the python-flavored names the Cohere
// API expects.
func coType(jsonType string) string {
	switch jsonType {
	case "string":
		return "str"
	case "integer":
		return "int"
	case "number":
		return "float"
	case "boolean":
		return "bool"
	case "array":
		return "list"
	case "object":
		return "dict"
	}
	return "str"
}

func marshalParameters(parameters map[string]interface{}) string {
	if len(parameters) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(parameters)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
