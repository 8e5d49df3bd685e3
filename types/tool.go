package types

import "time"

const (
	ToolCommandExecute = "command_execute"
	ToolFileRead       = "file_read"
	ToolFileWrite      = "file_write"
	ToolFileEdit       = "file_edit"
	ToolFileDelete     = "file_delete"
	ToolFileList       = "file_list"
	ToolFileSearch     = "file_search"
)

type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type ToolExecutionResult struct {
	ToolCallID string  `json:"tool_call_id"`
	ToolName   string  `json:"tool_name"`
	Result     *string `json:"result,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func (r ToolExecutionResult) Failed() bool {
	return r.Error != ""
}

type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ActivityRecord struct {
	ConversationID string         `json:"conversation_id"`
	ToolName       string         `json:"tool_name"`
	Arguments      map[string]any `json:"arguments,omitempty"`
	Result         string         `json:"result,omitempty"`
	Status         string         `json:"status"`
	DurationMs     int64          `json:"duration_ms"`
	Timestamp      time.Time      `json:"timestamp"`
}

func (c ToolCall) StringArg(key string) string {
	v, ok := c.Arguments[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
