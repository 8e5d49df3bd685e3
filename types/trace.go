package types

import "time"

type TraceEvent string

const (
	TraceStart    TraceEvent = "start"
	TraceEnd      TraceEvent = "end"
	TraceDecision TraceEvent = "decision"
	TraceError    TraceEvent = "error"
)

type TraceEntry struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Phase      string            `json:"phase"`
	Event      TraceEvent        `json:"event"`
	Iteration  int               `json:"iteration"`
	DurationMs int64             `json:"duration_ms,omitempty"`
	ToolName   string            `json:"tool_name,omitempty"`
	Note       string            `json:"note,omitempty"`
	Approved   *bool             `json:"approved,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type ToolStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

type ApprovalStats struct {
	Approved int `json:"approved"`
	Denied   int `json:"denied"`
	Feedback int `json:"feedback"`
}

type TraceMetrics struct {
	NodeLatencyMs map[string]int64 `json:"node_latency_ms"`
	Tools         ToolStats        `json:"tools"`
	Approvals     ApprovalStats    `json:"approvals"`
}
