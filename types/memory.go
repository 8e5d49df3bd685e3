package types

import "time"

type ToolOutcome struct {
	ToolName string `json:"tool_name"`
	Success  bool   `json:"success"`
	Summary  string `json:"summary"`
}

type FileChangeSummary struct {
	Modified int      `json:"modified"`
	Deleted  int      `json:"deleted"`
	Files    []string `json:"files"`
}

type WorkingMemory struct {
	TaskSummary        string            `json:"task_summary"`
	LatestPlanStep     string            `json:"latest_plan_step,omitempty"`
	KeyDecisions       []string          `json:"key_decisions"`
	RecentToolOutcomes []ToolOutcome     `json:"recent_tool_outcomes"`
	FileChanges        FileChangeSummary `json:"file_changes"`
	LastUpdated        time.Time         `json:"last_updated"`
}
