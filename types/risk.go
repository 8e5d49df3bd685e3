package types

import "time"

type RiskReason string

const (
	RiskDangerousCommand      RiskReason = "dangerous_command"
	RiskNetworkInstallCommand RiskReason = "network_install_command"
	RiskSensitiveFileChange   RiskReason = "sensitive_file_change"
	RiskBulkFileChange        RiskReason = "bulk_file_change"
	RiskLargeFileWrite        RiskReason = "large_file_write"
	RiskOutsideWorkdirCommand RiskReason = "outside_workdir_command"
	RiskHTTPRequestCommand    RiskReason = "http_request_command"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

type ApprovalRiskItem struct {
	ToolCallID string     `json:"tool_call_id"`
	ToolName   string     `json:"tool_name"`
	Reason     RiskReason `json:"reason"`
	Summary    string     `json:"summary"`
	Severity   Severity   `json:"severity"`
	Command    string     `json:"command,omitempty"`
	FilePath   string     `json:"file_path,omitempty"`
}

type RiskAnalysis struct {
	Items     []ApprovalRiskItem `json:"items"`
	RiskLevel Severity           `json:"risk_level"`
}

func (a RiskAnalysis) Risky() bool {
	return len(a.Items) > 0
}

type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalFeedback ApprovalStatus = "feedback"
	ApprovalDenied   ApprovalStatus = "denied"
)

type ApprovalDecision struct {
	Status             ApprovalStatus     `json:"status"`
	Note               string             `json:"note,omitempty"`
	RiskLevel          Severity           `json:"risk_level"`
	RiskyToolCalls     []ApprovalRiskItem `json:"risky_tool_calls,omitempty"`
	AlwaysApproveTools bool               `json:"always_approve_tools,omitempty"`
	OneTimeApprove     bool               `json:"one_time_approve,omitempty"`
}

type ApprovalSource string

const (
	ApprovalSourceSystem ApprovalSource = "system"
	ApprovalSourcePolicy ApprovalSource = "policy"
	ApprovalSourceUser   ApprovalSource = "user"
)

type ApprovalHistoryEntry struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Decision    ApprovalStatus    `json:"decision"`
	Source      ApprovalSource    `json:"source"`
	Summary     string            `json:"summary"`
	RiskLevel   Severity          `json:"risk_level"`
	ToolCallIDs []string          `json:"tool_call_ids,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type ApprovalRequest struct {
	ConversationID string             `json:"conversation_id"`
	Items          []ApprovalRiskItem `json:"items"`
	RiskLevel      Severity           `json:"risk_level"`
	Message        string             `json:"message"`
}
