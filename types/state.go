package types

type TriageDecision string

const (
	TriageSimple  TriageDecision = "simple"
	TriageComplex TriageDecision = "complex"
)

type TrustLevel string

const (
	TrustTrusted   TrustLevel = "trusted"
	TrustUntrusted TrustLevel = "untrusted"
)

type VerificationStatus string

const (
	VerificationPassed  VerificationStatus = "passed"
	VerificationFailed  VerificationStatus = "failed"
	VerificationSkipped VerificationStatus = "skipped"
)

type PlanTag string

const (
	PlanTagDiscuss PlanTag = "discuss"
	PlanTagTool    PlanTag = "tool"
	PlanTagVerify  PlanTag = "verify"
)

type PlanStep struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Tag   PlanTag `json:"tag"`
}

// AgentState is the per-turn working state of one agent run. Phase nodes
// read it and return deltas; only the orchestrator writes it.
type AgentState struct {
	ConversationID   string    `json:"conversation_id"`
	Goal             string    `json:"goal"`
	Messages         []Message `json:"messages"`
	WorkingDirectory string    `json:"working_directory"`

	PlanSteps       []PlanStep `json:"plan_steps,omitempty"`
	CurrentPlanStep int        `json:"current_plan_step"`
	PlanCreated     bool       `json:"plan_created"`
	RequiredFiles   []string   `json:"required_files,omitempty"`

	ModifiedFiles []string `json:"modified_files,omitempty"`
	DeletedFiles  []string `json:"deleted_files,omitempty"`

	ToolResults         []ToolExecutionResult `json:"tool_results,omitempty"`
	ExecutedToolCallIDs map[string]struct{}   `json:"executed_tool_call_ids,omitempty"`
	PendingToolCalls    []ToolCall            `json:"pending_tool_calls,omitempty"`

	IterationCount    int    `json:"iteration_count"`
	MaxIterations     int    `json:"max_iterations"`
	ForceTermination  bool   `json:"force_termination"`
	TerminationReason string `json:"termination_reason,omitempty"`

	TriageDecision TriageDecision `json:"triage_decision,omitempty"`

	LastApprovalStatus ApprovalStatus         `json:"last_approval_status,omitempty"`
	AlwaysApproveTools bool                   `json:"always_approve_tools"`
	ApprovalHistory    []ApprovalHistoryEntry `json:"approval_history,omitempty"`

	VerificationStatus       VerificationStatus `json:"verification_status,omitempty"`
	VerificationFailedChecks []string           `json:"verification_failed_checks,omitempty"`
	VerificationRetries      int                `json:"verification_retries"`

	CompletionChecklist *CompletionChecklist `json:"completion_checklist,omitempty"`
	WorkingMemory       *WorkingMemory       `json:"working_memory,omitempty"`
	AgentTrace          []TraceEntry         `json:"agent_trace,omitempty"`

	AwaitingDiscussInput bool   `json:"awaiting_discuss_input"`
	DiscussQuestion      string `json:"discuss_question,omitempty"`

	AgentError      string     `json:"agent_error,omitempty"`
	InputTrustLevel TrustLevel `json:"input_trust_level,omitempty"`

	LastBatchSignature   string `json:"last_batch_signature,omitempty"`
	RepeatSignatureCount int    `json:"repeat_signature_count"`
}

func (s *AgentState) Executed(id string) bool {
	_, ok := s.ExecutedToolCallIDs[id]
	return ok
}

func (s *AgentState) LastAssistantMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}
