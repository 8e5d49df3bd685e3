package engine

import "github.com/jhl-labs/sepilot-desktop-sub001/types"

type Phase string

const (
	PhaseTriage   Phase = "triage"
	PhasePlanner  Phase = "planner"
	PhaseGuard    Phase = "guard"
	PhaseAgent    Phase = "agent"
	PhaseDiscuss  Phase = "discuss"
	PhaseApproval Phase = "approval"
	PhaseTools    Phase = "tools"
	PhaseVerifier Phase = "verifier"
	PhaseReporter Phase = "reporter"
	PhaseDirect   Phase = "direct"
	PhaseDelegate Phase = "delegate"
	PhaseDone     Phase = "done"
)

type EventType string

const (
	EventNode            EventType = "node"
	EventApprovalRequest EventType = "tool_approval_request"
	EventApprovalResult  EventType = "tool_approval_result"
	EventDiscussRequest  EventType = "cowork_discuss_request"
	EventPaused          EventType = "paused"
	EventError           EventType = "error"
	EventEnd             EventType = "end"
)

type DiscussRequest struct {
	StepIndex int    `json:"step_index"`
	Question  string `json:"question"`
}

type PauseReason string

const (
	PauseReasonApproval PauseReason = "approval"
	PauseReasonDiscuss  PauseReason = "discuss"
)

// Pause is the suspended-state value handed to the caller when a gate needs
// external input and no callback is registered. Resume entry points take the
// token back to re-enter the machine.
type Pause struct {
	Reason  PauseReason            `json:"reason"`
	Token   string                 `json:"token"`
	Request *types.ApprovalRequest `json:"request,omitempty"`
	Discuss *DiscussRequest        `json:"discuss,omitempty"`
}

// Event is one typed progress emission from the orchestrator to its caller.
type Event struct {
	Type      EventType `json:"type"`
	Phase     Phase     `json:"phase,omitempty"`
	Iteration int       `json:"iteration,omitempty"`

	// Status carries phase progress text; Delta carries streamed model text.
	Status string `json:"status,omitempty"`
	Delta  string `json:"delta,omitempty"`

	Approval        *types.ApprovalRequest `json:"approval,omitempty"`
	ApprovalGranted *bool                  `json:"approval_granted,omitempty"`
	Discuss         *DiscussRequest        `json:"discuss,omitempty"`
	Pause           *Pause                 `json:"pause,omitempty"`

	Err string `json:"err,omitempty"`
}
