package engine

import (
	"github.com/jhl-labs/sepilot-desktop-sub001/tools"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// StateDelta is a partial state update returned by a phase node. Nodes never
// write AgentState directly; the orchestrator merges deltas so every
// mutation happens in one place. Slice fields append (or union where noted),
// pointer fields replace when non-nil.
type StateDelta struct {
	AppendMessages []types.Message

	PlanSteps       []types.PlanStep // replaces when non-nil
	PlanCreated     *bool
	CurrentPlanStep *int
	RequiredFiles   []string // union

	ModifiedFiles []string // union
	DeletedFiles  []string // union

	ToolResults      []types.ToolExecutionResult
	ExecutedIDs      []string // merged into the idempotency set
	PendingToolCalls *[]types.ToolCall

	IterationCount    *int
	ForceTermination  *bool
	TerminationReason *string

	TriageDecision *types.TriageDecision

	LastApprovalStatus *types.ApprovalStatus
	ApprovalHistory    []types.ApprovalHistoryEntry

	VerificationStatus       *types.VerificationStatus
	VerificationFailedChecks *[]string
	VerificationRetries      *int

	CompletionChecklist *types.CompletionChecklist
	WorkingMemory       *types.WorkingMemory
	AgentTrace          []types.TraceEntry // replaces when non-nil

	AwaitingDiscussInput *bool
	DiscussQuestion      *string

	AgentError *string

	LastBatchSignature   *string
	RepeatSignatureCount *int
}

func apply(state *types.AgentState, delta StateDelta) {
	state.Messages = append(state.Messages, delta.AppendMessages...)

	if delta.PlanSteps != nil {
		state.PlanSteps = delta.PlanSteps
	}
	if delta.PlanCreated != nil {
		state.PlanCreated = *delta.PlanCreated
	}
	if delta.CurrentPlanStep != nil {
		state.CurrentPlanStep = *delta.CurrentPlanStep
	}
	state.RequiredFiles = union(state.RequiredFiles, delta.RequiredFiles)
	state.ModifiedFiles = union(state.ModifiedFiles, delta.ModifiedFiles)
	state.DeletedFiles = union(state.DeletedFiles, delta.DeletedFiles)

	state.ToolResults = append(state.ToolResults, delta.ToolResults...)
	if len(delta.ExecutedIDs) > 0 {
		state.ExecutedToolCallIDs = tools.MergeExecutedIDs(state.ExecutedToolCallIDs, delta.ExecutedIDs)
	}
	if delta.PendingToolCalls != nil {
		state.PendingToolCalls = *delta.PendingToolCalls
	}

	if delta.IterationCount != nil {
		state.IterationCount = *delta.IterationCount
	}
	if delta.ForceTermination != nil {
		state.ForceTermination = *delta.ForceTermination
	}
	if delta.TerminationReason != nil {
		state.TerminationReason = *delta.TerminationReason
	}

	if delta.TriageDecision != nil {
		state.TriageDecision = *delta.TriageDecision
	}

	if delta.LastApprovalStatus != nil {
		state.LastApprovalStatus = *delta.LastApprovalStatus
	}
	state.ApprovalHistory = append(state.ApprovalHistory, delta.ApprovalHistory...)

	if delta.VerificationStatus != nil {
		state.VerificationStatus = *delta.VerificationStatus
	}
	if delta.VerificationFailedChecks != nil {
		state.VerificationFailedChecks = *delta.VerificationFailedChecks
	}
	if delta.VerificationRetries != nil {
		state.VerificationRetries = *delta.VerificationRetries
	}

	if delta.CompletionChecklist != nil {
		state.CompletionChecklist = delta.CompletionChecklist
	}
	if delta.WorkingMemory != nil {
		state.WorkingMemory = delta.WorkingMemory
	}
	if delta.AgentTrace != nil {
		state.AgentTrace = delta.AgentTrace
	}

	if delta.AwaitingDiscussInput != nil {
		state.AwaitingDiscussInput = *delta.AwaitingDiscussInput
	}
	if delta.DiscussQuestion != nil {
		state.DiscussQuestion = *delta.DiscussQuestion
	}

	if delta.AgentError != nil {
		state.AgentError = *delta.AgentError
	}

	if delta.LastBatchSignature != nil {
		state.LastBatchSignature = *delta.LastBatchSignature
	}
	if delta.RepeatSignatureCount != nil {
		state.RepeatSignatureCount = *delta.RepeatSignatureCount
	}
}

// union appends the additions that are not already present, keeping order.
func union(base, additions []string) []string {
	if len(additions) == 0 {
		return base
	}
	seen := make(map[string]bool, len(base))
	for _, v := range base {
		seen[v] = true
	}
	for _, v := range additions {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		base = append(base, v)
	}
	return base
}

func boolp(v bool) *bool { return &v }

func intp(v int) *int { return &v }

func strp(v string) *string { return &v }

func callsp(v []types.ToolCall) *[]types.ToolCall { return &v }

func triagep(v types.TriageDecision) *types.TriageDecision { return &v }

func statusp(v types.ApprovalStatus) *types.ApprovalStatus { return &v }

func verifp(v types.VerificationStatus) *types.VerificationStatus { return &v }
