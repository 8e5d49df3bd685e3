package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhl-labs/sepilot-desktop-sub001/risk"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// runApproval gates the pending batch behind the risk policy. Denied halts,
// feedback asks the approval collaborator (or pauses), approved proceeds to
// execution. Every resolution lands in the approval history.
func (o *Orchestrator) runApproval(ctx context.Context, s *Session) (Phase, StateDelta, error) {
	state := s.state

	if len(state.PendingToolCalls) == 0 {
		return PhaseVerifier, StateDelta{}, nil
	}

	riskCtx := risk.Context{
		WorkingDirectory:   state.WorkingDirectory,
		UserText:           s.userText,
		InputTrustLevel:    state.InputTrustLevel,
		AlwaysApproveTools: state.AlwaysApproveTools,
	}
	analysis := o.analyzer.Analyze(state.PendingToolCalls, riskCtx)
	decision := o.policy.Resolve(analysis, riskCtx)
	if decision.OneTimeApprove {
		// one-time means one batch; the next risky batch asks again
		s.userText = ""
	}

	s.tracer.Approval(state.IterationCount, decision.Status, decision.Note)
	delta := StateDelta{
		LastApprovalStatus: statusp(decision.Status),
		ApprovalHistory: []types.ApprovalHistoryEntry{
			o.historyBuilder.Entry(decision, types.ApprovalSourcePolicy, nil),
		},
	}

	switch decision.Status {
	case types.ApprovalDenied:
		delta.AppendMessages = []types.Message{{Role: types.RoleAssistant, Content: "⚠️ " + decision.Note}}
		delta.ForceTermination = boolp(true)
		delta.TerminationReason = strp(TerminationApprovalDenied)
		delta.PendingToolCalls = callsp(nil)
		if err := s.emit(Event{Type: EventApprovalResult, Phase: PhaseApproval, Iteration: state.IterationCount, ApprovalGranted: boolp(false), Status: decision.Note}); err != nil {
			return PhaseDone, StateDelta{}, err
		}
		return PhaseReporter, delta, nil

	case types.ApprovalApproved:
		return PhaseTools, delta, nil
	}

	// feedback: ask the human
	request := types.ApprovalRequest{
		ConversationID: s.id,
		Items:          decision.RiskyToolCalls,
		RiskLevel:      decision.RiskLevel,
		Message:        decision.Note,
	}
	if err := s.emit(Event{Type: EventApprovalRequest, Phase: PhaseApproval, Iteration: state.IterationCount, Approval: &request}); err != nil {
		return PhaseDone, StateDelta{}, err
	}

	if s.callbacks.Approval == nil {
		s.pendingDecision = &decision
		s.pause = &Pause{Reason: PauseReasonApproval, Token: uuid.NewString(), Request: &request}
		return PhaseApproval, delta, ErrPaused
	}

	approved, err := s.callbacks.Approval(ctx, request)
	if err != nil {
		return PhaseDone, StateDelta{}, fmt.Errorf("approval callback: %w", err)
	}

	apply(state, delta)
	s.pendingDecision = &decision
	o.applyApprovalAnswer(s, approved, types.ApprovalSourceUser)
	if err := s.emit(Event{Type: EventApprovalResult, Phase: PhaseApproval, Iteration: state.IterationCount, ApprovalGranted: boolp(approved)}); err != nil {
		return PhaseDone, StateDelta{}, err
	}
	return s.next, StateDelta{}, nil
}

// applyApprovalAnswer folds a human answer to a feedback decision into
// state and picks the next phase. Shared by the callback path and the
// ResumeApproval entry point.
func (o *Orchestrator) applyApprovalAnswer(s *Session, approved bool, source types.ApprovalSource) {
	decision := types.ApprovalDecision{RiskLevel: types.SeverityLow}
	if s.pendingDecision != nil {
		decision = *s.pendingDecision
		s.pendingDecision = nil
	}

	if approved {
		decision.Status = types.ApprovalApproved
		decision.Note = "user approved the pending tool calls"
		s.tracer.Approval(s.state.IterationCount, decision.Status, decision.Note)
		apply(s.state, StateDelta{
			LastApprovalStatus: statusp(types.ApprovalApproved),
			ApprovalHistory:    []types.ApprovalHistoryEntry{o.historyBuilder.Entry(decision, source, nil)},
			AppendMessages:     []types.Message{{Role: types.RoleUser, Content: "Approved. Continue."}},
		})
		s.next = PhaseTools
		return
	}

	decision.Status = types.ApprovalDenied
	decision.Note = "user denied the pending tool calls"
	s.tracer.Approval(s.state.IterationCount, decision.Status, decision.Note)
	apply(s.state, StateDelta{
		LastApprovalStatus: statusp(types.ApprovalDenied),
		ApprovalHistory:    []types.ApprovalHistoryEntry{o.historyBuilder.Entry(decision, source, nil)},
		AppendMessages:     []types.Message{{Role: types.RoleUser, Content: "Denied. Stop here."}},
		ForceTermination:   boolp(true),
		TerminationReason:  strp(TerminationApprovalDenied),
		PendingToolCalls:   callsp(nil),
	})
	s.next = PhaseReporter
}
