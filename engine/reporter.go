package engine

import (
	"context"
	"fmt"

	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// runReporter is the terminal phase: it summarizes the run, publishes the
// trace, archives the approval history, and ends the stream.
func (o *Orchestrator) runReporter(ctx context.Context, s *Session) (Phase, StateDelta, error) {
	state := s.state
	summary := o.summarize(state)

	delta := StateDelta{
		AppendMessages: []types.Message{{Role: types.RoleAssistant, Content: summary}},
		AgentTrace:     s.tracer.Entries(),
	}

	if o.archive != nil && len(state.ApprovalHistory) > 0 {
		// fire-and-forget; an archive failure never fails the run
		if err := o.archive.ArchiveApprovals(ctx, s.id, state.ApprovalHistory); err != nil {
			o.debug.Debugf("approval archive failed for %s: %v", s.id, err)
		}
	}

	if err := s.emit(Event{Type: EventNode, Phase: PhaseReporter, Iteration: state.IterationCount, Status: summary}); err != nil {
		return PhaseDone, StateDelta{}, err
	}
	if err := s.emit(Event{Type: EventEnd}); err != nil {
		return PhaseDone, StateDelta{}, err
	}
	return PhaseDone, delta, nil
}

func (o *Orchestrator) summarize(state *types.AgentState) string {
	switch {
	case state.AgentError != "":
		return fmt.Sprintf("❌ The agent hit an unrecoverable error: %s. Check the model configuration and try again.", state.AgentError)

	case state.TerminationReason == TerminationMaxIterations:
		return fmt.Sprintf("⚠️ Stopped after reaching the maximum of %d iterations. %s", state.MaxIterations, progressSummary(state))

	case state.TerminationReason == TerminationRepeatedCall:
		return fmt.Sprintf("⚠️ Stopped: the model requested the same tool calls %d times in a row. %s", state.RepeatSignatureCount, progressSummary(state))

	case state.TerminationReason == TerminationApprovalDenied:
		return "🚫 Stopped: the pending tool calls were not approved. No further changes were made."

	case state.TriageDecision == types.TriageSimple:
		return "Answered directly; no tools were needed."

	default:
		return fmt.Sprintf("✅ Done in %d iteration(s). %s", state.IterationCount, progressSummary(state))
	}
}

func progressSummary(state *types.AgentState) string {
	plan := ""
	if len(state.PlanSteps) > 0 {
		plan = fmt.Sprintf(" Plan: %d/%d steps completed.", state.CurrentPlanStep, len(state.PlanSteps))
	}
	return fmt.Sprintf("Modified %d file(s), deleted %d.%s", len(state.ModifiedFiles), len(state.DeletedFiles), plan)
}
