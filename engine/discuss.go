package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// runDiscuss gates the loop on the current plan step's [DISCUSS] tag. The
// step is consumed (cursor advanced) before the answer arrives so a resumed
// run continues past it. Tool calls the model proposed this turn are
// discarded; discussion turns never execute tools.
func (o *Orchestrator) runDiscuss(ctx context.Context, s *Session) (Phase, StateDelta, error) {
	state := s.state

	step, ok := currentStep(state)
	if !ok || step.Tag != types.PlanTagDiscuss {
		return PhaseApproval, StateDelta{}, nil
	}

	request := DiscussRequest{StepIndex: step.Index, Question: step.Text}
	s.tracer.Decision(string(PhaseDiscuss), state.IterationCount, fmt.Sprintf("discuss step %d", step.Index))
	if err := s.emit(Event{Type: EventDiscussRequest, Phase: PhaseDiscuss, Iteration: state.IterationCount, Discuss: &request}); err != nil {
		return PhaseDone, StateDelta{}, err
	}

	advance := StateDelta{
		CurrentPlanStep:  intp(state.CurrentPlanStep + 1),
		PendingToolCalls: callsp(nil),
		DiscussQuestion:  strp(step.Text),
	}

	if s.callbacks.Discuss == nil {
		advance.AwaitingDiscussInput = boolp(true)
		s.pause = &Pause{Reason: PauseReasonDiscuss, Token: uuid.NewString(), Discuss: &request}
		return PhaseDiscuss, advance, ErrPaused
	}

	answer, err := s.callbacks.Discuss(ctx, step.Index, step.Text)
	if err != nil {
		return PhaseDone, StateDelta{}, fmt.Errorf("discussion callback: %w", err)
	}

	s.userText = answer
	advance.AwaitingDiscussInput = boolp(false)
	advance.AppendMessages = []types.Message{{Role: types.RoleUser, Content: answer}}
	return PhaseGuard, advance, nil
}
