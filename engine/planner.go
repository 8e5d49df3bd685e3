package engine

import (
	"context"
	"fmt"

	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

const plannerPrompt = `Break the task below into a short numbered plan (at most 6 steps).
Tag each step: [TOOL] for steps that read/write files or run commands, [DISCUSS] for steps that need the user's input before continuing, [VERIFY] for steps that check the result.
Output only the numbered list.

Task: %s`

const executionInstruction = `Execute the plan step by step. Use the available tools; call them with concrete arguments. When a step is done, continue with the next one. Do not ask for confirmation unless the step is tagged [DISCUSS].`

func (o *Orchestrator) runPlanner(ctx context.Context, s *Session) (Phase, StateDelta, error) {
	state := s.state
	if state.PlanCreated {
		return PhaseGuard, StateDelta{}, nil
	}

	if err := s.emit(Event{Type: EventNode, Phase: PhasePlanner, Status: "planning"}); err != nil {
		return PhaseDone, StateDelta{}, err
	}

	messages := []types.Message{{Role: types.RoleUser, Content: fmt.Sprintf(plannerPrompt, state.Goal)}}
	completion, err := o.completer.Complete(ctx, CompletionRequest{Messages: messages}, nil)
	if err != nil {
		return PhaseReporter, StateDelta{
			AgentError:        strp(fmt.Sprintf("planning failed: %v", err)),
			TerminationReason: strp(TerminationAgentError),
		}, nil
	}

	steps := parsePlan(completion.Text)
	if len(steps) == 0 {
		// a plan the parser cannot read still gets one executable step
		steps = []types.PlanStep{{Index: 0, Text: state.Goal, Tag: types.PlanTagTool}}
	}

	required := extractPathTokens(state.Goal)
	if o.recommender != nil {
		required = union(required, o.recommender.RecommendFiles(ctx, state.WorkingDirectory, state.Goal))
	}

	s.tracer.Decision(string(PhasePlanner), state.IterationCount, fmt.Sprintf("plan with %d steps", len(steps)))
	if err := s.emit(Event{Type: EventNode, Phase: PhasePlanner, Status: fmt.Sprintf("plan ready: %d steps", len(steps))}); err != nil {
		return PhaseDone, StateDelta{}, err
	}

	return PhaseGuard, StateDelta{
		PlanSteps:       steps,
		PlanCreated:     boolp(true),
		CurrentPlanStep: intp(0),
		RequiredFiles:   required,
		AppendMessages: []types.Message{
			{Role: types.RoleAssistant, Content: completion.Text},
			{Role: types.RoleUser, Content: executionInstruction},
		},
	}, nil
}
