package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// runAgent makes one tool-enabled model call and stores the resulting tool
// calls as the pending batch.
func (o *Orchestrator) runAgent(ctx context.Context, s *Session) (Phase, StateDelta, error) {
	state := s.state

	if err := s.emit(Event{Type: EventNode, Phase: PhaseAgent, Iteration: state.IterationCount, Status: "thinking"}); err != nil {
		return PhaseDone, StateDelta{}, err
	}

	schemas, err := o.registry.Schemas(ctx)
	if err != nil {
		// transport listing failed; builtins still work
		o.debug.Debugf("tool schema listing degraded: %v", err)
	}
	if len(schemas) == 0 {
		return PhaseReporter, StateDelta{
			AgentError:        strp("no usable tool schema: register builtin tools or a transport"),
			TerminationReason: strp(TerminationAgentError),
		}, nil
	}

	var emitErr error
	completion, err := o.completer.Complete(ctx, CompletionRequest{Messages: state.Messages, Tools: schemas}, func(delta string) {
		if emitErr == nil {
			emitErr = s.emit(Event{Type: EventNode, Phase: PhaseAgent, Iteration: state.IterationCount, Delta: delta})
		}
	})
	if emitErr != nil {
		return PhaseDone, StateDelta{}, emitErr
	}
	if err != nil {
		return PhaseReporter, StateDelta{
			AgentError:        strp(fmt.Sprintf("model call failed: %v", err)),
			TerminationReason: strp(TerminationAgentError),
		}, nil
	}

	calls := normalizeToolCalls(completion.ToolCalls)
	s.lastBatchSize = len(calls)

	assistant := types.Message{Role: types.RoleAssistant, Content: completion.Text, ToolCalls: calls}
	return PhaseDiscuss, StateDelta{
		AppendMessages:   []types.Message{assistant},
		PendingToolCalls: callsp(calls),
	}, nil
}

// normalizeToolCalls tolerates provider quirks: a missing id gets a
// synthesized uuid, malformed JSON arguments fall back to the raw string.
func normalizeToolCalls(payloads []ToolCallPayload) []types.ToolCall {
	var calls []types.ToolCall
	for _, payload := range payloads {
		if payload.Name == "" {
			continue
		}

		call := types.ToolCall{ID: payload.ID, Name: payload.Name}
		if call.ID == "" {
			call.ID = uuid.NewString()
		}

		if payload.Arguments != "" {
			if err := json.Unmarshal([]byte(payload.Arguments), &call.Arguments); err != nil || call.Arguments == nil {
				call.Arguments = map[string]any{"raw": payload.Arguments}
			}
		} else {
			call.Arguments = map[string]any{}
		}

		calls = append(calls, call)
	}
	return calls
}
