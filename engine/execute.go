package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jhl-labs/sepilot-desktop-sub001/tools"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// runTools executes the approved batch. A triple-identical batch signature
// is the loop-breaker: the model is stuck repeating itself, independent of
// whether the calls succeed.
func (o *Orchestrator) runTools(ctx context.Context, s *Session) (Phase, StateDelta, error) {
	state := s.state
	batch := state.PendingToolCalls

	signature := batchSignature(batch)
	repeat := 1
	if signature != "" && signature == state.LastBatchSignature {
		repeat = state.RepeatSignatureCount + 1
	}
	if repeat >= repeatSignatureLimit {
		s.tracer.Decision(string(PhaseTools), state.IterationCount, "repeated identical batch")
		return PhaseReporter, StateDelta{
			ForceTermination:     boolp(true),
			TerminationReason:    strp(TerminationRepeatedCall),
			PendingToolCalls:     callsp(nil),
			RepeatSignatureCount: intp(repeat),
		}, nil
	}

	if err := s.emit(Event{Type: EventNode, Phase: PhaseTools, Iteration: state.IterationCount, Status: fmt.Sprintf("executing %d tool calls", len(batch))}); err != nil {
		return PhaseDone, StateDelta{}, err
	}

	tx := s.snapshots.Begin(fmt.Sprintf("iteration %d batch", state.IterationCount), batch)
	s.openTx = &tx

	result := o.coordinator.Execute(ctx, tools.Batch{
		ConversationID: s.id,
		WorkDir:        state.WorkingDirectory,
		Executed:       state.ExecutedToolCallIDs,
		Calls:          batch,
	})

	for _, r := range result.Results {
		s.tracer.Tool(state.IterationCount, r.ToolName, !r.Failed(), r.Error)
	}
	s.executedCommands = append(s.executedCommands, executedCommands(batch)...)

	return PhaseVerifier, StateDelta{
		AppendMessages:       result.Messages,
		ToolResults:          result.Results,
		ExecutedIDs:          result.ExecutedIDs,
		PendingToolCalls:     callsp(nil),
		ModifiedFiles:        append(result.AddedFiles, result.ModifiedFiles...),
		DeletedFiles:         result.DeletedFiles,
		LastBatchSignature:   strp(signature),
		RepeatSignatureCount: intp(repeat),
	}, nil
}

// batchSignature is the sorted name:arguments fingerprint of a batch.
func batchSignature(calls []types.ToolCall) string {
	if len(calls) == 0 {
		return ""
	}

	parts := make([]string, 0, len(calls))
	for _, call := range calls {
		args, _ := json.Marshal(call.Arguments)
		parts = append(parts, call.Name+":"+string(args))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

func executedCommands(calls []types.ToolCall) []string {
	var out []string
	for _, call := range calls {
		if call.Name != types.ToolCommandExecute {
			continue
		}
		if command := call.StringArg("command"); command != "" {
			out = append(out, command)
		}
	}
	return out
}
