package engine

import (
	"fmt"

	"github.com/jhl-labs/sepilot-desktop-sub001/internal/clock"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// Bounds for the working memory. Dropping the oldest entries is the point:
// the summary must stay small enough to feed back into a long loop's
// context.
const (
	MaxKeyDecisions       = 12
	MaxRecentToolOutcomes = 12
	MaxFileChangeEntries  = 20

	taskSummaryMaxChars = 240
	outcomeMaxChars     = 160
)

// Compactor derives the bounded working-memory summary from state. Every
// update returns a fresh value; the previous one is never mutated.
type Compactor struct {
	clock clock.Clock
}

func NewCompactor(c clock.Clock) *Compactor {
	return &Compactor{clock: c}
}

// Update folds the given decisions and the state's latest tool results into
// a new working memory, FIFO-trimming every bounded list.
func (c *Compactor) Update(state *types.AgentState, decisions ...string) *types.WorkingMemory {
	memory := types.WorkingMemory{
		TaskSummary: truncate(state.Goal, taskSummaryMaxChars),
		LastUpdated: c.clock.Now().UTC(),
	}

	if step, ok := currentStep(state); ok {
		memory.LatestPlanStep = fmt.Sprintf("step %d/%d: %s", step.Index+1, len(state.PlanSteps), step.Text)
	}

	if prev := state.WorkingMemory; prev != nil {
		memory.KeyDecisions = append(memory.KeyDecisions, prev.KeyDecisions...)
	}
	for _, decision := range decisions {
		if decision != "" {
			memory.KeyDecisions = append(memory.KeyDecisions, decision)
		}
	}
	memory.KeyDecisions = trimOldest(memory.KeyDecisions, MaxKeyDecisions)

	memory.RecentToolOutcomes = recentOutcomes(state.ToolResults)
	memory.FileChanges = fileChangeSummary(state)

	return &memory
}

func recentOutcomes(results []types.ToolExecutionResult) []types.ToolOutcome {
	var out []types.ToolOutcome
	for _, result := range results {
		outcome := types.ToolOutcome{ToolName: result.ToolName, Success: !result.Failed()}
		switch {
		case result.Failed():
			outcome.Summary = truncate(result.Error, outcomeMaxChars)
		case result.Result != nil:
			outcome.Summary = truncate(*result.Result, outcomeMaxChars)
		}
		out = append(out, outcome)
	}
	return trimOldest(out, MaxRecentToolOutcomes)
}

func fileChangeSummary(state *types.AgentState) types.FileChangeSummary {
	summary := types.FileChangeSummary{
		Modified: len(state.ModifiedFiles),
		Deleted:  len(state.DeletedFiles),
	}
	files := append(append([]string(nil), state.ModifiedFiles...), state.DeletedFiles...)
	summary.Files = trimOldest(files, MaxFileChangeEntries)
	return summary
}

// trimOldest keeps the newest max entries, dropping from the front.
func trimOldest[T any](entries []T, max int) []T {
	if len(entries) <= max {
		return entries
	}
	return append([]T(nil), entries[len(entries)-max:]...)
}

func currentStep(state *types.AgentState) (types.PlanStep, bool) {
	if state.CurrentPlanStep < 0 || state.CurrentPlanStep >= len(state.PlanSteps) {
		return types.PlanStep{}, false
	}
	return state.PlanSteps[state.CurrentPlanStep], true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
