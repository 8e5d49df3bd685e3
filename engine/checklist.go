package engine

import (
	"fmt"

	"github.com/jhl-labs/sepilot-desktop-sub001/internal/clock"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
	"github.com/jhl-labs/sepilot-desktop-sub001/verify"
)

// ChecklistBuilder derives the completion checklist the verifier publishes
// after every pass. The checklist is rebuilt whole each time, never patched.
type ChecklistBuilder struct {
	clock clock.Clock
}

func NewChecklistBuilder(c clock.Clock) *ChecklistBuilder {
	return &ChecklistBuilder{clock: c}
}

func (b *ChecklistBuilder) Build(state *types.AgentState, report verify.Report) *types.CompletionChecklist {
	checklist := types.CompletionChecklist{
		GeneratedAt: b.clock.Now().UTC(),
		AllPassed:   true,
	}

	for i, step := range state.PlanSteps {
		item := types.ChecklistItem{
			ID:     fmt.Sprintf("step-%d", i+1),
			Title:  step.Text,
			Status: types.ChecklistPending,
		}
		if i < state.CurrentPlanStep {
			item.Status = types.ChecklistPassed
		}
		checklist.Add(item)
	}

	switch {
	case report.Skipped:
		checklist.Add(types.ChecklistItem{
			ID:     "verification",
			Title:  "Automated verification",
			Status: types.ChecklistSkipped,
			Detail: "no modified files",
		})
	default:
		for _, check := range report.Checks {
			item := types.ChecklistItem{
				ID:     "check-" + check.Name,
				Title:  check.Name,
				Status: types.ChecklistPassed,
				Detail: check.Message,
			}
			if !check.Passed {
				item.Status = types.ChecklistFailed
			}
			checklist.Add(item)
		}
	}

	if n := len(state.ModifiedFiles) + len(state.DeletedFiles); n > 0 {
		checklist.Add(types.ChecklistItem{
			ID:     "file-changes",
			Title:  "File changes tracked",
			Status: types.ChecklistPassed,
			Detail: fmt.Sprintf("%d modified, %d deleted", len(state.ModifiedFiles), len(state.DeletedFiles)),
		})
	}

	return &checklist
}
