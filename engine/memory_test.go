package engine_test

import (
	"fmt"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"

	"github.com/jhl-labs/sepilot-desktop-sub001/engine"
	"github.com/jhl-labs/sepilot-desktop-sub001/internal/clock"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

func TestUnitCompactor(t *testing.T) {
	spec.Run(t, "Testing the working-memory compactor", testCompactor, spec.Report(report.Terminal{}))
}

func testCompactor(t *testing.T, when spec.G, it spec.S) {
	var (
		compactor *engine.Compactor
		state     *types.AgentState
	)

	it.Before(func() {
		RegisterTestingT(t)
		compactor = engine.NewCompactor(clock.NewRealClock())
		state = &types.AgentState{Goal: "add a health endpoint"}
	})

	when("Compactor.Update()", func() {
		it("summarizes the task and the current plan step", func() {
			state.PlanSteps = []types.PlanStep{
				{Index: 0, Text: "Read the router", Tag: types.PlanTagTool},
				{Index: 1, Text: "Add the endpoint", Tag: types.PlanTagTool},
			}
			state.CurrentPlanStep = 1

			memory := compactor.Update(state)

			Expect(memory.TaskSummary).To(Equal("add a health endpoint"))
			Expect(memory.LatestPlanStep).To(Equal("step 2/2: Add the endpoint"))
		})

		it("keeps at most 12 key decisions, dropping the oldest first", func() {
			for i := 0; i < 30; i++ {
				state.WorkingMemory = compactor.Update(state, fmt.Sprintf("decision %d", i))
			}

			memory := state.WorkingMemory
			Expect(memory.KeyDecisions).To(HaveLen(engine.MaxKeyDecisions))
			Expect(memory.KeyDecisions[0]).To(Equal("decision 18"))
			Expect(memory.KeyDecisions[11]).To(Equal("decision 29"))
		})

		it("keeps at most 12 recent tool outcomes", func() {
			output := "ok"
			for i := 0; i < 40; i++ {
				state.ToolResults = append(state.ToolResults, types.ToolExecutionResult{
					ToolCallID: fmt.Sprintf("c%d", i),
					ToolName:   types.ToolFileWrite,
					Result:     &output,
				})
			}

			memory := compactor.Update(state)

			Expect(memory.RecentToolOutcomes).To(HaveLen(engine.MaxRecentToolOutcomes))
		})

		it("caps the file-change list at 20 while keeping the true counts", func() {
			for i := 0; i < 25; i++ {
				state.ModifiedFiles = append(state.ModifiedFiles, fmt.Sprintf("/repo/file%d.ts", i))
			}
			state.DeletedFiles = []string{"/repo/old.ts"}

			memory := compactor.Update(state)

			Expect(memory.FileChanges.Files).To(HaveLen(engine.MaxFileChangeEntries))
			Expect(memory.FileChanges.Modified).To(Equal(25))
			Expect(memory.FileChanges.Deleted).To(Equal(1))
		})

		it("marks failed tool results as unsuccessful outcomes", func() {
			state.ToolResults = []types.ToolExecutionResult{
				{ToolCallID: "c1", ToolName: types.ToolCommandExecute, Error: "timed out"},
			}

			memory := compactor.Update(state)

			Expect(memory.RecentToolOutcomes).To(HaveLen(1))
			Expect(memory.RecentToolOutcomes[0].Success).To(BeFalse())
			Expect(memory.RecentToolOutcomes[0].Summary).To(ContainSubstring("timed out"))
		})

		it("never mutates the previous memory value", func() {
			first := compactor.Update(state, "keep me")
			state.WorkingMemory = first

			_ = compactor.Update(state, "second")

			Expect(first.KeyDecisions).To(Equal([]string{"keep me"}))
		})
	})
}
