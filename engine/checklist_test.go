package engine_test

import (
	"testing"

	. "github.com/onsi/gomega"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"

	"github.com/jhl-labs/sepilot-desktop-sub001/engine"
	"github.com/jhl-labs/sepilot-desktop-sub001/internal/clock"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
	"github.com/jhl-labs/sepilot-desktop-sub001/verify"
)

func TestUnitChecklist(t *testing.T) {
	spec.Run(t, "Testing the checklist builder", testChecklist, spec.Report(report.Terminal{}))
}

func testChecklist(t *testing.T, when spec.G, it spec.S) {
	var (
		builder *engine.ChecklistBuilder
		state   *types.AgentState
	)

	it.Before(func() {
		RegisterTestingT(t)
		builder = engine.NewChecklistBuilder(clock.NewRealClock())
		state = &types.AgentState{
			PlanSteps: []types.PlanStep{
				{Index: 0, Text: "Read the config", Tag: types.PlanTagTool},
				{Index: 1, Text: "Apply the change", Tag: types.PlanTagTool},
			},
			CurrentPlanStep: 1,
		}
	})

	when("ChecklistBuilder.Build()", func() {
		it("marks completed plan steps passed and remaining ones pending", func() {
			checklist := builder.Build(state, verify.Report{AllPassed: true, Skipped: true})

			Expect(checklist.Items[0].Status).To(Equal(types.ChecklistPassed))
			Expect(checklist.Items[1].Status).To(Equal(types.ChecklistPending))
			Expect(checklist.AllPassed).To(BeFalse())
		})

		it("reports skipped verification as a skipped item", func() {
			state.CurrentPlanStep = 2

			checklist := builder.Build(state, verify.Report{AllPassed: true, Skipped: true})

			Expect(checklist.AllPassed).To(BeTrue())
			Expect(checklist.Items).To(ContainElement(HaveField("Status", types.ChecklistSkipped)))
		})

		it("mirrors verification check failures", func() {
			state.CurrentPlanStep = 2
			report := verify.Report{Checks: []verify.CheckResult{
				{Name: verify.CheckTypeCheck, Passed: true, Message: "type-check passed"},
				{Name: verify.CheckLint, Passed: false, Message: "lint failed"},
			}}

			checklist := builder.Build(state, report)

			Expect(checklist.AllPassed).To(BeFalse())
			Expect(checklist.Items).To(ContainElement(And(
				HaveField("ID", "check-lint"),
				HaveField("Status", types.ChecklistFailed),
			)))
		})

		it("is rebuilt whole on every call", func() {
			first := builder.Build(state, verify.Report{AllPassed: true, Skipped: true})
			state.CompletionChecklist = first
			state.CurrentPlanStep = 2

			second := builder.Build(state, verify.Report{AllPassed: true, Skipped: true})

			Expect(first.Items[1].Status).To(Equal(types.ChecklistPending))
			Expect(second.Items[1].Status).To(Equal(types.ChecklistPassed))
		})

		it("summarizes tracked file changes", func() {
			state.CurrentPlanStep = 2
			state.ModifiedFiles = []string{"/repo/a.ts", "/repo/b.ts"}
			state.DeletedFiles = []string{"/repo/c.ts"}

			checklist := builder.Build(state, verify.Report{AllPassed: true, Skipped: true})

			Expect(checklist.Items).To(ContainElement(And(
				HaveField("ID", "file-changes"),
				HaveField("Detail", "2 modified, 1 deleted"),
			)))
		})
	})
}
