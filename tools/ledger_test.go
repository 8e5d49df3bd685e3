package tools_test

import (
	"testing"

	. "github.com/onsi/gomega"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"

	"github.com/jhl-labs/sepilot-desktop-sub001/tools"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

func TestUnitLedger(t *testing.T) {
	spec.Run(t, "Testing ledger", testLedger, spec.Report(report.Terminal{}))
}

func testLedger(t *testing.T, when spec.G, it spec.S) {
	it.Before(func() {
		RegisterTestingT(t)
	})

	when("FilterPending()", func() {
		it("keeps only calls that have not run yet", func() {
			executed := map[string]struct{}{"a": {}, "b": {}}
			calls := []types.ToolCall{
				{ID: "a", Name: "one"},
				{ID: "c", Name: "two"},
				{ID: "b", Name: "three"},
			}

			pending, skipped := tools.FilterPending(executed, calls)

			Expect(pending).To(HaveLen(1))
			Expect(pending[0].ID).To(Equal("c"))
			Expect(skipped).To(Equal([]string{"a", "b"}))
		})

		it("treats calls without an id as pending", func() {
			pending, skipped := tools.FilterPending(map[string]struct{}{"a": {}}, []types.ToolCall{{Name: "anon"}})

			Expect(pending).To(HaveLen(1))
			Expect(skipped).To(BeEmpty())
		})

		it("handles a nil executed set", func() {
			pending, skipped := tools.FilterPending(nil, []types.ToolCall{{ID: "a"}})

			Expect(pending).To(HaveLen(1))
			Expect(skipped).To(BeEmpty())
		})
	})

	when("MergeExecutedIDs()", func() {
		it("unions without mutating the input", func() {
			original := map[string]struct{}{"a": {}}

			merged := tools.MergeExecutedIDs(original, []string{"b", "c"})

			Expect(merged).To(HaveLen(3))
			Expect(merged).To(HaveKey("a"))
			Expect(merged).To(HaveKey("b"))
			Expect(merged).To(HaveKey("c"))
			Expect(original).To(HaveLen(1))
		})

		it("ignores empty ids", func() {
			merged := tools.MergeExecutedIDs(nil, []string{"", "a"})

			Expect(merged).To(HaveLen(1))
			Expect(merged).To(HaveKey("a"))
		})
	})
}
