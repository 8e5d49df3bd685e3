package risk_test

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/gomega"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"

	"github.com/jhl-labs/sepilot-desktop-sub001/risk"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

func TestUnitHistory(t *testing.T) {
	spec.Run(t, "Testing history", testHistory, spec.Report(report.Terminal{}))
}

func testHistory(t *testing.T, when spec.G, it spec.S) {
	var (
		mockCtrl *gomock.Controller
		mockClck *MockClock
		builder  *risk.HistoryBuilder
		now      time.Time
	)

	it.Before(func() {
		RegisterTestingT(t)
		mockCtrl = gomock.NewController(t)
		mockClck = NewMockClock(mockCtrl)
		builder = risk.NewHistoryBuilder(mockClck)
		now = time.Date(2025, 4, 12, 10, 30, 0, 0, time.UTC)
	})

	it.After(func() {
		mockCtrl.Finish()
	})

	when("HistoryBuilder.Entry()", func() {
		it("stamps entries with the clock time and a fresh id", func() {
			mockClck.EXPECT().Now().Return(now)

			entry := builder.Entry(types.ApprovalDecision{
				Status:    types.ApprovalApproved,
				RiskLevel: types.SeverityLow,
			}, types.ApprovalSourcePolicy, nil)

			Expect(entry.ID).NotTo(BeEmpty())
			Expect(entry.Timestamp).To(Equal(now))
			Expect(entry.Decision).To(Equal(types.ApprovalApproved))
			Expect(entry.Source).To(Equal(types.ApprovalSourcePolicy))
		})

		it("uses the decision note as the summary when present", func() {
			mockClck.EXPECT().Now().Return(now)

			entry := builder.Entry(types.ApprovalDecision{
				Status: types.ApprovalDenied,
				Note:   "dangerous command blocked: rm -rf /",
			}, types.ApprovalSourcePolicy, nil)

			Expect(entry.Summary).To(Equal("dangerous command blocked: rm -rf /"))
		})

		it("derives a summary for note-less approvals", func() {
			mockClck.EXPECT().Now().Return(now).Times(2)

			standing := builder.Entry(types.ApprovalDecision{
				Status:             types.ApprovalApproved,
				AlwaysApproveTools: true,
			}, types.ApprovalSourcePolicy, nil)
			oneTime := builder.Entry(types.ApprovalDecision{
				Status:         types.ApprovalApproved,
				OneTimeApprove: true,
			}, types.ApprovalSourceUser, nil)

			Expect(standing.Summary).To(ContainSubstring("standing approval"))
			Expect(oneTime.Summary).To(ContainSubstring("one-time"))
		})

		it("collects the risky tool-call ids", func() {
			mockClck.EXPECT().Now().Return(now)

			entry := builder.Entry(types.ApprovalDecision{
				Status: types.ApprovalFeedback,
				RiskyToolCalls: []types.ApprovalRiskItem{
					{ToolCallID: "c1"},
					{ToolCallID: "c2"},
				},
			}, types.ApprovalSourcePolicy, map[string]string{"iteration": "3"})

			Expect(entry.ToolCallIDs).To(Equal([]string{"c1", "c2"}))
			Expect(entry.Metadata).To(HaveKeyWithValue("iteration", "3"))
		})
	})

	when("Append()", func() {
		it("appends without mutating the original history", func() {
			mockClck.EXPECT().Now().Return(now).AnyTimes()

			first := builder.Entry(types.ApprovalDecision{Status: types.ApprovalApproved}, types.ApprovalSourcePolicy, nil)
			history := risk.Append(nil, first)

			second := builder.Entry(types.ApprovalDecision{Status: types.ApprovalDenied}, types.ApprovalSourceUser, nil)
			grown := risk.Append(history, second)

			Expect(history).To(HaveLen(1))
			Expect(grown).To(HaveLen(2))
			Expect(grown[0].Decision).To(Equal(types.ApprovalApproved))
			Expect(grown[1].Decision).To(Equal(types.ApprovalDenied))
		})
	})
}
