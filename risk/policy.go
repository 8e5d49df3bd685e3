package risk

import (
	"fmt"
	"strings"

	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// approvalPhrases are the natural-language tokens that grant a one-time
// approval for the current turn. Only honored for trusted input. The table
// must not contain words the engine's own synthetic continuation messages
// use ("Approved. Continue."), or a single grant would keep re-matching.
var approvalPhrases = []string{"승인", "허용"}

// mandatoryReasons can never be bypassed by alwaysApproveTools or a
// natural-language approval.
var mandatoryReasons = map[types.RiskReason]bool{
	types.RiskOutsideWorkdirCommand: true,
	types.RiskHTTPRequestCommand:    true,
}

type Policy struct{}

func NewPolicy() *Policy { return &Policy{} }

// Resolve turns a risk analysis into an approval decision. Dangerous items
// deny outright; mandatory items always demand feedback; explicit-approval
// items demand feedback unless a standing or same-turn approval is in
// effect. Untrusted input cannot self-approve, and its feedback notes carry
// an untrusted-input marker.
func (p *Policy) Resolve(analysis types.RiskAnalysis, ctx Context) types.ApprovalDecision {
	if !analysis.Risky() {
		return types.ApprovalDecision{
			Status:    types.ApprovalApproved,
			RiskLevel: types.SeverityLow,
		}
	}

	untrusted := ctx.InputTrustLevel == types.TrustUntrusted

	if item, ok := firstByReason(analysis.Items, types.RiskDangerousCommand); ok {
		return types.ApprovalDecision{
			Status:         types.ApprovalDenied,
			Note:           fmt.Sprintf("dangerous command blocked: %s", item.Command),
			RiskLevel:      analysis.RiskLevel,
			RiskyToolCalls: analysis.Items,
		}
	}

	if item, ok := firstMandatory(analysis.Items); ok {
		return types.ApprovalDecision{
			Status:         types.ApprovalFeedback,
			Note:           markIfUntrusted(untrusted, fmt.Sprintf("approval required: %s", item.Summary)),
			RiskLevel:      analysis.RiskLevel,
			RiskyToolCalls: analysis.Items,
		}
	}

	if ctx.AlwaysApproveTools {
		return types.ApprovalDecision{
			Status:             types.ApprovalApproved,
			RiskLevel:          analysis.RiskLevel,
			RiskyToolCalls:     analysis.Items,
			AlwaysApproveTools: true,
		}
	}

	if !untrusted && containsApprovalPhrase(ctx.UserText) {
		return types.ApprovalDecision{
			Status:         types.ApprovalApproved,
			RiskLevel:      analysis.RiskLevel,
			RiskyToolCalls: analysis.Items,
			OneTimeApprove: true,
		}
	}

	return types.ApprovalDecision{
		Status:         types.ApprovalFeedback,
		Note:           markIfUntrusted(untrusted, summarizeItems(analysis.Items)),
		RiskLevel:      analysis.RiskLevel,
		RiskyToolCalls: analysis.Items,
	}
}

func containsApprovalPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range approvalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func markIfUntrusted(untrusted bool, note string) string {
	if untrusted {
		return untrustedInputMarker + " " + note
	}
	return note
}

func firstByReason(items []types.ApprovalRiskItem, reason types.RiskReason) (types.ApprovalRiskItem, bool) {
	for _, item := range items {
		if item.Reason == reason {
			return item, true
		}
	}
	return types.ApprovalRiskItem{}, false
}

func firstMandatory(items []types.ApprovalRiskItem) (types.ApprovalRiskItem, bool) {
	for _, item := range items {
		if mandatoryReasons[item.Reason] {
			return item, true
		}
	}
	return types.ApprovalRiskItem{}, false
}

func summarizeItems(items []types.ApprovalRiskItem) string {
	if len(items) == 1 {
		return "approval required: " + items[0].Summary
	}

	var parts []string
	for _, item := range items {
		parts = append(parts, item.Summary)
	}
	return fmt.Sprintf("approval required for %d risky calls: %s", len(items), strings.Join(parts, "; "))
}
