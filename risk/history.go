package risk

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jhl-labs/sepilot-desktop-sub001/internal/clock"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

//go:generate mockgen -destination=clockmocks_test.go -package=risk_test github.com/jhl-labs/sepilot-desktop-sub001/internal/clock Clock

// HistoryBuilder normalizes approval decisions into append-only history
// entries.
type HistoryBuilder struct {
	clock clock.Clock
}

func NewHistoryBuilder(c clock.Clock) *HistoryBuilder {
	return &HistoryBuilder{clock: c}
}

func (b *HistoryBuilder) Entry(decision types.ApprovalDecision, source types.ApprovalSource, metadata map[string]string) types.ApprovalHistoryEntry {
	return types.ApprovalHistoryEntry{
		ID:          uuid.NewString(),
		Timestamp:   b.clock.Now().UTC(),
		Decision:    decision.Status,
		Source:      source,
		Summary:     entrySummary(decision),
		RiskLevel:   decision.RiskLevel,
		ToolCallIDs: callIDs(decision.RiskyToolCalls),
		Metadata:    metadata,
	}
}

// Append returns history with entry added. History is never mutated in
// place; earlier entries keep their positions.
func Append(history []types.ApprovalHistoryEntry, entry types.ApprovalHistoryEntry) []types.ApprovalHistoryEntry {
	out := make([]types.ApprovalHistoryEntry, 0, len(history)+1)
	out = append(out, history...)
	return append(out, entry)
}

func entrySummary(decision types.ApprovalDecision) string {
	if note := strings.TrimSpace(decision.Note); note != "" {
		return note
	}

	switch decision.Status {
	case types.ApprovalApproved:
		switch {
		case decision.AlwaysApproveTools:
			return "approved by standing approval"
		case decision.OneTimeApprove:
			return "approved by one-time user approval"
		default:
			return "approved"
		}
	case types.ApprovalFeedback:
		return "awaiting user approval"
	case types.ApprovalDenied:
		return "denied"
	}
	return string(decision.Status)
}

func callIDs(items []types.ApprovalRiskItem) []string {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ToolCallID)
	}
	return ids
}
