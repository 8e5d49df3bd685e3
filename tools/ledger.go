package tools

import (
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// FilterPending splits a batch into calls not yet executed and the ids that
// were skipped because they already ran. A call with an empty id is always
// pending; id synthesis happens upstream.
func FilterPending(executed map[string]struct{}, calls []types.ToolCall) (pending []types.ToolCall, skipped []string) {
	for _, call := range calls {
		if call.ID != "" {
			if _, done := executed[call.ID]; done {
				skipped = append(skipped, call.ID)
				continue
			}
		}
		pending = append(pending, call)
	}
	return pending, skipped
}

// MergeExecutedIDs returns a new set containing the old ids plus the new
// ones. The input map is never mutated; state updates are merge-by-copy.
func MergeExecutedIDs(executed map[string]struct{}, ids []string) map[string]struct{} {
	merged := make(map[string]struct{}, len(executed)+len(ids))
	for id := range executed {
		merged[id] = struct{}{}
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		merged[id] = struct{}{}
	}
	return merged
}
