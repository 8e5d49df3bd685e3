package engine

import (
	"context"

	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// ToolCallPayload is a tool call exactly as the model provider reported it.
// IDs may be missing and Arguments may be malformed JSON; the engine
// tolerates both (see normalizeToolCalls).
type ToolCallPayload struct {
	ID        string
	Name      string
	Arguments string
}

type CompletionRequest struct {
	Messages    []types.Message
	Tools       []types.ToolSchema
	Temperature *float64
}

type Completion struct {
	Text      string
	ToolCalls []ToolCallPayload
}

// ChatCompleter is the chat-completion collaborator. Implementations stream
// content deltas through onDelta and return the accumulated text plus any
// tool calls the model decided on.
//
//go:generate mockgen -destination=completermocks_test.go -package=engine_test github.com/jhl-labs/sepilot-desktop-sub001/engine ChatCompleter
type ChatCompleter interface {
	Complete(ctx context.Context, req CompletionRequest, onDelta func(delta string)) (Completion, error)
}

// FileRecommender suggests files relevant to a prompt; the planner unions
// its answer with path-like tokens extracted from the prompt itself.
//
//go:generate mockgen -destination=recommendermocks_test.go -package=engine_test github.com/jhl-labs/sepilot-desktop-sub001/engine FileRecommender
type FileRecommender interface {
	RecommendFiles(ctx context.Context, workdir, prompt string) []string
}

// ApprovalArchive receives the turn's approval history at report time,
// fire-and-forget.
type ApprovalArchive interface {
	ArchiveApprovals(ctx context.Context, conversationID string, entries []types.ApprovalHistoryEntry) error
}
