package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jhl-labs/sepilot-desktop-sub001/snapshot"
	"github.com/jhl-labs/sepilot-desktop-sub001/trace"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

const eventBufferSize = 64

// ApprovalFunc resolves a feedback decision with an external human answer.
type ApprovalFunc func(ctx context.Context, req types.ApprovalRequest) (bool, error)

// DiscussFunc answers a [DISCUSS] plan step.
type DiscussFunc func(ctx context.Context, stepIndex int, question string) (string, error)

// Callbacks are the optional human-in-the-loop collaborators. A missing
// callback makes the corresponding gate pause instead of blocking.
type Callbacks struct {
	Approval ApprovalFunc
	Discuss  DiscussFunc
}

// Session owns everything one conversation's run touches: the state, the
// event channel, the gate callbacks, the abort flag, the per-run snapshot
// manager and tracer. Nothing here is shared between conversations.
type Session struct {
	id        string
	state     *types.AgentState
	callbacks Callbacks
	events    chan Event
	closeOnce sync.Once
	aborted   atomic.Bool

	tracer    *trace.Collector
	snapshots *snapshot.Manager

	next     Phase
	pause    *Pause
	delegate Graph

	// per-turn bookkeeping the next phases read
	openTx           *types.Transaction
	pendingDecision  *types.ApprovalDecision
	rollbackPoints   []types.RollbackPoint
	executedCommands []string
	lastBatchSize    int

	// userText holds the latest genuine user input (the goal, then each
	// discussion answer). Synthetic continuation messages never land here;
	// the approval gate consumes it when a one-time approval fires.
	userText string
}

func (s *Session) ID() string { return s.id }

// Events is the stream the caller consumes. It is closed exactly once, when
// the run reaches a terminal state; a pause leaves it open. The channel is
// buffered (64 slots) and the run blocks once it fills, so callers must
// drain it concurrently with Run unless the run is known to be short.
func (s *Session) Events() <-chan Event { return s.events }

// State exposes the live state record. Callers copy out what they need
// (approval history, trace) before discarding the session.
func (s *Session) State() *types.AgentState { return s.state }

// Paused reports the current suspension, if any.
func (s *Session) Paused() *Pause { return s.pause }

// RollbackPoints are the recorded file-change points, for external display
// and undo.
func (s *Session) RollbackPoints() []types.RollbackPoint { return s.rollbackPoints }

// Abort requests immediate unwind; it is honored at the next emission.
func (s *Session) Abort() { s.aborted.Store(true) }

func (s *Session) emit(event Event) error {
	if s.aborted.Load() {
		return ErrAborted
	}
	s.events <- event
	return nil
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.events) })
}
