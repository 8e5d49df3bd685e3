package tools

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jhl-labs/sepilot-desktop-sub001/internal/clock"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

const (
	DefaultToolTimeout = 6 * time.Minute
	DefaultMaxRetries  = 2

	retryBackoffBase = 2 * time.Second
	resultMaxBytes   = 64_000
)

const (
	StatusOK     = "ok"
	StatusDryRun = "dry-run"
	StatusError  = "error"
)

// ActivitySink receives one record per tool invocation, for external audit.
// Append failures are logged and never fail the call.
//
//go:generate mockgen -destination=sinkmocks_test.go -package=tools_test github.com/jhl-labs/sepilot-desktop-sub001/tools ActivitySink
type ActivitySink interface {
	Append(ctx context.Context, record types.ActivityRecord) error
}

// Batch is one approved set of pending tool calls plus the run context the
// coordinator needs to execute them.
type Batch struct {
	ConversationID string
	WorkDir        string
	Executed       map[string]struct{}
	Calls          []types.ToolCall
}

// BatchResult reports everything the orchestrator merges back into state
// after a batch: per-call results, their tool-role messages, the id ledger
// delta and the workdir file delta.
type BatchResult struct {
	Results  []types.ToolExecutionResult
	Messages []types.Message

	ExecutedIDs []string
	SkippedIDs  []string

	AddedFiles    []string
	ModifiedFiles []string
	DeletedFiles  []string
}

// Coordinator executes approved tool-call batches strictly sequentially so
// snapshot and file-delta bookkeeping stay attributable to one batch.
type Coordinator struct {
	registry *Registry
	clock    clock.Clock
	sink     ActivitySink
	debug    *zap.SugaredLogger

	timeout time.Duration
	retries int
	dryRun  bool
}

type CoordinatorOption func(*Coordinator)

func WithToolTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMaxRetries(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n >= 0 {
			c.retries = n
		}
	}
}

func WithDryRun(v bool) CoordinatorOption {
	return func(c *Coordinator) { c.dryRun = v }
}

func WithActivitySink(s ActivitySink) CoordinatorOption {
	return func(c *Coordinator) { c.sink = s }
}

func WithCoordinatorDebugLogger(l *zap.SugaredLogger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.debug = l
		}
	}
}

func NewCoordinator(registry *Registry, c clock.Clock, opts ...CoordinatorOption) *Coordinator {
	coordinator := &Coordinator{
		registry: registry,
		clock:    c,
		debug:    zap.NewNop().Sugar(),
		timeout:  DefaultToolTimeout,
		retries:  DefaultMaxRetries,
	}
	for _, o := range opts {
		o(coordinator)
	}
	return coordinator
}

// Execute runs the batch in received order. Calls whose id is already in
// the executed set are skipped entirely and never re-dispatched. Every
// result, success or error, yields a tool-role message so the model can
// react; failures never escape as errors.
func (c *Coordinator) Execute(ctx context.Context, batch Batch) BatchResult {
	var out BatchResult

	pending, skipped := FilterPending(batch.Executed, batch.Calls)
	out.SkippedIDs = skipped
	for _, id := range skipped {
		c.debug.Debugf("skipping already executed tool call %s", id)
	}
	if len(pending) == 0 {
		return out
	}

	before := Listing(batch.WorkDir)

	for _, call := range pending {
		result := c.executeOne(ctx, batch.ConversationID, call)
		out.Results = append(out.Results, result)
		out.Messages = append(out.Messages, toolMessage(result))
		out.ExecutedIDs = append(out.ExecutedIDs, call.ID)
	}

	after := Listing(batch.WorkDir)
	out.AddedFiles, out.ModifiedFiles, out.DeletedFiles = DiffListings(before, after)

	return out
}

func (c *Coordinator) executeOne(ctx context.Context, conversationID string, call types.ToolCall) types.ToolExecutionResult {
	start := c.clock.Now()
	result := types.ToolExecutionResult{ToolCallID: call.ID, ToolName: call.Name}

	if !c.registry.Allowed(call.Name) {
		result.Error = DisabledToolError{Name: call.Name}.Error()
		c.record(ctx, conversationID, call, result, start)
		return result
	}
	if !c.registry.Resolvable(call.Name) {
		result.Error = UnknownToolError{Name: call.Name}.Error()
		c.record(ctx, conversationID, call, result, start)
		return result
	}

	if c.dryRun {
		output := fmt.Sprintf("dry-run: %s not executed", call.Name)
		result.Result = &output
		c.record(ctx, conversationID, call, result, start)
		return result
	}

	var (
		output string
		err    error
	)
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := retryBackoffBase << (attempt - 1)
			c.debug.Debugf("retrying tool %s (attempt %d) after %s: %v", call.Name, attempt+1, backoff, err)
			if sleepErr := c.clock.Sleep(ctx, backoff); sleepErr != nil {
				err = sleepErr
				break
			}
		}

		output, err = c.dispatch(ctx, conversationID, call)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	if err != nil {
		result.Error = err.Error()
	} else {
		truncated := limitResult(output, resultMaxBytes)
		result.Result = &truncated
	}

	c.record(ctx, conversationID, call, result, start)
	return result
}

func (c *Coordinator) dispatch(ctx context.Context, conversationID string, call types.ToolCall) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.registry.Dispatch(attemptCtx, call, conversationID)
}

// record appends one activity record, fire-and-forget.
func (c *Coordinator) record(ctx context.Context, conversationID string, call types.ToolCall, result types.ToolExecutionResult, start time.Time) {
	if c.sink == nil {
		return
	}

	status := StatusOK
	switch {
	case result.Failed():
		status = StatusError
	case c.dryRun:
		status = StatusDryRun
	}

	rendered := ""
	if result.Result != nil {
		rendered = *result.Result
	} else if result.Error != "" {
		rendered = "Error: " + result.Error
	}

	record := types.ActivityRecord{
		ConversationID: conversationID,
		ToolName:       call.Name,
		Arguments:      call.Arguments,
		Result:         limitResult(rendered, resultMaxBytes),
		Status:         status,
		DurationMs:     c.clock.Now().Sub(start).Milliseconds(),
		Timestamp:      start,
	}
	if err := c.sink.Append(ctx, record); err != nil {
		c.debug.Debugf("activity sink append failed for %s: %v", call.Name, err)
	}
}

func toolMessage(result types.ToolExecutionResult) types.Message {
	content := ""
	switch {
	case result.Failed():
		content = "Error: " + result.Error
	case result.Result != nil:
		content = *result.Result
	}
	if content == "" {
		content = "(no output)"
	}

	return types.Message{
		Role:       types.RoleTool,
		Content:    content,
		ToolCallID: result.ToolCallID,
	}
}

func limitResult(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "\n…(truncated)\n"
}
