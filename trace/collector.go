package trace

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jhl-labs/sepilot-desktop-sub001/internal/clock"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// DefaultMaxEntries bounds the trace; older entries are dropped first.
const DefaultMaxEntries = 200

const metadataStatusKey = "status"

// Collector records per-phase start/end/decision/error events for one agent
// run. Bounded FIFO; safe for concurrent snapshots while the run appends.
type Collector struct {
	clock clock.Clock

	mu      sync.Mutex
	max     int
	entries []types.TraceEntry
}

type Option func(*Collector)

func WithMaxEntries(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.max = n
		}
	}
}

func NewCollector(c clock.Clock, opts ...Option) *Collector {
	collector := &Collector{clock: c, max: DefaultMaxEntries}
	for _, o := range opts {
		o(collector)
	}
	return collector
}

// Span is one in-flight phase; End or Error closes it with a duration.
type Span struct {
	collector *Collector
	phase     string
	iteration int
	started   int64
}

// StartPhase records a start entry and returns the span handle.
func (c *Collector) StartPhase(phase string, iteration int) *Span {
	now := c.clock.Now()
	c.append(types.TraceEntry{
		ID:        uuid.NewString(),
		Timestamp: now,
		Phase:     phase,
		Event:     types.TraceStart,
		Iteration: iteration,
	})
	return &Span{collector: c, phase: phase, iteration: iteration, started: now.UnixMilli()}
}

func (s *Span) End(note string) {
	now := s.collector.clock.Now()
	s.collector.append(types.TraceEntry{
		ID:         uuid.NewString(),
		Timestamp:  now,
		Phase:      s.phase,
		Event:      types.TraceEnd,
		Iteration:  s.iteration,
		DurationMs: now.UnixMilli() - s.started,
		Note:       note,
	})
}

func (s *Span) Error(note string) {
	now := s.collector.clock.Now()
	s.collector.append(types.TraceEntry{
		ID:         uuid.NewString(),
		Timestamp:  now,
		Phase:      s.phase,
		Event:      types.TraceError,
		Iteration:  s.iteration,
		DurationMs: now.UnixMilli() - s.started,
		Note:       note,
	})
}

// Decision records an instantaneous decision within a phase.
func (c *Collector) Decision(phase string, iteration int, note string) {
	c.append(types.TraceEntry{
		ID:        uuid.NewString(),
		Timestamp: c.clock.Now(),
		Phase:     phase,
		Event:     types.TraceDecision,
		Iteration: iteration,
		Note:      note,
	})
}

// Approval records one approval resolution.
func (c *Collector) Approval(iteration int, status types.ApprovalStatus, note string) {
	var approved *bool
	switch status {
	case types.ApprovalApproved:
		v := true
		approved = &v
	case types.ApprovalDenied:
		v := false
		approved = &v
	}

	c.append(types.TraceEntry{
		ID:        uuid.NewString(),
		Timestamp: c.clock.Now(),
		Phase:     "approval",
		Event:     types.TraceDecision,
		Iteration: iteration,
		Note:      note,
		Approved:  approved,
		Metadata:  map[string]string{metadataStatusKey: string(status)},
	})
}

// Tool records one tool invocation outcome.
func (c *Collector) Tool(iteration int, toolName string, success bool, note string) {
	event := types.TraceEnd
	if !success {
		event = types.TraceError
	}
	c.append(types.TraceEntry{
		ID:        uuid.NewString(),
		Timestamp: c.clock.Now(),
		Phase:     "tools",
		Event:     event,
		Iteration: iteration,
		ToolName:  toolName,
		Note:      note,
	})
}

// Entries returns a snapshot copy.
func (c *Collector) Entries() []types.TraceEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]types.TraceEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Metrics aggregates latency, tool and approval counts from the current
// entries.
func (c *Collector) Metrics() types.TraceMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	metrics := types.TraceMetrics{NodeLatencyMs: make(map[string]int64)}

	for _, entry := range c.entries {
		if entry.ToolName != "" {
			metrics.Tools.Total++
			if entry.Event == types.TraceError {
				metrics.Tools.Failed++
			} else {
				metrics.Tools.Success++
			}
			continue
		}

		switch entry.Event {
		case types.TraceEnd:
			metrics.NodeLatencyMs[entry.Phase] += entry.DurationMs
		case types.TraceDecision:
			switch types.ApprovalStatus(entry.Metadata[metadataStatusKey]) {
			case types.ApprovalApproved:
				metrics.Approvals.Approved++
			case types.ApprovalDenied:
				metrics.Approvals.Denied++
			case types.ApprovalFeedback:
				metrics.Approvals.Feedback++
			}
		}
	}

	return metrics
}

func (c *Collector) append(entry types.TraceEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, entry)
	if len(c.entries) > c.max {
		c.entries = c.entries[len(c.entries)-c.max:]
	}
}
