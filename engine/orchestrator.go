package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jhl-labs/sepilot-desktop-sub001/internal/clock"
	"github.com/jhl-labs/sepilot-desktop-sub001/internal/fsio"
	"github.com/jhl-labs/sepilot-desktop-sub001/risk"
	"github.com/jhl-labs/sepilot-desktop-sub001/snapshot"
	"github.com/jhl-labs/sepilot-desktop-sub001/tools"
	"github.com/jhl-labs/sepilot-desktop-sub001/trace"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
	"github.com/jhl-labs/sepilot-desktop-sub001/verify"
)

const (
	DefaultMaxIterations = 10
	DefaultGraphName     = "cowork"

	repeatSignatureLimit = 3
)

// Orchestrator drives the phase state machine for agent runs. One instance
// serves many concurrent sessions; all per-conversation state lives in the
// Session it is handed.
type Orchestrator struct {
	completer   ChatCompleter
	registry    *tools.Registry
	coordinator *tools.Coordinator
	clock       clock.Clock

	analyzer       *risk.Analyzer
	policy         *risk.Policy
	historyBuilder *risk.HistoryBuilder
	pipeline       *verify.Pipeline
	recommender    FileRecommender
	archive        ApprovalArchive
	graphs         *GraphRegistry
	compactor      *Compactor
	checklists     *ChecklistBuilder

	reader fsio.Reader
	writer fsio.Writer
	debug  *zap.SugaredLogger

	maxIterations    int
	defaultGraph     string
	skipVerification bool
}

type Option func(*Orchestrator)

func WithRiskAnalyzer(a *risk.Analyzer) Option {
	return func(o *Orchestrator) {
		if a != nil {
			o.analyzer = a
		}
	}
}

func WithVerifyPipeline(p *verify.Pipeline) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.pipeline = p
		}
	}
}

func WithFileRecommender(r FileRecommender) Option {
	return func(o *Orchestrator) { o.recommender = r }
}

func WithApprovalArchive(a ApprovalArchive) Option {
	return func(o *Orchestrator) { o.archive = a }
}

func WithGraphRegistry(r *GraphRegistry) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.graphs = r
		}
	}
}

func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

func WithDefaultGraph(name string) Option {
	return func(o *Orchestrator) {
		if name != "" {
			o.defaultGraph = name
		}
	}
}

func WithSkipVerification(v bool) Option {
	return func(o *Orchestrator) { o.skipVerification = v }
}

func WithDebugLogger(l *zap.SugaredLogger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.debug = l
		}
	}
}

func NewOrchestrator(completer ChatCompleter, registry *tools.Registry, coordinator *tools.Coordinator, c clock.Clock, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		completer:      completer,
		registry:       registry,
		coordinator:    coordinator,
		clock:          c,
		analyzer:       risk.NewAnalyzer(),
		policy:         risk.NewPolicy(),
		historyBuilder: risk.NewHistoryBuilder(c),
		pipeline:       verify.NewPipeline(tools.NewExecShellRunner()),
		recommender:    NewListingRecommender(),
		graphs:         NewGraphRegistry(),
		compactor:      NewCompactor(c),
		checklists:     NewChecklistBuilder(c),
		reader:         fsio.NewRealReader(fsio.DefaultBufferSize),
		writer:         &fsio.RealWriter{},
		debug:          zap.NewNop().Sugar(),
		maxIterations:  DefaultMaxIterations,
		defaultGraph:   DefaultGraphName,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SessionParams describe one conversational turn.
type SessionParams struct {
	ConversationID     string
	WorkingDirectory   string
	Goal               string
	InputTrustLevel    types.TrustLevel
	AlwaysApproveTools bool
	Callbacks          Callbacks
}

// NewSession builds the per-turn context: fresh state, its own snapshot
// manager and tracer, an owned event channel.
func (o *Orchestrator) NewSession(params SessionParams) *Session {
	id := params.ConversationID
	if id == "" {
		id = uuid.NewString()
	}
	trust := params.InputTrustLevel
	if trust == "" {
		trust = types.TrustTrusted
	}

	state := &types.AgentState{
		ConversationID:      id,
		Goal:                params.Goal,
		WorkingDirectory:    params.WorkingDirectory,
		Messages:            []types.Message{{Role: types.RoleUser, Content: params.Goal}},
		ExecutedToolCallIDs: make(map[string]struct{}),
		MaxIterations:       o.maxIterations,
		AlwaysApproveTools:  params.AlwaysApproveTools,
		InputTrustLevel:     trust,
	}

	return &Session{
		id:        id,
		state:     state,
		callbacks: params.Callbacks,
		events:    make(chan Event, eventBufferSize),
		tracer:    trace.NewCollector(o.clock),
		snapshots: snapshot.NewManager(params.WorkingDirectory, o.reader, o.writer, o.clock),
		next:      PhaseTriage,
		userText:  params.Goal,
	}
}

// Name and Stream make the orchestrator itself the default registered graph.
func (o *Orchestrator) Name() string { return DefaultGraphName }

func (o *Orchestrator) Stream(ctx context.Context, s *Session) error { return o.Run(ctx, s) }

// Run drives the machine until a terminal state or a pause. A pause returns
// ErrPaused with the event channel left open; Resume re-enters. Any other
// return closes the channel. Run blocks when the session's buffered event
// channel fills, so callers consume Events concurrently; see Session.Events.
func (o *Orchestrator) Run(ctx context.Context, s *Session) error {
	for s.next != PhaseDone {
		if err := ctx.Err(); err != nil {
			s.close()
			return err
		}

		err := o.step(ctx, s)
		if errors.Is(err, ErrPaused) {
			if emitErr := s.emit(Event{Type: EventPaused, Phase: s.next, Pause: s.pause}); emitErr != nil {
				s.close()
				return emitErr
			}
			return ErrPaused
		}
		if err != nil {
			o.failRun(ctx, s, err)
			return err
		}
	}

	s.close()
	return nil
}

// ResumeApproval re-enters a run paused at the approval gate.
func (o *Orchestrator) ResumeApproval(ctx context.Context, s *Session, token string, approved bool) error {
	if err := s.takePause(PauseReasonApproval, token); err != nil {
		return err
	}

	o.applyApprovalAnswer(s, approved, types.ApprovalSourceUser)
	if err := s.emit(Event{Type: EventApprovalResult, Phase: PhaseApproval, ApprovalGranted: boolp(approved)}); err != nil {
		s.close()
		return err
	}
	return o.Run(ctx, s)
}

// ResumeDiscuss re-enters a run paused at the discussion gate with the
// user's answer.
func (o *Orchestrator) ResumeDiscuss(ctx context.Context, s *Session, token string, answer string) error {
	if err := s.takePause(PauseReasonDiscuss, token); err != nil {
		return err
	}

	s.userText = answer
	apply(s.state, StateDelta{
		AppendMessages:       []types.Message{{Role: types.RoleUser, Content: answer}},
		AwaitingDiscussInput: boolp(false),
		DiscussQuestion:      strp(""),
	})
	s.next = PhaseGuard
	return o.Run(ctx, s)
}

func (s *Session) takePause(reason PauseReason, token string) error {
	if s.pause == nil {
		return errors.New("session is not paused")
	}
	if s.pause.Reason != reason || s.pause.Token != token {
		return fmt.Errorf("resume token %q does not match the pending %s pause", token, s.pause.Reason)
	}
	s.pause = nil
	return nil
}

func (o *Orchestrator) step(ctx context.Context, s *Session) error {
	phase := s.next
	span := s.tracer.StartPhase(string(phase), s.state.IterationCount)

	next, delta, err := o.dispatch(ctx, s, phase)
	if errors.Is(err, ErrPaused) {
		// a pausing node's delta still lands before the stream suspends
		apply(s.state, delta)
		return err
	}
	if err != nil {
		span.Error(err.Error())
		return err
	}

	apply(s.state, delta)
	span.End(string(next))
	s.next = next
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, s *Session, phase Phase) (Phase, StateDelta, error) {
	switch phase {
	case PhaseTriage:
		return o.runTriage(ctx, s)
	case PhaseDirect:
		return o.runDirect(ctx, s)
	case PhasePlanner:
		return o.runPlanner(ctx, s)
	case PhaseGuard:
		return o.runGuard(ctx, s)
	case PhaseAgent:
		return o.runAgent(ctx, s)
	case PhaseDiscuss:
		return o.runDiscuss(ctx, s)
	case PhaseApproval:
		return o.runApproval(ctx, s)
	case PhaseTools:
		return o.runTools(ctx, s)
	case PhaseVerifier:
		return o.runVerifier(ctx, s)
	case PhaseReporter:
		return o.runReporter(ctx, s)
	case PhaseDelegate:
		return PhaseDone, StateDelta{}, s.delegate.Stream(ctx, s)
	}
	return PhaseDone, StateDelta{}, fmt.Errorf("unknown phase %q", phase)
}

// runGuard is the iteration guard: it stops the loop at the cap and counts
// the iteration otherwise.
func (o *Orchestrator) runGuard(_ context.Context, s *Session) (Phase, StateDelta, error) {
	state := s.state

	if state.ForceTermination {
		return PhaseReporter, StateDelta{}, nil
	}
	if state.IterationCount >= state.MaxIterations {
		s.tracer.Decision(string(PhaseGuard), state.IterationCount, "max iterations reached")
		return PhaseReporter, StateDelta{
			ForceTermination:  boolp(true),
			TerminationReason: strp(TerminationMaxIterations),
		}, nil
	}

	next := state.IterationCount + 1
	if err := s.emit(Event{Type: EventNode, Phase: PhaseGuard, Iteration: next, Status: fmt.Sprintf("iteration %d/%d", next, state.MaxIterations)}); err != nil {
		return PhaseDone, StateDelta{}, err
	}
	return PhaseAgent, StateDelta{IterationCount: intp(next)}, nil
}

// failRun converts an unwinding error into error+end events. Aborts skip
// emission since the consumer is already gone.
func (o *Orchestrator) failRun(ctx context.Context, s *Session, err error) {
	o.debug.Debugf("run for %s unwound: %v", s.id, err)

	if !errors.Is(err, ErrAborted) && ctx.Err() == nil {
		_ = s.emit(Event{Type: EventError, Phase: s.next, Err: err.Error()})
		_ = s.emit(Event{Type: EventEnd})
	}
	s.close()
}
