package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// triageTemperature keeps the classification call deterministic.
var triageTemperature = 0.0

const triagePrompt = `Classify the user request below.
Answer with exactly one word: SIMPLE if it can be answered directly without reading files or running commands, COMPLEX otherwise.

Request: %s`

// actionKeywords fast-path a request into the full pipeline without a model
// call. Bilingual: the original product serves Korean and English users.
var actionKeywords = []string{
	"create", "write", "edit", "modify", "fix", "refactor", "implement",
	"delete", "remove", "rename", "run", "execute", "install", "build",
	"test", "file", "command", "script",
	"만들", "생성", "작성", "수정", "고쳐", "삭제", "실행", "설치", "파일", "명령",
}

func (o *Orchestrator) runTriage(ctx context.Context, s *Session) (Phase, StateDelta, error) {
	if err := s.emit(Event{Type: EventNode, Phase: PhaseTriage, Status: "classifying request"}); err != nil {
		return PhaseDone, StateDelta{}, err
	}

	if matchesActionKeyword(s.state.Goal) {
		s.tracer.Decision(string(PhaseTriage), 0, "keyword fast-path: complex")
		return o.routeComplex(s), StateDelta{TriageDecision: triagep(types.TriageComplex)}, nil
	}

	messages := []types.Message{{Role: types.RoleUser, Content: fmt.Sprintf(triagePrompt, s.state.Goal)}}
	completion, err := o.completer.Complete(ctx, CompletionRequest{Messages: messages, Temperature: &triageTemperature}, nil)
	if err != nil {
		// Classification is advisory; a failed call falls back to the full
		// pipeline rather than ending the turn.
		o.debug.Debugf("triage classification failed, assuming complex: %v", err)
		s.tracer.Decision(string(PhaseTriage), 0, "classification failed: complex")
		return o.routeComplex(s), StateDelta{TriageDecision: triagep(types.TriageComplex)}, nil
	}

	if strings.Contains(strings.ToUpper(completion.Text), "SIMPLE") {
		s.tracer.Decision(string(PhaseTriage), 0, "classified simple")
		return PhaseDirect, StateDelta{TriageDecision: triagep(types.TriageSimple)}, nil
	}

	s.tracer.Decision(string(PhaseTriage), 0, "classified complex")
	return o.routeComplex(s), StateDelta{TriageDecision: triagep(types.TriageComplex)}, nil
}

// routeComplex resolves the graph a complex request runs on. The default
// graph is this orchestrator's own pipeline; a missing registration degrades
// to a direct response, loudly.
func (o *Orchestrator) routeComplex(s *Session) Phase {
	graph, ok := o.graphs.Lookup(o.defaultGraph)
	if !ok {
		o.debug.Debugf("graph %q not registered, falling back to direct response", o.defaultGraph)
		s.tracer.Decision(string(PhaseTriage), 0, "graph missing: direct-response fallback")
		return PhaseDirect
	}
	if graph == Graph(o) {
		return PhasePlanner
	}

	// a registered foreign graph owns the rest of the stream
	s.delegate = graph
	return PhaseDelegate
}

// runDirect answers the request with a single model call, no tools.
func (o *Orchestrator) runDirect(ctx context.Context, s *Session) (Phase, StateDelta, error) {
	if err := s.emit(Event{Type: EventNode, Phase: PhaseDirect, Status: "answering directly"}); err != nil {
		return PhaseDone, StateDelta{}, err
	}

	var emitErr error
	completion, err := o.completer.Complete(ctx, CompletionRequest{Messages: s.state.Messages}, func(delta string) {
		if emitErr == nil {
			emitErr = s.emit(Event{Type: EventNode, Phase: PhaseDirect, Delta: delta})
		}
	})
	if emitErr != nil {
		return PhaseDone, StateDelta{}, emitErr
	}
	if err != nil {
		return PhaseReporter, StateDelta{
			AgentError:        strp(err.Error()),
			TerminationReason: strp(TerminationAgentError),
		}, nil
	}

	return PhaseReporter, StateDelta{
		AppendMessages: []types.Message{{Role: types.RoleAssistant, Content: completion.Text}},
	}, nil
}

func matchesActionKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range actionKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
