package engine

import (
	"context"
	"sort"
)

// Graph is a pluggable pipeline a triage decision can route a session to.
// Implementations stream their own events on the session channel. Graphs are
// registered explicitly at startup; the registry is read-only afterwards.
type Graph interface {
	Name() string
	Stream(ctx context.Context, s *Session) error
}

// GraphRegistry maps graph names to implementations. It is constructed and
// injected per orchestrator, never a process-wide global.
type GraphRegistry struct {
	graphs map[string]Graph
}

func NewGraphRegistry() *GraphRegistry {
	return &GraphRegistry{graphs: make(map[string]Graph)}
}

func (r *GraphRegistry) Register(g Graph) {
	r.graphs[g.Name()] = g
}

func (r *GraphRegistry) Lookup(name string) (Graph, bool) {
	g, ok := r.graphs[name]
	return g, ok
}

func (r *GraphRegistry) Names() []string {
	out := make([]string, 0, len(r.graphs))
	for name := range r.graphs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
