package ssa

import "github.com/yulir-lang/yulir/internal/scope"

// ControlFlow owns every SSACFG produced from one compilation unit: the
// top-level main graph plus one sub-graph per function definition (§3,
// §6). Function sub-graphs are owned by the ControlFlow for as long as
// it lives (§5 "Shared-resource policy").
type ControlFlow struct {
	MainGraph *SSACFG

	// FunctionGraphs is ordered by first encounter during construction,
	// so FunctionGraphID can simply index this slice.
	FunctionGraphs []*SSACFG

	FunctionGraphMapping map[*scope.Function]*SSACFG
}

// NewControlFlow creates an (as-yet-empty) aggregate with a fresh main
// graph.
func NewControlFlow() *ControlFlow {
	return &ControlFlow{
		MainGraph:            New(),
		FunctionGraphMapping: make(map[*scope.Function]*SSACFG),
	}
}

// GraphFor returns the function graph for fn, allocating one (and
// assigning it the next FunctionGraphID) on first request.
func (cf *ControlFlow) GraphFor(fn *scope.Function) (*SSACFG, FunctionGraphID) {
	if g, ok := cf.FunctionGraphMapping[fn]; ok {
		for i, existing := range cf.FunctionGraphs {
			if existing == g {
				return g, FunctionGraphID(i)
			}
		}
	}
	g := New()
	g.Function = fn
	id := FunctionGraphID(len(cf.FunctionGraphs))
	cf.FunctionGraphs = append(cf.FunctionGraphs, g)
	cf.FunctionGraphMapping[fn] = g
	return g, id
}

// Graph returns the function graph for id.
func (cf *ControlFlow) Graph(id FunctionGraphID) *SSACFG {
	return cf.FunctionGraphs[id]
}
