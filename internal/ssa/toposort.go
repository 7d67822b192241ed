package ssa

import "github.com/oleiade/lane"

// edge is a directed block-to-block edge, used as a map key when
// classifying back edges.
type edge struct {
	from, to BlockId
}

// Topology is the forward DFS order over a graph's reachable blocks,
// together with its back-edge classification (§4.4).
type Topology struct {
	PreOrder  []BlockId
	PostOrder []BlockId

	backEdges map[edge]bool
}

type dfsFrame struct {
	block BlockId
	idx   int
}

// ComputeTopology runs a forward DFS from g.Entry along exit-successor
// edges. An edge (u,v) is a back edge iff v is on the active DFS stack
// when (u,v) is explored — sound under the reducible-CFG assumption that
// every loop has a single entry header (GLOSSARY "Reducible CFG").
func ComputeTopology(g *SSACFG) *Topology {
	t := &Topology{backEdges: make(map[edge]bool)}

	visited := make(map[BlockId]bool)
	onStack := make(map[BlockId]bool)

	stack := lane.NewStack()
	stack.Push(&dfsFrame{block: g.Entry})
	visited[g.Entry] = true
	onStack[g.Entry] = true
	t.PreOrder = append(t.PreOrder, g.Entry)

	for !stack.Empty() {
		fr := stack.Head().(*dfsFrame)
		succs := g.Block(fr.block).Exit.Successors()

		if fr.idx >= len(succs) {
			stack.Pop()
			onStack[fr.block] = false
			t.PostOrder = append(t.PostOrder, fr.block)
			continue
		}

		next := succs[fr.idx]
		fr.idx++

		if onStack[next] {
			t.backEdges[edge{fr.block, next}] = true
			continue
		}
		if visited[next] {
			continue
		}

		visited[next] = true
		onStack[next] = true
		t.PreOrder = append(t.PreOrder, next)
		stack.Push(&dfsFrame{block: next})
	}

	return t
}

// BackEdge reports whether (u,v) was classified as a back edge.
func (t *Topology) BackEdge(u, v BlockId) bool {
	return t.backEdges[edge{u, v}]
}
