package ssa

import (
	"github.com/oleiade/lane"
	"golang.org/x/exp/slices"
)

// LoopForest is the Havlak-style loop-nesting hierarchy built from a
// Topology's back edges (§4.5). Every back edge's target is a loop
// header; loopParents maps each block to the nearest enclosing header.
type LoopForest struct {
	headers []BlockId // in discovery order; loopNodes()
	body    map[BlockId][]BlockId
	parent  map[BlockId]BlockId
}

// ComputeLoopForest builds the natural-loop bodies for every back edge's
// header (merging bodies for headers reached by more than one back edge,
// e.g. a loop with several continue edges) and assigns, to every block
// that belongs to at least one loop body, the nearest enclosing header.
func ComputeLoopForest(g *SSACFG, t *Topology) *LoopForest {
	f := &LoopForest{body: make(map[BlockId][]BlockId), parent: make(map[BlockId]BlockId)}

	bodySet := make(map[BlockId]map[BlockId]bool)
	for e := range t.backEdges {
		header := e.to
		if _, ok := bodySet[header]; !ok {
			bodySet[header] = make(map[BlockId]bool)
			f.headers = append(f.headers, header)
		}
		naturalLoopBody(g, e.from, header, bodySet[header])
	}

	for h, set := range bodySet {
		members := make([]BlockId, 0, len(set))
		for b := range set {
			members = append(members, b)
		}
		slices.Sort(members)
		f.body[h] = members
	}

	// Innermost loops (smallest body) claim membership first, so a block
	// in several nested loop bodies ends up parented by the tightest one.
	headersBySize := append([]BlockId(nil), f.headers...)
	slices.SortFunc(headersBySize, func(a, b BlockId) int {
		return len(f.body[a]) - len(f.body[b])
	})

	assigned := make(map[BlockId]bool)
	for _, h := range headersBySize {
		for _, b := range f.body[h] {
			if b == h || assigned[b] {
				continue
			}
			assigned[b] = true
			f.parent[b] = h
		}
	}
	// Nest headers themselves: h's parent is the smallest other header
	// whose body contains h.
	for _, h := range headersBySize {
		for _, h2 := range headersBySize {
			if h2 == h {
				continue
			}
			if containsBlock(f.body[h2], h) {
				f.parent[h] = h2
				break
			}
		}
	}

	return f
}

// naturalLoopBody computes the natural loop of back edge (tail -> header):
// header, tail, and every block that can reach tail without passing
// through header, via reverse-edge BFS (§4.5, standard construction).
func naturalLoopBody(g *SSACFG, tail, header BlockId, into map[BlockId]bool) {
	into[header] = true
	if tail == header {
		return
	}
	if into[tail] {
		return
	}
	into[tail] = true

	queue := lane.NewQueue()
	queue.Enqueue(tail)
	for !queue.Empty() {
		b := queue.Dequeue().(BlockId)
		for _, pred := range g.Block(b).Entries {
			if pred == header || into[pred] {
				continue
			}
			into[pred] = true
			queue.Enqueue(pred)
		}
	}
}

func containsBlock(s []BlockId, b BlockId) bool {
	_, found := slices.BinarySearch(s, b)
	return found
}

// LoopRootNodes returns the loop headers with no enclosing loop.
func (f *LoopForest) LoopRootNodes() []BlockId {
	var roots []BlockId
	for _, h := range f.headers {
		if _, ok := f.parent[h]; !ok {
			roots = append(roots, h)
		}
	}
	return roots
}

// LoopNodes returns every loop header.
func (f *LoopForest) LoopNodes() []BlockId {
	return append([]BlockId(nil), f.headers...)
}

// Parent returns block's nearest enclosing loop header, if any.
func (f *LoopForest) Parent(block BlockId) (BlockId, bool) {
	h, ok := f.parent[block]
	return h, ok
}

// Children returns every block directly parented by header (its loop
// body members one nesting level down, including any nested headers).
func (f *LoopForest) Children(header BlockId) []BlockId {
	var out []BlockId
	for b, p := range f.parent {
		if p == header {
			out = append(out, b)
		}
	}
	slices.Sort(out)
	return out
}

// Descendants returns every block transitively nested within header,
// walking the parent chain (used by the liveness loop-tree DFS, §4.6).
func (f *LoopForest) Descendants(header BlockId) []BlockId {
	var out []BlockId
	for b := range f.parent {
		cur := b
		for {
			p, ok := f.parent[cur]
			if !ok {
				break
			}
			if p == header {
				out = append(out, b)
				break
			}
			cur = p
		}
	}
	slices.Sort(out)
	return out
}

// LoopBody returns the full set of blocks belonging to header's natural
// loop (including header itself and any nested loops' blocks).
func (f *LoopForest) LoopBody(header BlockId) []BlockId {
	return append([]BlockId(nil), f.body[header]...)
}
