package ssa

import "github.com/oleiade/lane"

// invalidBlock is the "no parent" sentinel used by the articulation-point
// DFS below; BlockId is a dense nonnegative index, so -1 never collides
// with a real block.
const invalidBlock BlockId = -1

// isBridgeVertex computes, for every block reachable from g.Entry, whether
// removing it increases the number of connected components of the CFG
// viewed as an undirected graph (GLOSSARY "Bridge" — a vertex cut, found
// with the standard Tarjan low-link articulation-point DFS).
func isBridgeVertex(g *SSACFG) map[BlockId]bool {
	reachable := reachableBlocks(g)

	adj := make(map[BlockId]map[BlockId]bool)
	link := func(a, b BlockId) {
		if adj[a] == nil {
			adj[a] = make(map[BlockId]bool)
		}
		adj[a][b] = true
	}
	for b := range reachable {
		for _, s := range g.Block(b).Exit.Successors() {
			link(b, s)
			link(s, b)
		}
	}

	disc := make(map[BlockId]int)
	low := make(map[BlockId]int)
	isArticulation := make(map[BlockId]bool)
	timer := 0

	var dfs func(u, parent BlockId)
	dfs = func(u, parent BlockId) {
		timer++
		disc[u] = timer
		low[u] = timer
		children := 0

		for v := range adj[u] {
			if v == parent {
				continue
			}
			if d, seen := disc[v]; seen {
				if d < low[u] {
					low[u] = d
				}
				continue
			}
			children++
			dfs(v, u)
			if low[v] < low[u] {
				low[u] = low[v]
			}
			if parent != invalidBlock && low[v] >= disc[u] {
				isArticulation[u] = true
			}
		}
		if parent == invalidBlock && children > 1 {
			isArticulation[u] = true
		}
	}
	dfs(g.Entry, invalidBlock)

	return isArticulation
}

func isTerminationBlock(b *Block) bool {
	return b.Exit.Kind == ExitTerminated
}

func isReturnBlock(b *Block) bool {
	return b.Exit.Kind == ExitFunctionReturn || b.Exit.Kind == ExitMainExit
}

// JunkAdmissibility reports, per reachable block, whether stack-balance
// constraints may be relaxed there (§4.7): it is a bridge or a
// termination block, and it cannot transitively reach any function-return
// (or main-exit) block.
func JunkAdmissibility(g *SSACFG, topo *Topology) map[BlockId]bool {
	admits := make(map[BlockId]bool)

	if len(g.Blocks) == 1 {
		admits[g.Entry] = !isReturnBlock(g.Block(g.Entry))
		return admits
	}

	bridges := isBridgeVertex(g)
	for _, b := range topo.PreOrder {
		blk := g.Block(b)
		admits[b] = bridges[b] || isTerminationBlock(blk)
	}

	preds := make(map[BlockId][]BlockId)
	for _, b := range topo.PreOrder {
		for _, s := range g.Block(b).Exit.Successors() {
			preds[s] = append(preds[s], b)
		}
	}

	visited := make(map[BlockId]bool)
	queue := lane.NewQueue()
	for _, b := range topo.PreOrder {
		if isReturnBlock(g.Block(b)) {
			queue.Enqueue(b)
			visited[b] = true
			admits[b] = false
		}
	}
	for !queue.Empty() {
		u := queue.Dequeue().(BlockId)
		for _, p := range preds[u] {
			admits[p] = false
			if !visited[p] {
				visited[p] = true
				queue.Enqueue(p)
			}
		}
	}

	return admits
}
