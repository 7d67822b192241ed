package ssa

import "github.com/oleiade/lane"

// CleanUnreachable runs a BFS from g.Entry along exit edges, drops any
// predecessor of a reachable block that is itself unreachable (shrinking
// that block's phis' argument lists to match), and recomputes g.Exits
// (§4.3 "Unreachable-edge pruning"). Running it twice is a no-op after
// the first (R1): the second BFS finds the same reachable set, and every
// block's Entries already excludes unreachable predecessors.
func CleanUnreachable(g *SSACFG) {
	reachable := reachableBlocks(g)

	var recheck []ValueId
	for _, blk := range g.Blocks {
		if !reachable[blk.ID] {
			continue
		}
		if allReachable(blk.Entries, reachable) {
			continue
		}

		keepIdx := make([]int, 0, len(blk.Entries))
		newEntries := make([]BlockId, 0, len(blk.Entries))
		for i, p := range blk.Entries {
			if reachable[p] {
				keepIdx = append(keepIdx, i)
				newEntries = append(newEntries, p)
			}
		}
		blk.Entries = newEntries

		for _, phiID := range blk.Phis {
			p := g.phis[phiID]
			newArgs := make([]ValueId, 0, len(keepIdx))
			for _, idx := range keepIdx {
				newArgs = append(newArgs, p.Arguments[idx])
			}
			p.Arguments = newArgs
			recheck = append(recheck, phiID)
		}
	}

	for _, phi := range recheck {
		removeTrivialPhi(g, nil, phi)
	}

	g.Exits = make(map[BlockId]bool)
	for _, blk := range g.Blocks {
		if !reachable[blk.ID] {
			continue
		}
		switch blk.Exit.Kind {
		case ExitMainExit, ExitFunctionReturn, ExitTerminated:
			g.Exits[blk.ID] = true
		}
	}
}

func reachableBlocks(g *SSACFG) map[BlockId]bool {
	reachable := map[BlockId]bool{g.Entry: true}
	queue := lane.NewQueue()
	queue.Enqueue(g.Entry)
	for !queue.Empty() {
		id := queue.Dequeue().(BlockId)
		for _, succ := range g.Block(id).Exit.Successors() {
			if !reachable[succ] {
				reachable[succ] = true
				queue.Enqueue(succ)
			}
		}
	}
	return reachable
}

func allReachable(ids []BlockId, reachable map[BlockId]bool) bool {
	for _, id := range ids {
		if !reachable[id] {
			return false
		}
	}
	return true
}
