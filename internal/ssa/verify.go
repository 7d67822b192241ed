package ssa

import (
	"fmt"
	"strings"
)

// Verify checks the structural integrity of an SSACFG against invariants
// I1-I6 and the universal properties P1-P4 of the specification (§3,
// §8). It returns an error describing every violation found, or nil.
func Verify(g *SSACFG) error {
	var errs []string
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if len(g.Blocks) == 0 {
		add("graph has no blocks")
		return combineErrors(errs)
	}
	if int(g.Entry) < 0 || int(g.Entry) >= len(g.Blocks) {
		add("entry block %s out of range", g.Entry)
		return combineErrors(errs)
	}

	// argDefined holds Variable ValueIds defined by function-argument
	// binding rather than by an Operation output (parameters).
	argDefined := make(map[ValueId]bool, len(g.Arguments))
	for _, a := range g.Arguments {
		argDefined[a] = true
	}

	// I5 / P3: reachability and predecessor counts.
	reachable := reachableBlocks(g)
	for _, b := range g.Blocks {
		if !reachable[b.ID] {
			continue
		}
		if b.ID != g.Entry && len(b.Entries) == 0 {
			add("block %s: reachable non-entry block has no predecessors (I5/P3)", b)
		}
		if b.ID == g.Entry && len(b.Entries) != 0 {
			add("block %s: entry block has %d predecessors, want 0", b, len(b.Entries))
		}
	}

	// I3 / P2: phi argument count matches predecessor count.
	for _, b := range g.Blocks {
		for _, phiID := range b.Phis {
			p, ok := g.phis[phiID]
			if !ok {
				add("block %s: dangling phi id %s not present in graph's phi table", b, phiID)
				continue
			}
			if p.Block != b.ID {
				add("phi %s: recorded block %s does not match containing block %s (I2)", phiID, p.Block, b)
			}
			if len(p.Arguments) != len(b.Entries) {
				add("block %s: phi %s has %d arguments, want %d (predecessor count) (I3)",
					b, phiID, len(p.Arguments), len(b.Entries))
			}
		}
	}

	// I1: every referenced ValueId exists in valueInfo.
	checkRef := func(where string, id ValueId) {
		if !id.IsValid() {
			return
		}
		if _, ok := g.valueInfo[id]; !ok {
			add("%s: references %s, which has no valueInfo entry (I1)", where, id)
		}
	}
	// I6 is checked only in reachable blocks: a block left unreachable by
	// CleanUnreachable stays in g.Blocks and may still read Unreachable.
	for _, b := range g.Blocks {
		live := reachable[b.ID]
		for _, phiID := range b.Phis {
			checkRef(fmt.Sprintf("phi %s", phiID), phiID)
			if p, ok := g.phis[phiID]; ok {
				for _, a := range p.Arguments {
					checkRef(fmt.Sprintf("phi %s argument", phiID), a)
					if a.Kind == KindUnreachable && live {
						// I6: tolerated only transiently pre-pruning; Verify
						// runs post-construction, so flag it.
						add("phi %s: still references Unreachable after construction (I6)", phiID)
					}
				}
			}
		}
		for _, op := range b.Operations {
			for _, in := range op.Inputs {
				checkRef(fmt.Sprintf("block %s operation", b), in)
				if in.Kind == KindUnreachable && live {
					add("block %s: operation input references Unreachable (I6)", b)
				}
			}
			for _, out := range op.Outputs {
				checkRef(fmt.Sprintf("block %s operation output", b), out)
			}
		}
		for _, operand := range b.Exit.Operands() {
			checkRef(fmt.Sprintf("block %s exit", b), operand)
			if operand.Kind == KindUnreachable && live {
				add("block %s: exit clause references Unreachable (I6)", b)
			}
		}
	}

	// P1: every non-phi Variable is written by exactly one operation
	// (parameters are exempt: they are defined by argument binding).
	writeCount := make(map[ValueId]int)
	for _, b := range g.Blocks {
		for _, op := range b.Operations {
			for _, out := range op.Outputs {
				writeCount[out]++
			}
		}
	}
	for id, info := range g.valueInfo {
		if info.Kind != KindVariable || argDefined[id] {
			continue
		}
		if n := writeCount[id]; n != 1 {
			add("value %s: Variable written by %d operations, want exactly 1 (P1)", id, n)
		}
	}

	// P4: no sealed block contains a trivial phi.
	for _, b := range g.Blocks {
		if !b.Sealed {
			continue
		}
		for _, phiID := range b.Phis {
			p := g.phis[phiID]
			if isTrivialArgSet(phiID, p.Arguments) {
				add("block %s: sealed block still contains trivial phi %s (P4)", b, phiID)
			}
		}
	}

	return combineErrors(errs)
}

func isTrivialArgSet(self ValueId, args []ValueId) bool {
	var same ValueId
	have := false
	for _, a := range args {
		if a == self || (have && a == same) {
			continue
		}
		if have {
			return false
		}
		same, have = a, true
	}
	return true
}

func combineErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("ssa: %d violation(s):\n%s", len(errs), strings.Join(errs, "\n"))
}
