package ssa

import "github.com/yulir-lang/yulir/internal/scope"

// defMap is the builder's per-variable current-definition table (§9
// "Per-variable current definitions"): variable -> block -> value. It is
// nil once construction of a graph has finished (e.g. during
// cleanUnreachable's re-examination pass), since nothing reads variables
// by name after that point.
type defMap = map[*scope.Variable]map[BlockId]ValueId

// usersOfPhi returns every other phi in g whose Arguments currently
// contain phi, computed before any rewrite so removeTrivialPhi can retry
// them afterward (§4.3 step 4).
func usersOfPhi(g *SSACFG, phi ValueId) []ValueId {
	var users []ValueId
	for _, blk := range g.Blocks {
		for _, id := range blk.Phis {
			if id == phi {
				continue
			}
			p := g.phis[id]
			for _, a := range p.Arguments {
				if a == phi {
					users = append(users, id)
					break
				}
			}
		}
	}
	return users
}

// replaceValue rewrites every reference to old (in phi arguments,
// operation inputs, and exit-clause operands) to new, across the whole
// graph (§9 "Deletion is whole-graph rewrite"). If defs is non-nil, the
// builder's current-definition table is rewritten too. If old is a phi,
// its bookkeeping is deleted once nothing references it anymore.
func replaceValue(g *SSACFG, defs defMap, old, new ValueId) {
	for _, blk := range g.Blocks {
		for _, phiID := range blk.Phis {
			p := g.phis[phiID]
			for i, a := range p.Arguments {
				if a == old {
					p.Arguments[i] = new
				}
			}
		}
		for _, op := range blk.Operations {
			for i, in := range op.Inputs {
				if in == old {
					op.Inputs[i] = new
				}
			}
		}
		switch blk.Exit.Kind {
		case ExitFunctionReturn:
			for i, v := range blk.Exit.ReturnValues {
				if v == old {
					blk.Exit.ReturnValues[i] = new
				}
			}
		case ExitConditionalJump:
			if blk.Exit.Condition == old {
				blk.Exit.Condition = new
			}
		case ExitJumpTable:
			if blk.Exit.TableValue == old {
				blk.Exit.TableValue = new
			}
		}
	}
	if defs != nil {
		for _, byBlock := range defs {
			for blockID, v := range byBlock {
				if v == old {
					byBlock[blockID] = new
				}
			}
		}
	}
	if old.Kind == KindPhi {
		if p, ok := g.phis[old]; ok {
			g.Block(p.Block).removePhi(old)
		}
		g.deletePhi(old)
	}
}

// removeTrivialPhi implements §4.3's tryRemoveTrivialPhi: a phi is
// trivial iff its distinct-argument set (excluding self-references and
// the phi itself) has size <= 1. An empty set collapses to Unreachable;
// a singleton set collapses to that argument. Non-trivial phis are
// returned unchanged.
func removeTrivialPhi(g *SSACFG, defs defMap, phi ValueId) ValueId {
	p, ok := g.phis[phi]
	if !ok {
		return phi
	}

	var same ValueId
	haveSame := false
	for _, arg := range p.Arguments {
		if arg == phi || (haveSame && arg == same) {
			continue
		}
		if haveSame {
			return phi // two distinct non-self arguments: not trivial
		}
		same = arg
		haveSame = true
	}

	replacement := same
	if !haveSame {
		replacement = g.UnreachableValue()
	}

	users := usersOfPhi(g, phi)
	replaceValue(g, defs, phi, replacement)
	for _, user := range users {
		removeTrivialPhi(g, defs, user)
	}
	return replacement
}
