package ssa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yulir-lang/yulir/internal/ast"
)

// TestLivenessIsMonotone checks property P5:
// liveIn(b) ⊇ (liveOut(b) \ defs(b)) ∪ uses(b)
// for every reachable block b, over a graph shaped like the counted-loop
// seed scenario (a header, body, post, and after block) so the loop-tree
// propagation step (Algorithm 9.3) is exercised alongside the per-block
// step (Algorithm 9.2).
func TestLivenessIsMonotone(t *testing.T) {
	f := newFixture()
	f.declareVar("i")
	f.declareVar("acc")

	loop := &ast.ForLoop{
		Pre:       &ast.Block{},
		Condition: call("lt", ident("i"), lit(10)),
		Post: &ast.Block{Statements: []ast.Statement{
			&ast.Assignment{Variables: []ast.Identifier{*ident("i")}, Value: call("add", ident("i"), lit(1))},
		}},
		Body: &ast.Block{Statements: []ast.Statement{
			&ast.Assignment{Variables: []ast.Identifier{*ident("acc")}, Value: call("add", ident("acc"), ident("i"))},
		}},
	}
	block := &ast.Block{Statements: []ast.Statement{
		&ast.VariableDeclaration{Variables: []ast.TypedName{{Name: "i"}}, Value: lit(0)},
		&ast.VariableDeclaration{Variables: []ast.TypedName{{Name: "acc"}}, Value: lit(0)},
		loop,
		&ast.ExpressionStatement{Expression: call("pop", ident("acc"))},
	}}
	f.scopes.Bind(block, f.root)
	f.scopes.Bind(loop.Pre, f.root)
	f.scopes.Bind(loop.Post, f.root)
	f.scopes.Bind(loop.Body, f.root)

	cf := Build(context.Background(), block, f.scopes, f.eff, f.dia, Config{})
	g := cf.MainGraph
	require.NoError(t, Verify(g))

	topo := ComputeTopology(g)
	forest := ComputeLoopForest(g, topo)
	liveness := ComputeLiveness(g, topo, forest)

	for _, b := range g.Blocks {
		defs := blockDefs(b)
		uses := blockUses(g, b)
		liveIn := liveness.LiveIn(b.ID)
		liveOut := liveness.LiveOut(b.ID)

		for _, v := range liveOut.Values() {
			if defs[v] {
				continue
			}
			assert.True(t, liveIn.Contains(v),
				"block %s: liveOut value %v not in defs escapes into liveIn", b.ID, v)
		}
		for v := range uses {
			assert.True(t, liveIn.Contains(v),
				"block %s: used value %v missing from liveIn", b.ID, v)
		}
	}
}

// blockDefs returns the set of values b itself defines: its phis and its
// operations' outputs.
func blockDefs(b *Block) map[ValueId]bool {
	defs := make(map[ValueId]bool)
	for _, p := range b.Phis {
		defs[p] = true
	}
	for _, op := range b.Operations {
		for _, out := range op.Outputs {
			defs[out] = true
		}
	}
	return defs
}

// blockUses returns b's upward-exposed uses: tracked values read by an
// operation or the exit before any definition of that same value earlier
// in b. A value b both defines and reads locally is not upward-exposed —
// only P5's liveIn/liveOut boundary cares about values crossing into b
// from outside.
func blockUses(g *SSACFG, b *Block) map[ValueId]bool {
	uses := make(map[ValueId]bool)
	definedSoFar := make(map[ValueId]bool)
	for _, p := range b.Phis {
		definedSoFar[p] = true
	}
	for _, op := range b.Operations {
		for _, in := range op.Inputs {
			if isTrackedValue(g, in) && !definedSoFar[in] {
				uses[in] = true
			}
		}
		for _, out := range op.Outputs {
			definedSoFar[out] = true
		}
	}
	for _, v := range b.Exit.Operands() {
		if isTrackedValue(g, v) && !definedSoFar[v] {
			uses[v] = true
		}
	}
	return uses
}
