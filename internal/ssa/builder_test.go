package ssa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yulir-lang/yulir/internal/ast"
	"github.com/yulir-lang/yulir/internal/dialect"
	"github.com/yulir-lang/yulir/internal/effects"
	"github.com/yulir-lang/yulir/internal/scope"
)

// fixture bundles the pieces every builder test needs: a scope table with
// one root scope bound to the top-level block, and a dialect carrying the
// full base instruction set (no verbatim/object-access builtins needed).
type fixture struct {
	scopes *scope.Table
	root   *scope.Scope
	eff    *effects.Info
	dia    *dialect.Dialect
}

func newFixture() *fixture {
	return &fixture{
		scopes: scope.NewTable(),
		root:   scope.NewScope(nil),
		eff:    effects.NewInfo(),
		dia:    dialect.For(dialect.Config{Target: dialect.London}),
	}
}

func (f *fixture) declareVar(name string) *scope.Variable {
	v := scope.NewVariable(name)
	f.root.Declare(v)
	return v
}

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func call(name string, args ...ast.Expression) *ast.FunctionCall {
	return &ast.FunctionCall{Function: ast.Identifier{Name: name}, Arguments: args}
}

func lit(v uint64) *ast.Literal { return ast.NewLiteral(v) }

// TestDiamondIfMergesWithPhi builds:
//
//	let x := 1
//	if cond { x := 2 }
//	use(x)
//
// and checks that the use after the if reads a phi merging the two
// definitions of x (seed scenario 1, §8).
func TestDiamondIfMergesWithPhi(t *testing.T) {
	f := newFixture()
	cond := f.declareVar("cond")
	x := f.declareVar("x")

	block := &ast.Block{Statements: []ast.Statement{
		&ast.VariableDeclaration{Variables: []ast.TypedName{{Name: "cond"}}, Value: lit(0)},
		&ast.VariableDeclaration{Variables: []ast.TypedName{{Name: "x"}}, Value: lit(1)},
		&ast.If{Condition: ident("cond"), Body: &ast.Block{Statements: []ast.Statement{
			&ast.Assignment{Variables: []ast.Identifier{*ident("x")}, Value: lit(2)},
		}}},
		&ast.ExpressionStatement{Expression: call("pop", ident("x"))},
	}}
	f.scopes.Bind(block, f.root)
	f.scopes.Bind(block.Statements[2].(*ast.If).Body, f.root)

	_ = cond
	_ = x

	cf := Build(context.Background(), block, f.scopes, f.eff, f.dia, Config{})
	require.NoError(t, Verify(cf.MainGraph))

	var foundPhi bool
	for _, b := range cf.MainGraph.Blocks {
		for _, phiID := range b.Phis {
			foundPhi = true
			p := cf.MainGraph.phis[phiID]
			assert.Len(t, p.Arguments, len(b.Entries))
		}
	}
	assert.True(t, foundPhi, "expected a phi merging the two definitions of x")
}

// TestCountedLoopFourBlockShape builds:
//
//	let i := 0
//	for {} lt(i, 10) { i := add(i, 1) } { use(i) }
//
// and checks that the result verifies and that the loop lowers to exactly
// one conditional-jump block, the loop header (seed scenario 2, §8).
func TestCountedLoopFourBlockShape(t *testing.T) {
	f := newFixture()
	f.declareVar("i")

	loop := &ast.ForLoop{
		Pre:       &ast.Block{},
		Condition: call("lt", ident("i"), lit(10)),
		Post: &ast.Block{Statements: []ast.Statement{
			&ast.Assignment{Variables: []ast.Identifier{*ident("i")}, Value: call("add", ident("i"), lit(1))},
		}},
		Body: &ast.Block{Statements: []ast.Statement{
			&ast.ExpressionStatement{Expression: call("pop", ident("i"))},
		}},
	}
	block := &ast.Block{Statements: []ast.Statement{
		&ast.VariableDeclaration{Variables: []ast.TypedName{{Name: "i"}}, Value: lit(0)},
		loop,
	}}
	f.scopes.Bind(block, f.root)
	f.scopes.Bind(loop.Pre, f.root)
	f.scopes.Bind(loop.Post, f.root)
	f.scopes.Bind(loop.Body, f.root)

	cf := Build(context.Background(), block, f.scopes, f.eff, f.dia, Config{})
	require.NoError(t, Verify(cf.MainGraph))

	var condBlocks int
	for _, b := range cf.MainGraph.Blocks {
		if b.Exit.Kind == ExitConditionalJump {
			condBlocks++
		}
	}
	assert.Equal(t, 1, condBlocks, "expected exactly one conditional-jump block (the loop header)")
}

// TestTrivialPhiCollapses builds straight-line code with a single
// definition of x followed by a read of it, and checks that no block of the
// resulting graph retains a phi (seed scenario 3, §8).
func TestTrivialPhiCollapses(t *testing.T) {
	f := newFixture()
	f.declareVar("x")

	block := &ast.Block{Statements: []ast.Statement{
		&ast.VariableDeclaration{Variables: []ast.TypedName{{Name: "x"}}, Value: lit(7)},
		&ast.ExpressionStatement{Expression: call("pop", ident("x"))},
	}}
	f.scopes.Bind(block, f.root)

	cf := Build(context.Background(), block, f.scopes, f.eff, f.dia, Config{})
	require.NoError(t, Verify(cf.MainGraph))

	for _, b := range cf.MainGraph.Blocks {
		assert.Empty(t, b.Phis, "straight-line single-definition code should never retain a phi")
	}
}

// TestUnreachableAfterLeaveIsPruned builds a function body that leaves
// unconditionally and then has trailing statements; after CleanUnreachable
// the block built for those trailing statements has no predecessors and
// the graph verifies (seed scenario 4, §8).
func TestUnreachableAfterLeaveIsPruned(t *testing.T) {
	f := newFixture()
	fn := scope.NewFunction("f", 0, 1)
	f.root.Declare(fn)
	r := scope.NewVariable("r")

	body := &ast.Block{Statements: []ast.Statement{
		&ast.Leave{},
		&ast.ExpressionStatement{Expression: call("pop", ident("r"))},
	}}
	fnDef := &ast.FunctionDefinition{Name: "f", Returns: []ast.TypedName{{Name: "r"}}, Body: body}
	block := &ast.Block{Statements: []ast.Statement{fnDef}}

	bodyScope := scope.NewScope(f.root)
	bodyScope.Declare(r)
	f.scopes.Bind(block, f.root)
	f.scopes.Bind(body, bodyScope)

	cf := Build(context.Background(), block, f.scopes, f.eff, f.dia, Config{})
	g, _ := cf.GraphFor(fn)
	require.NoError(t, Verify(g))

	reachable := reachableBlocks(g)
	var sawUnreachable bool
	for _, b := range g.Blocks {
		if !reachable[b.ID] {
			sawUnreachable = true
			assert.Empty(t, b.Entries, "the block after an unconditional leave has no predecessors")
		}
	}
	assert.True(t, sawUnreachable, "expected the trailing dead code after leave to produce an unreachable block")
}

// TestCleanUnreachableIsIdempotent checks round-trip property R1: running
// CleanUnreachable a second time changes nothing observable.
func TestCleanUnreachableIsIdempotent(t *testing.T) {
	f := newFixture()
	cond := f.declareVar("cond")
	x := f.declareVar("x")
	_ = cond
	_ = x

	block := &ast.Block{Statements: []ast.Statement{
		&ast.VariableDeclaration{Variables: []ast.TypedName{{Name: "cond"}}, Value: lit(0)},
		&ast.VariableDeclaration{Variables: []ast.TypedName{{Name: "x"}}, Value: lit(1)},
		&ast.If{Condition: ident("cond"), Body: &ast.Block{Statements: []ast.Statement{
			&ast.Assignment{Variables: []ast.Identifier{*ident("x")}, Value: lit(2)},
		}}},
		&ast.ExpressionStatement{Expression: call("pop", ident("x"))},
	}}
	f.scopes.Bind(block, f.root)
	f.scopes.Bind(block.Statements[2].(*ast.If).Body, f.root)

	cf := Build(context.Background(), block, f.scopes, f.eff, f.dia, Config{})
	before := Sprint(cf.MainGraph)
	CleanUnreachable(cf.MainGraph)
	after := Sprint(cf.MainGraph)
	assert.Equal(t, before, after)
}

// TestSealingTwicePanics checks round-trip property R2.
func TestSealingTwicePanics(t *testing.T) {
	f := newFixture()
	b := NewBuilder(f.dia, f.scopes, f.eff, Config{})
	b.g = b.cf.MainGraph
	b.sealBlock(b.g.Entry)
	assert.Panics(t, func() { b.sealBlock(b.g.Entry) })
}
