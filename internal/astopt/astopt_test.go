package astopt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yulir-lang/yulir/internal/ast"
)

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func call(name string, args ...ast.Expression) *ast.FunctionCall {
	return &ast.FunctionCall{Function: ast.Identifier{Name: name}, Arguments: args}
}

func lit(v uint64) *ast.Literal { return ast.NewLiteral(v) }

func block(stmts ...ast.Statement) *ast.Block { return &ast.Block{Statements: stmts} }

func decl(name string, value ast.Expression) *ast.VariableDeclaration {
	return &ast.VariableDeclaration{Variables: []ast.TypedName{{Name: name}}, Value: value}
}

func assign(name string, value ast.Expression) *ast.Assignment {
	return &ast.Assignment{Variables: []ast.Identifier{{Name: name}}, Value: value}
}

// countedLoop builds `for { let i := 0 } lt(i, N) { i := add(i, 1) } { <body> }`.
func countedLoop(n uint64, body ...ast.Statement) *ast.ForLoop {
	return &ast.ForLoop{
		Pre:       block(decl("i", lit(0))),
		Condition: call("lt", ident("i"), lit(n)),
		Post:      block(assign("i", call("add", ident("i"), lit(1)))),
		Body:      block(body...),
	}
}

func TestAnalyzeAcceptsCountedLoop(t *testing.T) {
	loop := countedLoop(5, &ast.ExpressionStatement{Expression: call("sstore", ident("i"), ident("i"))})
	d := Analyze(loop, []ast.Statement{loop}, 0, DefaultConfig())
	require.True(t, d.ShouldUnroll, "reason: %s (%s)", d.Reason, d.FailureMode)
	assert.Equal(t, 5, d.IterationCount)
}

func TestAnalyzeRejectsUnpredictableStep(t *testing.T) {
	loop := &ast.ForLoop{
		Pre:       block(decl("i", lit(1))),
		Condition: call("lt", ident("i"), lit(1000)),
		Post:      block(assign("i", call("mul", ident("i"), lit(1)))),
		Body:      block(&ast.ExpressionStatement{Expression: call("sstore", ident("i"), ident("i"))}),
	}
	d := Analyze(loop, []ast.Statement{loop}, 0, DefaultConfig())
	assert.False(t, d.ShouldUnroll)
	assert.Equal(t, FailureUnpredictableCount, d.FailureMode)
}

func TestAnalyzeRejectsBreakingLoop(t *testing.T) {
	loop := countedLoop(5, &ast.Break{})
	d := Analyze(loop, []ast.Statement{loop}, 0, DefaultConfig())
	assert.False(t, d.ShouldUnroll)
	assert.Equal(t, FailureNonAffine, d.FailureMode)
}

func TestAnalyzeRejectsOversizedUnroll(t *testing.T) {
	big := make([]ast.Statement, 0, 200)
	for i := 0; i < 200; i++ {
		big = append(big, &ast.ExpressionStatement{Expression: call("sstore", ident("i"), ident("i"))})
	}
	loop := countedLoop(500, big...)
	cfg := DefaultConfig()
	d := Analyze(loop, []ast.Statement{loop}, 0, cfg)
	assert.False(t, d.ShouldUnroll)
	assert.Equal(t, FailureOversized, d.FailureMode)
}

func TestAnalyzeFindsInitializerAboveBareFor(t *testing.T) {
	init := decl("i", lit(0))
	loop := &ast.ForLoop{
		Condition: call("lt", ident("i"), lit(3)),
		Post:      block(assign("i", call("add", ident("i"), lit(1)))),
		Body:      block(&ast.ExpressionStatement{Expression: call("sstore", ident("i"), ident("i"))}),
	}
	enclosing := []ast.Statement{init, loop}
	d := Analyze(loop, enclosing, 1, DefaultConfig())
	require.True(t, d.ShouldUnroll, "reason: %s (%s)", d.Reason, d.FailureMode)
	assert.Equal(t, 3, d.IterationCount)
}

// TestAnalyzeAcceptsLoopWithRedundantMemoryLoads mirrors seed scenario 6:
// a loop with initializer 0, bound 4, step 1, and a body containing two
// mload(0x40)s, which exists specifically to exercise the memory-load
// bonus term of the gas formula.
func TestAnalyzeAcceptsLoopWithRedundantMemoryLoads(t *testing.T) {
	loop := countedLoop(4, &ast.ExpressionStatement{
		Expression: call("sstore", ident("i"), call("add", call("mload", lit(0x40)), call("mload", lit(0x40)))),
	})
	d := Analyze(loop, []ast.Statement{loop}, 0, DefaultConfig())
	require.True(t, d.ShouldUnroll, "reason: %s (%s)", d.Reason, d.FailureMode)
	assert.Equal(t, 4, d.IterationCount)
}

func TestEstimateGasDeltaMemoryAndInductionBonuses(t *testing.T) {
	cfg := DefaultConfig()

	loadedNeverStored := countedLoop(4, &ast.ExpressionStatement{
		Expression: call("pop", call("mload", lit(0x40))),
	})
	savedLoaded, _ := estimateGasDelta(loadedNeverStored, 4, cfg, "i")

	noMemoryOps := countedLoop(4, &ast.ExpressionStatement{
		Expression: call("pop", lit(0)),
	})
	savedPlain, _ := estimateGasDelta(noMemoryOps, 4, cfg, "i")
	assert.Greater(t, savedLoaded, savedPlain,
		"a memory location loaded but never stored should add a memory-load bonus")

	storedOnce := countedLoop(4, &ast.ExpressionStatement{
		Expression: call("mstore", lit(0x40), ident("i")),
	})
	savedStoredOnce, _ := estimateGasDelta(storedOnce, 4, cfg, "i")

	storedTwice := countedLoop(4,
		&ast.ExpressionStatement{Expression: call("mstore", lit(0x40), ident("i"))},
		&ast.ExpressionStatement{Expression: call("mstore", lit(0x40), ident("i"))},
	)
	savedStoredTwice, _ := estimateGasDelta(storedTwice, 4, cfg, "i")
	assert.Greater(t, savedStoredTwice, savedStoredOnce,
		"a repeated store to the same address should add a memory-store bonus")

	usedBeyondControl := countedLoop(4, &ast.ExpressionStatement{
		Expression: call("sstore", ident("i"), ident("i")),
	})
	savedUsedBeyondControl, _ := estimateGasDelta(usedBeyondControl, 4, cfg, "i")
	assert.Greater(t, savedPlain, savedUsedBeyondControl,
		"i read beyond its own step update should withhold the induction-update bonus")
}

func TestRewriteUnrollsAndSubstitutesInductionVariable(t *testing.T) {
	loop := countedLoop(3, &ast.ExpressionStatement{Expression: call("sstore", ident("i"), ident("i"))})
	top := block(loop)

	out := Rewrite(context.Background(), top, DefaultConfig())

	// The Pre block's declaration of i comes first; then each of the 3
	// iterations contributes the body's sstore plus the post-block's (now
	// dead, but harmless) increment of i.
	require.Len(t, out.Statements, 7)
	for iter := 0; iter < 3; iter++ {
		es, ok := out.Statements[1+iter*2].(*ast.ExpressionStatement)
		require.True(t, ok)
		fc, ok := es.Expression.(*ast.FunctionCall)
		require.True(t, ok)
		require.Len(t, fc.Arguments, 2)
		litArg, ok := fc.Arguments[0].(*ast.Literal)
		require.True(t, ok, "induction variable read was not substituted with a literal")
		assert.Equal(t, uint64(iter), litArg.Value.Uint64())
	}
}

func TestRewriteLeavesRejectedLoopsAlone(t *testing.T) {
	loop := &ast.ForLoop{
		Pre:       block(decl("i", lit(1))),
		Condition: call("lt", ident("i"), lit(1000)),
		Post:      block(assign("i", call("mul", ident("i"), lit(1)))),
		Body:      block(&ast.ExpressionStatement{Expression: call("sstore", ident("i"), ident("i"))}),
	}
	top := block(loop)
	out := Rewrite(context.Background(), top, DefaultConfig())
	require.Len(t, out.Statements, 1)
	_, stillLoop := out.Statements[0].(*ast.ForLoop)
	assert.True(t, stillLoop)
}

func TestRewriteRecursesIntoNestedIf(t *testing.T) {
	loop := countedLoop(2, &ast.ExpressionStatement{Expression: call("sstore", ident("i"), ident("i"))})
	ifStmt := &ast.If{Condition: call("cond"), Body: block(loop)}
	top := block(ifStmt)

	out := Rewrite(context.Background(), top, DefaultConfig())
	require.Len(t, out.Statements, 1)
	rewrittenIf, ok := out.Statements[0].(*ast.If)
	require.True(t, ok)
	assert.Len(t, rewrittenIf.Body.Statements, 5)
}

func TestRunDumpsBeforeAndAfterEachPass(t *testing.T) {
	loop := countedLoop(2, &ast.ExpressionStatement{Expression: call("sstore", ident("i"), ident("i"))})
	top := block(loop)

	var before, after dumpBuf
	out := Run(context.Background(), top, Passes, RunConfig{Config: DefaultConfig(), DumpBefore: &before, DumpAfter: &after})

	assert.Len(t, out.Statements, 5)
	assert.Contains(t, before.String(), "unroll-loops: before")
	assert.Contains(t, after.String(), "unroll-loops: after")
}

type dumpBuf struct{ data []byte }

func (b *dumpBuf) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *dumpBuf) String() string { return string(b.data) }
