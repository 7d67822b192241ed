package passes

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yulir-lang/yulir/internal/ast"
	"github.com/yulir-lang/yulir/internal/dialect"
	"github.com/yulir-lang/yulir/internal/effects"
	"github.com/yulir-lang/yulir/internal/scope"
	"github.com/yulir-lang/yulir/internal/ssa"
)

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }
func call(name string, args ...ast.Expression) *ast.FunctionCall {
	return &ast.FunctionCall{Function: ast.Identifier{Name: name}, Arguments: args}
}

// buildLeaveThenDeadCode mirrors the builder's own seed scenario 4: a
// function that leaves unconditionally, followed by unreachable trailing
// statements, so the clean-unreachable pass has something to do.
func buildLeaveThenDeadCode(t *testing.T) *ssa.SSACFG {
	t.Helper()
	scopes := scope.NewTable()
	root := scope.NewScope(nil)
	fn := scope.NewFunction("f", 0, 1)
	root.Declare(fn)
	r := scope.NewVariable("r")

	body := &ast.Block{Statements: []ast.Statement{
		&ast.Leave{},
		&ast.ExpressionStatement{Expression: call("pop", ident("r"))},
	}}
	fnDef := &ast.FunctionDefinition{Name: "f", Returns: []ast.TypedName{{Name: "r"}}, Body: body}
	top := &ast.Block{Statements: []ast.Statement{fnDef}}

	bodyScope := scope.NewScope(root)
	bodyScope.Declare(r)
	scopes.Bind(top, root)
	scopes.Bind(body, bodyScope)

	d := dialect.For(dialect.Config{Target: dialect.London})
	cf := ssa.Build(context.Background(), top, scopes, effects.NewInfo(), d, ssa.Config{})
	g, _ := cf.GraphFor(fn)
	return g
}

func TestRunAppliesCleanUnreachableAndVerifies(t *testing.T) {
	g := buildLeaveThenDeadCode(t)
	err := Run(g, Pipeline, Config{Verify: true})
	require.NoError(t, err)
	assert.NoError(t, ssa.Verify(g))
}

func TestRunDumpsBeforeAndAfterEachPass(t *testing.T) {
	g := buildLeaveThenDeadCode(t)
	var before, after bytes.Buffer
	err := Run(g, Pipeline, Config{DumpBefore: &before, DumpAfter: &after})
	require.NoError(t, err)
	assert.Contains(t, before.String(), "clean-unreachable: before")
	assert.Contains(t, after.String(), "clean-unreachable: after")
	assert.NotEmpty(t, before.String())
	assert.NotEmpty(t, after.String())
}

func TestRunIsIdempotentAcrossRepeatedCleanup(t *testing.T) {
	g := buildLeaveThenDeadCode(t)
	pipeline := []Pass{
		{Name: "clean-unreachable", Fn: ssa.CleanUnreachable},
		{Name: "clean-unreachable-again", Fn: ssa.CleanUnreachable},
	}
	err := Run(g, pipeline, Config{Verify: true})
	require.NoError(t, err)
}
