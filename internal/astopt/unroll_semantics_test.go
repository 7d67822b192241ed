package astopt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yulir-lang/yulir/internal/ast"
)

// A tiny symbolic interpreter covering exactly the statement/expression
// shapes the unroller's own test fixtures use (identifiers, literals,
// add/sub/mul, and sstore as an observable side effect), enough to check
// that Rewrite's output is behaviorally identical to the loop it replaces
// (P7). It is not a general evaluator for the dialect.

type interpState struct {
	vars   map[string]uint64
	stores [][2]uint64
}

func newInterpState() *interpState {
	return &interpState{vars: make(map[string]uint64)}
}

func (s *interpState) eval(e ast.Expression) uint64 {
	switch t := e.(type) {
	case *ast.Literal:
		return t.Value.Uint64()
	case *ast.Identifier:
		return s.vars[t.Name]
	case *ast.FunctionCall:
		args := make([]uint64, len(t.Arguments))
		for i, a := range t.Arguments {
			args[i] = s.eval(a)
		}
		switch t.Function.Name {
		case "add":
			return args[0] + args[1]
		case "sub":
			return args[0] - args[1]
		case "mul":
			return args[0] * args[1]
		case "lt":
			if args[0] < args[1] {
				return 1
			}
			return 0
		case "sstore":
			s.stores = append(s.stores, [2]uint64{args[0], args[1]})
			return 0
		default:
			panic("interpState.eval: unsupported builtin " + t.Function.Name)
		}
	default:
		panic("interpState.eval: unsupported expression node")
	}
}

func (s *interpState) exec(stmt ast.Statement) {
	switch t := stmt.(type) {
	case *ast.VariableDeclaration:
		var v uint64
		if t.Value != nil {
			v = s.eval(t.Value)
		}
		for _, name := range t.Variables {
			s.vars[name.Name] = v
		}
	case *ast.Assignment:
		v := s.eval(t.Value)
		for _, id := range t.Variables {
			s.vars[id.Name] = v
		}
	case *ast.ExpressionStatement:
		s.eval(t.Expression)
	case *ast.ForLoop:
		s.execBlock(t.Pre)
		for s.eval(t.Condition) != 0 {
			s.execBlock(t.Body)
			s.execBlock(t.Post)
		}
	default:
		panic("interpState.exec: unsupported statement node")
	}
}

func (s *interpState) execBlock(b *ast.Block) {
	if b == nil {
		return
	}
	for _, stmt := range b.Statements {
		s.exec(stmt)
	}
}

// TestUnrollPreservesSemantics checks property P7: running the unrolled
// block on an interpreter yields the same final variable bindings and the
// same observable sstore trace as running the original loop, for a loop
// whose iteration count is statically determinable.
func TestUnrollPreservesSemantics(t *testing.T) {
	loop := countedLoop(6, &ast.ExpressionStatement{
		Expression: call("sstore", ident("i"), call("mul", ident("i"), lit(2))),
	})
	original := block(loop)

	before := newInterpState()
	before.execBlock(original)

	decision := Analyze(loop, original.Statements, 0, DefaultConfig())
	require.True(t, decision.ShouldUnroll, "reason: %s (%s)", decision.Reason, decision.FailureMode)

	unrolled := Rewrite(context.Background(), original, DefaultConfig())
	after := newInterpState()
	after.execBlock(unrolled)

	assert.Equal(t, before.vars, after.vars)
	assert.Equal(t, before.stores, after.stores)
	assert.NotEmpty(t, before.stores, "fixture should have actually exercised the loop body")
}

// TestUnrollPreservesSemanticsWithPostSideEffects checks the same property
// on a loop whose post-block itself calls a builtin with an observable
// effect, so the flattened per-iteration Body+Post ordering is exercised.
func TestUnrollPreservesSemanticsWithPostSideEffects(t *testing.T) {
	loop := &ast.ForLoop{
		Pre:       block(decl("i", lit(0))),
		Condition: call("lt", ident("i"), lit(4)),
		Post: block(
			&ast.ExpressionStatement{Expression: call("sstore", lit(100), ident("i"))},
			assign("i", call("add", ident("i"), lit(1))),
		),
		Body: block(&ast.ExpressionStatement{
			Expression: call("sstore", ident("i"), ident("i")),
		}),
	}
	original := block(loop)

	before := newInterpState()
	before.execBlock(original)

	decision := Analyze(loop, original.Statements, 0, DefaultConfig())
	require.True(t, decision.ShouldUnroll, "reason: %s (%s)", decision.Reason, decision.FailureMode)

	unrolled := Rewrite(context.Background(), original, DefaultConfig())
	after := newInterpState()
	after.execBlock(unrolled)

	assert.Equal(t, before.vars, after.vars)
	assert.Equal(t, before.stores, after.stores)
}
