package astopt

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/yulir-lang/yulir/internal/ast"
)

// Rewrite returns a new block in which every for-loop whose Analyze
// decision says to unroll it is replaced by its unrolled statements,
// recursing into nested blocks (If/Switch/ForLoop/FunctionDefinition
// bodies); block itself is not modified. A loop the analyzer declines is
// kept as a loop, with its own Pre/Body/Post still visited. Statements
// produced by unrolling are not visited again, so a loop nested inside an
// unrolled body stays a loop. Every decision, accepted or rejected, is
// traced under the span found in ctx.
func Rewrite(ctx context.Context, block *ast.Block, cfg Config) *ast.Block {
	if block == nil {
		return nil
	}
	tr := tlog.SpanFromContext(ctx)
	out := make([]ast.Statement, 0, len(block.Statements))
	for i, s := range block.Statements {
		switch t := s.(type) {
		case *ast.ForLoop:
			decision := Analyze(t, block.Statements, i, cfg)
			if tr.If("unroll_decision") {
				tr.Printw("astopt: unroll", "should_unroll", decision.ShouldUnroll,
					"reason", decision.Reason, "failure_mode", decision.FailureMode)
			}
			if decision.ShouldUnroll {
				out = append(out, unroll(t, decision)...)
				continue
			}
			out = append(out, &ast.ForLoop{
				Pre:       Rewrite(ctx, t.Pre, cfg),
				Condition: t.Condition,
				Post:      Rewrite(ctx, t.Post, cfg),
				Body:      Rewrite(ctx, t.Body, cfg),
				Pos:       t.Pos,
			})
		case *ast.If:
			out = append(out, &ast.If{Condition: t.Condition, Body: Rewrite(ctx, t.Body, cfg), Pos: t.Pos})
		case *ast.Switch:
			cases := make([]ast.Case, len(t.Cases))
			for j, c := range t.Cases {
				cases[j] = ast.Case{Value: c.Value, Body: Rewrite(ctx, c.Body, cfg)}
			}
			out = append(out, &ast.Switch{Expression: t.Expression, Cases: cases, Pos: t.Pos})
		case *ast.FunctionDefinition:
			out = append(out, &ast.FunctionDefinition{
				Name: t.Name, Parameters: t.Parameters, Returns: t.Returns,
				Body: Rewrite(ctx, t.Body, cfg), Pos: t.Pos,
			})
		case *ast.Block:
			out = append(out, Rewrite(ctx, t, cfg))
		default:
			out = append(out, s)
		}
	}
	return &ast.Block{Statements: out, Pos: block.Pos}
}

// unroll expands a fully-decided loop into Pre's statements followed by
// IterationCount copies of Body+Post, each read of the induction variable
// replaced by a literal holding its value at that point. The value
// advances right after each copy of an assignment to the variable (the
// step update), so statements after the update, in Body or Post, read the
// updated value. The assignments themselves are kept, so the variable
// still ends with the value the loop would leave in it.
func unroll(loop *ast.ForLoop, decision UnrollDecision) []ast.Statement {
	var out []ast.Statement
	if loop.Pre != nil {
		out = append(out, loop.Pre.Statements...)
	}

	cur := decision.init.Clone()
	emit := func(s ast.Statement) {
		out = append(out, substituteStatement(s, decision.inductionVar, cur))
		if a, ok := s.(*ast.Assignment); ok && len(a.Variables) == 1 && a.Variables[0].Name == decision.inductionVar {
			cur = advance(cur, decision.step, decision.stepOp)
		}
	}
	for i := 0; i < decision.IterationCount; i++ {
		for _, s := range loop.Body.Statements {
			emit(s)
		}
		if loop.Post != nil {
			for _, s := range loop.Post.Statements {
				emit(s)
			}
		}
	}
	return out
}
