package ssa

import (
	"github.com/nikandfor/errors"

	"github.com/yulir-lang/yulir/internal/ast"
	"github.com/yulir-lang/yulir/internal/dialect"
	"github.com/yulir-lang/yulir/internal/scope"
)

// evalExpr evaluates e in the current block, returning one ValueId per
// result (more than one only for a call to a multi-return function).
func (b *Builder) evalExpr(e ast.Expression) []ValueId {
	switch ex := e.(type) {
	case *ast.Literal:
		return []ValueId{b.g.NewLiteral("", ex.Value)}
	case *ast.Identifier:
		v := b.resolveVariable(ex.Name)
		return []ValueId{b.readVariable(v, b.cur)}
	case *ast.FunctionCall:
		return b.evalCall(ex)
	case *ast.BuiltinName:
		panic(errors.New("ssa: %q used as a value outside a literal-argument position", ex.Name))
	default:
		panic(errors.New("ssa: unhandled expression %T", e))
	}
}

func (b *Builder) evalExprSingle(e ast.Expression) ValueId {
	vs := b.evalExpr(e)
	if len(vs) != 1 {
		panic(errors.New("ssa: expected single-valued expression, got %d values", len(vs)))
	}
	return vs[0]
}

func (b *Builder) evalCall(c *ast.FunctionCall) []ValueId {
	name := c.Function.Name
	if fn, ok := b.resolveFunction(name); ok {
		return b.evalUserCall(fn, c)
	}
	handle, ok := b.dialect.FindBuiltin(name, b.config.ObjectAccess)
	if !ok {
		panic(errors.New("ssa: unresolved call to %q", name))
	}
	return b.evalBuiltinCall(handle, c)
}

// evalBuiltinCall lowers a call to a dialect builtin. Arguments are
// evaluated in reverse source order (top-of-stack first, §3); positions
// the descriptor marks literal are carried by AST reference and never
// evaluated (§4.3 "Function call expression").
func (b *Builder) evalBuiltinCall(handle dialect.BuiltinHandle, c *ast.FunctionCall) []ValueId {
	desc := b.dialect.Builtin(handle)

	var inputs []ValueId
	var literalArgs map[int]ast.Expression
	for i := len(c.Arguments) - 1; i >= 0; i-- {
		if desc.IsLiteralArgument(i) {
			if literalArgs == nil {
				literalArgs = make(map[int]ast.Expression)
			}
			literalArgs[i] = c.Arguments[i]
			continue
		}
		inputs = append(inputs, b.evalExprSingle(c.Arguments[i]))
	}

	outputs := make([]ValueId, desc.NumOut)
	for i := range outputs {
		outputs[i] = b.g.NewVariable(b.cur)
	}

	b.emit(&Operation{
		Outputs:     outputs,
		Kind:        OpBuiltinCall,
		Inputs:      inputs,
		Builtin:     handle,
		CallSite:    b.allocCallSite(),
		LiteralArgs: literalArgs,
	})

	if desc.ControlFlow == dialect.EffectTerminates {
		b.g.Block(b.cur).Exit = Exit{Kind: ExitTerminated}
		b.startUnreachableBlock("after.terminate")
	}

	return outputs
}

// evalUserCall lowers a call to a user-defined function. Every argument
// is evaluated (no literal-argument positions exist for user functions).
func (b *Builder) evalUserCall(fn *scope.Function, c *ast.FunctionCall) []ValueId {
	_, fgID := b.cf.GraphFor(fn)

	inputs := make([]ValueId, 0, len(c.Arguments))
	for i := len(c.Arguments) - 1; i >= 0; i-- {
		inputs = append(inputs, b.evalExprSingle(c.Arguments[i]))
	}

	outputs := make([]ValueId, fn.NumReturns)
	for i := range outputs {
		outputs[i] = b.g.NewVariable(b.cur)
	}

	canContinue := b.effects.CanContinue(fn.Name)
	b.emit(&Operation{
		Outputs:     outputs,
		Kind:        OpCall,
		Inputs:      inputs,
		Function:    fgID,
		CallSite:    b.allocCallSite(),
		CanContinue: canContinue,
	})

	if !canContinue {
		b.g.Block(b.cur).Exit = Exit{Kind: ExitTerminated}
		b.startUnreachableBlock("after.terminate")
	}

	return outputs
}
