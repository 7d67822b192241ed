package astopt

import (
	"github.com/holiman/uint256"

	"github.com/yulir-lang/yulir/internal/ast"
)

// substituteStatement deep-clones s, replacing every read of name with a
// fresh literal carrying value. Assignment/declaration targets (the left
// side of `:=`) are never substituted, so an assignment to name stays an
// assignment to name.
func substituteStatement(s ast.Statement, name string, value *uint256.Int) ast.Statement {
	switch t := s.(type) {
	case *ast.Block:
		return substituteBlock(t, name, value)
	case *ast.VariableDeclaration:
		var v ast.Expression
		if t.Value != nil {
			v = substituteExpression(t.Value, name, value)
		}
		return &ast.VariableDeclaration{Variables: t.Variables, Value: v, Pos: t.Pos}
	case *ast.Assignment:
		vars := append([]ast.Identifier(nil), t.Variables...)
		return &ast.Assignment{Variables: vars, Value: substituteExpression(t.Value, name, value), Pos: t.Pos}
	case *ast.ExpressionStatement:
		return &ast.ExpressionStatement{Expression: substituteExpression(t.Expression, name, value), Pos: t.Pos}
	case *ast.If:
		return &ast.If{Condition: substituteExpression(t.Condition, name, value), Body: substituteBlock(t.Body, name, value), Pos: t.Pos}
	case *ast.Switch:
		cases := make([]ast.Case, len(t.Cases))
		for i, c := range t.Cases {
			cases[i] = ast.Case{Value: c.Value, Body: substituteBlock(c.Body, name, value)}
		}
		return &ast.Switch{Expression: substituteExpression(t.Expression, name, value), Cases: cases, Pos: t.Pos}
	case *ast.ForLoop:
		return &ast.ForLoop{
			Pre:       substituteBlock(t.Pre, name, value),
			Condition: substituteExpression(t.Condition, name, value),
			Post:      substituteBlock(t.Post, name, value),
			Body:      substituteBlock(t.Body, name, value),
			Pos:       t.Pos,
		}
	case *ast.Break, *ast.Continue, *ast.Leave, *ast.FunctionDefinition:
		return s
	default:
		return s
	}
}

func substituteBlock(b *ast.Block, name string, value *uint256.Int) *ast.Block {
	if b == nil {
		return nil
	}
	stmts := make([]ast.Statement, len(b.Statements))
	for i, s := range b.Statements {
		stmts[i] = substituteStatement(s, name, value)
	}
	return &ast.Block{Statements: stmts, Pos: b.Pos}
}

func substituteExpression(e ast.Expression, name string, value *uint256.Int) ast.Expression {
	switch t := e.(type) {
	case *ast.Identifier:
		if t.Name == name {
			return &ast.Literal{Value: value.Clone(), Pos: t.Pos}
		}
		return t
	case *ast.Literal:
		return t
	case *ast.BuiltinName:
		return t
	case *ast.FunctionCall:
		args := make([]ast.Expression, len(t.Arguments))
		for i, a := range t.Arguments {
			args[i] = substituteExpression(a, name, value)
		}
		return &ast.FunctionCall{Function: t.Function, Arguments: args, Pos: t.Pos}
	default:
		return e
	}
}
