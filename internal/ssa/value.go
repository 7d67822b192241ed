package ssa

import (
	"github.com/holiman/uint256"

	"github.com/yulir-lang/yulir/internal/ast"
	"github.com/yulir-lang/yulir/internal/dialect"
)

// ValueInfo is the variant payload for one ValueId (§3: "valueInfo: map
// ValueId→variant"). Which fields are meaningful depends on Kind.
type ValueInfo struct {
	Kind ValueKind

	// DefBlock is set for Phi and Variable: the block the value is
	// defined in.
	DefBlock BlockId

	// Literal is set for Literal values.
	Literal *uint256.Int

	// Debug is an optional human-readable label, carried through to the
	// printer; never semantically meaningful.
	Debug string
}

// Phi is a block-scoped merge point (§3). The i-th argument corresponds
// to the i-th predecessor in Block.Entries at the moment the phi was
// completed (sealed or trivially-reduced).
type Phi struct {
	Block     BlockId
	Arguments []ValueId
}

// OperationKind distinguishes the three operation shapes of §3.
type OperationKind uint8

const (
	OpBuiltinCall OperationKind = iota
	OpCall
	OpLiteralAssignment
)

func (k OperationKind) String() string {
	switch k {
	case OpBuiltinCall:
		return "builtinCall"
	case OpCall:
		return "call"
	case OpLiteralAssignment:
		return "literalAssignment"
	default:
		return "invalid"
	}
}

// Operation is `(outputs, kind, inputs)` per §3. Inputs are stored in
// reverse argument order (top-of-stack first): Inputs[0] is the last
// source-order argument.
type Operation struct {
	Outputs []ValueId
	Kind    OperationKind
	Inputs  []ValueId

	// BuiltinCall fields.
	Builtin     dialect.BuiltinHandle
	CallSite    CallSiteID
	LiteralArgs map[int]ast.Expression // source argument index -> unevaluated AST node

	// Call fields (a call to a user function graph).
	Function    FunctionGraphID
	CanContinue bool

	// LiteralAssignment field: the wrapped literal output.
	Literal *uint256.Int
}
