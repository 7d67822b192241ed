package ast

import "github.com/holiman/uint256"

// Literal is an immutable numeric constant. The dialect's word size is
// 256 bits, so literal values are carried as *uint256.Int rather than a
// native Go integer type.
type Literal struct {
	Value *uint256.Int
	Pos   Pos
}

func (l *Literal) ExprPos() Pos { return l.Pos }
func (*Literal) aExpression()   {}

// NewLiteral wraps a native uint64 as a dialect literal, for use by
// synthetic nodes (e.g. the builder's injected `leave`, or the unroller's
// substitution of an induction variable by its running value).
func NewLiteral(v uint64) *Literal {
	return &Literal{Value: uint256.NewInt(v)}
}
