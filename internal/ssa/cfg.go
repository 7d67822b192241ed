package ssa

import (
	"github.com/holiman/uint256"

	"github.com/yulir-lang/yulir/internal/scope"
)

// SSACFG is one control-flow graph — either the top-level main graph or
// one function's body (§3). Blocks and values are allocated monotonically
// and owned exclusively by this graph (§5 "Shared-resource policy").
type SSACFG struct {
	Entry BlockId
	Exits map[BlockId]bool

	Blocks []*Block // indexed by BlockId

	valueInfo map[ValueId]*ValueInfo
	phis      map[ValueId]*Phi

	// Arguments holds one Variable ValueId per parameter, in declaration
	// order (function graphs only).
	Arguments []ValueId

	// Returns holds, per return parameter in declaration order (function
	// graphs only), the zero literal the parameter starts out with.
	Returns []ValueId

	// Function is nil for the main graph, and the resolved function
	// symbol for a function graph.
	Function *scope.Function

	// CanContinue is true for the main graph. For a function graph, it
	// is the per-function canContinue bit supplied by the side-effect
	// analyzer (§6 SideEffectInfo) and consumed while lowering calls.
	CanContinue bool

	nextLiteralIndex    int32
	nextPhiIndex        int32
	nextVariableIndex   int32
	unreachable         ValueId
	unreachableMinted   bool
}

// New creates an empty SSACFG with a single unsealed entry block.
func New() *SSACFG {
	g := &SSACFG{
		Exits:     make(map[BlockId]bool),
		valueInfo: make(map[ValueId]*ValueInfo),
		phis:      make(map[ValueId]*Phi),
	}
	g.Entry = g.MakeBlock("entry")
	return g
}

// MakeBlock allocates a fresh, unsealed block with no predecessors.
func (g *SSACFG) MakeBlock(debug string) BlockId {
	id := BlockId(len(g.Blocks))
	g.Blocks = append(g.Blocks, &Block{
		ID:             id,
		incompletePhis: make(map[interface{}]ValueId),
		Debug:          debug,
	})
	return id
}

// Block returns the block for id.
func (g *SSACFG) Block(id BlockId) *Block { return g.Blocks[id] }

// NewLiteral allocates an immutable Literal value.
func (g *SSACFG) NewLiteral(debug string, v *uint256.Int) ValueId {
	id := ValueId{Kind: KindLiteral, Index: g.nextLiteralIndex}
	g.nextLiteralIndex++
	g.valueInfo[id] = &ValueInfo{Kind: KindLiteral, Literal: v, Debug: debug}
	return id
}

// NewVariable allocates a Variable value defined in definingBlock (the
// result of some future operation; the operation itself assigns the
// value's identity, this call only reserves it).
func (g *SSACFG) NewVariable(definingBlock BlockId) ValueId {
	id := ValueId{Kind: KindVariable, Index: g.nextVariableIndex}
	g.nextVariableIndex++
	g.valueInfo[id] = &ValueInfo{Kind: KindVariable, DefBlock: definingBlock}
	return id
}

// NewPhi allocates an operand-less Phi in block. Callers are responsible
// for appending it to block.Phis.
func (g *SSACFG) NewPhi(block BlockId) ValueId {
	id := ValueId{Kind: KindPhi, Index: g.nextPhiIndex}
	g.nextPhiIndex++
	g.valueInfo[id] = &ValueInfo{Kind: KindPhi, DefBlock: block}
	g.phis[id] = &Phi{Block: block}
	return id
}

// UnreachableValue returns the canonical Unreachable sentinel, minting it
// on first use.
func (g *SSACFG) UnreachableValue() ValueId {
	if !g.unreachableMinted {
		g.unreachable = ValueId{Kind: KindUnreachable}
		g.valueInfo[g.unreachable] = &ValueInfo{Kind: KindUnreachable}
		g.unreachableMinted = true
	}
	return g.unreachable
}

// ValueInfoOf returns the variant payload for id.
func (g *SSACFG) ValueInfoOf(id ValueId) (*ValueInfo, bool) {
	vi, ok := g.valueInfo[id]
	return vi, ok
}

// PhiOf returns the Phi record for id.
func (g *SSACFG) PhiOf(id ValueId) (*Phi, bool) {
	p, ok := g.phis[id]
	return p, ok
}

// PhiArgumentIndex returns the index at which predecessor appears in
// successor.Entries under the stable ordering (§4.2).
func (g *SSACFG) PhiArgumentIndex(predecessor, successor BlockId) (int, bool) {
	return g.Block(successor).EntryIndex(predecessor)
}

// deletePhi removes a phi's bookkeeping entirely (used by trivial-phi
// elimination once every reference has been rewritten).
func (g *SSACFG) deletePhi(id ValueId) {
	delete(g.phis, id)
	delete(g.valueInfo, id)
}

// NumBlocks returns the number of blocks allocated in this graph.
func (g *SSACFG) NumBlocks() int { return len(g.Blocks) }

// NumValues returns the number of values of any kind allocated so far
// (excluding the Unreachable sentinel, which is at most one).
func (g *SSACFG) NumValues() int {
	return int(g.nextLiteralIndex + g.nextPhiIndex + g.nextVariableIndex)
}
