package ssa

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/nikandfor/errors"
	"tlog.app/go/tlog"

	"github.com/yulir-lang/yulir/internal/ast"
	"github.com/yulir-lang/yulir/internal/dialect"
	"github.com/yulir-lang/yulir/internal/effects"
	"github.com/yulir-lang/yulir/internal/scope"
)

// Config carries the three recognized configuration options of §6.
type Config struct {
	ObjectAccess           bool
	KeepLiteralAssignments bool
	UseJumpTableForSwitch  bool
}

type loopTarget struct {
	breakTarget    BlockId
	continueTarget BlockId
}

// Builder implements the on-the-fly SSA construction of Braun et al.
// (§4.3), consuming a dialect, a scope table, and side-effect info, and
// producing a ControlFlow.
type Builder struct {
	cf      *ControlFlow
	dialect *dialect.Dialect
	scopes  *scope.Table
	effects *effects.Info
	config  Config

	// Mutable "current context", saved and restored around a nested
	// FunctionDefinition (§4.3 "Function definition").
	g          *SSACFG
	cur        BlockId
	defs       defMap
	loopStack  []loopTarget
	scopeNode  interface{}
	returnVars []*scope.Variable

	// ctx carries the trace span for the graph currently being built;
	// saved and restored around a nested FunctionDefinition alongside the
	// rest of the mutable context, so each function graph gets its own
	// span nested under the caller's.
	ctx context.Context

	nextCallSite CallSiteID
}

// NewBuilder creates a builder over a fresh ControlFlow.
func NewBuilder(d *dialect.Dialect, scopes *scope.Table, eff *effects.Info, cfg Config) *Builder {
	return &Builder{
		cf:      NewControlFlow(),
		dialect: d,
		scopes:  scopes,
		effects: eff,
		config:  cfg,
		ctx:     context.Background(),
	}
}

// --- Braun on-the-fly SSA construction (§4.3) ---

func (b *Builder) writeVariable(v *scope.Variable, block BlockId, value ValueId) {
	if b.defs == nil {
		b.defs = make(defMap)
	}
	m, ok := b.defs[v]
	if !ok {
		m = make(map[BlockId]ValueId)
		b.defs[v] = m
	}
	m[block] = value
}

func (b *Builder) readVariable(v *scope.Variable, block BlockId) ValueId {
	if m, ok := b.defs[v]; ok {
		if val, ok := m[block]; ok {
			return val
		}
	}
	return b.readVariableRecursive(v, block)
}

func (b *Builder) readVariableRecursive(v *scope.Variable, block BlockId) ValueId {
	blk := b.g.Block(block)

	if !blk.Sealed {
		phi := b.g.NewPhi(block)
		blk.Phis = append(blk.Phis, phi)
		blk.incompletePhis[v] = phi
		b.writeVariable(v, block, phi)
		return phi
	}

	if len(blk.Entries) == 1 {
		val := b.readVariable(v, blk.Entries[0])
		b.writeVariable(v, block, val)
		return val
	}

	phi := b.g.NewPhi(block)
	blk.Phis = append(blk.Phis, phi)
	b.writeVariable(v, block, phi) // breaks recursive cycles
	b.addPhiOperands(v, phi)
	result := b.tryRemoveTrivialPhi(phi)
	b.writeVariable(v, block, result)
	return result
}

func (b *Builder) addPhiOperands(v *scope.Variable, phi ValueId) {
	p := b.g.phis[phi]
	blk := b.g.Block(p.Block)
	for _, pred := range blk.Entries {
		p.Arguments = append(p.Arguments, b.readVariable(v, pred))
	}
}

// sealBlock marks block as having its final predecessor set (I4).
// Incomplete phis are filled, the block is marked sealed, and only then
// is trivial-phi removal attempted — removal before sealing is forbidden
// because it rewrites every use globally, and a later-added predecessor
// could reintroduce non-triviality (§4.3).
func (b *Builder) sealBlock(block BlockId) {
	blk := b.g.Block(block)
	if blk.Sealed {
		panic(errors.New("ssa: block %s sealed twice", block))
	}
	for v, phi := range blk.incompletePhis {
		b.addPhiOperands(v.(*scope.Variable), phi)
	}
	blk.Sealed = true
	pending := blk.incompletePhis
	blk.incompletePhis = make(map[interface{}]ValueId)
	removed := 0
	for _, phi := range pending {
		if b.tryRemoveTrivialPhi(phi) != phi {
			removed++
		}
	}
	if tr := tlog.SpanFromContext(b.ctx); tr.If("seal_block") {
		tr.Printw("ssa: seal block", "block", block, "phis_completed", len(pending), "phis_removed", removed)
	}
}

func (b *Builder) tryRemoveTrivialPhi(phi ValueId) ValueId {
	return removeTrivialPhi(b.g, b.defs, phi)
}

// --- Construction-time plumbing ---

func (b *Builder) addEdge(from, to BlockId) {
	succ := b.g.Block(to)
	succ.Entries = append(succ.Entries, from)
}

// jumpTo sets the current block's exit to an unconditional Jump, unless
// the block already has an explicit terminator (set by a break, continue,
// leave, or a non-continuing call already processed in it).
func (b *Builder) jumpTo(target BlockId) {
	blk := b.g.Block(b.cur)
	if blk.Exit.Kind != ExitInvalid {
		return
	}
	blk.Exit = Exit{Kind: ExitJump, Target: target}
	b.addEdge(b.cur, target)
}

// startUnreachableBlock opens a fresh, immediately-sealed block with no
// predecessors as the insertion point for code following a break,
// continue, leave, or terminating call (§4.3). It is pruned later by
// CleanUnreachable unless some other edge reaches it.
func (b *Builder) startUnreachableBlock(debug string) {
	nb := b.g.MakeBlock(debug)
	b.sealBlock(nb)
	b.cur = nb
}

func (b *Builder) emit(op *Operation) {
	blk := b.g.Block(b.cur)
	blk.Operations = append(blk.Operations, op)
}

// materialize wraps a literal value in a LiteralAssignment operation when
// keep-literal-assignments is configured, so that later passes observe a
// distinct Variable output rather than reusing the literal ValueId
// directly (§4.3 "Variable declaration / assignment").
func (b *Builder) materialize(val ValueId) ValueId {
	if val.Kind != KindLiteral || !b.config.KeepLiteralAssignments {
		return val
	}
	info, _ := b.g.ValueInfoOf(val)
	out := b.g.NewVariable(b.cur)
	b.emit(&Operation{
		Outputs: []ValueId{out},
		Kind:    OpLiteralAssignment,
		Inputs:  []ValueId{val},
		Literal: info.Literal,
	})
	return out
}

func (b *Builder) allocCallSite() CallSiteID {
	id := b.nextCallSite
	b.nextCallSite++
	return id
}

// literalValue reports whether e is a literal AST node, without
// evaluating it into the SSA graph — used to short-circuit If/Switch/
// ForLoop condition folding (§4.3).
func (b *Builder) literalValue(e ast.Expression) (*uint256.Int, bool) {
	lit, ok := e.(*ast.Literal)
	if !ok {
		return nil, false
	}
	return lit.Value, true
}

func (b *Builder) resolveVariable(name string) *scope.Variable {
	id, ok := b.scopes.Lookup(b.scopeNode, name, func(i scope.Identifier) bool {
		_, ok := i.(*scope.Variable)
		return ok
	})
	if !ok {
		panic(errors.New("ssa: undeclared variable %q", name))
	}
	return id.(*scope.Variable)
}

func (b *Builder) resolveFunction(name string) (*scope.Function, bool) {
	id, ok := b.scopes.Lookup(b.scopeNode, name, func(i scope.Identifier) bool {
		_, ok := i.(*scope.Function)
		return ok
	})
	if !ok {
		return nil, false
	}
	return id.(*scope.Function), true
}
