package ssa

import (
	"github.com/holiman/uint256"
	"github.com/nikandfor/errors"
	"tlog.app/go/tlog"

	"github.com/yulir-lang/yulir/internal/ast"
	"github.com/yulir-lang/yulir/internal/scope"
)

func (b *Builder) buildStatements(stmts []ast.Statement) {
	for _, s := range stmts {
		b.buildStmt(s)
	}
}

func (b *Builder) buildStmt(s ast.Statement) {
	switch st := s.(type) {
	case *ast.Block:
		b.buildNestedBlock(st)
	case *ast.VariableDeclaration:
		b.buildVariableDeclaration(st)
	case *ast.Assignment:
		b.buildAssignment(st)
	case *ast.ExpressionStatement:
		b.evalExpr(st.Expression)
	case *ast.If:
		b.buildIf(st)
	case *ast.Switch:
		b.buildSwitch(st)
	case *ast.ForLoop:
		b.buildForLoop(st)
	case *ast.Break:
		b.buildBreak()
	case *ast.Continue:
		b.buildContinue()
	case *ast.Leave:
		b.buildLeave()
	case *ast.FunctionDefinition:
		b.buildFunctionDefinition(st)
	default:
		panic(errors.New("ssa: unhandled statement %T", s))
	}
}

func (b *Builder) buildNestedBlock(blk *ast.Block) {
	prev := b.scopeNode
	if s := b.scopes.ScopeOf(blk); s != nil {
		b.scopeNode = blk
	}
	b.buildStatements(blk.Statements)
	b.scopeNode = prev
}

func (b *Builder) zeroLiteral() ValueId {
	return b.g.NewLiteral("", uint256.NewInt(0))
}

func (b *Builder) buildVariableDeclaration(d *ast.VariableDeclaration) {
	values := b.evalRHS(d.Value, len(d.Variables))
	for i, tn := range d.Variables {
		v := b.resolveVariable(tn.Name)
		b.writeVariable(v, b.cur, b.materialize(values[i]))
	}
}

func (b *Builder) buildAssignment(a *ast.Assignment) {
	values := b.evalRHS(a.Value, len(a.Variables))
	for i, ident := range a.Variables {
		v := b.resolveVariable(ident.Name)
		b.writeVariable(v, b.cur, b.materialize(values[i]))
	}
}

// evalRHS evaluates the right-hand side of a declaration/assignment, or
// synthesizes `want` literal zeros if value is nil (§4.3).
func (b *Builder) evalRHS(value ast.Expression, want int) []ValueId {
	if value == nil {
		vals := make([]ValueId, want)
		for i := range vals {
			vals[i] = b.zeroLiteral()
		}
		return vals
	}
	return b.evalExpr(value)
}

func (b *Builder) buildIf(n *ast.If) {
	if lit, ok := b.literalValue(n.Condition); ok {
		if !lit.IsZero() {
			b.buildStmt(n.Body)
		}
		return
	}

	cond := b.evalExprSingle(n.Condition)
	ifBranch := b.g.MakeBlock("if.then")
	afterIf := b.g.MakeBlock("if.after")

	b.g.Block(b.cur).Exit = Exit{Kind: ExitConditionalJump, Condition: cond, NonZero: ifBranch, Zero: afterIf}
	b.addEdge(b.cur, ifBranch)
	b.addEdge(b.cur, afterIf)
	b.sealBlock(ifBranch)

	b.cur = ifBranch
	b.buildStmt(n.Body)
	b.jumpTo(afterIf)

	b.sealBlock(afterIf)
	b.cur = afterIf
}

func (b *Builder) buildSwitch(s *ast.Switch) {
	if lit, ok := b.literalValue(s.Expression); ok {
		for _, c := range s.Cases {
			if c.Value != nil && c.Value.Value.Eq(lit) {
				b.buildStmt(c.Body)
				return
			}
		}
		for _, c := range s.Cases {
			if c.Value == nil {
				b.buildStmt(c.Body)
				return
			}
		}
		return
	}

	selector := b.evalExprSingle(s.Expression)
	afterSwitch := b.g.MakeBlock("switch.after")

	if b.config.UseJumpTableForSwitch {
		b.buildJumpTableSwitch(s, selector, afterSwitch)
		return
	}

	eqHandle, ok := b.dialect.Equal()
	if !ok {
		panic(errors.New("ssa: dialect has no equality builtin for switch lowering"))
	}

	var defaultCase *ast.Block
	cmp := b.cur
	for _, c := range s.Cases {
		if c.Value == nil {
			defaultCase = c.Body
			continue
		}
		caseLit := b.g.NewLiteral("", c.Value.Value)
		eqOut := b.g.NewVariable(cmp)
		b.g.Block(cmp).Operations = append(b.g.Block(cmp).Operations, &Operation{
			Outputs:  []ValueId{eqOut},
			Kind:     OpBuiltinCall,
			Builtin:  eqHandle,
			Inputs:   []ValueId{selector, caseLit},
			CallSite: b.allocCallSite(),
		})

		caseBlock := b.g.MakeBlock("switch.case")
		nextCmp := b.g.MakeBlock("switch.next")
		b.g.Block(cmp).Exit = Exit{Kind: ExitConditionalJump, Condition: eqOut, NonZero: caseBlock, Zero: nextCmp}
		b.addEdge(cmp, caseBlock)
		b.addEdge(cmp, nextCmp)
		b.sealBlock(caseBlock)
		b.sealBlock(nextCmp)

		b.cur = caseBlock
		b.buildStmt(c.Body)
		b.jumpTo(afterSwitch)

		b.cur = nextCmp
		cmp = nextCmp
	}

	if defaultCase != nil {
		b.buildStmt(defaultCase)
	}
	b.jumpTo(afterSwitch)

	b.sealBlock(afterSwitch)
	b.cur = afterSwitch
}

// buildJumpTableSwitch lowers a switch to a single dense JumpTable exit
// (§4.3, gated by useJumpTableForSwitch). Every case block has cmp as its
// sole predecessor.
func (b *Builder) buildJumpTableSwitch(s *ast.Switch, selector ValueId, afterSwitch BlockId) {
	cmp := b.cur
	var cases []JumpCase
	defaultTarget := afterSwitch
	haveDefault := false

	for _, c := range s.Cases {
		block := b.g.MakeBlock("switch.case")
		b.addEdge(cmp, block)
		b.sealBlock(block)

		if c.Value == nil {
			defaultTarget = block
			haveDefault = true
		} else {
			cases = append(cases, JumpCase{Value: c.Value.Value, Target: block})
		}

		b.cur = block
		b.buildStmt(c.Body)
		b.jumpTo(afterSwitch)
	}

	if !haveDefault {
		b.addEdge(cmp, afterSwitch)
	}

	b.g.Block(cmp).Exit = Exit{Kind: ExitJumpTable, TableValue: selector, Cases: cases, Default: defaultTarget}

	b.sealBlock(afterSwitch)
	b.cur = afterSwitch
}

// buildForLoop implements §4.3's four-block for-loop shape. loopCond is
// kept as a (possibly degenerate, unconditionally-taken) header block
// rather than being physically elided when the condition is a literal
// true, since it must still receive both the initial edge and the
// back edge and be sealed last; only the conditional-jump synthesis is
// skipped.
func (b *Builder) buildForLoop(f *ast.ForLoop) {
	b.buildStmt(f.Pre)

	if lit, ok := b.literalValue(f.Condition); ok && lit.IsZero() {
		afterLoop := b.g.MakeBlock("loop.after")
		b.jumpTo(afterLoop)
		b.sealBlock(afterLoop)
		b.cur = afterLoop
		return
	}
	litTrue := false
	if lit, ok := b.literalValue(f.Condition); ok && !lit.IsZero() {
		litTrue = true
	}

	loopCond := b.g.MakeBlock("loop.cond")
	loopBody := b.g.MakeBlock("loop.body")
	post := b.g.MakeBlock("loop.post")
	afterLoop := b.g.MakeBlock("loop.after")

	b.jumpTo(loopCond)

	b.loopStack = append(b.loopStack, loopTarget{breakTarget: afterLoop, continueTarget: post})

	b.cur = loopCond
	if litTrue {
		b.g.Block(loopCond).Exit = Exit{Kind: ExitJump, Target: loopBody}
		b.addEdge(loopCond, loopBody)
	} else {
		cond := b.evalExprSingle(f.Condition)
		b.g.Block(loopCond).Exit = Exit{Kind: ExitConditionalJump, Condition: cond, NonZero: loopBody, Zero: afterLoop}
		b.addEdge(loopCond, loopBody)
		b.addEdge(loopCond, afterLoop)
	}

	b.sealBlock(loopBody)
	b.cur = loopBody
	b.buildStmt(f.Body)
	b.jumpTo(post)

	b.sealBlock(post)
	b.cur = post
	b.buildStmt(f.Post)
	b.jumpTo(loopCond)

	b.sealBlock(loopCond)

	b.loopStack = b.loopStack[:len(b.loopStack)-1]

	b.sealBlock(afterLoop)
	b.cur = afterLoop
}

func (b *Builder) buildBreak() {
	if len(b.loopStack) == 0 {
		panic(errors.New("ssa: break outside any loop"))
	}
	target := b.loopStack[len(b.loopStack)-1].breakTarget
	b.jumpTo(target)
	b.startUnreachableBlock("after.break")
}

func (b *Builder) buildContinue() {
	if len(b.loopStack) == 0 {
		panic(errors.New("ssa: continue outside any loop"))
	}
	target := b.loopStack[len(b.loopStack)-1].continueTarget
	b.jumpTo(target)
	b.startUnreachableBlock("after.continue")
}

func (b *Builder) buildLeave() {
	rets := make([]ValueId, len(b.returnVars))
	for i, v := range b.returnVars {
		rets[i] = b.readVariable(v, b.cur)
	}
	b.g.Block(b.cur).Exit = Exit{Kind: ExitFunctionReturn, ReturnValues: rets}
	b.startUnreachableBlock("after.leave")
}

// buildFunctionDefinition builds fd's body into its own fresh SSACFG,
// saving and restoring the builder's entire mutable context around the
// recursive descent (§4.3 "Function definition").
func (b *Builder) buildFunctionDefinition(fd *ast.FunctionDefinition) {
	fnID, ok := b.resolveFunction(fd.Name)
	if !ok {
		panic(errors.New("ssa: undeclared function %q", fd.Name))
	}
	g, _ := b.cf.GraphFor(fnID)

	savedG, savedCur := b.g, b.cur
	savedDefs, savedLoops := b.defs, b.loopStack
	savedScope, savedReturns := b.scopeNode, b.returnVars
	savedCtx := b.ctx

	tr, ctx := tlog.SpawnFromContextAndWrap(b.ctx, "ssa: build function", "name", fd.Name)
	defer tr.Finish()
	b.ctx = ctx

	b.g = g
	b.defs = nil
	b.loopStack = nil
	g.CanContinue = b.effects.CanContinue(fd.Name)
	b.sealBlock(g.Entry)
	b.cur = g.Entry
	b.scopeNode = fd.Body

	bodyScope := b.scopes.ScopeOf(fd.Body)

	g.Arguments = make([]ValueId, len(fd.Parameters))
	for i, p := range fd.Parameters {
		v := mustLocalVariable(bodyScope, p.Name)
		val := g.NewVariable(g.Entry)
		g.Arguments[i] = val
		b.writeVariable(v, g.Entry, val)
	}

	zero := g.NewLiteral("", uint256.NewInt(0))
	g.Returns = make([]ValueId, len(fd.Returns))
	returnVars := make([]*scope.Variable, len(fd.Returns))
	for i, r := range fd.Returns {
		v := mustLocalVariable(bodyScope, r.Name)
		returnVars[i] = v
		g.Returns[i] = zero
		b.writeVariable(v, g.Entry, zero)
	}
	b.returnVars = returnVars

	b.buildStatements(fd.Body.Statements)
	if b.g.Block(b.cur).Exit.Kind == ExitInvalid {
		b.buildLeave()
	}

	b.g, b.cur = savedG, savedCur
	b.defs, b.loopStack = savedDefs, savedLoops
	b.scopeNode, b.returnVars = savedScope, savedReturns
	b.ctx = savedCtx
}

func mustLocalVariable(s *scope.Scope, name string) *scope.Variable {
	id, ok := s.LookupLocal(name)
	if !ok {
		panic(errors.New("ssa: %q not declared in function's own scope", name))
	}
	v, ok := id.(*scope.Variable)
	if !ok {
		panic(errors.New("ssa: %q is not a variable", name))
	}
	return v
}
