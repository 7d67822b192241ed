package astopt

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/yulir-lang/yulir/internal/ast"
)

// stepOp names the arithmetic the induction variable's post-block (or, for
// a do-style counted loop, its body) applies each iteration.
type stepOp int

const (
	stepAdd stepOp = iota
	stepSub
	stepMul
)

// comparator names the condition family recognized as a loop guard.
type comparator int

const (
	cmpLT comparator = iota
	cmpGT
	cmpEQ
	cmpIsZero
)

// Analyze decides whether the for-loop at enclosing[index] is a good
// candidate for full unrolling (§4.9, §7). It never mutates loop or
// enclosing; Rewrite applies the decision separately.
func Analyze(loop *ast.ForLoop, enclosing []ast.Statement, index int, cfg Config) UnrollDecision {
	if containsBreakOrContinue(loop.Body) || containsBreakOrContinue(loop.Post) {
		return reject(FailureNonAffine, "loop body or post contains break/continue; unrolling would need to rewrite control transfers across iteration copies, which this analyzer does not attempt")
	}

	inductionVar, bound, cmp, ok := recognizeGuard(loop.Condition)
	if !ok {
		return reject(FailureNonAffine, "loop condition is not a recognized affine guard (lt/gt/eq/iszero of an identifier and a literal)")
	}

	init, ok := findInitializer(inductionVar, loop, enclosing, index)
	if !ok {
		return reject(FailureNonAffine, fmt.Sprintf("no literal initializer found for induction variable %q", inductionVar))
	}

	step, op, ok := findStep(inductionVar, loop)
	if !ok {
		return reject(FailureNonAffine, fmt.Sprintf("no single homogeneous update of %q found in body/post", inductionVar))
	}
	if step.IsZero() {
		return reject(FailureNonAffine, "induction step is zero")
	}

	count, ok := predictIterationCount(init, bound, cmp, step, op)
	if !ok {
		return reject(FailureUnpredictableCount, "iteration count could not be predicted within the simulation cap")
	}
	if count == 0 {
		return reject(FailureUnpredictableCount, "predicted zero iterations; not worth unrolling a loop that never runs")
	}

	bodySize := countStatements(loop.Body) + countStatements(loop.Post)
	unrolledBytes := 4 * bodySize * count
	if unrolledBytes > cfg.MaxContractSize-cfg.SizeHeadroom {
		return reject(FailureOversized, fmt.Sprintf("projected unrolled size %d bytes exceeds budget (limit %d, headroom %d)",
			unrolledBytes, cfg.MaxContractSize, cfg.SizeHeadroom))
	}

	saved, cost := estimateGasDelta(loop, count, cfg, inductionVar)
	if saved <= cost {
		return reject(FailureUnprofitable, fmt.Sprintf("estimated gas saved (%d) does not exceed one-time deployment cost (%d)", saved, cost))
	}

	return UnrollDecision{
		ShouldUnroll:   true,
		Reason:         fmt.Sprintf("%d iterations, saves an estimated %d gas over deployment cost %d", count, saved, cost),
		FailureMode:    FailureNone,
		IterationCount: count,
		inductionVar:   inductionVar,
		init:           init,
		step:           step,
		stepOp:         op,
	}
}

// recognizeGuard matches `lt(i, N)`, `gt(i, N)`, `eq(i, N)` (either operand
// order) and the single-argument `iszero(i)` form, whose loop runs while i
// is zero.
func recognizeGuard(cond ast.Expression) (name string, bound *uint256.Int, cmp comparator, ok bool) {
	call, isCall := cond.(*ast.FunctionCall)
	if !isCall {
		return "", nil, 0, false
	}
	switch call.Function.Name {
	case "lt", "gt", "eq":
		if len(call.Arguments) != 2 {
			return "", nil, 0, false
		}
		var c comparator
		switch call.Function.Name {
		case "lt":
			c = cmpLT
		case "gt":
			c = cmpGT
		case "eq":
			c = cmpEQ
		}
		if id, lit, ok := identAndLiteral(call.Arguments[0], call.Arguments[1]); ok {
			return id, lit, c, true
		}
		// Operand order flipped: gt(N, i) reads the same as lt(i, N), and
		// vice versa; eq is symmetric already.
		if id, lit, ok := identAndLiteral(call.Arguments[1], call.Arguments[0]); ok {
			switch c {
			case cmpLT:
				c = cmpGT
			case cmpGT:
				c = cmpLT
			}
			return id, lit, c, true
		}
		return "", nil, 0, false
	case "iszero":
		if len(call.Arguments) != 1 {
			return "", nil, 0, false
		}
		id, isID := call.Arguments[0].(*ast.Identifier)
		if !isID {
			return "", nil, 0, false
		}
		return id.Name, uint256.NewInt(0), cmpIsZero, true
	default:
		return "", nil, 0, false
	}
}

func identAndLiteral(a, b ast.Expression) (string, *uint256.Int, bool) {
	id, isID := a.(*ast.Identifier)
	lit, isLit := b.(*ast.Literal)
	if isID && isLit {
		return id.Name, lit.Value, true
	}
	return "", nil, false
}

// findInitializer looks for `let name := <literal>` first in the loop's own
// Pre block, then walking backwards through the statements preceding index
// in enclosing (a variable declared just above a bare `for` with no Pre is
// a common idiom).
func findInitializer(name string, loop *ast.ForLoop, enclosing []ast.Statement, index int) (*uint256.Int, bool) {
	if loop.Pre != nil {
		if v, ok := findDeclaredLiteral(name, loop.Pre.Statements); ok {
			return v, ok
		}
	}
	for i := index - 1; i >= 0; i-- {
		decl, ok := enclosing[i].(*ast.VariableDeclaration)
		if !ok {
			continue
		}
		for _, v := range decl.Variables {
			if v.Name == name {
				lit, ok := decl.Value.(*ast.Literal)
				if !ok {
					return nil, false
				}
				return lit.Value, true
			}
		}
	}
	return nil, false
}

func findDeclaredLiteral(name string, stmts []ast.Statement) (*uint256.Int, bool) {
	for _, s := range stmts {
		decl, ok := s.(*ast.VariableDeclaration)
		if !ok {
			continue
		}
		for _, v := range decl.Variables {
			if v.Name == name {
				lit, ok := decl.Value.(*ast.Literal)
				if !ok {
					return nil, false
				}
				return lit.Value, true
			}
		}
	}
	return nil, false
}

// findStep looks for exactly one assignment of the form `name := add(name,
// K)` (or sub/mul, either argument order) across the loop's Post block and
// then its Body, requiring the update be unconditional (a direct statement
// of the block, not nested inside an If/Switch/inner loop) and unique.
func findStep(name string, loop *ast.ForLoop) (*uint256.Int, stepOp, bool) {
	var found *uint256.Int
	var op stepOp
	seen := 0

	scan := func(block *ast.Block) {
		if block == nil {
			return
		}
		for _, s := range block.Statements {
			assign, ok := s.(*ast.Assignment)
			if !ok || len(assign.Variables) != 1 || assign.Variables[0].Name != name {
				continue
			}
			call, ok := assign.Value.(*ast.FunctionCall)
			if !ok || len(call.Arguments) != 2 {
				continue
			}
			var o stepOp
			switch call.Function.Name {
			case "add":
				o = stepAdd
			case "sub":
				o = stepSub
			case "mul":
				o = stepMul
			default:
				continue
			}
			id0, isID0 := call.Arguments[0].(*ast.Identifier)
			id1, isID1 := call.Arguments[1].(*ast.Identifier)
			lit0, isLit0 := call.Arguments[0].(*ast.Literal)
			lit1, isLit1 := call.Arguments[1].(*ast.Literal)
			var k *uint256.Int
			switch {
			case isID0 && id0.Name == name && isLit1:
				k = lit1.Value
			case isID1 && id1.Name == name && isLit0:
				if o == stepSub {
					// sub(K, name) is not a step in name's own direction.
					continue
				}
				k = lit0.Value
			default:
				continue
			}
			seen++
			found, op = k, o
		}
	}
	scan(loop.Post)
	scan(loop.Body)

	if seen != 1 {
		return nil, 0, false
	}
	return found, op, true
}

// predictIterationCount computes how many times the loop body runs before
// the guard trips by simulating the progression. It reports failure once
// the safety cap is hit, for add/sub and mul steps alike, and for a mul
// step whose value stops changing.
func predictIterationCount(init, bound *uint256.Int, cmp comparator, step *uint256.Int, op stepOp) (int, bool) {
	const simulationCap = 1000

	if op == stepAdd || op == stepSub {
		cur := init.Clone()
		count := 0
		for count < simulationCap {
			if !guardHolds(cur, bound, cmp) {
				return count, true
			}
			cur = advance(cur, step, op)
			count++
		}
		return 0, false
	}

	// Geometric progression (mul): no closed form used here, simulate up
	// to the cap.
	cur := init.Clone()
	count := 0
	for count < simulationCap {
		if !guardHolds(cur, bound, cmp) {
			return count, true
		}
		next := advance(cur, step, op)
		if next.Eq(cur) {
			// Fixed point (e.g. mul by 1, or mul by 0 already handled by
			// step != 0 check) — would never terminate.
			return 0, false
		}
		cur = next
		count++
	}
	return 0, false
}

func guardHolds(v, bound *uint256.Int, cmp comparator) bool {
	switch cmp {
	case cmpLT:
		return v.Lt(bound)
	case cmpGT:
		return v.Gt(bound)
	case cmpEQ:
		return v.Eq(bound)
	case cmpIsZero:
		return v.IsZero()
	default:
		return false
	}
}

func advance(v, step *uint256.Int, op stepOp) *uint256.Int {
	out := new(uint256.Int)
	switch op {
	case stepAdd:
		out.Add(v, step)
	case stepSub:
		out.Sub(v, step)
	case stepMul:
		out.Mul(v, step)
	}
	return out
}

// containsBreakOrContinue reports whether a Break or Continue appears
// anywhere in block, not counting inside a nested ForLoop (whose own break/
// continue targets that inner loop, not this one).
func containsBreakOrContinue(block *ast.Block) bool {
	if block == nil {
		return false
	}
	for _, s := range block.Statements {
		switch t := s.(type) {
		case *ast.Break, *ast.Continue:
			return true
		case *ast.If:
			if containsBreakOrContinue(t.Body) {
				return true
			}
		case *ast.Switch:
			for _, c := range t.Cases {
				if containsBreakOrContinue(c.Body) {
					return true
				}
			}
		case *ast.Block:
			if containsBreakOrContinue(t) {
				return true
			}
		}
	}
	return false
}

func countStatements(b *ast.Block) int {
	if b == nil {
		return 0
	}
	n := len(b.Statements)
	for _, s := range b.Statements {
		switch t := s.(type) {
		case *ast.If:
			n += countStatements(t.Body)
		case *ast.Switch:
			for _, c := range t.Cases {
				n += countStatements(c.Body)
			}
		case *ast.ForLoop:
			n += countStatements(t.Pre) + countStatements(t.Post) + countStatements(t.Body)
		case *ast.Block:
			n += countStatements(t)
		}
	}
	return n
}

// estimateGasDelta weighs the per-run savings of eliminating the loop's
// condition evaluation, back-edge jump, induction-variable update, and
// redundant memory traffic against the one-time deployment cost of the
// extra bytecode the unrolled body adds (§4.9 point 5).
func estimateGasDelta(loop *ast.ForLoop, count int, cfg Config, inductionVar string) (saved, cost int) {
	const (
		conditionEvalGas     = 3  // LT/GT/EQ/ISZERO opcode
		conditionalJumpGas   = 10 // JUMPI back to the guard
		unconditionalJumpGas = 8  // JUMP from Post back to the guard
		inductionUpdateGas   = 5  // ADD/SUB/MUL plus the store back to i
		memoryLoadGas        = 3  // warm MLOAD folded away by copy-propagation
		memoryStoreGas       = 3  // redundant MSTORE to an already-stored address
	)

	perIterationSaving := conditionEvalGas + conditionalJumpGas + unconditionalJumpGas

	if inductionOnlyControlsLoop(loop, inductionVar) {
		perIterationSaving += inductionUpdateGas
	}

	loaded, stored := loopMemoryAddresses(loop)
	for addr := range loaded {
		if stored[addr] == 0 {
			perIterationSaving += memoryLoadGas
		}
	}
	for _, n := range stored {
		if n > 1 {
			perIterationSaving += memoryStoreGas * (n - 1)
		}
	}

	saved = perIterationSaving * count * cfg.Runs

	bodySize := countStatements(loop.Body) + countStatements(loop.Post)
	unrolledBytes := 4 * bodySize * count
	// Deployment charges per byte of code; /4 keeps the estimate in the
	// same order of magnitude as the real per-byte CREATE cost.
	cost = unrolledBytes * cfg.GasPerByte / 4
	return saved, cost
}

// inductionOnlyControlsLoop reports whether name is read nowhere in the
// loop's body or post block except in its own recognized step update
// (`name := add(name, K)` and similar, which always reads name exactly
// once). If it is read anywhere beyond that, unrolling cannot drop the
// update as dead code, so the induction-update term is withheld.
func inductionOnlyControlsLoop(loop *ast.ForLoop, name string) bool {
	reads := 0
	count := func(e ast.Expression) { reads += countIdentifierReads(e, name) }
	forEachExpression(loop.Body, count)
	forEachExpression(loop.Post, count)
	return reads <= 1
}

func countIdentifierReads(e ast.Expression, name string) int {
	switch t := e.(type) {
	case *ast.Identifier:
		if t.Name == name {
			return 1
		}
		return 0
	case *ast.FunctionCall:
		n := 0
		for _, a := range t.Arguments {
			n += countIdentifierReads(a, name)
		}
		return n
	default:
		return 0
	}
}

// loopMemoryAddresses scans a loop's body and post block for mload/mstore
// calls whose address argument is simple enough to compare structurally
// (a literal or a bare identifier, matching recognizeGuard's level of
// pattern-matching rather than attempting symbolic equivalence). loaded
// holds every distinct address read by an mload; stored counts, per
// address, how many mstore/mstore8 calls write to it.
func loopMemoryAddresses(loop *ast.ForLoop) (loaded map[string]bool, stored map[string]int) {
	loaded = make(map[string]bool)
	stored = make(map[string]int)

	visit := func(e ast.Expression) {
		walkCalls(e, func(call *ast.FunctionCall) {
			switch call.Function.Name {
			case "mload":
				if len(call.Arguments) == 1 {
					if key, ok := addressKey(call.Arguments[0]); ok {
						loaded[key] = true
					}
				}
			case "mstore", "mstore8":
				if len(call.Arguments) == 2 {
					if key, ok := addressKey(call.Arguments[0]); ok {
						stored[key]++
					}
				}
			}
		})
	}
	forEachExpression(loop.Body, visit)
	forEachExpression(loop.Post, visit)
	return loaded, stored
}

// addressKey returns a comparison key for expressions simple enough to
// recognize as the same memory address on sight; ok is false for anything
// else, in which case the address is treated as unique to its occurrence.
func addressKey(e ast.Expression) (string, bool) {
	switch t := e.(type) {
	case *ast.Literal:
		return "lit:" + t.Value.String(), true
	case *ast.Identifier:
		return "id:" + t.Name, true
	default:
		return "", false
	}
}

// walkCalls invokes visit on e and, recursively, on every FunctionCall
// nested in its arguments.
func walkCalls(e ast.Expression, visit func(*ast.FunctionCall)) {
	call, ok := e.(*ast.FunctionCall)
	if !ok {
		return
	}
	visit(call)
	for _, a := range call.Arguments {
		walkCalls(a, visit)
	}
}

// forEachExpression calls visit with every top-level expression appearing
// directly in block's statements, recursing into nested If/Switch/ForLoop/
// Block bodies. visit itself is responsible for descending into call
// arguments (via walkCalls or countIdentifierReads) when it needs to.
func forEachExpression(block *ast.Block, visit func(ast.Expression)) {
	if block == nil {
		return
	}
	for _, s := range block.Statements {
		switch t := s.(type) {
		case *ast.VariableDeclaration:
			if t.Value != nil {
				visit(t.Value)
			}
		case *ast.Assignment:
			visit(t.Value)
		case *ast.ExpressionStatement:
			visit(t.Expression)
		case *ast.If:
			visit(t.Condition)
			forEachExpression(t.Body, visit)
		case *ast.Switch:
			visit(t.Expression)
			for _, c := range t.Cases {
				forEachExpression(c.Body, visit)
			}
		case *ast.ForLoop:
			forEachExpression(t.Pre, visit)
			visit(t.Condition)
			forEachExpression(t.Post, visit)
			forEachExpression(t.Body, visit)
		case *ast.Block:
			forEachExpression(t, visit)
		}
	}
}
