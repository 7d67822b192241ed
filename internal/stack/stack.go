// Package stack implements the stack-machine adjacency layer's typed
// stack-slot model (§4.8): an 8-byte tagged slot value and a mutable
// stack of such slots, with the reachability constraints of a target
// whose swap/dup instructions can only address the top 16 elements.
package stack

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// maxReach is the deepest element a dup or swap instruction can address
// (§4.8 "the target stack machine can only swap/dup the top 16 elements").
const maxReach = 16

// SlotKind tags the variant carried by a Slot.
type SlotKind uint8

const (
	SlotValueID SlotKind = iota
	SlotJunk
	SlotFunctionCallReturnLabel
	SlotFunctionReturnLabel
)

func (k SlotKind) String() string {
	switch k {
	case SlotValueID:
		return "value"
	case SlotJunk:
		return "junk"
	case SlotFunctionCallReturnLabel:
		return "callReturnLabel"
	case SlotFunctionReturnLabel:
		return "functionReturnLabel"
	default:
		return "unknown"
	}
}

// ValueIDKind mirrors ssa.ValueKind without importing internal/ssa, so
// this package stays usable by anything that models a stack-machine
// layout, not only this module's own SSA builder.
type ValueIDKind uint8

const (
	ValueLiteral ValueIDKind = iota
	ValuePhi
	ValueVariable
	ValueUnreachable
)

// Slot is an 8-byte trivially-copyable tagged stack-slot value (§3): a
// ValueID (carrying only the originating value's kind and dense index,
// never a pointer), a Junk marker, or one of the two label variants used
// by the call-return stack-shape convention.
type Slot struct {
	Kind SlotKind

	// Payload, interpreted per Kind: for SlotValueID, ValueKind/Index of
	// the originating ValueId; for the two label kinds, the numeric
	// CallSiteID/FunctionGraphID; unused for SlotJunk.
	ValueKind ValueIDKind
	Index     int32
}

func ValueSlot(kind ValueIDKind, index int32) Slot {
	return Slot{Kind: SlotValueID, ValueKind: kind, Index: index}
}

func JunkSlot() Slot { return Slot{Kind: SlotJunk} }

func CallReturnLabelSlot(callSite int32) Slot {
	return Slot{Kind: SlotFunctionCallReturnLabel, Index: callSite}
}

func FunctionReturnLabelSlot(fn int32) Slot {
	return Slot{Kind: SlotFunctionReturnLabel, Index: fn}
}

// FreelyGeneratable reports whether s can be synthesized at any program
// point without a materialized definition (§4.8): a literal value, junk,
// or a function-call return label.
func (s Slot) FreelyGeneratable() bool {
	switch s.Kind {
	case SlotJunk, SlotFunctionCallReturnLabel:
		return true
	case SlotValueID:
		return s.ValueKind == ValueLiteral
	default:
		return false
	}
}

func (s Slot) String() string {
	switch s.Kind {
	case SlotValueID:
		return fmt.Sprintf("value(%d)", s.Index)
	case SlotFunctionCallReturnLabel:
		return fmt.Sprintf("callReturnLabel(%d)", s.Index)
	case SlotFunctionReturnLabel:
		return fmt.Sprintf("functionReturnLabel(%d)", s.Index)
	default:
		return "junk"
	}
}

// Offset counts from the bottom of the stack (0 = oldest slot pushed).
type Offset int

// Depth counts from the top of the stack (0 = the most recently pushed
// slot).
type Depth int

// MutationCallback is notified of every slot mutation, letting instruction
// emission be layered on top of state transitions without duplicating the
// stack-simulation logic. A nil callback costs nothing beyond the nil
// check (§4.8 "a no-op callback must be zero-overhead").
type MutationCallback interface {
	OnPush(s Slot)
	OnPop(s Slot)
	OnSwap(depth Depth)
	OnDup(depth Depth)
}

// Stack is a mutable sequence of Slots modeling the stack machine's
// operand stack at one program point.
type Stack struct {
	slots    []Slot
	callback MutationCallback
}

// New creates an empty stack, optionally notifying cb of every mutation.
func New(cb MutationCallback) *Stack {
	return &Stack{callback: cb}
}

// Size returns the number of slots currently on the stack.
func (s *Stack) Size() int { return len(s.slots) }

// ToDepth converts a bottom-relative Offset to a top-relative Depth.
func (s *Stack) ToDepth(o Offset) Depth { return Depth(len(s.slots) - 1 - int(o)) }

// ToOffset converts a top-relative Depth to a bottom-relative Offset.
func (s *Stack) ToOffset(d Depth) Offset { return Offset(len(s.slots) - 1 - int(d)) }

// Push appends a slot to the top of the stack.
func (s *Stack) Push(v Slot) {
	s.slots = append(s.slots, v)
	if s.callback != nil {
		s.callback.OnPush(v)
	}
}

// Pop removes and returns the top slot.
func (s *Stack) Pop() Slot {
	v := s.slots[len(s.slots)-1]
	s.slots = s.slots[:len(s.slots)-1]
	if s.callback != nil {
		s.callback.OnPop(v)
	}
	return v
}

// Slot returns the slot at a bottom-relative offset, without mutating the
// stack.
func (s *Stack) Slot(o Offset) Slot { return s.slots[o] }

// SlotAtDepth returns the slot at a top-relative depth.
func (s *Stack) SlotAtDepth(d Depth) Slot { return s.slots[s.ToOffset(d)] }

// DupReachable reports whether depth d can be duplicated by the target's
// dup instruction: d must be a valid depth, and within the top 16
// elements (§4.8).
func (s *Stack) DupReachable(d Depth) bool {
	return int(d) < len(s.slots) && d+1 <= maxReach
}

// SwapReachable reports whether depth d can be swapped with the top of
// stack: d must be a valid depth, nonzero (swap(0) is meaningless), and
// within the top 16 elements.
func (s *Stack) SwapReachable(d Depth) bool {
	return int(d) < len(s.slots) && d >= 1 && d <= maxReach
}

// Dup duplicates the slot at depth d onto the top of the stack. Callers
// must check DupReachable first; Dup panics otherwise.
func (s *Stack) Dup(d Depth) {
	if !s.DupReachable(d) {
		panic(fmt.Sprintf("stack: dup(%d) unreachable at size %d", d, len(s.slots)))
	}
	v := s.SlotAtDepth(d)
	s.slots = append(s.slots, v)
	if s.callback != nil {
		s.callback.OnDup(d)
	}
}

// Swap exchanges the top slot with the slot at depth d. Callers must
// check SwapReachable first; Swap panics otherwise.
func (s *Stack) Swap(d Depth) {
	if !s.SwapReachable(d) {
		panic(fmt.Sprintf("stack: swap(%d) unreachable at size %d", d, len(s.slots)))
	}
	top := len(s.slots) - 1
	other := int(s.ToOffset(d))
	s.slots[top], s.slots[other] = s.slots[other], s.slots[top]
	if s.callback != nil {
		s.callback.OnSwap(d)
	}
}

// DeclareJunk pushes a junk slot at the given depth's eventual resting
// position by pushing it directly onto the top (§4.8): a junk slot is
// always freely generatable, so it never needs inserting below the top.
func (s *Stack) DeclareJunk(_ Depth) {
	s.Push(JunkSlot())
}

// Dump renders the stack's slots for debugging, sorted deterministically
// the way a register allocator's dump would be.
func (s *Stack) Dump() string {
	spew.Config.SortKeys = true
	return spew.Sdump(s.slots)
}
