package dialect

import "fmt"

// BuiltinHandle is a dense, dialect-local identifier for a builtin
// function, returned by FindBuiltin and consumed by Builtin. Handles from
// two different Dialect instances are never comparable.
type BuiltinHandle int32

const invalidHandle BuiltinHandle = -1

// Verbatim arity bounds. Chosen to match the stack machine's
// reachability window (§4.8: only the top 16 stack elements can be
// swapped/duped), so a verbatim's declared arity never silently implies
// slots the stack model itself could never address.
const (
	maxVerbatimIn  = 16
	maxVerbatimOut = 16

	// verbatimIDOffset is the first handle value not reachable by any
	// (N, M) verbatim key, reserving [0, verbatimIDOffset) for verbatim
	// functions keyed by N*(maxVerbatimOut+1) + M (§4.1).
	verbatimIDOffset = maxVerbatimIn*(maxVerbatimOut+1) + maxVerbatimOut + 1
)

// ControlFlowEffect classifies whether calling a builtin can return
// control to its caller.
type ControlFlowEffect int

const (
	EffectNone ControlFlowEffect = iota
	EffectTerminates
)

// BuiltinFunctionDescriptor is everything the builder needs to lower a
// call to a builtin: its arity, which argument positions must stay
// unevaluated AST nodes, and its control-flow effect.
type BuiltinFunctionDescriptor struct {
	Name            string
	NumIn           int
	NumOut          int
	LiteralArgument []bool // len == NumIn
	ControlFlow     ControlFlowEffect
}

// IsLiteralArgument reports whether argument position i must be carried
// as a literal AST node rather than evaluated.
func (d BuiltinFunctionDescriptor) IsLiteralArgument(i int) bool {
	if i < 0 || i >= len(d.LiteralArgument) {
		return false
	}
	return d.LiteralArgument[i]
}

// Dialect is the per-(targetVersion, extensionVersion) registry of
// builtins and reserved names (§4.1).
type Dialect struct {
	config Config

	byName      map[string]BuiltinHandle
	byHandle    []BuiltinFunctionDescriptor // indexed by handle - verbatimIDOffset
	needsObject map[string]bool             // names only resolvable with objectAccess=true

	reserved map[string]bool
}

func newDialect(cfg Config) *Dialect {
	d := &Dialect{
		config:      cfg,
		byName:      make(map[string]BuiltinHandle),
		needsObject: make(map[string]bool),
		reserved:    make(map[string]bool),
	}
	d.build()
	return d
}

func (d *Dialect) build() {
	for _, instr := range instructionTable {
		if !d.available(instr) {
			continue
		}
		d.reserved[instr.name] = true
		if instr.controlFlow || instr.stackManip {
			continue
		}
		d.registerBuiltin(instr, false)
	}
	for _, instr := range objectAccessBuiltins {
		d.registerBuiltin(instr, true)
	}
	for _, name := range fixedReservedNames {
		d.reserved[name] = true
	}
	if d.config.Extension.Present {
		for _, name := range extensionOnlyReservedNames {
			d.reserved[name] = true
		}
	}
}

// available reports whether instr's raw name is part of the instruction
// set at d.config, independent of whether it ends up exposed as a
// builtin.
func (d *Dialect) available(instr instruction) bool {
	if d.config.Target < instr.sinceVersion {
		return false
	}
	if instr.replacedBy != "" && d.config.Target >= instr.replacedAt {
		return false
	}
	return true
}

func (d *Dialect) registerBuiltin(instr instruction, requiresObject bool) {
	desc := BuiltinFunctionDescriptor{
		Name:   instr.name,
		NumIn:  instr.numIn,
		NumOut: instr.numOut,
	}
	if instr.terminates {
		desc.ControlFlow = EffectTerminates
	}
	if len(instr.literalArgs) > 0 {
		desc.LiteralArgument = make([]bool, instr.numIn)
		for _, pos := range instr.literalArgs {
			desc.LiteralArgument[pos] = true
		}
	}
	handle := BuiltinHandle(verbatimIDOffset + len(d.byHandle))
	d.byHandle = append(d.byHandle, desc)
	d.byName[instr.name] = handle
	if requiresObject {
		d.needsObject[instr.name] = true
	}
}

// FindBuiltin resolves name to a builtin handle. When objectAccess is
// false, names that require object access (the fixed data/link builtins)
// and the `verbatim_<N>i_<M>o` pattern are both invisible, matching §6's
// "objectAccess: bool — enables verbatim_* builtins and extra reserved
// prefixes."
func (d *Dialect) FindBuiltin(name string, objectAccess bool) (BuiltinHandle, bool) {
	if h, ok := d.byName[name]; ok {
		if d.needsObject[name] && !objectAccess {
			return invalidHandle, false
		}
		return h, true
	}
	if objectAccess {
		return d.findVerbatim(name)
	}
	return invalidHandle, false
}

// findVerbatim parses the `verbatim_<N>i_<M>o` pattern and materializes a
// verbatim builtin handle on demand (§4.1).
func (d *Dialect) findVerbatim(name string) (BuiltinHandle, bool) {
	n, m, ok := parseVerbatimName(name)
	if !ok {
		return invalidHandle, false
	}
	if n > maxVerbatimIn || m > maxVerbatimOut {
		return invalidHandle, false
	}
	return BuiltinHandle(n*(maxVerbatimOut+1) + m), true
}

// Builtin returns the descriptor for a previously resolved handle. It
// panics (a dialect-misconfiguration fault, §7) if handle was never
// produced by this Dialect's FindBuiltin.
func (d *Dialect) Builtin(handle BuiltinHandle) BuiltinFunctionDescriptor {
	if handle >= 0 && int(handle) < verbatimIDOffset {
		n, m := verbatimFromKey(int(handle))
		return BuiltinFunctionDescriptor{
			Name:   verbatimName(n, m),
			NumIn:  n,
			NumOut: m,
		}
	}
	idx := int(handle) - verbatimIDOffset
	if idx < 0 || idx >= len(d.byHandle) {
		panic(fmt.Sprintf("dialect: handle %d does not belong to this dialect", handle))
	}
	return d.byHandle[idx]
}

// ReservedIdentifier reports whether name may not be used as a
// user-declared identifier in this dialect.
func (d *Dialect) ReservedIdentifier(name string) bool {
	return d.reserved[name]
}

// Equal, BooleanNegation, Discard, MemoryLoad, MemoryStore, StorageLoad,
// StorageStore, Hash, Add, Sub, Mul, Exp, Shl, and BitwiseNot return the
// dialect's handle for each named common builtin (§4.1). ok is false if
// the target version doesn't carry that builtin (e.g. Shl before
// Constantinople).
func (d *Dialect) Equal() (BuiltinHandle, bool)          { return d.named("eq") }
func (d *Dialect) BooleanNegation() (BuiltinHandle, bool) { return d.named("iszero") }
func (d *Dialect) Discard() (BuiltinHandle, bool)        { return d.named("pop") }
func (d *Dialect) MemoryLoad() (BuiltinHandle, bool)     { return d.named("mload") }
func (d *Dialect) MemoryStore() (BuiltinHandle, bool)    { return d.named("mstore") }
func (d *Dialect) StorageLoad() (BuiltinHandle, bool)    { return d.named("sload") }
func (d *Dialect) StorageStore() (BuiltinHandle, bool)   { return d.named("sstore") }
func (d *Dialect) Hash() (BuiltinHandle, bool)           { return d.named("keccak256") }
func (d *Dialect) Add() (BuiltinHandle, bool)            { return d.named("add") }
func (d *Dialect) Sub() (BuiltinHandle, bool)            { return d.named("sub") }
func (d *Dialect) Mul() (BuiltinHandle, bool)            { return d.named("mul") }
func (d *Dialect) Exp() (BuiltinHandle, bool)            { return d.named("exp") }
func (d *Dialect) Shl() (BuiltinHandle, bool)            { return d.named("shl") }
func (d *Dialect) BitwiseNot() (BuiltinHandle, bool)     { return d.named("not") }

func (d *Dialect) named(name string) (BuiltinHandle, bool) {
	h, ok := d.byName[name]
	return h, ok
}
