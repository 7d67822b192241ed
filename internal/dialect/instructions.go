package dialect

// instruction describes one entry of the full low-level instruction
// table the dialect is built from. Every instruction contributes a
// reserved name (subject to gating); most also contribute a builtin,
// except the ones flagged controlFlow or stackManip (§4.1: "low-level
// control-flow and stack-manipulation instructions are never exposed as
// builtins, even if the instruction table contains them").
type instruction struct {
	name       string
	numIn      int
	numOut     int
	sinceVersion Version
	// replacedBy, if non-empty, names the instruction that supersedes
	// this one at replacedAt and later versions: this one is then
	// dropped from both the reserved set and the builtin table (e.g.
	// "difficulty" is replaced by "prevrandao" starting at Paris).
	replacedBy   string
	replacedAt   Version
	controlFlow  bool // never a builtin (jump/jumpi/jumpdest/pc)
	stackManip   bool // never a builtin (dup*/swap*/push*)
	terminates    bool // a call to this builtin never returns control
	literalArgs   []int // argument positions (0-based) that must stay as literal AST nodes
}

// instructionTable is a representative slice of a stack machine's
// instruction set: enough breadth to exercise every gating rule in §4.1
// without reproducing an entire real opcode table line for line.
var instructionTable = []instruction{
	// Arithmetic / bitwise — all named builtins, available from genesis.
	{name: "add", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "sub", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "mul", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "div", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "sdiv", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "mod", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "smod", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "exp", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "not", numIn: 1, numOut: 1, sinceVersion: Homestead},
	{name: "lt", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "gt", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "slt", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "sgt", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "eq", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "iszero", numIn: 1, numOut: 1, sinceVersion: Homestead},
	{name: "and", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "or", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "xor", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "byte", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "addmod", numIn: 3, numOut: 1, sinceVersion: Homestead},
	{name: "mulmod", numIn: 3, numOut: 1, sinceVersion: Homestead},
	{name: "signextend", numIn: 2, numOut: 1, sinceVersion: Homestead},
	{name: "shl", numIn: 2, numOut: 1, sinceVersion: Constantinople},
	{name: "shr", numIn: 2, numOut: 1, sinceVersion: Constantinople},
	{name: "sar", numIn: 2, numOut: 1, sinceVersion: Constantinople},

	// Memory / storage — named builtins.
	{name: "mload", numIn: 1, numOut: 1, sinceVersion: Homestead},
	{name: "mstore", numIn: 2, numOut: 0, sinceVersion: Homestead},
	{name: "mstore8", numIn: 2, numOut: 0, sinceVersion: Homestead},
	{name: "sload", numIn: 1, numOut: 1, sinceVersion: Homestead},
	{name: "sstore", numIn: 2, numOut: 0, sinceVersion: Homestead},
	{name: "tload", numIn: 1, numOut: 1, sinceVersion: Cancun},
	{name: "tstore", numIn: 2, numOut: 0, sinceVersion: Cancun},
	{name: "mcopy", numIn: 3, numOut: 0, sinceVersion: Cancun},
	{name: "keccak256", numIn: 2, numOut: 1, sinceVersion: Homestead},

	// Environment.
	{name: "address", numIn: 0, numOut: 1, sinceVersion: Homestead},
	{name: "balance", numIn: 1, numOut: 1, sinceVersion: Homestead},
	{name: "origin", numIn: 0, numOut: 1, sinceVersion: Homestead},
	{name: "caller", numIn: 0, numOut: 1, sinceVersion: Homestead},
	{name: "callvalue", numIn: 0, numOut: 1, sinceVersion: Homestead},
	{name: "calldataload", numIn: 1, numOut: 1, sinceVersion: Homestead},
	{name: "calldatasize", numIn: 0, numOut: 1, sinceVersion: Homestead},
	{name: "calldatacopy", numIn: 3, numOut: 0, sinceVersion: Homestead},
	{name: "codesize", numIn: 0, numOut: 1, sinceVersion: Homestead},
	{name: "codecopy", numIn: 3, numOut: 0, sinceVersion: Homestead},
	{name: "extcodesize", numIn: 1, numOut: 1, sinceVersion: Homestead},
	{name: "extcodecopy", numIn: 4, numOut: 0, sinceVersion: Homestead},
	{name: "extcodehash", numIn: 1, numOut: 1, sinceVersion: Constantinople},
	{name: "returndatasize", numIn: 0, numOut: 1, sinceVersion: Byzantium},
	{name: "returndatacopy", numIn: 3, numOut: 0, sinceVersion: Byzantium},
	{name: "blockhash", numIn: 1, numOut: 1, sinceVersion: Homestead},
	{name: "coinbase", numIn: 0, numOut: 1, sinceVersion: Homestead},
	{name: "timestamp", numIn: 0, numOut: 1, sinceVersion: Homestead},
	{name: "number", numIn: 0, numOut: 1, sinceVersion: Homestead},
	{name: "difficulty", numIn: 0, numOut: 1, sinceVersion: Homestead, replacedBy: "prevrandao", replacedAt: Paris},
	{name: "prevrandao", numIn: 0, numOut: 1, sinceVersion: Paris},
	{name: "gaslimit", numIn: 0, numOut: 1, sinceVersion: Homestead},
	{name: "chainid", numIn: 0, numOut: 1, sinceVersion: Istanbul},
	{name: "selfbalance", numIn: 0, numOut: 1, sinceVersion: Istanbul},
	{name: "basefee", numIn: 0, numOut: 1, sinceVersion: London},
	{name: "blobhash", numIn: 1, numOut: 1, sinceVersion: Cancun},
	{name: "blobbasefee", numIn: 0, numOut: 1, sinceVersion: Cancun},
	{name: "gas", numIn: 0, numOut: 1, sinceVersion: Homestead},

	// System calls / termination — control-flow effects.
	{name: "create", numIn: 3, numOut: 1, sinceVersion: Homestead},
	{name: "create2", numIn: 4, numOut: 1, sinceVersion: Constantinople},
	{name: "call", numIn: 7, numOut: 1, sinceVersion: Homestead},
	{name: "callcode", numIn: 7, numOut: 1, sinceVersion: Homestead},
	{name: "delegatecall", numIn: 6, numOut: 1, sinceVersion: Homestead},
	{name: "staticcall", numIn: 6, numOut: 1, sinceVersion: Byzantium},
	{name: "return", numIn: 2, numOut: 0, sinceVersion: Homestead, terminates: true},
	{name: "revert", numIn: 2, numOut: 0, sinceVersion: Byzantium, terminates: true},
	{name: "stop", numIn: 0, numOut: 0, sinceVersion: Homestead, terminates: true},
	{name: "invalid", numIn: 0, numOut: 0, sinceVersion: Homestead, terminates: true},
	{name: "selfdestruct", numIn: 1, numOut: 0, sinceVersion: Homestead, terminates: true},
	{name: "log0", numIn: 2, numOut: 0, sinceVersion: Homestead},
	{name: "log1", numIn: 3, numOut: 0, sinceVersion: Homestead},
	{name: "log2", numIn: 4, numOut: 0, sinceVersion: Homestead},
	{name: "log3", numIn: 5, numOut: 0, sinceVersion: Homestead},
	{name: "log4", numIn: 6, numOut: 0, sinceVersion: Homestead},

	// Low-level control flow — reserved names, never builtins.
	{name: "jump", numIn: 1, numOut: 0, sinceVersion: Homestead, controlFlow: true},
	{name: "jumpi", numIn: 2, numOut: 0, sinceVersion: Homestead, controlFlow: true},
	{name: "jumpdest", numIn: 0, numOut: 0, sinceVersion: Homestead, controlFlow: true},
	{name: "pc", numIn: 0, numOut: 1, sinceVersion: Homestead, controlFlow: true},

	// Low-level stack manipulation — reserved names, never builtins. Pop
	// is the one exception: it is exposed as the dialect's discard
	// builtin (§4.1's "discard/pop") even though it is a single-slot
	// stack instruction, because unlike dup*/swap*/push* it has no
	// stack-depth parameter for a stack-layout pass to manage.
	{name: "pop", numIn: 1, numOut: 0, sinceVersion: Homestead},
	{name: "push0", numIn: 0, numOut: 1, sinceVersion: Shanghai, stackManip: true},
}

func init() {
	for d := 1; d <= 16; d++ {
		instructionTable = append(instructionTable,
			instruction{name: dupName(d), numIn: d, numOut: d + 1, sinceVersion: Homestead, stackManip: true},
			instruction{name: swapName(d), numIn: d + 1, numOut: d + 1, sinceVersion: Homestead, stackManip: true},
		)
	}
}

func dupName(depth int) string  { return "dup" + itoa(depth) }
func swapName(depth int) string { return "swap" + itoa(depth) }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// objectAccessBuiltins are builtins that exist in the table regardless of
// configuration, but are only resolvable through Dialect.FindBuiltin when the
// caller passes objectAccess=true (§6 "objectAccess: bool"). Their names
// are already unconditionally reserved via fixedReservedNames, so unlike
// instructionTable entries they contribute no additional reserved name.
var objectAccessBuiltins = []instruction{
	{name: "datasize", numIn: 1, numOut: 1, sinceVersion: Homestead, literalArgs: []int{0}},
	{name: "dataoffset", numIn: 1, numOut: 1, sinceVersion: Homestead, literalArgs: []int{0}},
	{name: "datacopy", numIn: 3, numOut: 0, sinceVersion: Homestead, literalArgs: []int{1}},
	{name: "setimmutable", numIn: 3, numOut: 0, sinceVersion: Homestead, literalArgs: []int{1}},
	{name: "loadimmutable", numIn: 1, numOut: 1, sinceVersion: Homestead, literalArgs: []int{0}},
	{name: "linkersymbol", numIn: 1, numOut: 1, sinceVersion: Homestead, literalArgs: []int{0}},
}

// fixedReservedNames are always reserved, regardless of target/extension
// version. Each also names an objectAccessBuiltins entry, which resolves
// to a builtin only when objectAccess is true.
var fixedReservedNames = []string{
	"linkersymbol",
	"datasize",
	"dataoffset",
	"datacopy",
	"setimmutable",
	"loadimmutable",
}

// extensionOnlyReservedNames are reserved only when an extension version
// is active.
var extensionOnlyReservedNames = []string{
	"auxdataloadn",
}
