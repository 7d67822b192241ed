// Package astopt implements source-level optimization passes that run
// before SSA construction (§4.9): currently, loop unrolling with a
// profitability analysis gating the rewrite. A pass takes an AST block
// and returns a (possibly identical) rewritten block; it must never
// change program semantics.
package astopt

import (
	"github.com/holiman/uint256"
)

// FailureMode classifies why the profitability analyzer declined to
// unroll a loop (§7 "Analysis giving up (normal)").
type FailureMode int

const (
	FailureNone FailureMode = iota
	FailureNonAffine
	FailureUnpredictableCount
	FailureOversized
	FailureUnprofitable
)

func (f FailureMode) String() string {
	switch f {
	case FailureNonAffine:
		return "nonAffine"
	case FailureUnpredictableCount:
		return "unpredictableCount"
	case FailureOversized:
		return "oversized"
	case FailureUnprofitable:
		return "unprofitable"
	default:
		return "none"
	}
}

// UnrollDecision is the analyzer's verdict for one for-loop (§7).
// Rejections are never errors: the pass always leaves semantically
// equivalent code behind.
type UnrollDecision struct {
	ShouldUnroll   bool
	Reason         string
	FailureMode    FailureMode
	IterationCount int

	inductionVar string
	init         *uint256.Int
	step         *uint256.Int
	stepOp       stepOp
}

func reject(mode FailureMode, reason string) UnrollDecision {
	return UnrollDecision{ShouldUnroll: false, FailureMode: mode, Reason: reason}
}

// Config carries the size and gas-model parameters the profitability
// analyzer weighs against the cost of unrolling (§4.9).
type Config struct {
	// MaxContractSize bounds the deployed code size; unrolling is
	// rejected once the projected growth would leave less than
	// SizeHeadroom bytes of margin.
	MaxContractSize int
	SizeHeadroom    int

	// Runs is the assumed number of times the unrolled code executes
	// over the contract's lifetime, amortizing the one-time size cost
	// against the per-call gas saving.
	Runs int

	GasPerByte int
}

// DefaultConfig mirrors the real target's published limits (§4.9).
func DefaultConfig() Config {
	return Config{
		MaxContractSize: 24576,
		SizeHeadroom:    5000,
		Runs:            200,
		GasPerByte:      200,
	}
}
