// Package passes runs whole-graph SSA clean-up utilities in sequence,
// with optional before/after dumps and verification between stages —
// the same harness shape internal/astopt uses for its AST-level pass,
// specialized to *ssa.SSACFG.
package passes

import (
	"fmt"
	"io"

	"github.com/yulir-lang/yulir/internal/ssa"
)

// Pass is one named SSA-to-SSA clean-up stage. Fn mutates g in place;
// unlike internal/astopt's AST passes, an SSACFG's shape (block/value
// identity) is meaningful to hold onto across a pipeline, so passes
// rewrite rather than replace.
type Pass struct {
	Name string
	Fn   func(g *ssa.SSACFG)
}

// Config controls Run's dumping and inter-pass verification.
type Config struct {
	DumpBefore io.Writer
	DumpAfter  io.Writer
	Verify     bool
}

// Pipeline is the default sequence: today, just re-running the
// unreachable-edge cleanup that the builder already performs once at the
// end of construction (§4.3). It is idempotent (internal/ssa's own tests
// confirm this) and is kept as a pass here so that a driver rebuilding
// or re-sealing a graph after an external mutation has one call to make.
var Pipeline = []Pass{
	{Name: "clean-unreachable", Fn: ssa.CleanUnreachable},
}

// Run threads g through every pass of pipeline in order, dumping and
// verifying between stages when cfg asks for it. It stops and returns an
// error at the first pass whose result fails verification.
func Run(g *ssa.SSACFG, pipeline []Pass, cfg Config) error {
	for _, p := range pipeline {
		if cfg.DumpBefore != nil {
			fmt.Fprintf(cfg.DumpBefore, "-- %s: before --\n", p.Name)
			ssa.Fprint(cfg.DumpBefore, g)
		}

		p.Fn(g)

		if cfg.Verify {
			if err := ssa.Verify(g); err != nil {
				return fmt.Errorf("pass %q: %w", p.Name, err)
			}
		}

		if cfg.DumpAfter != nil {
			fmt.Fprintf(cfg.DumpAfter, "-- %s: after --\n", p.Name)
			ssa.Fprint(cfg.DumpAfter, g)
		}
	}
	return nil
}
