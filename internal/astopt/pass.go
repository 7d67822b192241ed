package astopt

import (
	"context"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"tlog.app/go/tlog"

	"github.com/yulir-lang/yulir/internal/ast"
)

// Pass is one named AST-to-AST rewrite stage.
type Pass struct {
	Name string
	Fn   func(context.Context, *ast.Block, Config) *ast.Block
}

// RunConfig controls Run's optional before/after dumping, alongside the
// profitability Config every pass receives.
type RunConfig struct {
	Config
	DumpBefore io.Writer
	DumpAfter  io.Writer
}

// Passes is the default pipeline: currently just loop unrolling, kept as a
// slice so a future pass slots in without touching call sites.
var Passes = []Pass{
	{Name: "unroll-loops", Fn: Rewrite},
}

// Run threads block through every pass in order, dumping its shape before
// and after each one when the corresponding writer is set. Each pass runs
// under its own child span so per-decision traces (e.g. "astopt: unroll")
// nest under the pass that produced them.
func Run(ctx context.Context, block *ast.Block, passes []Pass, cfg RunConfig) *ast.Block {
	for _, p := range passes {
		if cfg.DumpBefore != nil {
			fmt.Fprintf(cfg.DumpBefore, "-- %s: before --\n%s", p.Name, dumpBlock(block))
		}
		tr, passCtx := tlog.SpawnFromContextAndWrap(ctx, "astopt: run pass", "name", p.Name)
		block = p.Fn(passCtx, block, cfg.Config)
		tr.Finish()
		if cfg.DumpAfter != nil {
			fmt.Fprintf(cfg.DumpAfter, "-- %s: after --\n%s", p.Name, dumpBlock(block))
		}
	}
	return block
}

func dumpBlock(b *ast.Block) string {
	spew.Config.SortKeys = true
	return spew.Sdump(b)
}
