package ssa

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/yulir-lang/yulir/internal/ast"
	"github.com/yulir-lang/yulir/internal/dialect"
	"github.com/yulir-lang/yulir/internal/effects"
	"github.com/yulir-lang/yulir/internal/scope"
)

// Build lowers a top-level AST block to a ControlFlow: the main graph,
// plus one function graph per FunctionDefinition transitively reachable
// from it (§4.3, §6). Every produced graph is pruned of unreachable
// edges before being returned (§4.3 "Unreachable-edge pruning").
func Build(ctx context.Context, main *ast.Block, scopes *scope.Table, eff *effects.Info, d *dialect.Dialect, cfg Config) *ControlFlow {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "ssa: build function", "name", "main")
	defer tr.Finish()

	b := NewBuilder(d, scopes, eff, cfg)
	b.ctx = ctx

	b.g = b.cf.MainGraph
	b.g.CanContinue = true
	b.sealBlock(b.g.Entry)
	b.cur = b.g.Entry
	b.scopeNode = main

	b.buildStatements(main.Statements)
	if b.g.Block(b.cur).Exit.Kind == ExitInvalid {
		b.g.Block(b.cur).Exit = Exit{Kind: ExitMainExit}
	}

	CleanUnreachable(b.cf.MainGraph)
	for _, g := range b.cf.FunctionGraphs {
		CleanUnreachable(g)
	}

	return b.cf
}
