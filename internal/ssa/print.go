package ssa

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Fprint writes a debug representation of an SSACFG to w.
//
// Format:
//
//	graph:
//	  b0: (entry)
//	    phi1 = phi [var0 var1]
//	    var2 = builtinCall(289) var0 var1
//	    jump -> b1
func Fprint(w io.Writer, g *SSACFG) {
	fmt.Fprintf(w, "graph:\n")
	for _, b := range g.Blocks {
		fprintBlock(w, g, b)
	}
}

func fprintBlock(w io.Writer, g *SSACFG, b *Block) {
	label := ""
	if b.ID == g.Entry {
		label = " (entry)"
	}
	if g.Exits[b.ID] {
		label += " (exit)"
	}
	if !b.Sealed {
		label += " (unsealed)"
	}

	predsStr := ""
	if len(b.Entries) > 0 {
		predsStr = " <- " + fmtBlockList(b.Entries)
	}

	fmt.Fprintf(w, "  %s:%s%s\n", b, label, predsStr)

	for _, phi := range b.Phis {
		fmt.Fprintf(w, "    %s\n", formatPhi(g, phi))
	}
	for _, op := range b.Operations {
		fmt.Fprintf(w, "    %s\n", formatOperation(op))
	}
	fmt.Fprintf(w, "    %s\n", formatExit(b.Exit))
}

func formatPhi(g *SSACFG, id ValueId) string {
	p := g.phis[id]
	args := make([]string, len(p.Arguments))
	for i, a := range p.Arguments {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s = phi [%s]", id, strings.Join(args, " "))
}

func formatOperation(op *Operation) string {
	var sb strings.Builder
	if len(op.Outputs) > 0 {
		outs := make([]string, len(op.Outputs))
		for i, o := range op.Outputs {
			outs[i] = o.String()
		}
		fmt.Fprintf(&sb, "%s = ", strings.Join(outs, ", "))
	}

	switch op.Kind {
	case OpBuiltinCall:
		fmt.Fprintf(&sb, "builtinCall(%d)", op.Builtin)
	case OpCall:
		fmt.Fprintf(&sb, "call(fn%d)", op.Function)
	case OpLiteralAssignment:
		fmt.Fprintf(&sb, "literalAssignment(%s)", op.Literal)
	}

	for _, in := range op.Inputs {
		fmt.Fprintf(&sb, " %s", in)
	}
	if len(op.LiteralArgs) > 0 {
		fmt.Fprintf(&sb, " {%d literal-arg positions}", len(op.LiteralArgs))
	}
	return sb.String()
}

func formatExit(e Exit) string {
	switch e.Kind {
	case ExitMainExit:
		return "mainExit"
	case ExitFunctionReturn:
		vals := make([]string, len(e.ReturnValues))
		for i, v := range e.ReturnValues {
			vals[i] = v.String()
		}
		return fmt.Sprintf("return %s", strings.Join(vals, " "))
	case ExitJump:
		return fmt.Sprintf("jump -> %s", e.Target)
	case ExitConditionalJump:
		return fmt.Sprintf("if %s -> %s else %s", e.Condition, e.NonZero, e.Zero)
	case ExitJumpTable:
		return fmt.Sprintf("jumpTable %s (%d cases) default %s", e.TableValue, len(e.Cases), e.Default)
	case ExitTerminated:
		return "terminated"
	default:
		return "???"
	}
}

// Sprint returns the debug representation of g as a string.
func Sprint(g *SSACFG) string {
	var sb strings.Builder
	Fprint(&sb, g)
	return sb.String()
}

// Print writes the debug representation of g to stdout.
func Print(g *SSACFG) {
	Fprint(os.Stdout, g)
}
