package ir

import (
	"fmt"
	"strings"
)

// Print renders the subtree as indented pseudo-code. The format is meant
// for logs and test failure messages, not for round-tripping.
func Print(e Expr) string {
	var sb strings.Builder
	printExpr(&sb, e, 0)
	return sb.String()
}

func printExpr(sb *strings.Builder, e Expr, depth int) {
	ind := strings.Repeat("  ", depth)
	switch n := e.(type) {
	case *Var:
		sb.WriteString(n.Name)
	case *IntImm:
		fmt.Fprintf(sb, "%d", n.Value)
	case *Binary:
		sb.WriteString("(")
		printExpr(sb, n.X, depth)
		fmt.Fprintf(sb, " %s ", n.Op)
		printExpr(sb, n.Y, depth)
		sb.WriteString(")")
	case *Load:
		sb.WriteString(n.Tensor.Name)
		printIndices(sb, n.Indices)
	case *Store:
		sb.WriteString(ind)
		sb.WriteString(n.Tensor.Name)
		printIndices(sb, n.Indices)
		sb.WriteString(" = ")
		printExpr(sb, n.Value, depth)
		sb.WriteString("\n")
	case *Call:
		sb.WriteString(ind)
		sb.WriteString(n.Name)
		sb.WriteString("(")
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			printExpr(sb, a, depth)
		}
		sb.WriteString(")\n")
	case *For:
		fmt.Fprintf(sb, "%sfor (%s, ", ind, n.LoopVar.Name)
		printExpr(sb, n.Min, depth)
		sb.WriteString(", ")
		printExpr(sb, n.Extent, depth)
		sb.WriteString(") {\n")
		printExpr(sb, n.Body, depth+1)
		fmt.Fprintf(sb, "%s}\n", ind)
	case *Block:
		for _, st := range n.Stmts {
			printExpr(sb, st, depth)
		}
	case *ScheduleBlock:
		printExpr(sb, n.Body, depth)
	case *ScheduleBlockRealize:
		fmt.Fprintf(sb, "%sScheduleBlock(%s)", ind, n.Block.Name)
		if len(n.IterValues) > 0 {
			sb.WriteString(" [")
			for i, iv := range n.IterValues {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(sb, "%s = ", n.Block.IterVars[i].Name)
				printExpr(sb, iv, depth)
			}
			sb.WriteString("]")
		}
		sb.WriteString(" {\n")
		printExpr(sb, n.Block, depth+1)
		fmt.Fprintf(sb, "%s}\n", ind)
	default:
		fmt.Fprintf(sb, "%s<%T>\n", ind, e)
	}
}

func printIndices(sb *strings.Builder, indices []Expr) {
	sb.WriteString("[")
	for i, idx := range indices {
		if i > 0 {
			sb.WriteString(", ")
		}
		printExpr(sb, idx, 0)
	}
	sb.WriteString("]")
}
