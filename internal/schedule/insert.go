package schedule

import (
	"fmt"
	"slices"

	"github.com/loom-ml/loom/internal/ir"
)

// findInsertionPoint records in info the root-body statement position where
// the staging block must be spliced: before the first statement reading the
// original tensor for cache-read, after the last statement producing the
// cache data for cache-write. Splicing happens between root-level
// statements, so the staging block never floats above a loop defining an
// index variable used by the access.
func findInsertionPoint(root *ir.ScheduleBlockRealize, info *cacheBlockInfo, isWrite bool) {
	body, ok := root.Block.Body.(*ir.Block)
	if !ok {
		panic("schedule: root body not normalized to a block")
	}
	pos := -1
	if isWrite {
		for i, st := range body.Stmts {
			if writesTensor(st, info.writeTensor.Name) {
				pos = i + 1
			}
		}
	} else {
		for i, st := range body.Stmts {
			if readsTensor(st, info.readTensor.Name) {
				pos = i
				break
			}
		}
	}
	if pos < 0 {
		name := info.readTensor.Name
		if isWrite {
			name = info.writeTensor.Name
		}
		panic(fmt.Sprintf("schedule: no statement accesses tensor %q under the root block", name))
	}
	info.locPos = pos
}

func readsTensor(e ir.Expr, name string) bool {
	found := false
	ir.Visit(e, func(x ir.Expr) bool {
		if l, ok := x.(*ir.Load); ok && l.Tensor.Name == name {
			found = true
		}
		return !found
	})
	return found
}

func writesTensor(e ir.Expr, name string) bool {
	found := false
	ir.Visit(e, func(x ir.Expr) bool {
		if s, ok := x.(*ir.Store); ok && s.Tensor.Name == name {
			found = true
		}
		return !found
	})
	return found
}

// insertAround splices ins immediately before or after node within the
// statement list containing it, wrapping a bare loop or block body in a
// Block when the node is not inside one. Reports whether node was found.
func insertAround(e ir.Expr, node, ins ir.Expr, after bool) bool {
	switch n := e.(type) {
	case *ir.Block:
		for i, st := range n.Stmts {
			if st == node {
				pos := i
				if after {
					pos = i + 1
				}
				n.Stmts = slices.Insert(n.Stmts, pos, ins)
				return true
			}
		}
		for _, st := range n.Stmts {
			if insertAround(st, node, ins, after) {
				return true
			}
		}
	case *ir.For:
		if n.Body == node {
			n.Body = wrapWith(node, ins, after)
			return true
		}
		return insertAround(n.Body, node, ins, after)
	case *ir.ScheduleBlock:
		if n.Body == node {
			n.Body = wrapWith(node, ins, after)
			return true
		}
		return insertAround(n.Body, node, ins, after)
	case *ir.ScheduleBlockRealize:
		return insertAround(n.Block, node, ins, after)
	}
	return false
}

func wrapWith(node, ins ir.Expr, after bool) *ir.Block {
	if after {
		return &ir.Block{Stmts: []ir.Expr{node, ins}}
	}
	return &ir.Block{Stmts: []ir.Expr{ins, node}}
}
