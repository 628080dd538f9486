package schedule

import (
	"slices"

	"github.com/loom-ml/loom/internal/ir"
)

// rewriteCacheRead returns a copy of root in which every reference to the
// original tensor reachable from the insertion point reads the cache tensor
// instead, with the staging block spliced at the insertion point. Sibling
// statements before the insertion point are untouched, and so is the
// caller's tree: the swap into the root is the caller's move.
func rewriteCacheRead(root *ir.ScheduleBlockRealize, info *cacheBlockInfo) *ir.ScheduleBlockRealize {
	clone := root.Clone().(*ir.ScheduleBlockRealize)
	body := clone.Block.Body.(*ir.Block)
	for i := info.locPos; i < len(body.Stmts); i++ {
		redirectLoads(body.Stmts[i], info.readTensor, info.writeTensor)
	}
	body.Stmts = slices.Insert(body.Stmts, info.locPos, info.cacheBlock)
	return clone
}

// rewriteCacheWrite is the symmetric transform: statements producing the
// original tensor are redirected to write (and accumulate through) the
// cache tensor, and the copy-out block is spliced after them. Downstream
// statements keep reading the original tensor, which the copy-out
// refreshes before they run.
func rewriteCacheWrite(root *ir.ScheduleBlockRealize, info *cacheBlockInfo) *ir.ScheduleBlockRealize {
	clone := root.Clone().(*ir.ScheduleBlockRealize)
	body := clone.Block.Body.(*ir.Block)
	for i := 0; i < info.locPos; i++ {
		redirectStores(body.Stmts[i], info.writeTensor, info.readTensor)
		redirectLoads(body.Stmts[i], info.writeTensor, info.readTensor)
	}
	body.Stmts = slices.Insert(body.Stmts, info.locPos, info.cacheBlock)
	return clone
}

func redirectLoads(e ir.Expr, from, to *ir.Tensor) {
	ir.Visit(e, func(x ir.Expr) bool {
		if l, ok := x.(*ir.Load); ok && l.Tensor.Name == from.Name {
			l.Tensor = to
		}
		return true
	})
}

func redirectStores(e ir.Expr, from, to *ir.Tensor) {
	ir.Visit(e, func(x ir.Expr) bool {
		if s, ok := x.(*ir.Store); ok && s.Tensor.Name == from.Name {
			s.Tensor = to
		}
		return true
	})
}
