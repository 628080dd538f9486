package schedule

import (
	"fmt"

	"github.com/loom-ml/loom/internal/ir"
)

// cacheBlockInfo carries the per-call state of one CacheRead/CacheWrite:
// the two sides of the staging copy, which of them needs a fresh
// allocation, the built staging block, and the insertion position. It lives
// only for the duration of one call.
//
// For a cache-read, writeTensor is the fresh cache and alloc == writeTensor;
// for a cache-write, readTensor is the fresh cache and alloc == readTensor.
type cacheBlockInfo struct {
	readTensor  *ir.Tensor
	writeTensor *ir.Tensor
	alloc       *ir.Tensor

	cacheBlock ir.Expr
	locPos     int
}

// makeCacheTensor synthesizes the staged copy of t in the given memory
// tier: same element type and shape, a fresh disambiguated name, and a
// freshly created buffer tagged with the tier. Binding the tensor into the
// program happens later, during rewriting.
func makeCacheTensor(m *ir.Module, t *ir.Tensor, mem ir.MemoryType) *ir.Tensor {
	name := m.UniqueName(t.Name + "_" + string(mem) + "_temp_buffer")
	shape := append([]int64(nil), t.Shape...)
	cache := ir.NewTensor(name, t.DType, shape)
	cache.Bind(m.Arena.Create("_"+name, mem, shape))
	return cache
}

// makeCacheBlock builds the staging loop nest copying element-by-element
// between the info tensors over exactly the given regions. Loop extents
// equal the region extents, bounding the staged footprint to what is
// actually accessed. The subtree is returned standalone, not yet attached.
func makeCacheBlock(ranges []Range, info *cacheBlockInfo, device ir.DeviceAPI) ir.Expr {
	loopVars := make([]*ir.Var, len(ranges))
	blockVars := make([]*ir.Var, len(ranges))
	iterValues := make([]ir.Expr, len(ranges))
	loadIdx := make([]ir.Expr, len(ranges))
	storeIdx := make([]ir.Expr, len(ranges))
	for i, r := range ranges {
		loopVars[i] = ir.NewVar(fmt.Sprintf("cache_ax%d", i))
		blockVars[i] = ir.NewVar(fmt.Sprintf("v%d", i))
		iterValues[i] = ir.Simplify(ir.Add(r.Min.Clone(), loopVars[i].Clone()))
		loadIdx[i] = blockVars[i].Clone()
		storeIdx[i] = blockVars[i].Clone()
	}

	body := &ir.Store{
		Tensor:  info.writeTensor,
		Value:   &ir.Load{Tensor: info.readTensor, Indices: loadIdx},
		Indices: storeIdx,
	}
	var stage ir.Expr = &ir.ScheduleBlockRealize{
		IterValues: iterValues,
		Block: &ir.ScheduleBlock{
			Name:     info.alloc.Name,
			IterVars: blockVars,
			Body:     body,
		},
	}
	for i := len(ranges) - 1; i >= 0; i-- {
		stage = &ir.For{
			LoopVar: loopVars[i],
			Min:     ir.Imm(0),
			Extent:  ranges[i].Extent.Clone(),
			Body:    stage,
			Device:  device,
		}
	}
	info.cacheBlock = stage
	return stage
}
