package schedule

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/loom-ml/loom/internal/ir"
)

// CacheRead stages the block's Nth read access into a cache tensor in the
// given memory tier. The staging copy-in loop nest is spliced before the
// first consumer, every later reference to the original tensor is
// redirected to the cache, and the new staging block is returned.
func (s *Static) CacheRead(block ir.Expr, readIndex int, mem ir.MemoryType) (ir.Expr, error) {
	realize, ok := block.(*ir.ScheduleBlockRealize)
	if !ok {
		return nil, errors.Errorf("cache read: block must be a realized schedule block, got %T", block)
	}
	root, err := findRootBlock(s.module, block)
	if err != nil {
		return nil, errors.WithMessage(err, "cache read")
	}
	changeBodyToBlock(root)

	access, err := nthAccess(realize, readIndex, false)
	if err != nil {
		return nil, errors.WithMessage(err, "cache read")
	}
	load, ok := access.(*ir.Load)
	if !ok {
		return nil, errors.Errorf("cache read: access %d of block %q is not a load",
			readIndex, realize.Block.Name)
	}

	info := &cacheBlockInfo{readTensor: load.Tensor}
	info.writeTensor = makeCacheTensor(s.module, load.Tensor, mem)
	info.alloc = info.writeTensor

	ranges, err := tensorRegions(realize, load.Indices, info.readTensor, root)
	if err != nil {
		return nil, errors.WithMessage(err, "cache read")
	}
	stage := makeCacheBlock(ranges, info, s.device)
	findInsertionPoint(root, info, false)

	newRoot := rewriteCacheRead(root, info)
	root.Block.Body = newRoot.Block.Body
	return stage, nil
}

// CacheWrite stages the block's Nth write access through a cache tensor in
// the given memory tier. The producer is redirected to write the cache,
// the copy-out loop nest is spliced after it, and every other tensor
// aliasing the original buffer program-wide is rebound to the cache
// buffer. Returns the block now producing the cache tensor.
func (s *Static) CacheWrite(block ir.Expr, writeIndex int, mem ir.MemoryType) (ir.Expr, error) {
	realize, ok := block.(*ir.ScheduleBlockRealize)
	if !ok {
		return nil, errors.Errorf("cache write: block must be a realized schedule block, got %T", block)
	}
	root, err := findRootBlock(s.module, block)
	if err != nil {
		return nil, errors.WithMessage(err, "cache write")
	}
	changeBodyToBlock(root)

	access, err := nthAccess(realize, writeIndex, true)
	if err != nil {
		return nil, errors.WithMessage(err, "cache write")
	}
	store, ok := access.(*ir.Store)
	if !ok {
		return nil, errors.Errorf("cache write: access %d of block %q is not a store",
			writeIndex, realize.Block.Name)
	}
	if !store.Tensor.HasBuffer() {
		return nil, errors.Errorf("cache write: tensor %q has no buffer binding", store.Tensor.Name)
	}

	info := &cacheBlockInfo{writeTensor: store.Tensor}
	info.readTensor = makeCacheTensor(s.module, store.Tensor, mem)
	info.alloc = info.readTensor

	ranges, err := tensorRegions(realize, store.Indices, info.writeTensor, root)
	if err != nil {
		return nil, errors.WithMessage(err, "cache write")
	}
	makeCacheBlock(ranges, info, s.device)
	findInsertionPoint(root, info, true)

	newRoot := rewriteCacheWrite(root, info)
	root.Block.Body = newRoot.Block.Body

	// Exactly one realized block may produce the cache tensor now.
	var produced []*ir.ScheduleBlockRealize
	ir.Visit(root, func(x ir.Expr) bool {
		if r, ok := x.(*ir.ScheduleBlockRealize); ok && len(r.IterValues) > 0 {
			if t := blockTensor(r); t != nil && t.Name == info.readTensor.Name {
				produced = append(produced, r)
			}
		}
		return true
	})
	if len(produced) != 1 {
		panic(fmt.Sprintf("cache write: expected exactly one block producing %q, found %d",
			info.readTensor.Name, len(produced)))
	}

	// Rebind aliases of the original buffer to the cache buffer,
	// program-wide.
	origBuf := s.module.Arena.Buffer(info.writeTensor.Buffer).Name
	for _, e := range s.module.Exprs {
		for _, t := range ir.CollectTensors(e) {
			if t.Name != info.writeTensor.Name && t.HasBuffer() &&
				s.module.Arena.Buffer(t.Buffer).Name == origBuf {
				t.Bind(info.readTensor.Buffer)
			}
		}
	}
	return produced[0], nil
}

// SyncThreads inserts a synchronization barrier intrinsic immediately
// before or after the given node. Calling it twice inserts two barriers.
func (s *Static) SyncThreads(node ir.Expr, after bool) error {
	return syncThreads(s.module, node, after)
}

// SetBuffer rebinds the tensor stored by the block to a fresh buffer in
// the given memory tier, then propagates the binding to every same-name
// tensor (and its reduction-init variant) across the program. For a fixed
// local tier, buffer sizing is finalized from usage within the block.
func (s *Static) SetBuffer(block ir.Expr, mem ir.MemoryType, fixed bool) error {
	realize, ok := block.(*ir.ScheduleBlockRealize)
	if !ok {
		return errors.Errorf("set buffer: block must be a realized schedule block, got %T", block)
	}
	var stores []*ir.Store
	ir.Visit(realize.Block.Body, func(x ir.Expr) bool {
		switch v := x.(type) {
		case *ir.ScheduleBlockRealize:
			return false
		case *ir.Store:
			stores = append(stores, v)
		}
		return true
	})
	if len(stores) != 1 {
		return errors.Errorf("set buffer: block %q must contain exactly one store, found %d",
			realize.Block.Name, len(stores))
	}

	t := stores[0].Tensor
	shape := append([]int64(nil), t.Shape...)
	id := s.module.Arena.Create("_"+t.Name+"_temp_buffer", mem, shape)
	t.Bind(id)

	initName := t.Name + "__reduce_init"
	for _, e := range s.module.Exprs {
		for _, tt := range ir.CollectTensors(e) {
			if tt.Name == t.Name || tt.Name == initName {
				tt.Bind(id)
			}
		}
	}

	if mem == ir.MemoryLocal && fixed {
		root, err := findRootBlock(s.module, block)
		if err != nil {
			return errors.WithMessage(err, "set buffer")
		}
		fixLocalBufferSize(s.module, root, realize.Block.Name, id)
	}
	return nil
}

// CacheRead is not available for dynamic shapes.
func (s *Dynamic) CacheRead(block ir.Expr, readIndex int, mem ir.MemoryType) (ir.Expr, error) {
	return nil, errors.Wrap(ErrNotImplemented, "cache read for dynamic shapes")
}

// CacheWrite is not available for dynamic shapes.
func (s *Dynamic) CacheWrite(block ir.Expr, writeIndex int, mem ir.MemoryType) (ir.Expr, error) {
	return nil, errors.Wrap(ErrNotImplemented, "cache write for dynamic shapes")
}

// SyncThreads inserts a synchronization barrier intrinsic immediately
// before or after the given node; shared with the static engine.
func (s *Dynamic) SyncThreads(node ir.Expr, after bool) error {
	return syncThreads(s.module, node, after)
}

// SetBuffer is not available for dynamic shapes.
func (s *Dynamic) SetBuffer(block ir.Expr, mem ir.MemoryType, fixed bool) error {
	return errors.Wrap(ErrNotImplemented, "set buffer for dynamic shapes")
}

func syncThreads(m *ir.Module, node ir.Expr, after bool) error {
	switch node.(type) {
	case *ir.ScheduleBlockRealize, *ir.For:
	default:
		return errors.Errorf("sync threads: node must be a realized schedule block or a loop, got %T", node)
	}
	root, err := findRootBlock(m, node)
	if err != nil {
		return errors.WithMessage(err, "sync threads")
	}
	if ir.Expr(root) == node {
		return errors.Errorf("sync threads: cannot synchronize around the root block")
	}
	changeBodyToBlock(root)

	barrier := &ir.Call{Name: ir.SyncThreadsIntrinsic}
	if !insertAround(root, node, barrier, after) {
		panic("sync threads: node disappeared from its root block")
	}
	return nil
}

// fixLocalBufferSize concretizes a local buffer to the per-thread footprint
// observed inside the named schedule block: accesses to it collapse to
// element 0 and the buffer extent becomes a single element.
func fixLocalBufferSize(m *ir.Module, root *ir.ScheduleBlockRealize, blockName string, id ir.BufferID) {
	ir.Visit(root, func(x ir.Expr) bool {
		r, ok := x.(*ir.ScheduleBlockRealize)
		if !ok || r.Block.Name != blockName {
			return true
		}
		ir.Visit(r.Block.Body, func(y ir.Expr) bool {
			switch v := y.(type) {
			case *ir.Store:
				if v.Tensor.Buffer == id {
					v.Indices = []ir.Expr{ir.Imm(0)}
				}
			case *ir.Load:
				if v.Tensor.Buffer == id {
					v.Indices = []ir.Expr{ir.Imm(0)}
				}
			}
			return true
		})
		return false
	})
	m.Arena.Buffer(id).Shape = []int64{1}
}
