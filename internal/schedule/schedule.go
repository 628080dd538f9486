// Package schedule implements the tensor-program schedule primitives that
// rewrite the loop-nest IR: cache staging (CacheRead/CacheWrite),
// synchronization barriers (SyncThreads), and buffer placement (SetBuffer).
//
// Every primitive builds a rewritten copy of the affected subtree and swaps
// it into the root only once construction has succeeded, so a failed call
// leaves the caller's program intact. Precondition violations at the API
// boundary are reported as errors; invariants that can only break through a
// bug in the engine itself panic.
package schedule

import (
	"github.com/pkg/errors"

	"github.com/loom-ml/loom/internal/ir"
)

// Schedule is the capability surface shared by the static-shape and
// dynamic-shape engines.
type Schedule interface {
	// CacheRead stages the block's Nth read access into a cache tensor in
	// the given memory tier and returns the new staging block.
	CacheRead(block ir.Expr, readIndex int, mem ir.MemoryType) (ir.Expr, error)

	// CacheWrite stages the block's Nth write access through a cache tensor
	// in the given memory tier and returns the block now producing the
	// cache tensor.
	CacheWrite(block ir.Expr, writeIndex int, mem ir.MemoryType) (ir.Expr, error)

	// SyncThreads inserts a synchronization barrier immediately before or
	// after the given node (a realized schedule block or a loop).
	SyncThreads(node ir.Expr, after bool) error

	// SetBuffer rebinds the block's stored tensor to a fresh buffer in the
	// given memory tier, program-wide. fixed finalizes local buffer sizing.
	SetBuffer(block ir.Expr, mem ir.MemoryType, fixed bool) error
}

// ErrNotImplemented reports a capability the dynamic-shape engine does not
// provide.
var ErrNotImplemented = errors.New("not implemented")

// Static is the static-shape engine: loop extents are constant, which lets
// cache staging size its copy loops exactly.
type Static struct {
	module *ir.Module
	device ir.DeviceAPI
}

// NewStatic creates a static-shape schedule over the given program.
// The device tag stamps generated copy loops with their execution space.
func NewStatic(m *ir.Module, device ir.DeviceAPI) *Static {
	return &Static{module: m, device: device}
}

// Module returns the program the schedule operates on.
func (s *Static) Module() *ir.Module {
	return s.module
}

// Dynamic is the dynamic-shape engine. Cache staging and buffer placement
// are not available for dynamic shapes; only SyncThreads is shared with
// the static engine.
type Dynamic struct {
	module *ir.Module
	device ir.DeviceAPI
}

// NewDynamic creates a dynamic-shape schedule over the given program.
func NewDynamic(m *ir.Module, device ir.DeviceAPI) *Dynamic {
	return &Dynamic{module: m, device: device}
}

// Module returns the program the schedule operates on.
func (s *Dynamic) Module() *ir.Module {
	return s.module
}

var (
	_ Schedule = (*Static)(nil)
	_ Schedule = (*Dynamic)(nil)
)

// findRootBlock locates the top-level realized schedule block enclosing the
// node among the module's expressions.
func findRootBlock(m *ir.Module, node ir.Expr) (*ir.ScheduleBlockRealize, error) {
	for _, e := range m.Exprs {
		if !ir.Contains(e, node) {
			continue
		}
		if r, ok := e.(*ir.ScheduleBlockRealize); ok {
			return r, nil
		}
		var found *ir.ScheduleBlockRealize
		ir.Visit(e, func(x ir.Expr) bool {
			if found != nil {
				return false
			}
			if r, ok := x.(*ir.ScheduleBlockRealize); ok {
				found = r
				return false
			}
			return true
		})
		if found != nil && ir.Contains(found, node) {
			return found, nil
		}
		return nil, errors.Errorf("schedule: no root schedule block encloses the node")
	}
	return nil, errors.Errorf("schedule: node not found in any module expression")
}

// changeBodyToBlock normalizes the root body to a statement block so
// insertion positions are well-defined.
func changeBodyToBlock(root *ir.ScheduleBlockRealize) {
	if _, ok := root.Block.Body.(*ir.Block); !ok {
		root.Block.Body = &ir.Block{Stmts: []ir.Expr{root.Block.Body}}
	}
}

// nthAccess resolves the block's Nth read (Load) or write (Store) access in
// document order. Accesses inside nested realized sub-blocks belong to
// those blocks and are not considered.
func nthAccess(realize *ir.ScheduleBlockRealize, n int, isWrite bool) (ir.Expr, error) {
	var acc []ir.Expr
	ir.Visit(realize.Block.Body, func(x ir.Expr) bool {
		switch v := x.(type) {
		case *ir.ScheduleBlockRealize:
			return false
		case *ir.Load:
			if !isWrite {
				acc = append(acc, v)
			}
		case *ir.Store:
			if isWrite {
				acc = append(acc, v)
			}
		}
		return true
	})
	if n < 0 || n >= len(acc) {
		kind := "read"
		if isWrite {
			kind = "write"
		}
		return nil, errors.Errorf("schedule: %s access %d out of range, block %q has %d",
			kind, n, realize.Block.Name, len(acc))
	}
	return acc[n], nil
}

// blockTensor returns the tensor produced by the block's first store, or
// nil for a block with no store of its own.
func blockTensor(r *ir.ScheduleBlockRealize) *ir.Tensor {
	var t *ir.Tensor
	ir.Visit(r.Block.Body, func(x ir.Expr) bool {
		if t != nil {
			return false
		}
		switch v := x.(type) {
		case *ir.ScheduleBlockRealize:
			return false
		case *ir.Store:
			t = v.Tensor
			return false
		}
		return true
	})
	return t
}

// GetBlock returns the realized (non-root) schedule block with the given
// name. Rewrites replace subtrees wholesale, so block handles must be
// re-resolved from the current program rather than held across calls.
func GetBlock(m *ir.Module, name string) (*ir.ScheduleBlockRealize, error) {
	var found *ir.ScheduleBlockRealize
	for _, e := range m.Exprs {
		ir.Visit(e, func(x ir.Expr) bool {
			if found != nil {
				return false
			}
			if r, ok := x.(*ir.ScheduleBlockRealize); ok && len(r.IterValues) > 0 && r.Block.Name == name {
				found = r
				return false
			}
			return true
		})
	}
	if found == nil {
		return nil, errors.Errorf("schedule: no block named %q", name)
	}
	return found, nil
}

// GetLoops returns the loops enclosing the given block, outermost first.
func GetLoops(m *ir.Module, block *ir.ScheduleBlockRealize) []*ir.For {
	for _, e := range m.Exprs {
		if loops := findLoops(e, block, nil); loops != nil {
			return loops
		}
	}
	return nil
}

func findLoops(e ir.Expr, block *ir.ScheduleBlockRealize, stack []*ir.For) []*ir.For {
	switch n := e.(type) {
	case *ir.For:
		return findLoops(n.Body, block, append(stack, n))
	case *ir.Block:
		for _, st := range n.Stmts {
			if res := findLoops(st, block, stack); res != nil {
				return res
			}
		}
	case *ir.ScheduleBlockRealize:
		if n == block {
			out := make([]*ir.For, len(stack))
			copy(out, stack)
			return out
		}
		return findLoops(n.Block.Body, block, stack)
	}
	return nil
}
