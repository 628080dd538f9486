// Package schedule provides the public API of the tensor-program
// scheduling engine.
//
// The engine rewrites a loop-nest IR to introduce explicit cache buffers
// and synchronization barriers for accelerator code generation:
//
//	m := schedule.NewModule()
//	// ... build a program under m ...
//	sch := schedule.NewStatic(m, schedule.DeviceGPU)
//	stage, err := sch.CacheRead(block, 0, schedule.MemoryShared)
//
// The static-shape engine implements all primitives; the dynamic-shape
// engine implements SyncThreads only and reports ErrNotImplemented for the
// rest.
package schedule

import (
	"github.com/loom-ml/loom/internal/ir"
	ischedule "github.com/loom-ml/loom/internal/schedule"
)

// Type aliases for the public API.

// Expr is a node of the loop-nest IR.
type Expr = ir.Expr

// Module is the program-wide registry of top-level expressions and the
// buffer arena they share.
type Module = ir.Module

// MemoryType tags a buffer with its memory tier.
type MemoryType = ir.MemoryType

// Memory tiers.
const (
	MemoryGlobal MemoryType = ir.MemoryGlobal
	MemoryShared MemoryType = ir.MemoryShared
	MemoryLocal  MemoryType = ir.MemoryLocal
)

// DeviceAPI tags generated loop nests with their execution space.
type DeviceAPI = ir.DeviceAPI

// Execution spaces.
const (
	DeviceHost DeviceAPI = ir.DeviceHost
	DeviceGPU  DeviceAPI = ir.DeviceGPU
)

// Schedule is the capability surface shared by both engine variants.
type Schedule = ischedule.Schedule

// Static is the static-shape engine.
type Static = ischedule.Static

// Dynamic is the dynamic-shape engine.
type Dynamic = ischedule.Dynamic

// ErrNotImplemented reports a capability the dynamic-shape engine does not
// provide.
var ErrNotImplemented = ischedule.ErrNotImplemented

// NewModule creates an empty program module.
func NewModule() *Module {
	return ir.NewModule()
}

// NewStatic creates a static-shape schedule over the given program.
func NewStatic(m *Module, device DeviceAPI) *Static {
	return ischedule.NewStatic(m, device)
}

// NewDynamic creates a dynamic-shape schedule over the given program.
func NewDynamic(m *Module, device DeviceAPI) *Dynamic {
	return ischedule.NewDynamic(m, device)
}

// GetBlock returns the realized schedule block with the given name.
// Schedule rewrites replace subtrees wholesale, so block handles must be
// re-resolved after each primitive rather than held across calls.
func GetBlock(m *Module, name string) (Expr, error) {
	blk, err := ischedule.GetBlock(m, name)
	if err != nil {
		return nil, err
	}
	return blk, nil
}
