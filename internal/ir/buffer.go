package ir

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// MemoryType tags a buffer with the memory tier backing it.
type MemoryType string

// Memory tiers. Global is the device-default storage; Shared and Local are
// the staged tiers introduced by cache scheduling.
const (
	MemoryGlobal MemoryType = "global"
	MemoryShared MemoryType = "shared"
	MemoryLocal  MemoryType = "local"
)

// DeviceAPI tags generated loop nests with the execution space the copy
// runs in.
type DeviceAPI int

// Execution spaces.
const (
	DeviceHost DeviceAPI = iota
	DeviceGPU
)

// String returns a human-readable device name.
func (d DeviceAPI) String() string {
	switch d {
	case DeviceHost:
		return "Host"
	case DeviceGPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// BufferID is a stable handle into a buffer arena. Tensors hold a BufferID
// instead of a direct reference, so rebinding a buffer is an arena-visible
// update for every holder of the handle.
type BufferID int

// InvalidBuffer marks a tensor with no storage binding yet.
const InvalidBuffer BufferID = -1

// Buffer is a named storage location in some memory tier.
type Buffer struct {
	Name   string
	Memory MemoryType
	Shape  []int64
}

// Arena owns every buffer record of one program. Buffer names are unique
// within an arena; Create disambiguates collisions.
type Arena struct {
	bufs  []*Buffer
	names map[string]BufferID
}

// NewArena creates an empty buffer arena.
func NewArena() *Arena {
	return &Arena{names: make(map[string]BufferID)}
}

// Create allocates a fresh buffer record. If name is already taken, a
// numeric suffix disambiguates it.
func (a *Arena) Create(name string, mem MemoryType, shape []int64) BufferID {
	unique := name
	for i := 1; ; i++ {
		if _, taken := a.names[unique]; !taken {
			break
		}
		unique = fmt.Sprintf("%s_%d", name, i)
	}
	id := BufferID(len(a.bufs))
	a.bufs = append(a.bufs, &Buffer{Name: unique, Memory: mem, Shape: shape})
	a.names[unique] = id
	return id
}

// Buffer resolves a handle to its record.
func (a *Arena) Buffer(id BufferID) *Buffer {
	if id < 0 || int(id) >= len(a.bufs) {
		panic(fmt.Sprintf("arena: invalid buffer handle %d", id))
	}
	return a.bufs[id]
}

// Len reports the number of buffers in the arena.
func (a *Arena) Len() int {
	return len(a.bufs)
}

// Tensor is a named, typed multi-dimensional array abstraction at the IR
// level. The name is the identity key across the whole program; Buffer is
// the optional storage binding.
type Tensor struct {
	Name   string
	DType  tensor.DataType
	Shape  []int64
	Buffer BufferID
}

// NewTensor creates an unbound tensor.
func NewTensor(name string, dt tensor.DataType, shape []int64) *Tensor {
	return &Tensor{Name: name, DType: dt, Shape: shape, Buffer: InvalidBuffer}
}

// Bind rebinds the tensor to a buffer. Rebinding is how aliasing is
// established or broken.
func (t *Tensor) Bind(id BufferID) {
	t.Buffer = id
}

// HasBuffer reports whether the tensor has a storage binding.
func (t *Tensor) HasBuffer() bool {
	return t.Buffer != InvalidBuffer
}

// Module is the program-wide registry: the enumerable list of top-level
// expressions plus the buffer arena they share. Program-wide rebinding
// passes scan Exprs to find alias candidates by name.
type Module struct {
	Arena *Arena
	Exprs []Expr

	issued map[string]bool
}

// NewModule creates an empty module with a fresh arena.
func NewModule() *Module {
	return &Module{Arena: NewArena(), issued: make(map[string]bool)}
}

// AddExpr appends a top-level expression.
func (m *Module) AddExpr(e Expr) {
	m.Exprs = append(m.Exprs, e)
}

// UniqueName returns base if no tensor in the module uses it, otherwise the
// first free base_N. Names handed out are reserved even before the tensor
// appears in a tree.
func (m *Module) UniqueName(base string) string {
	used := make(map[string]bool, len(m.issued))
	for name := range m.issued {
		used[name] = true
	}
	for _, e := range m.Exprs {
		for _, t := range CollectTensors(e) {
			used[t.Name] = true
		}
	}
	name := base
	for i := 1; used[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	m.issued[name] = true
	return name
}
