// Package ir defines the loop-nest intermediate representation transformed
// by the scheduling engine.
//
// The IR is a tree of Expr nodes. Each node owns its children; tensors are
// referenced (shared) by any number of Load/Store nodes and carry name-based
// identity: two tensors with the same buffer name alias the same storage.
//
// Node variants:
//   - Var, IntImm, Binary: index arithmetic
//   - Load, Store: tensor accesses with index lists
//   - For: a loop with min/extent bounds
//   - Block: a statement sequence
//   - Call: an intrinsic call (e.g. the synchronization barrier)
//   - ScheduleBlock, ScheduleBlockRealize: a schedulable unit and its
//     realization with concrete iteration-variable bindings
package ir

import "fmt"

// Expr is a node of the IR tree.
type Expr interface {
	// Clone returns a deep copy of the subtree. Tensors are shared, not
	// copied: identity across copies is name-based.
	Clone() Expr

	exprNode()
}

// Var is a named iteration or index variable.
type Var struct {
	Name string
}

// IntImm is an integer immediate.
type IntImm struct {
	Value int64
}

// BinOp enumerates binary index operations.
type BinOp int

// Supported binary operations.
const (
	OpAdd BinOp = iota
	OpSub
	OpMul
)

// String returns the operator symbol.
func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	default:
		return fmt.Sprintf("BinOp(%d)", int(op))
	}
}

// Binary is a binary arithmetic expression over indices.
type Binary struct {
	Op   BinOp
	X, Y Expr
}

// Load reads one element of a tensor.
type Load struct {
	Tensor  *Tensor
	Indices []Expr
}

// Store writes one element of a tensor.
type Store struct {
	Tensor  *Tensor
	Value   Expr
	Indices []Expr
}

// For is a loop running LoopVar over [Min, Min+Extent).
type For struct {
	LoopVar *Var
	Min     Expr
	Extent  Expr
	Body    Expr
	Device  DeviceAPI
}

// Block is an ordered statement sequence.
type Block struct {
	Stmts []Expr
}

// Call is an intrinsic call expression. The scheduling engine only inserts
// calls with reserved names; their semantics belong to code generation.
type Call struct {
	Name string
	Args []Expr
}

// SyncThreadsIntrinsic is the reserved barrier name recognized downstream.
const SyncThreadsIntrinsic = "__syncthreads"

// ScheduleBlock is the abstract body of a schedule unit. IterVars are the
// block-local iteration variables its body is written against.
type ScheduleBlock struct {
	Name     string
	IterVars []*Var
	Body     Expr
}

// ScheduleBlockRealize instantiates a ScheduleBlock, binding each of its
// iteration variables to a concrete index expression. A realize with no
// iteration values is a root block.
type ScheduleBlockRealize struct {
	IterValues []Expr
	Block      *ScheduleBlock
}

func (*Var) exprNode()                  {}
func (*IntImm) exprNode()               {}
func (*Binary) exprNode()               {}
func (*Load) exprNode()                 {}
func (*Store) exprNode()                {}
func (*For) exprNode()                  {}
func (*Block) exprNode()                {}
func (*Call) exprNode()                 {}
func (*ScheduleBlock) exprNode()        {}
func (*ScheduleBlockRealize) exprNode() {}

// NewVar creates a named variable.
func NewVar(name string) *Var {
	return &Var{Name: name}
}

// Imm creates an integer immediate.
func Imm(v int64) *IntImm {
	return &IntImm{Value: v}
}

// Add builds x + y.
func Add(x, y Expr) Expr {
	return &Binary{Op: OpAdd, X: x, Y: y}
}

// Sub builds x - y.
func Sub(x, y Expr) Expr {
	return &Binary{Op: OpSub, X: x, Y: y}
}

// Mul builds x * y.
func Mul(x, y Expr) Expr {
	return &Binary{Op: OpMul, X: x, Y: y}
}

// Clone implementations. Child expressions are copied deeply; Tensor and
// Var pointers inside Load/Store/For are re-created so that mutating a
// clone never reaches back into the source tree, while tensors stay shared.

func (v *Var) Clone() Expr {
	return &Var{Name: v.Name}
}

func (i *IntImm) Clone() Expr {
	return &IntImm{Value: i.Value}
}

func (b *Binary) Clone() Expr {
	return &Binary{Op: b.Op, X: b.X.Clone(), Y: b.Y.Clone()}
}

func (l *Load) Clone() Expr {
	return &Load{Tensor: l.Tensor, Indices: cloneExprs(l.Indices)}
}

func (s *Store) Clone() Expr {
	return &Store{Tensor: s.Tensor, Value: s.Value.Clone(), Indices: cloneExprs(s.Indices)}
}

func (f *For) Clone() Expr {
	return &For{
		LoopVar: &Var{Name: f.LoopVar.Name},
		Min:     f.Min.Clone(),
		Extent:  f.Extent.Clone(),
		Body:    f.Body.Clone(),
		Device:  f.Device,
	}
}

func (b *Block) Clone() Expr {
	return &Block{Stmts: cloneExprs(b.Stmts)}
}

func (c *Call) Clone() Expr {
	return &Call{Name: c.Name, Args: cloneExprs(c.Args)}
}

func (sb *ScheduleBlock) Clone() Expr {
	vars := make([]*Var, len(sb.IterVars))
	for i, v := range sb.IterVars {
		vars[i] = &Var{Name: v.Name}
	}
	return &ScheduleBlock{Name: sb.Name, IterVars: vars, Body: sb.Body.Clone()}
}

func (r *ScheduleBlockRealize) Clone() Expr {
	return &ScheduleBlockRealize{
		IterValues: cloneExprs(r.IterValues),
		Block:      r.Block.Clone().(*ScheduleBlock),
	}
}

func cloneExprs(es []Expr) []Expr {
	if es == nil {
		return nil
	}
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = e.Clone()
	}
	return out
}
