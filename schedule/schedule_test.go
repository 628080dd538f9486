package schedule

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-ml/loom/internal/ir"
	"github.com/loom-ml/loom/internal/tensor"
)

func buildProgram(m *Module) Expr {
	x := ir.NewTensor("X", tensor.Float32, []int64{8})
	b := ir.NewTensor("B", tensor.Float32, []int64{8})
	x.Bind(m.Arena.Create("X", MemoryGlobal, x.Shape))
	b.Bind(m.Arena.Create("B", MemoryGlobal, b.Shape))

	v0 := ir.NewVar("v0")
	i := ir.NewVar("i")
	block := &ir.ScheduleBlockRealize{
		IterValues: []Expr{i.Clone()},
		Block: &ir.ScheduleBlock{
			Name:     "B",
			IterVars: []*ir.Var{v0},
			Body: &ir.Store{
				Tensor:  b,
				Value:   &ir.Load{Tensor: x, Indices: []Expr{v0.Clone()}},
				Indices: []Expr{v0.Clone()},
			},
		},
	}
	loop := &ir.For{LoopVar: i, Min: ir.Imm(0), Extent: ir.Imm(8), Body: block}
	root := &ir.ScheduleBlockRealize{Block: &ir.ScheduleBlock{Name: "root", Body: loop}}
	m.AddExpr(root)
	return block
}

func TestStaticEndToEnd(t *testing.T) {
	m := NewModule()
	block := buildProgram(m)
	sch := NewStatic(m, DeviceGPU)

	stage, err := sch.CacheRead(block, 0, MemoryShared)
	require.NoError(t, err)
	require.NotNil(t, stage)

	consumer, err := GetBlock(m, "B")
	require.NoError(t, err)
	require.NoError(t, sch.SyncThreads(consumer, false))

	out := ir.Print(m.Exprs[0])
	assert.Contains(t, out, "X_shared_temp_buffer")
	assert.Contains(t, out, ir.SyncThreadsIntrinsic)
}

func TestDynamicSharesSyncThreadsOnly(t *testing.T) {
	m := NewModule()
	block := buildProgram(m)
	sch := NewDynamic(m, DeviceGPU)

	_, err := sch.CacheRead(block, 0, MemoryShared)
	assert.True(t, errors.Is(err, ErrNotImplemented))

	require.NoError(t, sch.SyncThreads(block, true))
	assert.Contains(t, ir.Print(m.Exprs[0]), ir.SyncThreadsIntrinsic)
}

func TestGetBlockMissing(t *testing.T) {
	m := NewModule()
	buildProgram(m)

	blk, err := GetBlock(m, "missing")
	assert.Error(t, err)
	// The error path must return an untyped nil interface.
	assert.Nil(t, blk)
	assert.True(t, blk == nil)
}
