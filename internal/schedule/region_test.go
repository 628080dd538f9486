package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-ml/loom/internal/ir"
	"github.com/loom-ml/loom/internal/tensor"
)

func rangeConsts(t *testing.T, r Range) (int64, int64) {
	t.Helper()
	return constOf(t, r.Min), constOf(t, r.Extent)
}

func TestTensorRegions(t *testing.T) {
	p := buildProgram()
	load := loadsIn(p.block)[0]

	ranges, err := tensorRegions(p.block, load.Indices, p.x, p.root)
	require.NoError(t, err)
	require.Len(t, ranges, 2)

	min0, ext0 := rangeConsts(t, ranges[0])
	assert.EqualValues(t, 0, min0)
	assert.EqualValues(t, 8, ext0)
	min1, ext1 := rangeConsts(t, ranges[1])
	assert.EqualValues(t, 0, min1)
	assert.EqualValues(t, 16, ext1)
}

func TestTensorRegionsLoopInvariantIndex(t *testing.T) {
	p := buildProgram()

	// A constant index touches a single point regardless of the loops.
	ranges, err := tensorRegions(p.block, []ir.Expr{ir.Imm(3), ir.NewVar("v1")}, p.x, p.root)
	require.NoError(t, err)
	require.Len(t, ranges, 2)

	min0, ext0 := rangeConsts(t, ranges[0])
	assert.EqualValues(t, 3, min0)
	assert.EqualValues(t, 1, ext0)
	_, ext1 := rangeConsts(t, ranges[1])
	assert.EqualValues(t, 16, ext1)
}

func TestTensorRegionsNonZeroLoopMin(t *testing.T) {
	m := ir.NewModule()
	x := ir.NewTensor("X", tensor.Float32, []int64{32})
	b := ir.NewTensor("B", tensor.Float32, []int64{32})

	v0 := ir.NewVar("v0")
	i := ir.NewVar("i")
	block := &ir.ScheduleBlockRealize{
		IterValues: []ir.Expr{i.Clone()},
		Block: &ir.ScheduleBlock{
			Name:     "B",
			IterVars: []*ir.Var{v0},
			Body: &ir.Store{
				Tensor:  b,
				Value:   &ir.Load{Tensor: x, Indices: []ir.Expr{v0.Clone()}},
				Indices: []ir.Expr{v0.Clone()},
			},
		},
	}
	loop := &ir.For{LoopVar: i, Min: ir.Imm(2), Extent: ir.Imm(4), Body: block}
	root := &ir.ScheduleBlockRealize{Block: &ir.ScheduleBlock{Name: "root", Body: loop}}
	m.AddExpr(root)

	ranges, err := tensorRegions(block, []ir.Expr{ir.NewVar("v0")}, x, root)
	require.NoError(t, err)
	require.Len(t, ranges, 1)

	min, ext := rangeConsts(t, ranges[0])
	assert.EqualValues(t, 2, min)
	assert.EqualValues(t, 4, ext)
}

func TestTensorRegionsScaledIndex(t *testing.T) {
	p := buildProgram()

	// X[2*v0 + 1] over i in [0, 8) spans [1, 15], extent 15.
	idx := ir.Add(ir.Mul(ir.Imm(2), ir.NewVar("v0")), ir.Imm(1))
	ranges, err := tensorRegions(p.block, []ir.Expr{idx}, p.x, p.root)
	require.NoError(t, err)
	require.Len(t, ranges, 1)

	min, ext := rangeConsts(t, ranges[0])
	assert.EqualValues(t, 1, min)
	assert.EqualValues(t, 15, ext)
}

func TestTensorRegionsNonConstantExtent(t *testing.T) {
	m := ir.NewModule()
	x := ir.NewTensor("X", tensor.Float32, []int64{32})
	b := ir.NewTensor("B", tensor.Float32, []int64{32})

	v0 := ir.NewVar("v0")
	i := ir.NewVar("i")
	block := &ir.ScheduleBlockRealize{
		IterValues: []ir.Expr{i.Clone()},
		Block: &ir.ScheduleBlock{
			Name:     "B",
			IterVars: []*ir.Var{v0},
			Body: &ir.Store{
				Tensor:  b,
				Value:   &ir.Load{Tensor: x, Indices: []ir.Expr{v0.Clone()}},
				Indices: []ir.Expr{v0.Clone()},
			},
		},
	}
	loop := &ir.For{LoopVar: i, Min: ir.Imm(0), Extent: ir.NewVar("n"), Body: block}
	root := &ir.ScheduleBlockRealize{Block: &ir.ScheduleBlock{Name: "root", Body: loop}}
	m.AddExpr(root)

	_, err := tensorRegions(block, []ir.Expr{ir.NewVar("v0")}, x, root)
	assert.ErrorContains(t, err, "constant loop extents")
}

func TestTensorRegionsMixedSignIndex(t *testing.T) {
	p := buildProgram()

	// X[v0 - v1] over i in [0,8), j in [0,16) spans [-15, 7], extent 23.
	// Each variable is bounded on its own, so the subtrahend contributes
	// its maximum to the lower bound.
	idx := ir.Sub(ir.NewVar("v0"), ir.NewVar("v1"))
	ranges, err := tensorRegions(p.block, []ir.Expr{idx}, p.x, p.root)
	require.NoError(t, err)
	require.Len(t, ranges, 1)

	min, ext := rangeConsts(t, ranges[0])
	assert.EqualValues(t, -15, min)
	assert.EqualValues(t, 23, ext)
}

func TestTensorRegionsProductInterval(t *testing.T) {
	p := buildProgram()

	// X[v0 * (v1 - 8)] with i in [0,8), j in [0,16): the factors span
	// [0,7] and [-8,7], so the corner products bound the index to [-56, 49].
	idx := ir.Mul(ir.NewVar("v0"), ir.Sub(ir.NewVar("v1"), ir.Imm(8)))
	ranges, err := tensorRegions(p.block, []ir.Expr{idx}, p.x, p.root)
	require.NoError(t, err)
	require.Len(t, ranges, 1)

	min, ext := rangeConsts(t, ranges[0])
	assert.EqualValues(t, -56, min)
	assert.EqualValues(t, 106, ext)
}

func TestTensorRegionsIgnoresSiblingLoops(t *testing.T) {
	p := buildProgram()

	// A sibling nest reusing the loop-variable name i with a different
	// extent must not shadow the bound of the loop enclosing the block.
	sibling := &ir.For{
		LoopVar: ir.NewVar("i"),
		Min:     ir.Imm(0),
		Extent:  ir.Imm(99),
		Body: &ir.Store{
			Tensor:  p.b,
			Value:   ir.Imm(0),
			Indices: []ir.Expr{ir.NewVar("i"), ir.Imm(0)},
		},
	}
	p.root.Block.Body = &ir.Block{Stmts: []ir.Expr{p.loopI, sibling}}

	load := loadsIn(p.block)[0]
	ranges, err := tensorRegions(p.block, load.Indices, p.x, p.root)
	require.NoError(t, err)
	require.Len(t, ranges, 2)

	_, ext0 := rangeConsts(t, ranges[0])
	assert.EqualValues(t, 8, ext0)
}

func TestLoopBounds(t *testing.T) {
	p := buildProgram()

	bounds := loopBounds(p.root, p.block)
	require.Len(t, bounds, 2)
	_, iExt := rangeConsts(t, bounds["i"])
	assert.EqualValues(t, 8, iExt)
	_, jExt := rangeConsts(t, bounds["j"])
	assert.EqualValues(t, 16, jExt)
}
