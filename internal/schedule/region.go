package schedule

import (
	"github.com/pkg/errors"

	"github.com/loom-ml/loom/internal/ir"
)

// Range is one (min, extent) pair of a region: the index footprint of an
// access along one tensor dimension.
type Range struct {
	Min    ir.Expr
	Extent ir.Expr
}

// tensorRegions computes the conservative footprint the given access
// pattern can touch, relative to the loops enclosing the block. The block's
// iteration values are substituted into the index expressions first, so the
// result is phrased in loop variables only. A loop-invariant index reduces
// to a single point (extent 1).
func tensorRegions(block *ir.ScheduleBlockRealize, indices []ir.Expr, t *ir.Tensor,
	root *ir.ScheduleBlockRealize) ([]Range, error) {

	repl := make(map[string]ir.Expr, len(block.Block.IterVars))
	for i, v := range block.Block.IterVars {
		if i < len(block.IterValues) {
			repl[v.Name] = block.IterValues[i]
		}
	}
	bounds := loopBounds(root, block)

	ranges := make([]Range, 0, len(indices))
	for dim, idx := range indices {
		e := ir.Simplify(ir.Substitute(idx, repl))
		vars := boundVars(e, bounds)
		if len(vars) == 0 {
			ranges = append(ranges, Range{Min: e, Extent: ir.Imm(1)})
			continue
		}
		lo, hi, err := interval(e, bounds)
		if err != nil {
			return nil, errors.WithMessagef(err, "index %d of tensor %q", dim, t.Name)
		}
		ranges = append(ranges, Range{Min: ir.Imm(lo), Extent: ir.Imm(hi - lo + 1)})
	}
	return ranges, nil
}

// interval evaluates the inclusive value range of an index expression with
// every loop variable ranging over its bounds. Each operand contributes its
// own interval, so mixed-sign expressions like i - j are bounded correctly
// instead of being evaluated at a single all-min / all-max corner.
func interval(e ir.Expr, bounds map[string]Range) (int64, int64, error) {
	switch n := e.(type) {
	case *ir.IntImm:
		return n.Value, n.Value, nil
	case *ir.Var:
		b, ok := bounds[n.Name]
		if !ok {
			return 0, 0, errors.Errorf("region: free variable %q in index expression", n.Name)
		}
		lo, lok := ir.Const(b.Min)
		ext, eok := ir.Const(b.Extent)
		if !lok || !eok {
			return 0, 0, errors.Errorf(
				"region: loop over %q has non-constant bounds, static-shape scheduling needs constant loop extents",
				n.Name)
		}
		return lo, lo + ext - 1, nil
	case *ir.Binary:
		xlo, xhi, err := interval(n.X, bounds)
		if err != nil {
			return 0, 0, err
		}
		ylo, yhi, err := interval(n.Y, bounds)
		if err != nil {
			return 0, 0, err
		}
		switch n.Op {
		case ir.OpAdd:
			return xlo + ylo, xhi + yhi, nil
		case ir.OpSub:
			return xlo - yhi, xhi - ylo, nil
		case ir.OpMul:
			corners := [4]int64{xlo * ylo, xlo * yhi, xhi * ylo, xhi * yhi}
			lo, hi := corners[0], corners[0]
			for _, c := range corners[1:] {
				lo = min(lo, c)
				hi = max(hi, c)
			}
			return lo, hi, nil
		}
	}
	return 0, 0, errors.Errorf("region: cannot bound index expression %s", ir.Print(e))
}

// loopBounds maps each loop variable enclosing the block to its
// (min, extent). Only the loops on the path from root to the block count;
// a sibling nest reusing a variable name must not shadow the relevant
// bound.
func loopBounds(root ir.Expr, block *ir.ScheduleBlockRealize) map[string]Range {
	bounds := make(map[string]Range)
	for _, f := range findLoops(root, block, nil) {
		bounds[f.LoopVar.Name] = Range{Min: f.Min, Extent: f.Extent}
	}
	return bounds
}

// boundVars returns the loop variables occurring in e.
func boundVars(e ir.Expr, bounds map[string]Range) map[string]bool {
	vars := make(map[string]bool)
	ir.Visit(e, func(x ir.Expr) bool {
		if v, ok := x.(*ir.Var); ok {
			if _, bound := bounds[v.Name]; bound {
				vars[v.Name] = true
			}
		}
		return true
	})
	return vars
}
