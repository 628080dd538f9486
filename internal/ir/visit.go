package ir

// Visit walks the subtree rooted at e in preorder. The callback returns
// false to skip the children of the current node.
func Visit(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	switch n := e.(type) {
	case *Var, *IntImm:
	case *Binary:
		Visit(n.X, f)
		Visit(n.Y, f)
	case *Load:
		for _, idx := range n.Indices {
			Visit(idx, f)
		}
	case *Store:
		Visit(n.Value, f)
		for _, idx := range n.Indices {
			Visit(idx, f)
		}
	case *For:
		Visit(n.LoopVar, f)
		Visit(n.Min, f)
		Visit(n.Extent, f)
		Visit(n.Body, f)
	case *Block:
		for _, st := range n.Stmts {
			Visit(st, f)
		}
	case *Call:
		for _, a := range n.Args {
			Visit(a, f)
		}
	case *ScheduleBlock:
		Visit(n.Body, f)
	case *ScheduleBlockRealize:
		for _, iv := range n.IterValues {
			Visit(iv, f)
		}
		Visit(n.Block, f)
	}
}

// Collect returns, in document order, every node of the subtree satisfying
// the predicate.
func Collect(e Expr, pred func(Expr) bool) []Expr {
	var out []Expr
	Visit(e, func(x Expr) bool {
		if pred(x) {
			out = append(out, x)
		}
		return true
	})
	return out
}

// Contains reports whether target appears (by pointer identity) in the
// subtree rooted at e.
func Contains(e, target Expr) bool {
	found := false
	Visit(e, func(x Expr) bool {
		if x == target {
			found = true
		}
		return !found
	})
	return found
}

// CollectTensors returns every tensor referenced by a Load or Store in the
// subtree, in document order, one entry per referencing node.
func CollectTensors(e Expr) []*Tensor {
	var out []*Tensor
	Visit(e, func(x Expr) bool {
		switch n := x.(type) {
		case *Load:
			out = append(out, n.Tensor)
		case *Store:
			out = append(out, n.Tensor)
		}
		return true
	})
	return out
}

// Substitute returns a copy of e with every variable occurring as a key in
// repl replaced by (a clone of) the mapped expression.
func Substitute(e Expr, repl map[string]Expr) Expr {
	switch n := e.(type) {
	case *Var:
		if r, ok := repl[n.Name]; ok {
			return r.Clone()
		}
		return n.Clone()
	case *IntImm:
		return n.Clone()
	case *Binary:
		return &Binary{Op: n.Op, X: Substitute(n.X, repl), Y: Substitute(n.Y, repl)}
	case *Load:
		return &Load{Tensor: n.Tensor, Indices: substituteAll(n.Indices, repl)}
	case *Store:
		return &Store{
			Tensor:  n.Tensor,
			Value:   Substitute(n.Value, repl),
			Indices: substituteAll(n.Indices, repl),
		}
	case *For:
		return &For{
			LoopVar: &Var{Name: n.LoopVar.Name},
			Min:     Substitute(n.Min, repl),
			Extent:  Substitute(n.Extent, repl),
			Body:    Substitute(n.Body, repl),
			Device:  n.Device,
		}
	case *Block:
		return &Block{Stmts: substituteAll(n.Stmts, repl)}
	case *Call:
		return &Call{Name: n.Name, Args: substituteAll(n.Args, repl)}
	case *ScheduleBlock:
		vars := make([]*Var, len(n.IterVars))
		for i, v := range n.IterVars {
			vars[i] = &Var{Name: v.Name}
		}
		return &ScheduleBlock{Name: n.Name, IterVars: vars, Body: Substitute(n.Body, repl)}
	case *ScheduleBlockRealize:
		return &ScheduleBlockRealize{
			IterValues: substituteAll(n.IterValues, repl),
			Block:      Substitute(n.Block, repl).(*ScheduleBlock),
		}
	default:
		return e.Clone()
	}
}

func substituteAll(es []Expr, repl map[string]Expr) []Expr {
	if es == nil {
		return nil
	}
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = Substitute(e, repl)
	}
	return out
}

// Const evaluates e to an integer constant if possible.
func Const(e Expr) (int64, bool) {
	switch n := e.(type) {
	case *IntImm:
		return n.Value, true
	case *Binary:
		x, xok := Const(n.X)
		y, yok := Const(n.Y)
		if !xok || !yok {
			return 0, false
		}
		switch n.Op {
		case OpAdd:
			return x + y, true
		case OpSub:
			return x - y, true
		case OpMul:
			return x * y, true
		}
	}
	return 0, false
}

// Simplify folds constant arithmetic and additive/multiplicative identities
// in an index expression. Non-arithmetic nodes are returned unchanged.
func Simplify(e Expr) Expr {
	n, ok := e.(*Binary)
	if !ok {
		return e
	}
	x := Simplify(n.X)
	y := Simplify(n.Y)
	if xv, xok := Const(x); xok {
		if yv, yok := Const(y); yok {
			switch n.Op {
			case OpAdd:
				return Imm(xv + yv)
			case OpSub:
				return Imm(xv - yv)
			case OpMul:
				return Imm(xv * yv)
			}
		}
	}
	switch n.Op {
	case OpAdd:
		if isZero(x) {
			return y
		}
		if isZero(y) {
			return x
		}
	case OpSub:
		if isZero(y) {
			return x
		}
	case OpMul:
		if isZero(x) || isZero(y) {
			return Imm(0)
		}
		if isOne(x) {
			return y
		}
		if isOne(y) {
			return x
		}
	}
	return &Binary{Op: n.Op, X: x, Y: y}
}

func isZero(e Expr) bool {
	v, ok := Const(e)
	return ok && v == 0
}

func isOne(e Expr) bool {
	v, ok := Const(e)
	return ok && v == 1
}
