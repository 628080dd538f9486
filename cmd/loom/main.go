// Command loom builds a small demo loop nest, applies schedule primitives
// to it, and prints the IR before and after.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/loom-ml/loom/internal/ir"
	"github.com/loom-ml/loom/internal/tensor"
	"github.com/loom-ml/loom/schedule"
)

func main() {
	tier := flag.String("tier", "shared", "memory tier for the cache stage (shared, local)")
	sync := flag.Bool("sync", true, "insert a barrier before the consumer block")
	flag.Parse()

	m, block := buildDemoProgram()

	fmt.Println("before:")
	fmt.Print(ir.Print(m.Exprs[0]))

	sch := schedule.NewStatic(m, schedule.DeviceGPU)
	if _, err := sch.CacheRead(block, 0, schedule.MemoryType(*tier)); err != nil {
		log.Fatalf("cache read: %v", err)
	}
	if *sync {
		consumer, err := schedule.GetBlock(m, "B")
		if err != nil {
			log.Fatalf("get block: %v", err)
		}
		if err := sch.SyncThreads(consumer, false); err != nil {
			log.Fatalf("sync threads: %v", err)
		}
	}

	fmt.Println()
	fmt.Println("after:")
	fmt.Print(ir.Print(m.Exprs[0]))
}

// buildDemoProgram constructs
//
//	for (i, 0, 8) { for (j, 0, 16) { B[i, j] = X[i, j] + 1 } }
//
// wrapped in a root schedule block, and returns the module together with
// the realized block computing B.
func buildDemoProgram() (*ir.Module, ir.Expr) {
	m := ir.NewModule()

	xBuf := m.Arena.Create("X", ir.MemoryGlobal, []int64{8, 16})
	bBuf := m.Arena.Create("B", ir.MemoryGlobal, []int64{8, 16})
	x := ir.NewTensor("X", tensor.Float32, []int64{8, 16})
	x.Bind(xBuf)
	b := ir.NewTensor("B", tensor.Float32, []int64{8, 16})
	b.Bind(bBuf)

	v0 := ir.NewVar("v0")
	v1 := ir.NewVar("v1")
	i := ir.NewVar("i")
	j := ir.NewVar("j")

	body := &ir.Store{
		Tensor:  b,
		Value:   ir.Add(&ir.Load{Tensor: x, Indices: []ir.Expr{v0.Clone(), v1.Clone()}}, ir.Imm(1)),
		Indices: []ir.Expr{v0.Clone(), v1.Clone()},
	}
	block := &ir.ScheduleBlockRealize{
		IterValues: []ir.Expr{i.Clone(), j.Clone()},
		Block:      &ir.ScheduleBlock{Name: "B", IterVars: []*ir.Var{v0, v1}, Body: body},
	}
	nest := &ir.For{
		LoopVar: i,
		Min:     ir.Imm(0),
		Extent:  ir.Imm(8),
		Body: &ir.For{
			LoopVar: j,
			Min:     ir.Imm(0),
			Extent:  ir.Imm(16),
			Body:    block,
		},
	}
	root := &ir.ScheduleBlockRealize{
		Block: &ir.ScheduleBlock{Name: "root", Body: &ir.Block{Stmts: []ir.Expr{nest}}},
	}
	m.AddExpr(root)
	return m, block
}
