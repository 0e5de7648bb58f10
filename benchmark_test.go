package main

import (
	"context"
	"testing"

	"github.com/ftchann/clmm-simulator/lib/executor"
)

func Benchmark_run(bench *testing.B) {
	sc := swapScenario(bench, 1000)
	bench.ResetTimer()
	for i := 0; i < bench.N; i++ {
		exec, err := executor.CreateExecution(sc, testSettings, nil)
		if err != nil {
			bench.Fatal(err)
		}
		if _, err := exec.Run(context.Background()); err != nil {
			bench.Fatal(err)
		}
	}
}
