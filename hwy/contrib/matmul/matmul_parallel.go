// Copyright 2024 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package matmul

import (
	"k8s.io/klog/v2"

	"github.com/ajroetker/go-vkernels/hwy"
	"github.com/ajroetker/go-vkernels/hwy/contrib/workerpool"
)

// ParallelMatMul computes C = A * B with every worker of pool cooperating,
// each on its own vector unit of the hardware width. It returns once all
// workers are done.
//
//   - A is M x N (row-major)
//   - B is N x P (row-major)
//   - C is M x P (row-major), overwritten
func ParallelMatMul[T hwy.Lanes](pool *workerpool.Pool, c, a, b []T, m, n, p int) {
	ParallelMatMulVLEN(pool, hwy.HardwareVLEN(), c, a, b, m, n, p)
}

// ParallelMatMulVLEN is ParallelMatMul on simulated vector units of vlen
// bits.
func ParallelMatMulVLEN[T hwy.Lanes](pool *workerpool.Pool, vlen int, c, a, b []T, m, n, p int) {
	checkDims("ParallelMatMul", len(c), len(a), len(b), m, n, p)
	checkVLEN("ParallelMatMul", vlen)
	logPlan("ParallelMatMul", vlen, hwy.SEWOf[T](), m, n, p, pool.NumWorkers())
	pool.Run(func(workerID, numWorkers int) {
		u := hwy.NewVectorUnit(vlen)
		MatMulWorker(u, c, a, b, m, n, p, workerID, numWorkers)
	})
}

func logPlan(name string, vlen int, sew hwy.SEW, m, n, p, numWorkers int) {
	if !klog.V(2).Enabled() {
		return
	}
	bs, lmul := BlockSizeFor(m, numWorkers)
	u := hwy.NewVectorUnit(vlen)
	klog.Infof("%s: %dx%dx%d on %d workers, block %s, %s,%s, tile width %d (vlen %d)",
		name, m, n, p, numWorkers, bs, sew, lmul, u.SetVL(sew, lmul, p), vlen)
}
