// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package matmul

import (
	"github.com/x448/float16"

	"github.com/ajroetker/go-vkernels/hwy"
	"github.com/ajroetker/go-vkernels/hwy/contrib/tiling"
	"github.com/ajroetker/go-vkernels/hwy/contrib/workerpool"
)

// Half-precision operands are accumulated in float32 lanes and rounded to
// float16 once per output element, when the tile is drained. The tile
// width is negotiated for the 32-bit accumulators.

// MatMulFloat16 computes C = A * B for float16 matrices on a single
// worker. See MatMul for the layout.
func MatMulFloat16(c, a, b []float16.Float16, m, n, p int) {
	checkDims("MatMulFloat16", len(c), len(a), len(b), m, n, p)
	MatMulFloat16Worker(hwy.NewHardwareVectorUnit(), c, a, b, m, n, p, 0, 1)
}

// MatMulFloat16Worker is MatMulWorker for float16 matrices.
func MatMulFloat16Worker(u *hwy.VectorUnit, c, a, b []float16.Float16, m, n, p, workerID, numWorkers int) int {
	return runWorker(u, c, a, b, m, n, p, workerID, numWorkers, hwy.E32, newFloat16Kernel)
}

// ParallelMatMulFloat16 is ParallelMatMul for float16 matrices.
func ParallelMatMulFloat16(pool *workerpool.Pool, c, a, b []float16.Float16, m, n, p int) {
	ParallelMatMulFloat16VLEN(pool, hwy.HardwareVLEN(), c, a, b, m, n, p)
}

// ParallelMatMulFloat16VLEN is ParallelMatMulFloat16 on simulated vector
// units of vlen bits.
func ParallelMatMulFloat16VLEN(pool *workerpool.Pool, vlen int, c, a, b []float16.Float16, m, n, p int) {
	checkDims("ParallelMatMulFloat16", len(c), len(a), len(b), m, n, p)
	checkVLEN("ParallelMatMulFloat16", vlen)
	logPlan("ParallelMatMulFloat16", vlen, hwy.E32, m, n, p, pool.NumWorkers())
	pool.Run(func(workerID, numWorkers int) {
		MatMulFloat16Worker(hwy.NewVectorUnit(vlen), c, a, b, m, n, p, workerID, numWorkers)
	})
}

func newFloat16Kernel(bs tiling.BlockSize, capacity int) *RowBlockKernel[float16.Float16, float32] {
	return NewWideningKernel(bs, capacity, float16.Float16.Float32, float16.Fromfloat32)
}
