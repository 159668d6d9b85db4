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
	"github.com/gomlx/exceptions"

	"github.com/ajroetker/go-vkernels/hwy"
	"github.com/ajroetker/go-vkernels/hwy/contrib/tiling"
)

// MatMul computes C = A * B on a single worker using a vector unit of the
// hardware width.
//
//   - A is M x N (row-major)
//   - B is N x P (row-major)
//   - C is M x P (row-major), overwritten
//
// It panics if a dimension is not positive or a slice is too short.
func MatMul[T hwy.Lanes](c, a, b []T, m, n, p int) {
	checkDims("MatMul", len(c), len(a), len(b), m, n, p)
	MatMulOn(hwy.NewHardwareVectorUnit(), c, a, b, m, n, p)
}

// MatMulOn is MatMul on the given vector unit. It returns the tile width
// negotiated for the column sweep.
func MatMulOn[T hwy.Lanes](u *hwy.VectorUnit, c, a, b []T, m, n, p int) int {
	return MatMulWorker(u, c, a, b, m, n, p, 0, 1)
}

// MatMulWorker computes worker workerID's share of C = A * B when
// numWorkers workers cooperate on the same output. Every worker must call
// it with the same arguments except u and workerID; together they write
// every element of C exactly once and never the same element twice.
//
// It returns the tile width negotiated for the column sweep.
//
// Arguments are not validated: dimensions must be positive, slices long
// enough and 0 ≤ workerID < numWorkers.
func MatMulWorker[T hwy.Lanes](u *hwy.VectorUnit, c, a, b []T, m, n, p, workerID, numWorkers int) int {
	return runWorker(u, c, a, b, m, n, p, workerID, numWorkers, hwy.SEWOf[T](), NewRowBlockKernel[T])
}

// BlockSizeFor returns the block size and register grouping MatMulWorker
// uses for an M-row output shared by numWorkers workers.
func BlockSizeFor(m, numWorkers int) (tiling.BlockSize, hwy.LMUL) {
	bs := tiling.SelectBlockSize(m, numWorkers)
	return bs, tiling.Grouping(bs, m, numWorkers)
}

// runWorker picks the blocking for the output and sweeps the worker's
// share. sew is the width of the accumulator lanes.
func runWorker[E, A hwy.Lanes](
	u *hwy.VectorUnit,
	c, a, b []E,
	m, n, p, workerID, numWorkers int,
	sew hwy.SEW,
	newKernel func(tiling.BlockSize, int) *RowBlockKernel[E, A],
) int {
	bs, lmul := BlockSizeFor(m, numWorkers)
	return sweep(u, c, a, b, m, n, p, workerID, numWorkers, sew, bs, lmul, newKernel)
}

// sweep negotiates the tile width, allocates the worker's kernel and runs
// it over every tile of the worker's assignment.
func sweep[E, A hwy.Lanes](
	u *hwy.VectorUnit,
	c, a, b []E,
	m, n, p, workerID, numWorkers int,
	sew hwy.SEW,
	bs tiling.BlockSize,
	lmul hwy.LMUL,
	newKernel func(tiling.BlockSize, int) *RowBlockKernel[E, A],
) int {
	// First negotiation: the tile width for the whole sweep.
	tileWidth := u.SetVL(sew, lmul, p)
	asg := tiling.Partition(m, p, bs, tileWidth, numWorkers, workerID)
	if asg.Idle() {
		return tileWidth
	}

	k := newKernel(bs, tileWidth)
	col := -1
	for tile := range asg.Tiles() {
		if tile.Col != col {
			// Second negotiation: clamp to the columns left in this tile.
			u.SetVL(sew, lmul, tile.Cols)
			col = tile.Col
		}
		k.Run(u, c[tile.Row*p+tile.Col:], a[tile.Row*n:], b[tile.Col:], tile.Rows, n, p)
	}
	return tileWidth
}

// checkVLEN rejects a register width before any worker is started, so the
// panic is raised on the caller's goroutine.
func checkVLEN(name string, vlen int) {
	if err := hwy.ValidateVLEN(vlen); err != nil {
		exceptions.Panicf("%s: %v", name, err)
	}
}

func checkDims(name string, lenC, lenA, lenB, m, n, p int) {
	if m <= 0 || n <= 0 || p <= 0 {
		exceptions.Panicf("%s: dimensions must be positive, got M=%d N=%d P=%d", name, m, n, p)
	}
	if lenA < m*n {
		exceptions.Panicf("%s: A slice too short: %d < %d*%d", name, lenA, m, n)
	}
	if lenB < n*p {
		exceptions.Panicf("%s: B slice too short: %d < %d*%d", name, lenB, n, p)
	}
	if lenC < m*p {
		exceptions.Panicf("%s: C slice too short: %d < %d*%d", name, lenC, m, p)
	}
}
