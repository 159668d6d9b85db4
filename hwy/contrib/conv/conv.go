// Copyright 2025 go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package conv implements 2D and multi-channel 3D convolutions (valid
// correlation, no padding, unit stride) on the same register blocking as
// the matmul package.
//
// Output rows are grouped in blocks of 2, 4 or 8 accumulator registers and
// columns in tiles of the negotiated vector length. Every input vector is
// loaded once per block and multiply-accumulated into all the output rows
// of the block it contributes to, so a block of bs rows loads
// (bs+fsz-1)*fsz input vectors per channel instead of bs*fsz*fsz.
//
// Layouts are row-major:
//
//   - input:  ch × (r+fsz-1) × (c+fsz-1)
//   - filter: ch × fsz × fsz
//   - output: r × c
package conv

import (
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"

	"github.com/ajroetker/go-vkernels/hwy"
	"github.com/ajroetker/go-vkernels/hwy/contrib/tiling"
	"github.com/ajroetker/go-vkernels/hwy/contrib/workerpool"
)

// Shape describes a convolution: ch input channels, an r×c output and a
// square fsz×fsz filter per channel.
type Shape struct {
	Channels   int
	Rows, Cols int
	FilterSize int
}

// InputRows returns the number of rows of each input channel.
func (s Shape) InputRows() int { return s.Rows + s.FilterSize - 1 }

// InputCols returns the number of columns of each input channel.
func (s Shape) InputCols() int { return s.Cols + s.FilterSize - 1 }

// InputLen returns the number of input elements.
func (s Shape) InputLen() int { return s.Channels * s.InputRows() * s.InputCols() }

// FilterLen returns the number of filter elements.
func (s Shape) FilterLen() int { return s.Channels * s.FilterSize * s.FilterSize }

// OutputLen returns the number of output elements.
func (s Shape) OutputLen() int { return s.Rows * s.Cols }

// Conv2D computes the r×c valid correlation of a single-channel input
// with an fsz×fsz filter on a vector unit of the hardware width.
func Conv2D[T hwy.Lanes](o, in, f []T, r, c, fsz int) {
	Conv3D(o, in, f, 1, r, c, fsz)
}

// Conv3D computes the r×c valid correlation of a ch-channel input with a
// ch×fsz×fsz filter, summed over channels, on a vector unit of the
// hardware width.
func Conv3D[T hwy.Lanes](o, in, f []T, ch, r, c, fsz int) {
	s := Shape{Channels: ch, Rows: r, Cols: c, FilterSize: fsz}
	checkShape("Conv3D", s, len(o), len(in), len(f))
	Worker(hwy.NewHardwareVectorUnit(), o, in, f, s, 0, 1)
}

// Conv2DWorker is Conv3DWorker for a single channel.
func Conv2DWorker[T hwy.Lanes](u *hwy.VectorUnit, o, in, f []T, r, c, fsz, workerID, numWorkers int) int {
	return Worker(u, o, in, f, Shape{Channels: 1, Rows: r, Cols: c, FilterSize: fsz}, workerID, numWorkers)
}

// Conv3DWorker computes worker workerID's share of a Conv3D when
// numWorkers workers cooperate on the same output. The output is split
// the same way MatMulWorker splits C. It returns the negotiated tile
// width.
func Conv3DWorker[T hwy.Lanes](u *hwy.VectorUnit, o, in, f []T, ch, r, c, fsz, workerID, numWorkers int) int {
	return Worker(u, o, in, f, Shape{Channels: ch, Rows: r, Cols: c, FilterSize: fsz}, workerID, numWorkers)
}

// Worker is the shape-based form of Conv3DWorker. Arguments are not
// validated.
func Worker[T hwy.Lanes](u *hwy.VectorUnit, o, in, f []T, s Shape, workerID, numWorkers int) int {
	bs := tiling.SelectBlockSize(s.Rows, numWorkers)
	return sweep(u, o, in, f, s, workerID, numWorkers, bs, tiling.Grouping(bs, s.Rows, numWorkers))
}

// ParallelConv3D runs Conv3D with every worker of pool cooperating.
func ParallelConv3D[T hwy.Lanes](pool *workerpool.Pool, o, in, f []T, ch, r, c, fsz int) {
	ParallelConv3DVLEN(pool, hwy.HardwareVLEN(), o, in, f, ch, r, c, fsz)
}

// ParallelConv3DVLEN is ParallelConv3D on simulated vector units of vlen
// bits.
func ParallelConv3DVLEN[T hwy.Lanes](pool *workerpool.Pool, vlen int, o, in, f []T, ch, r, c, fsz int) {
	s := Shape{Channels: ch, Rows: r, Cols: c, FilterSize: fsz}
	checkShape("ParallelConv3D", s, len(o), len(in), len(f))
	if err := hwy.ValidateVLEN(vlen); err != nil {
		exceptions.Panicf("ParallelConv3D: %v", err)
	}
	if klog.V(2).Enabled() {
		bs := tiling.SelectBlockSize(r, pool.NumWorkers())
		klog.Infof("ParallelConv3D: %dx%dx%d filter %dx%d on %d workers, block %s (vlen %d)",
			ch, r, c, fsz, fsz, pool.NumWorkers(), bs, vlen)
	}
	pool.Run(func(workerID, numWorkers int) {
		Worker(hwy.NewVectorUnit(vlen), o, in, f, s, workerID, numWorkers)
	})
}

func sweep[T hwy.Lanes](u *hwy.VectorUnit, o, in, f []T, s Shape, workerID, numWorkers int, bs tiling.BlockSize, lmul hwy.LMUL) int {
	sew := hwy.SEWOf[T]()
	tileWidth := u.SetVL(sew, lmul, s.Cols)
	asg := tiling.Partition(s.Rows, s.Cols, bs, tileWidth, numWorkers, workerID)
	if asg.Idle() {
		return tileWidth
	}

	k := newBlockConv[T](bs, tileWidth)
	col := -1
	for tile := range asg.Tiles() {
		if tile.Col != col {
			u.SetVL(sew, lmul, tile.Cols)
			col = tile.Col
		}
		k.run(u, o, in, f, s, tile)
	}
	return tileWidth
}

// blockConv holds one worker's registers: the block accumulators and the
// input vector being applied.
type blockConv[T hwy.Lanes] struct {
	acc *tiling.Accumulator[T]
	x   hwy.Vec[T]
}

func newBlockConv[T hwy.Lanes](bs tiling.BlockSize, capacity int) *blockConv[T] {
	return &blockConv[T]{
		acc: tiling.NewAccumulator[T](bs, capacity),
		x:   hwy.NewVec[T](capacity),
	}
}

// run computes one tile of output rows.
//
// Input row ir feeds output row or through filter row ir-or, so while
// walking the tile.Rows+fsz-1 input rows of the block each loaded vector
// is applied to the output rows or with 0 <= ir-or < fsz.
func (k *blockConv[T]) run(u *hwy.VectorUnit, o, in, f []T, s Shape, tile tiling.Tile) {
	k.acc.Reset(u)
	fsz := s.FilterSize
	ih, iw := s.InputRows(), s.InputCols()
	last := tile.Row + tile.Rows + fsz - 1
	for ch := range s.Channels {
		plane := in[ch*ih*iw:]
		filt := f[ch*fsz*fsz:]
		for ir := tile.Row; ir < last; ir++ {
			lo := max(tile.Row, ir-fsz+1)
			hi := min(tile.Row+tile.Rows, ir+1)
			for fc := range fsz {
				hwy.Load(u, k.x, plane[ir*iw+tile.Col+fc:])
				for or := lo; or < hi; or++ {
					hwy.MulAddScalar(u, k.acc.Lane(or-tile.Row), filt[(ir-or)*fsz+fc], k.x)
				}
			}
		}
	}
	k.acc.Drain(u, o[tile.Row*s.Cols+tile.Col:], s.Cols, tile.Rows)
}

func checkShape(name string, s Shape, lenO, lenIn, lenF int) {
	if s.Channels <= 0 || s.Rows <= 0 || s.Cols <= 0 || s.FilterSize <= 0 {
		exceptions.Panicf("%s: dimensions must be positive, got ch=%d r=%d c=%d fsz=%d",
			name, s.Channels, s.Rows, s.Cols, s.FilterSize)
	}
	if lenIn < s.InputLen() {
		exceptions.Panicf("%s: input slice too short: %d < %d", name, lenIn, s.InputLen())
	}
	if lenF < s.FilterLen() {
		exceptions.Panicf("%s: filter slice too short: %d < %d", name, lenF, s.FilterLen())
	}
	if lenO < s.OutputLen() {
		exceptions.Panicf("%s: output slice too short: %d < %d", name, lenO, s.OutputLen())
	}
}
