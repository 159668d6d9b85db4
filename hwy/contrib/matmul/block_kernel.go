// Copyright 2024 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package matmul

import (
	"github.com/ajroetker/go-vkernels/hwy"
	"github.com/ajroetker/go-vkernels/hwy/contrib/tiling"
)

// RowBlockKernel computes one rows×vl tile of C = A * B, holding one
// accumulator register per output row across the whole reduction.
//
// E is the element type of the matrices and A the accumulator lane type.
// They are the same for NewRowBlockKernel; NewWideningKernel accumulates
// narrow elements in a wider type and narrows only when draining.
//
// A kernel owns its registers and is not safe for concurrent use; each
// worker allocates its own before computing.
type RowBlockKernel[E, A hwy.Lanes] struct {
	acc *tiling.Accumulator[A]

	// buf holds the B rows in flight: buf[s] feeds the multiply-accumulates
	// while buf[s^1] is being loaded.
	buf [tiling.PipelineDepth]hwy.Vec[A]

	// scalars[s][r] is A[r, step] for the step held in buf[s].
	scalars [tiling.PipelineDepth][tiling.MaxBlockSize]A

	load    func(u *hwy.VectorUnit, dst hwy.Vec[A], src []E)
	promote func(E) A
	store   func(u *hwy.VectorUnit, v hwy.Vec[A], dst []E)
}

// NewRowBlockKernel returns a kernel for blocks of bs rows whose registers
// hold up to capacity lanes. capacity must be at least the vector length of
// every tile the kernel runs on.
func NewRowBlockKernel[T hwy.Lanes](bs tiling.BlockSize, capacity int) *RowBlockKernel[T, T] {
	k := &RowBlockKernel[T, T]{
		load:    hwy.Load[T],
		promote: func(x T) T { return x },
		store:   hwy.Store[T],
	}
	k.init(bs, capacity)
	return k
}

// NewWideningKernel returns a kernel that accumulates elements of type E in
// lanes of type A. promote is applied to every loaded element and demote
// once per output element when the tile is drained.
func NewWideningKernel[E, A hwy.Lanes](bs tiling.BlockSize, capacity int, promote func(E) A, demote func(A) E) *RowBlockKernel[E, A] {
	k := &RowBlockKernel[E, A]{
		load: func(u *hwy.VectorUnit, dst hwy.Vec[A], src []E) {
			hwy.LoadPromote(u, dst, src, promote)
		},
		promote: promote,
		store: func(u *hwy.VectorUnit, v hwy.Vec[A], dst []E) {
			hwy.StoreDemote(u, v, dst, demote)
		},
	}
	k.init(bs, capacity)
	return k
}

func (k *RowBlockKernel[E, A]) init(bs tiling.BlockSize, capacity int) {
	if !bs.Valid() {
		panic("RowBlockKernel: unsupported block size")
	}
	k.acc = tiling.NewAccumulator[A](bs, capacity)
	for s := range k.buf {
		k.buf[s] = hwy.NewVec[A](capacity)
	}
}

// BlockSize returns the number of rows the kernel computes per call.
func (k *RowBlockKernel[E, A]) BlockSize() tiling.BlockSize {
	return k.acc.BlockSize()
}

// Run computes rows output rows of width u.VL():
//
//	c[r*p + j] = sum_{s<n} a[r*n + s] * b[s*p + j]   for r < rows, j < u.VL()
//
// a points to the first of rows consecutive rows of A (stride n), b to the
// first element of the column tile in B (stride p) and c to the matching
// element of C (stride p). rows must not exceed the kernel's block size and
// n must be positive.
//
// The reduction runs PipelineDepth steps per iteration: while the B row of
// step s is multiply-accumulated from one buffer, the row of step s+1 is
// loaded into the other. An odd final step is drained from the first buffer
// without a further swap.
func (k *RowBlockKernel[E, A]) Run(u *hwy.VectorUnit, c, a, b []E, rows, n, p int) {
	k.acc.Reset(u)

	// Prologue: first B row and first column of the A block.
	k.load(u, k.buf[0], b)
	k.loadScalars(0, a, rows, n, 0)

	step := 0
	for ; step+tiling.PipelineDepth <= n; step += tiling.PipelineDepth {
		k.stage(u, a, b, rows, n, p, step, 0)
		k.stage(u, a, b, rows, n, p, step+1, 1)
	}
	if step < n {
		k.stage(u, a, b, rows, n, p, step, 0)
	}

	for r := range rows {
		k.store(u, k.acc.Lane(r), c[r*p:])
	}
}

// stage accumulates reduction step `step`, held in buf[s], and issues the
// load of step+1 into the other buffer.
func (k *RowBlockKernel[E, A]) stage(u *hwy.VectorUnit, a, b []E, rows, n, p, step, s int) {
	if next := step + 1; next < n {
		k.load(u, k.buf[s^1], b[next*p:])
		k.loadScalars(s^1, a, rows, n, next)
	}
	k.acc.MulAcc(u, k.scalars[s][:rows], k.buf[s], rows)
}

func (k *RowBlockKernel[E, A]) loadScalars(s int, a []E, rows, n, step int) {
	for r := range rows {
		k.scalars[s][r] = k.promote(a[r*n+step])
	}
}
